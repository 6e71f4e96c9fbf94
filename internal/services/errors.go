package services

import (
	"errors"
	"strings"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrOpenFailed           = errors.New("open failed")
	ErrExtraction           = errors.New("extraction error")
	ErrPackaging            = errors.New("packaging error")
	ErrNotFound             = errors.New("not found")
	ErrUnavailable          = errors.New("unavailable")
	ErrTransient            = errors.New("transient failure")
)

// Kind is the coarse classification of a wrapped error.
type Kind string

const (
	KindInvalidConfiguration Kind = "invalid_configuration"
	KindOpenFailed           Kind = "open_failed"
	KindExtraction           Kind = "extraction"
	KindPackaging            Kind = "packaging"
	KindNotFound             Kind = "not_found"
	KindUnavailable          Kind = "unavailable"
	KindTransient            Kind = "transient"
)

// Error carries the stage/operation context attached by Wrap.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	marker := ErrTransient
	if e.Marker != nil {
		marker = e.Marker
	}
	if e.Cause != nil {
		return marker.Error() + ": " + detail + ": " + e.Cause.Error()
	}
	return marker.Error() + ": " + detail
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Marker}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails is the flattened view of a wrapped error used for logging and
// persistence.
type ErrorDetails struct {
	Kind      Kind
	Stage     string
	Operation string
	Message   string
	Cause     error
}

// Details extracts structured fields from err. Errors that were not produced
// by Wrap report their full text as the message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: KindOf(err)}
	var wrapped *Error
	if errors.As(err, &wrapped) {
		details.Stage = wrapped.Stage
		details.Operation = wrapped.Operation
		details.Message = wrapped.Error()
		details.Cause = wrapped.Cause
		return details
	}
	details.Message = err.Error()
	return details
}

// KindOf maps err onto its classification.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfiguration):
		return KindInvalidConfiguration
	case errors.Is(err, ErrOpenFailed):
		return KindOpenFailed
	case errors.Is(err, ErrExtraction):
		return KindExtraction
	case errors.Is(err, ErrPackaging):
		return KindPackaging
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	default:
		return KindTransient
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
