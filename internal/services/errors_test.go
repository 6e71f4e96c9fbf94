package services_test

import (
	"errors"
	"strings"
	"testing"

	"svoextract/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExtraction, "pipeline", "depth", "write raw measure", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extraction error", "pipeline", "depth", "write raw measure", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrInvalidConfiguration, "pipeline", "range", "step must be >= 1", nil)
	if got := err.Error(); got != "invalid configuration: pipeline: range: step must be >= 1" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if got := err.Error(); got != "transient failure: service failure" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want services.Kind
	}{
		{nil, ""},
		{services.Wrap(services.ErrOpenFailed, "s", "o", "m", nil), services.KindOpenFailed},
		{services.Wrap(services.ErrPackaging, "s", "o", "m", nil), services.KindPackaging},
		{services.Wrap(services.ErrNotFound, "s", "o", "m", nil), services.KindNotFound},
		{services.Wrap(services.ErrUnavailable, "s", "o", "m", nil), services.KindUnavailable},
		{errors.New("plain"), services.KindTransient},
	}
	for _, tc := range cases {
		if got := services.KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestDetails(t *testing.T) {
	cause := errors.New("disk full")
	err := services.Wrap(services.ErrPackaging, "packager", "zip", "write bundle", cause)
	details := services.Details(err)
	if details.Kind != services.KindPackaging {
		t.Fatalf("kind = %q", details.Kind)
	}
	if details.Stage != "packager" || details.Operation != "zip" {
		t.Fatalf("unexpected stage/operation: %+v", details)
	}
	if details.Cause != cause {
		t.Fatalf("expected cause to be preserved")
	}
	if details.Message != err.Error() {
		t.Fatalf("message = %q, want %q", details.Message, err.Error())
	}

	plain := services.Details(errors.New("plain failure"))
	if plain.Message != "plain failure" || plain.Kind != services.KindTransient {
		t.Fatalf("unexpected plain details: %+v", plain)
	}
}
