package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"svoextract/internal/framesource"
	"svoextract/internal/logging"
	"svoextract/internal/services"
)

const stageName = "preview"

// Options controls rendering.
type Options struct {
	MaxWidth    int
	JPEGQuality int
}

// ErrorInfo is the tagged failure carried by every result.
type ErrorInfo struct {
	Kind    services.Kind `json:"kind"`
	Message string        `json:"message"`
}

// FrameResult is a rendered frame.
type FrameResult struct {
	OK          bool       `json:"ok"`
	View        View       `json:"view,omitempty"`
	Frame       int        `json:"frame"`
	TotalFrames int        `json:"total_frames"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	JPEG        []byte     `json:"-"`
	DataURI     string     `json:"data_uri,omitempty"`
	Error       *ErrorInfo `json:"error,omitempty"`
}

// InfoResult reports recording metadata.
type InfoResult struct {
	OK          bool       `json:"ok"`
	TotalFrames int        `json:"total_frames"`
	Error       *ErrorInfo `json:"error,omitempty"`
}

// InertialResult carries one inertial sample.
type InertialResult struct {
	OK     bool                      `json:"ok"`
	Frame  int                       `json:"frame"`
	Sample *framesource.SensorSample `json:"sample,omitempty"`
	Error  *ErrorInfo                `json:"error,omitempty"`
}

// Service renders previews through a Frame Source opener.
type Service struct {
	opener framesource.Opener
	opts   Options
	logger *slog.Logger
}

// New constructs a preview service.
func New(opener framesource.Opener, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 90
	}
	return &Service{opener: opener, opts: opts, logger: logging.NewComponentLogger(logger, stageName)}
}

// Frame renders one view of one frame. The frame index is clamped into the
// recording's range.
func (s *Service) Frame(ctx context.Context, path string, frame int, view View, mode framesource.DepthMode) (result FrameResult) {
	defer s.recoverInto(&result.OK, &result.Error, "frame")
	src, err := s.open(ctx, path, mode)
	if err != nil {
		return FrameResult{Error: s.failure(err, "frame")}
	}
	defer src.Close()
	return s.renderFrom(src, frame, view)
}

// Info reports the recording's frame count.
func (s *Service) Info(ctx context.Context, path string) (result InfoResult) {
	defer s.recoverInto(&result.OK, &result.Error, "info")
	src, err := s.open(ctx, path, framesource.DefaultDepthMode)
	if err != nil {
		return InfoResult{Error: s.failure(err, "info")}
	}
	defer src.Close()
	return InfoResult{OK: true, TotalFrames: src.TotalFrames()}
}

// Inertial returns the inertial sample attached to a frame.
func (s *Service) Inertial(ctx context.Context, path string, frame int) (result InertialResult) {
	defer s.recoverInto(&result.OK, &result.Error, "inertial")
	src, err := s.open(ctx, path, framesource.DefaultDepthMode)
	if err != nil {
		return InertialResult{Error: s.failure(err, "inertial")}
	}
	defer src.Close()
	return inertialFrom(src, frame, s)
}

// Thumbnail renders the left view of the middle frame.
func (s *Service) Thumbnail(ctx context.Context, path string) (result FrameResult) {
	defer s.recoverInto(&result.OK, &result.Error, "thumbnail")
	src, err := s.open(ctx, path, framesource.DefaultDepthMode)
	if err != nil {
		return FrameResult{Error: s.failure(err, "thumbnail")}
	}
	defer src.Close()
	return s.renderFrom(src, src.TotalFrames()/2, ViewRGBLeft)
}

func (s *Service) open(ctx context.Context, path string, mode framesource.DepthMode) (framesource.Source, error) {
	if s.opener == nil {
		return nil, services.Wrap(services.ErrUnavailable, stageName, "open", "no frame source configured", nil)
	}
	if mode == "" {
		mode = framesource.DefaultDepthMode
	}
	src, err := s.opener.Open(ctx, path, mode)
	if err != nil {
		return nil, services.Wrap(services.ErrOpenFailed, stageName, "open", path, err)
	}
	return src, nil
}

func (s *Service) renderFrom(src framesource.Source, frame int, view View) FrameResult {
	idx, err := seekAndGrab(src, frame)
	if err != nil {
		return FrameResult{Error: s.failure(err, "frame")}
	}
	img, err := renderView(src, view)
	if err != nil {
		return FrameResult{Error: s.failure(classifyRetrieve(err, string(view)), "frame")}
	}
	jpeg, size, err := encodeJPEG(img, s.opts.MaxWidth, s.opts.JPEGQuality)
	if err != nil {
		return FrameResult{Error: s.failure(services.Wrap(services.ErrExtraction, stageName, "encode", "jpeg", err), "frame")}
	}
	return FrameResult{
		OK:          true,
		View:        view,
		Frame:       idx,
		TotalFrames: src.TotalFrames(),
		Width:       size.X,
		Height:      size.Y,
		JPEG:        jpeg,
		DataURI:     DataURI(jpeg),
	}
}

func inertialFrom(src framesource.Source, frame int, s *Service) InertialResult {
	idx, err := seekAndGrab(src, frame)
	if err != nil {
		return InertialResult{Error: s.failure(err, "inertial")}
	}
	sample, err := src.RetrieveSensorSample()
	if err != nil {
		return InertialResult{Frame: idx, Error: s.failure(classifyRetrieve(err, "inertial"), "inertial")}
	}
	return InertialResult{OK: true, Frame: idx, Sample: &sample}
}

// seekAndGrab clamps frame into [0,total) and grabs it.
func seekAndGrab(src framesource.Source, frame int) (int, error) {
	total := src.TotalFrames()
	if total <= 0 {
		return 0, services.Wrap(services.ErrNotFound, stageName, "seek", "recording has no frames", nil)
	}
	if frame < 0 {
		frame = 0
	}
	if frame >= total {
		frame = total - 1
	}
	if err := src.Seek(frame); err != nil {
		return frame, services.Wrap(services.ErrNotFound, stageName, "seek", fmt.Sprintf("frame %d", frame), err)
	}
	if err := src.Grab(); err != nil {
		return frame, services.Wrap(services.ErrNotFound, stageName, "grab", fmt.Sprintf("frame %d", frame), err)
	}
	return frame, nil
}

func classifyRetrieve(err error, what string) error {
	if errors.Is(err, framesource.ErrUnavailable) {
		return services.Wrap(services.ErrUnavailable, stageName, "retrieve", what, err)
	}
	return services.Wrap(services.ErrExtraction, stageName, "retrieve", what, err)
}

func (s *Service) failure(err error, op string) *ErrorInfo {
	details := services.Details(err)
	s.logger.Warn("preview failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.Event("preview_failed"),
		logging.Hint("check the recording path and frame source backend"),
	)
	return &ErrorInfo{Kind: details.Kind, Message: err.Error()}
}

func (s *Service) recoverInto(ok *bool, info **ErrorInfo, op string) {
	if r := recover(); r != nil {
		*ok = false
		*info = s.failure(services.Wrap(services.ErrExtraction, stageName, op, "frame source panic", fmt.Errorf("%v", r)), op)
	}
}
