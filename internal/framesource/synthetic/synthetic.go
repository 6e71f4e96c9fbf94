// Package synthetic implements a deterministic frame source backend.
//
// Recordings for this backend are small YAML documents describing the frame
// geometry, so demos and tests can run the full extraction pipeline without
// the proprietary SDK. Pixel and measure values are pure functions of the
// frame index, pixel position and depth mode.
package synthetic

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"svoextract/internal/framesource"
)

// BackendName is the registry key for this backend.
const BackendName = "synthetic"

func init() {
	framesource.Register(BackendName, FileOpener{})
}

// Options describes a synthetic recording.
type Options struct {
	Frames int `yaml:"frames"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// EndAt truncates the stream: grabbing at or beyond this index yields
	// ErrEndOfStream even though TotalFrames reports Frames. Zero disables.
	EndAt int `yaml:"end_at,omitempty"`
	// FailGrabAt makes Grab fail at this source index. Negative disables.
	FailGrabAt int `yaml:"fail_grab_at"`
	// FailMeasureAt makes RetrieveMeasure fail at this source index.
	FailMeasureAt int  `yaml:"fail_measure_at"`
	NoInertial    bool `yaml:"no_inertial,omitempty"`
	// InvalidPoints marks every point cloud position as NaN.
	InvalidPoints bool `yaml:"invalid_points,omitempty"`
}

// DefaultOptions returns a small healthy recording.
func DefaultOptions() Options {
	return Options{
		Frames:        30,
		Width:         32,
		Height:        24,
		FailGrabAt:    -1,
		FailMeasureAt: -1,
	}
}

type document struct {
	Synthetic *Options `yaml:"synthetic"`
}

// WriteRecording stores opts as a recording file readable by FileOpener.
func WriteRecording(path string, opts Options) error {
	data, err := yaml.Marshal(document{Synthetic: &opts})
	if err != nil {
		return fmt.Errorf("encode synthetic recording: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write synthetic recording: %w", err)
	}
	return nil
}

// ReadRecording parses a recording file written by WriteRecording.
func ReadRecording(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, err
	}
	opts := DefaultOptions()
	doc := document{Synthetic: &opts}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Options{}, fmt.Errorf("not a synthetic recording: %w", err)
	}
	if doc.Synthetic == nil {
		return Options{}, errors.New("not a synthetic recording: missing synthetic section")
	}
	return opts, nil
}

// FileOpener reads recording descriptions from disk.
type FileOpener struct{}

// Open implements framesource.Opener.
func (FileOpener) Open(ctx context.Context, path string, mode framesource.DepthMode) (framesource.Source, error) {
	opts, err := ReadRecording(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", framesource.ErrOpenFailed, path, err)
	}
	return New(opts).Open(ctx, path, mode)
}

// Opener serves a fixed recording description regardless of path.
type Opener struct {
	opts  Options
	opens atomic.Int64
}

// New returns an Opener that produces handles for opts.
func New(opts Options) *Opener {
	return &Opener{opts: opts}
}

// Opens reports how many handles have been opened.
func (o *Opener) Opens() int {
	return int(o.opens.Load())
}

// Open implements framesource.Opener.
func (o *Opener) Open(ctx context.Context, path string, mode framesource.DepthMode) (framesource.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.opts.Frames < 0 || o.opts.Width <= 0 || o.opts.Height <= 0 {
		return nil, fmt.Errorf("%w: %s: invalid geometry %dx%d", framesource.ErrOpenFailed, path, o.opts.Width, o.opts.Height)
	}
	o.opens.Add(1)
	return &Source{opts: o.opts, mode: mode, grabbed: -1}, nil
}

// Source is a synthetic handle.
type Source struct {
	opts     Options
	mode     framesource.DepthMode
	position int
	grabbed  int
	closed   bool
}

// Mode returns the depth mode the handle was opened with.
func (s *Source) Mode() framesource.DepthMode {
	return s.mode
}

func (s *Source) TotalFrames() int {
	return s.opts.Frames
}

func (s *Source) Seek(frame int) error {
	if s.closed {
		return errors.New("source closed")
	}
	if frame < 0 {
		frame = 0
	}
	s.position = frame
	return nil
}

func (s *Source) Grab() error {
	if s.closed {
		return errors.New("source closed")
	}
	limit := s.opts.Frames
	if s.opts.EndAt > 0 && s.opts.EndAt < limit {
		limit = s.opts.EndAt
	}
	if s.position >= limit {
		s.grabbed = -1
		return framesource.ErrEndOfStream
	}
	if s.opts.FailGrabAt >= 0 && s.position == s.opts.FailGrabAt {
		s.grabbed = -1
		return fmt.Errorf("corrupted frame %d", s.position)
	}
	s.grabbed = s.position
	s.position++
	return nil
}

func (s *Source) Close() error {
	s.closed = true
	return nil
}

func (s *Source) current() (int, error) {
	if s.closed {
		return 0, errors.New("source closed")
	}
	if s.grabbed < 0 {
		return 0, errors.New("no frame grabbed")
	}
	return s.grabbed, nil
}

func (s *Source) RetrieveImage(view framesource.View) (*image.NRGBA, error) {
	frame, err := s.current()
	if err != nil {
		return nil, err
	}
	w, h := s.opts.Width, s.opts.Height
	shift := 0
	if view == framesource.ViewRight {
		shift = 2
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, s.pixel((x+shift)%w, y, frame))
		}
	}
	return img, nil
}

func (s *Source) pixel(x, y, frame int) color.NRGBA {
	return color.NRGBA{
		R: uint8(x * 127 / max(s.opts.Width-1, 1)),
		G: uint8(y * 255 / max(s.opts.Height-1, 1)),
		B: uint8(frame % 256),
		A: 255,
	}
}

// DepthAt returns the synthetic depth for a pixel. The top-left pixel is
// always +Inf to model out-of-range readings.
func (s *Source) DepthAt(x, y, frame int) float32 {
	if x == 0 && y == 0 {
		return float32(math.Inf(1))
	}
	base := 1.0 + float64(frame)*0.01 + float64(x)*0.05 + float64(y)*0.02
	return float32(base * modeScale(s.mode))
}

func modeScale(mode framesource.DepthMode) float64 {
	switch mode {
	case framesource.DepthNeural:
		return 1.0
	case framesource.DepthQuality:
		return 1.1
	case framesource.DepthPerformance:
		return 1.25
	default:
		return 1.05
	}
}

func (s *Source) RetrieveMeasure(kind framesource.MeasureKind) (*framesource.Measure, error) {
	frame, err := s.current()
	if err != nil {
		return nil, err
	}
	if s.opts.FailMeasureAt >= 0 && frame == s.opts.FailMeasureAt {
		return nil, fmt.Errorf("retrieve %s failed at frame %d", kind, frame)
	}
	w, h := s.opts.Width, s.opts.Height
	channels := 1
	if kind == framesource.MeasurePointCloud || kind == framesource.MeasureNormals {
		channels = 4
	}
	m := &framesource.Measure{Width: w, Height: h, Channels: channels, Data: make([]float32, w*h*channels)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * channels
			switch kind {
			case framesource.MeasureDepth:
				m.Data[i] = s.DepthAt(x, y, frame)
			case framesource.MeasureConfidence:
				m.Data[i] = float32((x + y + frame) % 101)
			case framesource.MeasureNormals:
				nx := float64(x)/float64(w) - 0.5
				ny := float64(y)/float64(h) - 0.5
				nz := math.Sqrt(math.Max(0, 1-nx*nx-ny*ny))
				m.Data[i], m.Data[i+1], m.Data[i+2] = float32(nx), float32(ny), float32(nz)
			case framesource.MeasurePointCloud:
				z := s.DepthAt(x, y, frame)
				px := (float32(x) - float32(w)/2) * z / float32(w)
				py := (float32(y) - float32(h)/2) * z / float32(w)
				if s.opts.InvalidPoints {
					px, py, z = float32(math.NaN()), float32(math.NaN()), float32(math.NaN())
				}
				c := s.pixel(x, y, frame)
				m.Data[i], m.Data[i+1], m.Data[i+2] = px, py, z
				m.Data[i+3] = PackColor(c.R, c.G, c.B, 0x3F)
			}
		}
	}
	return m, nil
}

func (s *Source) RetrieveSensorSample() (framesource.SensorSample, error) {
	frame, err := s.current()
	if err != nil {
		return framesource.SensorSample{}, err
	}
	if s.opts.NoInertial {
		return framesource.SensorSample{}, framesource.ErrUnavailable
	}
	angle := float64(frame) * 0.01
	return framesource.SensorSample{
		TimestampMs:        int64(frame) * 33,
		Orientation:        [4]float64{0, 0, math.Sin(angle / 2), math.Cos(angle / 2)},
		AngularVelocity:    [3]float64{0, 0, 0.3},
		LinearAcceleration: [3]float64{0, 0, -9.81},
	}, nil
}

// PackColor stores RGBA bytes in a float32 bit pattern the same way the
// camera SDK does: alpha in bits 24-31, red 16-23, green 8-15, blue 0-7.
func PackColor(r, g, b, a uint8) float32 {
	bits := uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	return math.Float32frombits(bits)
}
