package framesource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrEndOfStream signals that no further frames can be grabbed. It is a
	// valid termination, not a failure.
	ErrEndOfStream = errors.New("end of stream")
	// ErrOpenFailed is returned when a backend rejects a recording.
	ErrOpenFailed = errors.New("frame source open failed")
	// ErrUnavailable is returned when the requested data does not exist for
	// the current frame, such as inertial data on a recording without an IMU.
	ErrUnavailable = errors.New("data unavailable")
	// ErrUnknownBackend is returned by Lookup for unregistered names.
	ErrUnknownBackend = errors.New("unknown frame source backend")
)

// DepthMode selects the depth computation quality used when opening a handle.
type DepthMode string

const (
	DepthNeural      DepthMode = "NEURAL"
	DepthUltra       DepthMode = "ULTRA"
	DepthQuality     DepthMode = "QUALITY"
	DepthPerformance DepthMode = "PERFORMANCE"

	DefaultDepthMode = DepthUltra
)

// DepthModes lists every supported mode in display order.
func DepthModes() []DepthMode {
	return []DepthMode{DepthNeural, DepthUltra, DepthQuality, DepthPerformance}
}

// ParseDepthMode accepts a mode name in any case. Blank input yields the default.
func ParseDepthMode(value string) (DepthMode, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return DefaultDepthMode, nil
	}
	for _, mode := range DepthModes() {
		if string(mode) == trimmed {
			return mode, nil
		}
	}
	return "", fmt.Errorf("unsupported depth mode %q", value)
}

// View names a rectified camera image.
type View int

const (
	ViewLeft View = iota
	ViewRight
)

func (v View) String() string {
	switch v {
	case ViewLeft:
		return "left"
	case ViewRight:
		return "right"
	default:
		return fmt.Sprintf("view(%d)", int(v))
	}
}

// MeasureKind names a per-pixel float measure.
type MeasureKind int

const (
	MeasureDepth MeasureKind = iota
	// MeasurePointCloud has four channels: x, y, z and a packed colour whose
	// float32 bit pattern holds the RGBA bytes.
	MeasurePointCloud
	MeasureConfidence
	// MeasureNormals has four channels: nx, ny, nz and padding.
	MeasureNormals
)

func (k MeasureKind) String() string {
	switch k {
	case MeasureDepth:
		return "depth"
	case MeasurePointCloud:
		return "point_cloud"
	case MeasureConfidence:
		return "confidence"
	case MeasureNormals:
		return "normals"
	default:
		return fmt.Sprintf("measure(%d)", int(k))
	}
}

// Measure is a row-major float buffer of Height x Width x Channels values.
type Measure struct {
	Width    int
	Height   int
	Channels int
	Data     []float32
}

// At returns the value at pixel (x, y) for channel c.
func (m *Measure) At(x, y, c int) float32 {
	return m.Data[(y*m.Width+x)*m.Channels+c]
}

// Shape returns the array shape in (rows, cols[, channels]) order.
func (m *Measure) Shape() []int {
	if m.Channels <= 1 {
		return []int{m.Height, m.Width}
	}
	return []int{m.Height, m.Width, m.Channels}
}

// SensorSample is one inertial reading tied to a grabbed frame.
type SensorSample struct {
	TimestampMs int64
	// Orientation quaternion in x, y, z, w order.
	Orientation        [4]float64
	AngularVelocity    [3]float64
	LinearAcceleration [3]float64
}

// Frame exposes retrieval for the most recently grabbed frame.
type Frame interface {
	RetrieveImage(view View) (*image.NRGBA, error)
	RetrieveMeasure(kind MeasureKind) (*Measure, error)
	RetrieveSensorSample() (SensorSample, error)
}

// Source is an open handle over one recording.
type Source interface {
	Frame
	TotalFrames() int
	Seek(frame int) error
	// Grab decodes the frame at the current position and advances. It
	// returns ErrEndOfStream when the recording is exhausted.
	Grab() error
	Close() error
}

// Opener opens recordings. The depth mode is fixed for the life of a handle.
type Opener interface {
	Open(ctx context.Context, path string, mode DepthMode) (Source, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, path string, mode DepthMode) (Source, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, path string, mode DepthMode) (Source, error) {
	return f(ctx, path, mode)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Opener{}
)

// Register makes a backend available under name. Registering the same name
// twice replaces the previous backend.
func Register(name string, opener Opener) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || opener == nil {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = opener
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Opener, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	defer registryMu.RUnlock()
	opener, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownBackend, name, strings.Join(backendNamesLocked(), ", "))
	}
	return opener, nil
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return backendNamesLocked()
}

func backendNamesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
