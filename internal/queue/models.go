package queue

import (
	"time"

	"svoextract/internal/extract"
	"svoextract/internal/framesource"
)

// Status represents a job or file pipeline lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is recorded on jobs interrupted by a daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Recording is an uploaded stereo recording.
type Recording struct {
	ID        int64
	Name      string
	Path      string
	SizeBytes int64
	CreatedAt time.Time
}

// Request captures what a job extracts. It is immutable once the job starts.
type Request struct {
	Categories extract.Selection
	DepthMode  framesource.DepthMode
	FrameStart int
	FrameEnd   *int
	FrameStep  int
}

// Job is one extraction request over an ordered set of recordings.
type Job struct {
	ID            int64
	Status        Status
	Progress      float64
	ErrorMessage  string
	BundlePath    string
	Request       Request
	RecordingIDs  []int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	LastHeartbeat *time.Time
}

// FileState tracks one recording's pipeline run inside a job.
type FileState struct {
	ID           int64
	JobID        int64
	RecordingID  int64
	Position     int
	Status       Status
	Progress     float64
	CurrentFrame int
	TotalFrames  int
	ErrorMessage string
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Artifact is a persisted extraction output.
type Artifact struct {
	ID          int64
	JobID       int64
	RecordingID int64
	Category    extract.Category
	Kind        extract.Kind
	Path        string
	Name        string
	FrameIndex  *int
	SizeBytes   int64
	CreatedAt   time.Time
}

// FileProgress is a snapshot of one file's progress written by a pipeline run.
type FileProgress struct {
	Progress     float64
	CurrentFrame int
	TotalFrames  int
}
