package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Recording describes an uploaded recording.
type Recording struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Job describes an extraction job in a transport-friendly format.
type Job struct {
	ID           int64    `json:"id"`
	Status       string   `json:"status"`
	Progress     float64  `json:"progress"`
	ErrorMessage string   `json:"error_message"`
	BundlePath   string   `json:"bundle_path,omitempty"`
	Categories   []string `json:"categories"`
	DepthMode    string   `json:"depth_mode"`
	FrameStart   int      `json:"frame_start"`
	FrameEnd     *int     `json:"frame_end,omitempty"`
	FrameStep    int      `json:"frame_step"`
	RecordingIDs []int64  `json:"recording_ids"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
	StartedAt    string   `json:"started_at,omitempty"`
	CompletedAt  string   `json:"completed_at,omitempty"`
}

// JobProgress is the progress payload polled while a job runs.
type JobProgress struct {
	JobID        int64          `json:"job_id"`
	Status       string         `json:"status"`
	Progress     float64        `json:"progress"`
	ErrorMessage string         `json:"error_message"`
	Files        []FileProgress `json:"files"`
}

// FileProgress captures one recording's pipeline state inside a job.
type FileProgress struct {
	RecordingID  int64   `json:"recording_id"`
	Filename     string  `json:"filename"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	CurrentFrame int     `json:"current_frame"`
	TotalFrames  int     `json:"total_frames"`
	ErrorMessage string  `json:"error_message"`
}

// Artifact describes one extracted output file.
type Artifact struct {
	ID          int64  `json:"id"`
	RecordingID int64  `json:"recording_id"`
	Category    string `json:"category"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	FrameIndex  *int   `json:"frame_index,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Check mirrors a preflight readiness result.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	ActiveJobID int64          `json:"active_job_id,omitempty"`
	JobStats    map[string]int `json:"job_stats"`
	LastError   string         `json:"last_error,omitempty"`
	LastJob     *Job           `json:"last_job,omitempty"`
	StaleJobIDs []int64        `json:"stale_job_ids,omitempty"`
	Checks      []Check        `json:"checks"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"database_path"`
	LockFilePath string         `json:"lock_file_path"`
	LogPath      string         `json:"log_path"`
	Backend      string         `json:"backend"`
	Backends     []string       `json:"backends"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// SubmitRequest is the body accepted when creating a job. Omitted fields take
// the configured extraction defaults.
type SubmitRequest struct {
	RecordingIDs []int64  `json:"recording_ids"`
	Categories   []string `json:"categories,omitempty"`
	DepthMode    string   `json:"depth_mode,omitempty"`
	FrameStart   int      `json:"frame_start,omitempty"`
	FrameEnd     *int     `json:"frame_end,omitempty"`
	FrameStep    int      `json:"frame_step,omitempty"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// RecordingListResponse wraps a collection of recordings.
type RecordingListResponse struct {
	Recordings []Recording `json:"recordings"`
}

// ArtifactListResponse wraps a job's artifacts in display order.
type ArtifactListResponse struct {
	JobID     int64      `json:"job_id"`
	Artifacts []Artifact `json:"artifacts"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
