package api

import (
	"time"

	"svoextract/internal/preflight"
	"svoextract/internal/queue"
	"svoextract/internal/workflow"
)

// FromRecording converts a stored recording to its API representation.
func FromRecording(rec *queue.Recording) Recording {
	if rec == nil {
		return Recording{}
	}
	return Recording{
		ID:        rec.ID,
		Name:      rec.Name,
		Path:      rec.Path,
		SizeBytes: rec.SizeBytes,
		CreatedAt: formatTime(rec.CreatedAt),
	}
}

// FromRecordings converts a slice of recordings.
func FromRecordings(recs []*queue.Recording) []Recording {
	out := make([]Recording, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecording(rec))
	}
	return out
}

// FromJob converts a job record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	categories := make([]string, 0, len(job.Request.Categories))
	for _, c := range job.Request.Categories.List() {
		categories = append(categories, string(c))
	}
	dto := Job{
		ID:           job.ID,
		Status:       string(job.Status),
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
		BundlePath:   job.BundlePath,
		Categories:   categories,
		DepthMode:    string(job.Request.DepthMode),
		FrameStart:   job.Request.FrameStart,
		FrameEnd:     job.Request.FrameEnd,
		FrameStep:    job.Request.FrameStep,
		RecordingIDs: append([]int64{}, job.RecordingIDs...),
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
	}
	if job.StartedAt != nil {
		dto.StartedAt = formatTime(*job.StartedAt)
	}
	if job.CompletedAt != nil {
		dto.CompletedAt = formatTime(*job.CompletedAt)
	}
	return dto
}

// FromJobs converts a slice of jobs.
func FromJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromProgress builds the progress payload for job. Recordings supply the
// file names; states missing from the store are reported as pending.
func FromProgress(job *queue.Job, recordings []*queue.Recording, states []*queue.FileState) JobProgress {
	byRecording := make(map[int64]*queue.FileState, len(states))
	for _, st := range states {
		byRecording[st.RecordingID] = st
	}
	out := JobProgress{
		JobID:        job.ID,
		Status:       string(job.Status),
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
		Files:        make([]FileProgress, 0, len(recordings)),
	}
	for _, rec := range recordings {
		file := FileProgress{
			RecordingID: rec.ID,
			Filename:    rec.Name,
			Status:      string(queue.StatusPending),
		}
		if st, ok := byRecording[rec.ID]; ok {
			file.Status = string(st.Status)
			file.Progress = st.Progress
			file.CurrentFrame = st.CurrentFrame
			file.TotalFrames = st.TotalFrames
			file.ErrorMessage = st.ErrorMessage
		}
		out.Files = append(out.Files, file)
	}
	return out
}

// FromArtifacts converts stored artifacts, keeping their order.
func FromArtifacts(items []*queue.Artifact) []Artifact {
	out := make([]Artifact, 0, len(items))
	for _, a := range items {
		out = append(out, Artifact{
			ID:          a.ID,
			RecordingID: a.RecordingID,
			Category:    string(a.Category),
			Kind:        string(a.Kind),
			Name:        a.Name,
			Path:        a.Path,
			FrameIndex:  a.FrameIndex,
			SizeBytes:   a.SizeBytes,
		})
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []Check {
	out := make([]Check, 0, len(results))
	for _, r := range results {
		out = append(out, Check{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	stats := MergeJobStats(summary.JobStats)
	wf := WorkflowStatus{
		Running:     summary.Running,
		ActiveJobID: summary.ActiveJobID,
		JobStats:    stats,
		LastError:   summary.LastError,
		StaleJobIDs: summary.StaleJobIDs,
		Checks:      FromChecks(summary.Checks),
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// MergeJobStats keys counts by status string and fills in zero counts for
// every known status.
func MergeJobStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = 0
	}
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
