package queue

import (
	"database/sql"
	"strings"
	"time"

	"svoextract/internal/extract"
	"svoextract/internal/framesource"
)

const (
	jobColumns = `id, status, progress, error_message, bundle_path, categories, depth_mode,
	frame_start, frame_end, frame_step, created_at, updated_at, started_at, completed_at, last_heartbeat`
	fileStateColumns = `id, job_id, recording_id, position, status, progress, current_frame,
	total_frames, error_message, started_at, completed_at`
	artifactColumns  = `id, job_id, recording_id, category, kind, path, name, frame_index, size_bytes, created_at`
	recordingColumns = `id, name, path, size_bytes, created_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job           Job
		status        string
		errorMessage  sql.NullString
		bundlePath    sql.NullString
		categories    string
		depthMode     string
		frameEnd      sql.NullInt64
		createdAt     string
		updatedAt     string
		startedAt     sql.NullString
		completedAt   sql.NullString
		lastHeartbeat sql.NullString
	)
	if err := scanner.Scan(
		&job.ID, &status, &job.Progress, &errorMessage, &bundlePath, &categories, &depthMode,
		&job.Request.FrameStart, &frameEnd, &job.Request.FrameStep,
		&createdAt, &updatedAt, &startedAt, &completedAt, &lastHeartbeat,
	); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.ErrorMessage = errorMessage.String
	job.BundlePath = bundlePath.String
	job.Request.Categories = decodeSelection(categories)
	job.Request.DepthMode = framesource.DepthMode(depthMode)
	if frameEnd.Valid {
		end := int(frameEnd.Int64)
		job.Request.FrameEnd = &end
	}
	job.CreatedAt = parseTimeString(createdAt)
	job.UpdatedAt = parseTimeString(updatedAt)
	job.StartedAt = parseNullTime(startedAt)
	job.CompletedAt = parseNullTime(completedAt)
	job.LastHeartbeat = parseNullTime(lastHeartbeat)
	return &job, nil
}

func scanFileState(scanner rowScanner) (*FileState, error) {
	var (
		state        FileState
		status       string
		errorMessage sql.NullString
		startedAt    sql.NullString
		completedAt  sql.NullString
	)
	if err := scanner.Scan(
		&state.ID, &state.JobID, &state.RecordingID, &state.Position, &status, &state.Progress,
		&state.CurrentFrame, &state.TotalFrames, &errorMessage, &startedAt, &completedAt,
	); err != nil {
		return nil, err
	}
	state.Status = Status(status)
	state.ErrorMessage = errorMessage.String
	state.StartedAt = parseNullTime(startedAt)
	state.CompletedAt = parseNullTime(completedAt)
	return &state, nil
}

func scanArtifact(scanner rowScanner) (*Artifact, error) {
	var (
		artifact   Artifact
		category   string
		kind       string
		frameIndex sql.NullInt64
		createdAt  string
	)
	if err := scanner.Scan(
		&artifact.ID, &artifact.JobID, &artifact.RecordingID, &category, &kind,
		&artifact.Path, &artifact.Name, &frameIndex, &artifact.SizeBytes, &createdAt,
	); err != nil {
		return nil, err
	}
	artifact.Category = extract.Category(category)
	artifact.Kind = extract.Kind(kind)
	if frameIndex.Valid {
		idx := int(frameIndex.Int64)
		artifact.FrameIndex = &idx
	}
	artifact.CreatedAt = parseTimeString(createdAt)
	return &artifact, nil
}

func scanRecording(scanner rowScanner) (*Recording, error) {
	var (
		rec       Recording
		createdAt string
	)
	if err := scanner.Scan(&rec.ID, &rec.Name, &rec.Path, &rec.SizeBytes, &createdAt); err != nil {
		return nil, err
	}
	rec.CreatedAt = parseTimeString(createdAt)
	return &rec, nil
}

func encodeSelection(sel extract.Selection) string {
	return sel.String()
}

func decodeSelection(value string) extract.Selection {
	sel := extract.Selection{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sel[extract.Category(part)] = true
	}
	return sel
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nowString() string {
	return formatTime(time.Now())
}

func parseTimeString(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseNullTime(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t := parseTimeString(value.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
