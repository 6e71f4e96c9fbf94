package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"svoextract/internal/framesource"
)

// NewJob creates a pending job over the given recordings in submission order.
func (s *Store) NewJob(ctx context.Context, req Request, recordingIDs []int64) (*Job, error) {
	ctx = ensureContext(ctx)
	if len(recordingIDs) == 0 {
		return nil, errors.New("job requires at least one recording")
	}
	seen := make(map[int64]struct{}, len(recordingIDs))
	for _, id := range recordingIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("recording %d listed twice", id)
		}
		seen[id] = struct{}{}
	}
	if req.Categories.Empty() {
		return nil, errors.New("job requires at least one category")
	}
	if req.DepthMode == "" {
		req.DepthMode = framesource.DefaultDepthMode
	}
	if req.FrameStep == 0 {
		req.FrameStep = 1
	}

	var jobID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (status, progress, categories, depth_mode, frame_start, frame_end,
			 frame_step, created_at, updated_at) VALUES (?, 0, ?, ?, ?, ?, ?, ?, ?)`,
			StatusPending, encodeSelection(req.Categories), string(req.DepthMode),
			req.FrameStart, nullableInt(req.FrameEnd), req.FrameStep, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		jobID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("job id: %w", err)
		}
		for pos, recID := range recordingIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO job_recordings (job_id, recording_id, position) VALUES (?, ?, ?)`,
				jobID, recID, pos,
			); err != nil {
				return fmt.Errorf("link recording %d: %w", recID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetJob(ctx, jobID)
}

// GetJob fetches a job by id. Returns nil when absent.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if err := s.attachRecordingIDs(ctx, []*Job{job}); err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns jobs filtered by status, oldest first. No statuses lists all.
func (s *Store) ListJobs(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachRecordingIDs(ctx, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *Store) attachRecordingIDs(ctx context.Context, jobs []*Job) error {
	if len(jobs) == 0 {
		return nil
	}
	byID := make(map[int64]*Job, len(jobs))
	args := make([]any, 0, len(jobs))
	for _, job := range jobs {
		byID[job.ID] = job
		args = append(args, job.ID)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, recording_id FROM job_recordings WHERE job_id IN (`+makePlaceholders(len(args))+`)
		 ORDER BY job_id, position`, args...)
	if err != nil {
		return fmt.Errorf("list job recordings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var jobID, recID int64
		if err := rows.Scan(&jobID, &recID); err != nil {
			return fmt.Errorf("scan job recording: %w", err)
		}
		if job := byID[jobID]; job != nil {
			job.RecordingIDs = append(job.RecordingIDs, recID)
		}
	}
	return rows.Err()
}

// NextPending returns the oldest pending job, or nil when the queue is idle.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1`, StatusPending)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending job: %w", err)
	}
	if err := s.attachRecordingIDs(ctx, []*Job{job}); err != nil {
		return nil, err
	}
	return job, nil
}

// StartJob moves a pending job to processing and creates one pending file
// state per recording in submission order.
func (s *Store) StartJob(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		res, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, progress = 0, started_at = ?, updated_at = ?, last_heartbeat = ?
			 WHERE id = ? AND status = ?`,
			StatusProcessing, now, now, now, id, StatusPending,
		)
		if err != nil {
			return fmt.Errorf("start job: %w", err)
		}
		if err := requireAffected(res, "job %d: pending -> processing", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO file_states (job_id, recording_id, position, status)
			 SELECT job_id, recording_id, position, ? FROM job_recordings WHERE job_id = ? ORDER BY position`,
			StatusPending, id,
		); err != nil {
			return fmt.Errorf("create file states: %w", err)
		}
		return nil
	})
}

// UpdateJobProgress records overall progress for a processing job. Progress
// never decreases.
func (s *Store) UpdateJobProgress(ctx context.Context, id int64, progress float64) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET progress = MAX(progress, ?), updated_at = ? WHERE id = ? AND status = ?`,
		clampPercent(progress), nowString(), id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return requireAffected(res, "job %d: progress requires processing", id)
}

// CompleteJob marks a processing job completed with its bundle location.
func (s *Store) CompleteJob(ctx context.Context, id int64, bundlePath string) error {
	now := nowString()
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, progress = 100, bundle_path = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		StatusCompleted, nullableString(bundlePath), now, now, id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return requireAffected(res, "job %d: processing -> completed", id)
}

// FailJob marks a processing job failed. Progress keeps its last value.
func (s *Store) FailJob(ctx context.Context, id int64, message string) error {
	now := nowString()
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		StatusFailed, nullableString(message), now, now, id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return requireAffected(res, "job %d: processing -> failed", id)
}

// FailOrphanedProcessing fails every job and file state left processing,
// typically after an unclean daemon exit. It returns the number of jobs failed.
func (s *Store) FailOrphanedProcessing(ctx context.Context, reason string) (int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(reason) == "" {
		reason = DaemonStopReason
	}
	var failed int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		if _, err := tx.ExecContext(ctx,
			`UPDATE file_states SET status = ?, error_message = ?, completed_at = ? WHERE status = ?`,
			StatusFailed, reason, now, StatusProcessing,
		); err != nil {
			return fmt.Errorf("fail orphaned files: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, error_message = ?, completed_at = ?, updated_at = ? WHERE status = ?`,
			StatusFailed, reason, now, now, StatusProcessing,
		)
		if err != nil {
			return fmt.Errorf("fail orphaned jobs: %w", err)
		}
		failed, err = res.RowsAffected()
		return err
	})
	return failed, err
}

// UpdateHeartbeat records liveness for a processing job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET last_heartbeat = ? WHERE id = ? AND status = ?`,
		nowString(), id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return requireAffected(res, "job %d: heartbeat requires processing", id)
}

// DeletedJob describes what a job deletion removed from the database so the
// caller can clean up the files behind it.
type DeletedJob struct {
	Job           *Job
	ArtifactPaths []string
	RecordingIDs  []int64
}

// DeleteJob removes a job with its file states and artifacts. Processing jobs
// are refused with ErrJobBusy. Returns nil when the job does not exist.
func (s *Store) DeleteJob(ctx context.Context, id int64) (*DeletedJob, error) {
	ctx = ensureContext(ctx)
	job, err := s.GetJob(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	if job.Status == StatusProcessing {
		return nil, fmt.Errorf("delete job %d: %w", id, ErrJobBusy)
	}
	artifacts, err := s.ListArtifacts(ctx, id)
	if err != nil {
		return nil, err
	}
	deleted := &DeletedJob{Job: job, RecordingIDs: append([]int64(nil), job.RecordingIDs...)}
	for _, a := range artifacts {
		deleted.ArtifactPaths = append(deleted.ArtifactPaths, a.Path)
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ? AND status <> ?`, id, StatusProcessing)
		if err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("delete job %d: %w", id, ErrJobBusy)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func requireAffected(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrTransition)
	}
	return nil
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
