package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"svoextract/internal/extract"
)

// ListFileStates returns a job's file states in submission order.
func (s *Store) ListFileStates(ctx context.Context, jobID int64) ([]*FileState, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+fileStateColumns+` FROM file_states WHERE job_id = ? ORDER BY position`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list file states: %w", err)
	}
	defer rows.Close()
	var out []*FileState
	for rows.Next() {
		state, err := scanFileState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file state: %w", err)
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

// GetFileState fetches the state of one recording inside a job. Returns nil when absent.
func (s *Store) GetFileState(ctx context.Context, jobID, recordingID int64) (*FileState, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+fileStateColumns+` FROM file_states WHERE job_id = ? AND recording_id = ?`,
		jobID, recordingID)
	state, err := scanFileState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file state: %w", err)
	}
	return state, nil
}

// StartFile moves a pending file state to processing.
func (s *Store) StartFile(ctx context.Context, jobID, recordingID int64) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE file_states SET status = ?, progress = 0, started_at = ?
		 WHERE job_id = ? AND recording_id = ? AND status = ?`,
		StatusProcessing, nowString(), jobID, recordingID, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("start file: %w", err)
	}
	return requireAffected(res, "file %d/%d: pending -> processing", jobID, recordingID)
}

// UpdateFileProgress records pipeline progress for a processing file state.
// Progress never decreases.
func (s *Store) UpdateFileProgress(ctx context.Context, jobID, recordingID int64, p FileProgress) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE file_states SET progress = MAX(progress, ?), current_frame = ?, total_frames = ?
		 WHERE job_id = ? AND recording_id = ? AND status = ?`,
		clampPercent(p.Progress), p.CurrentFrame, p.TotalFrames, jobID, recordingID, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update file progress: %w", err)
	}
	return requireAffected(res, "file %d/%d: progress requires processing", jobID, recordingID)
}

// CompleteFile persists the file's artifacts and marks it completed in one
// transaction. Artifacts are only recorded while the state is processing.
func (s *Store) CompleteFile(ctx context.Context, jobID, recordingID int64, artifacts []extract.Artifact) error {
	ctx = ensureContext(ctx)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM file_states WHERE job_id = ? AND recording_id = ?`, jobID, recordingID,
		).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("file %d/%d: no state: %w", jobID, recordingID, ErrTransition)
		}
		if err != nil {
			return fmt.Errorf("read file state: %w", err)
		}
		if Status(status) != StatusProcessing {
			return fmt.Errorf("file %d/%d: %s -> completed: %w", jobID, recordingID, status, ErrTransition)
		}
		now := nowString()
		for _, a := range artifacts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO artifacts (job_id, recording_id, category, kind, path, name, frame_index, size_bytes, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				jobID, recordingID, string(a.Category), string(a.Kind), a.Path, a.Name,
				nullableInt(a.FrameIndex), a.Size, now,
			); err != nil {
				return fmt.Errorf("insert artifact %s: %w", a.Path, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE file_states SET status = ?, progress = 100, completed_at = ?
			 WHERE job_id = ? AND recording_id = ?`,
			StatusCompleted, now, jobID, recordingID,
		); err != nil {
			return fmt.Errorf("complete file: %w", err)
		}
		return nil
	})
}

// FailFile marks a pending or processing file state failed. Completed states
// are never rolled back.
func (s *Store) FailFile(ctx context.Context, jobID, recordingID int64, message string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE file_states SET status = ?, error_message = ?, completed_at = ?
		 WHERE job_id = ? AND recording_id = ? AND status IN (?, ?)`,
		StatusFailed, nullableString(message), nowString(), jobID, recordingID,
		StatusPending, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail file: %w", err)
	}
	return requireAffected(res, "file %d/%d: -> failed", jobID, recordingID)
}
