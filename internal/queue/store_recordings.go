package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// AddRecording registers a recording. Registering the same path again
// returns the existing row.
func (s *Store) AddRecording(ctx context.Context, name, path string, sizeBytes int64) (*Recording, error) {
	ctx = ensureContext(ctx)
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("recording path is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("recording name is required")
	}
	if existing, err := s.GetRecordingByPath(ctx, path); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO recordings (name, path, size_bytes, created_at) VALUES (?, ?, ?, ?)`,
		name, path, sizeBytes, nowString(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("recording id: %w", err)
	}
	return s.GetRecording(ctx, id)
}

// GetRecording fetches a recording by id. Returns nil when absent.
func (s *Store) GetRecording(ctx context.Context, id int64) (*Recording, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return rec, nil
}

// GetRecordingByPath fetches a recording by storage path. Returns nil when absent.
func (s *Store) GetRecordingByPath(ctx context.Context, path string) (*Recording, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+recordingColumns+` FROM recordings WHERE path = ?`, path)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording by path: %w", err)
	}
	return rec, nil
}

// ListRecordings returns every recording, oldest first.
func (s *Store) ListRecordings(ctx context.Context) ([]*Recording, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+recordingColumns+` FROM recordings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()
	var out []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecordingsForJob returns the job's recordings in submission order.
func (s *Store) RecordingsForJob(ctx context.Context, jobID int64) ([]*Recording, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT r.id, r.name, r.path, r.size_bytes, r.created_at
		 FROM recordings r JOIN job_recordings jr ON jr.recording_id = r.id
		 WHERE jr.job_id = ? ORDER BY jr.position`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job recordings: %w", err)
	}
	defer rows.Close()
	var out []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteUnreferencedRecordings removes the given recordings when no job
// references them any more and returns the rows that were removed.
func (s *Store) DeleteUnreferencedRecordings(ctx context.Context, ids []int64) ([]*Recording, error) {
	ctx = ensureContext(ctx)
	var removed []*Recording
	for _, id := range ids {
		rec, err := s.GetRecording(ctx, id)
		if err != nil {
			return removed, err
		}
		if rec == nil {
			continue
		}
		res, err := s.execWithRetry(ctx,
			`DELETE FROM recordings WHERE id = ?
			 AND NOT EXISTS (SELECT 1 FROM job_recordings WHERE recording_id = ?)`, id, id)
		if err != nil {
			return removed, fmt.Errorf("delete recording %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			removed = append(removed, rec)
		}
	}
	return removed, nil
}
