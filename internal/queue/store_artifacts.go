package queue

import (
	"context"
	"fmt"
	"sort"

	"svoextract/internal/extract"
)

// ListArtifacts returns a job's artifacts grouped by recording in submission
// order, each group in display order (category, frame index, name).
func (s *Store) ListArtifacts(ctx context.Context, jobID int64) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT a.id, a.job_id, a.recording_id, a.category, a.kind, a.path, a.name, a.frame_index,
		        a.size_bytes, a.created_at, COALESCE(jr.position, 0)
		 FROM artifacts a
		 LEFT JOIN job_recordings jr ON jr.job_id = a.job_id AND jr.recording_id = a.recording_id
		 WHERE a.job_id = ?`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	type positioned struct {
		artifact *Artifact
		position int
	}
	var items []positioned
	for rows.Next() {
		var pos int
		a, err := scanArtifact(scanWithTrailing{rows: rows, extra: &pos})
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		items = append(items, positioned{artifact: a, position: pos})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].position != items[j].position {
			return items[i].position < items[j].position
		}
		return artifactLess(items[i].artifact, items[j].artifact)
	})
	out := make([]*Artifact, len(items))
	for i, item := range items {
		out[i] = item.artifact
	}
	return out, nil
}

// ImportArtifact registers an existing file for a job. Paths already known are
// left untouched and reported as not created.
func (s *Store) ImportArtifact(ctx context.Context, jobID, recordingID int64, a extract.Artifact) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT OR IGNORE INTO artifacts (job_id, recording_id, category, kind, path, name, frame_index, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jobID, recordingID, string(a.Category), string(a.Kind), a.Path, a.Name,
		nullableInt(a.FrameIndex), a.Size, nowString(),
	)
	if err != nil {
		return false, fmt.Errorf("import artifact %s: %w", a.Path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ToExtract converts a stored artifact back to its extraction form.
func (a *Artifact) ToExtract() extract.Artifact {
	return extract.Artifact{
		Category:   a.Category,
		Kind:       a.Kind,
		Path:       a.Path,
		Name:       a.Name,
		FrameIndex: a.FrameIndex,
		Size:       a.SizeBytes,
	}
}

func artifactLess(a, b *Artifact) bool {
	if ra, rb := a.Category.Rank(), b.Category.Rank(); ra != rb {
		return ra < rb
	}
	switch {
	case a.FrameIndex == nil && b.FrameIndex != nil:
		return true
	case a.FrameIndex != nil && b.FrameIndex == nil:
		return false
	case a.FrameIndex != nil && b.FrameIndex != nil && *a.FrameIndex != *b.FrameIndex:
		return *a.FrameIndex < *b.FrameIndex
	}
	return a.Name < b.Name
}

type scanWithTrailing struct {
	rows  interface{ Scan(dest ...any) error }
	extra any
}

func (s scanWithTrailing) Scan(dest ...any) error {
	return s.rows.Scan(append(dest, s.extra)...)
}
