package packager

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"svoextract/internal/extract"
	"svoextract/internal/logging"
	"svoextract/internal/queue"
	"svoextract/internal/services"
)

const stageName = "packaging"

// Packager bundles job output below a results directory.
type Packager struct {
	resultsDir string
	logger     *slog.Logger
}

// New constructs a packager rooted at resultsDir.
func New(resultsDir string, logger *slog.Logger) *Packager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Packager{resultsDir: resultsDir, logger: logger}
}

// ResultsDir returns the directory holding job roots and bundles.
func (p *Packager) ResultsDir() string {
	return p.resultsDir
}

// JobRoot returns the output root for jobID.
func (p *Packager) JobRoot(jobID int64) string {
	return JobRoot(p.resultsDir, jobID)
}

// RecordingDir returns where a recording's artifacts are written for jobID.
func (p *Packager) RecordingDir(jobID int64, rec *queue.Recording) string {
	return Layout(p.JobRoot(jobID), rec)
}

// Package ensures category directories exist for every recording and zips the
// job root into the job's bundle. Payloads are streamed into the archive once.
func (p *Packager) Package(ctx context.Context, jobID int64, recordings []*queue.Recording, artifacts map[int64][]extract.Artifact) (string, error) {
	root := p.JobRoot(jobID)
	for _, rec := range recordings {
		if err := EnsureCategoryDirs(Layout(root, rec), categoriesOf(artifacts[rec.ID])); err != nil {
			return "", services.Wrap(services.ErrPackaging, stageName, "layout", "create category directories", err)
		}
	}

	bundle := BundlePath(p.resultsDir, jobID)
	entries, size, err := writeZip(ctx, root, bundle)
	if err != nil {
		return "", services.Wrap(services.ErrPackaging, stageName, "zip", fmt.Sprintf("write %s", filepath.Base(bundle)), err)
	}

	p.logger.Info("bundle written",
		logging.JobID(jobID),
		logging.String("bundle", bundle),
		logging.Int("entries", entries),
		logging.Int64("size_bytes", size),
		logging.Event("bundle_written"),
	)
	return bundle, nil
}

func categoriesOf(items []extract.Artifact) []extract.Category {
	seen := make(map[extract.Category]struct{}, len(items))
	var out []extract.Category
	for _, a := range items {
		if _, ok := seen[a.Category]; ok {
			continue
		}
		seen[a.Category] = struct{}{}
		out = append(out, a.Category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}

// writeZip archives every regular file below root into target. The archive is
// written to a temporary sibling and renamed into place on success.
func writeZip(ctx context.Context, root, target string) (int, int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.tmp")
	if err != nil {
		return 0, 0, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	zw := zip.NewWriter(tmp)
	entries := 0
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)
		if d.IsDir() {
			_, err := zw.Create(name + "/")
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := addFile(zw, path, name); err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
		entries++
		return nil
	})
	if walkErr != nil {
		_ = zw.Close()
		cleanup()
		return 0, 0, walkErr
	}
	if err := zw.Close(); err != nil {
		cleanup()
		return 0, 0, err
	}
	info, err := tmp.Stat()
	if err != nil {
		cleanup()
		return 0, 0, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, 0, err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return 0, 0, err
	}
	return entries, info.Size(), nil
}

func addFile(zw *zip.Writer, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(writer, file)
	return err
}
