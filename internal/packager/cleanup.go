package packager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"svoextract/internal/logging"
)

// CleanResult contains the outcome of a cleanup operation.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// RemoveJobOutput deletes a job's result directory and bundle. Missing paths
// are not an error. A bundle outside the results directory is left alone.
func (p *Packager) RemoveJobOutput(jobID int64, bundlePath string) CleanResult {
	result := CleanResult{}
	targets := []string{p.JobRoot(jobID), BundlePath(p.resultsDir, jobID)}
	if bundlePath = strings.TrimSpace(bundlePath); bundlePath != "" && p.contains(bundlePath) {
		targets = append(targets, bundlePath)
	}
	seen := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		p.remove(target, &result, "job_output_removed")
	}
	return result
}

// RemoveFiles deletes individual files such as artifacts that live outside
// the job root. Missing files are not an error.
func (p *Packager) RemoveFiles(paths []string) CleanResult {
	result := CleanResult{}
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		p.remove(path, &result, "artifact_removed")
	}
	return result
}

var jobDirPattern = regexp.MustCompile(`^job_(\d+)(_results\.zip)?$`)

// CleanOrphaned removes job directories and bundles whose job id is not in
// activeJobIDs. Unrelated entries are ignored.
func (p *Packager) CleanOrphaned(activeJobIDs map[int64]struct{}) CleanResult {
	result := CleanResult{}
	entries, err := os.ReadDir(p.resultsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: p.resultsDir, Error: err})
		}
		return result
	}
	for _, entry := range entries {
		match := jobDirPattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		if entry.IsDir() == (match[2] != "") {
			continue
		}
		id, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		if _, active := activeJobIDs[id]; active {
			continue
		}
		p.remove(filepath.Join(p.resultsDir, entry.Name()), &result, "orphaned_output_removed")
	}
	return result
}

// DirInfo contains metadata about a job result directory.
type DirInfo struct {
	Name    string
	Path    string
	JobID   int64
	ModTime time.Time
	Size    int64
}

// ListJobDirs returns every job result directory with its total size.
func (p *Packager) ListJobDirs() ([]DirInfo, error) {
	entries, err := os.ReadDir(p.resultsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dirs []DirInfo
	for _, entry := range entries {
		match := jobDirPattern.FindStringSubmatch(entry.Name())
		if match == nil || match[2] != "" || !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		id, _ := strconv.ParseInt(match[1], 10, 64)
		dirPath := filepath.Join(p.resultsDir, entry.Name())
		size, _ := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			JobID:   id,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	return dirs, nil
}

func (p *Packager) contains(path string) bool {
	rel, err := filepath.Rel(p.resultsDir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

func (p *Packager) remove(path string, result *CleanResult, event string) {
	if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
		p.logger.Warn("failed to remove extraction output",
			logging.String("path", path),
			logging.Error(err),
			logging.Event("cleanup_failed"),
			logging.Hint("check data_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return
	}
	result.Removed = append(result.Removed, path)
	p.logger.Info("removed extraction output",
		logging.String("path", path),
		logging.Event(event),
	)
}

// Err joins every cleanup error, or returns nil.
func (r CleanResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, fmt.Errorf("%s: %w", e.Path, e.Error))
	}
	return errors.Join(errs...)
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
