package packager

import (
	"fmt"
	"os"
	"path/filepath"

	"svoextract/internal/extract"
	"svoextract/internal/queue"
	"svoextract/internal/textutil"
)

// JobRoot returns the directory holding every recording's output for a job.
func JobRoot(resultsDir string, jobID int64) string {
	return filepath.Join(resultsDir, fmt.Sprintf("job_%d", jobID))
}

// BundlePath returns the zip archive location for a job.
func BundlePath(resultsDir string, jobID int64) string {
	return filepath.Join(resultsDir, fmt.Sprintf("job_%d_results.zip", jobID))
}

// Layout returns the deterministic output directory for one recording.
func Layout(jobRoot string, rec *queue.Recording) string {
	return filepath.Join(jobRoot, fmt.Sprintf("file_%d_%s", rec.ID, textutil.FileStem(rec.Name, "recording")))
}

// EnsureCategoryDirs creates dir and one directory per category below it.
// dir is created even when categories is empty.
func EnsureCategoryDirs(dir string, categories []extract.Category) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}
	for _, c := range categories {
		if !c.Valid() {
			return fmt.Errorf("unknown category %q", c)
		}
		if err := os.MkdirAll(filepath.Join(dir, c.Dir()), 0o755); err != nil {
			return fmt.Errorf("create %s dir: %w", c, err)
		}
	}
	return nil
}
