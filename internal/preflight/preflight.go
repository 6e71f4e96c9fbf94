package preflight

import (
	"context"

	"svoextract/internal/config"
)

// MinFreeBytes is the free space required on the results filesystem before a
// job starts.
const MinFreeBytes = 256 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Uploads directory", cfg.UploadsDir()),
		CheckDirectoryAccess("Results directory", cfg.ResultsDir()),
		CheckFreeSpace("Results free space", cfg.ResultsDir(), MinFreeBytes),
		CheckBackend(cfg.FrameSource.Backend),
	}
}

// Failed returns only the failing results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
