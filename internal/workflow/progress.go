package workflow

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// OverallProgress is the job progress implied by per-file progress values:
// the mean of every file's percent, each clamped to [0,100]. Files not yet
// started count as zero and completed files as 100.
func OverallProgress(files []float64) float64 {
	if len(files) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range files {
		switch {
		case p < 0:
			p = 0
		case p > 100:
			p = 100
		}
		sum += p
	}
	return sum / float64(len(files))
}

// progressTracker holds the latest percent of every file in a job. Updates
// from concurrent pipelines are serialized and the reported overall value
// never decreases.
type progressTracker struct {
	mu      sync.Mutex
	files   []float64
	highest float64
}

func newProgressTracker(files int) *progressTracker {
	return &progressTracker{files: make([]float64, files)}
}

// set records pct for file idx and returns the overall progress.
func (t *progressTracker) set(idx int, pct float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx >= 0 && idx < len(t.files) && pct > t.files[idx] {
		t.files[idx] = pct
	}
	snapshot := append([]float64(nil), t.files...)
	overall := OverallProgress(snapshot)
	if overall < t.highest {
		overall = t.highest
	}
	t.highest = overall
	return overall
}

// newWriteLimiter spaces persisted progress updates at least interval apart.
// A zero interval allows every write.
func newWriteLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
