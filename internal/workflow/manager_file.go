package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"svoextract/internal/logging"
	"svoextract/internal/pipeline"
	"svoextract/internal/queue"
	"svoextract/internal/services"
)

// runFile drives one recording through the File Pipeline and persists its
// state transitions. It returns the first error; the caller records failure.
func (m *Manager) runFile(ctx context.Context, jobLogger *slog.Logger, job *queue.Job, rec *queue.Recording, idx int, tracker *progressTracker) error {
	ctx = services.WithRecordingID(ctx, rec.ID)
	logger := logging.WithContext(ctx, jobLogger).With(logging.String("recording", rec.Name))

	if err := m.store.StartFile(ctx, job.ID, rec.ID); err != nil {
		return fmt.Errorf("start file: %w", err)
	}
	m.metrics.FileStarted()
	m.writeJobProgress(ctx, logger, job.ID, tracker.set(idx, 0))
	started := time.Now()
	logger.Info("file started",
		logging.Event("file_start"),
		logging.Int("position", idx),
	)

	src, err := m.opener.Open(ctx, rec.Path, job.Request.DepthMode)
	if err != nil {
		m.metrics.FileFinished(string(queue.StatusFailed), 0)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrOpenFailed, stageName, "open", rec.Name, err)
	}
	defer src.Close()

	var (
		mu       sync.Mutex
		last     queue.FileProgress
		reported bool
		limiter  = newWriteLimiter(m.cfg.ProgressWriteInterval())
		sampler  = logging.NewProgressSampler(5)
	)
	onProgress := func(percent float64, done, planned int) {
		overall := tracker.set(idx, percent)
		mu.Lock()
		last = queue.FileProgress{Progress: percent, CurrentFrame: done, TotalFrames: planned}
		reported = true
		snapshot := last
		logNow := sampler.ShouldLog(percent, stageName)
		mu.Unlock()
		if logNow {
			logger.Info("file progress",
				logging.Float64("percent", percent),
				logging.Int("frame", done),
				logging.Int("planned", planned),
				logging.Float64("job_percent", overall),
			)
		}
		if percent < 100 && !limiter.Allow() {
			return
		}
		m.writeFileProgress(ctx, logger, job.ID, rec.ID, snapshot)
		m.writeJobProgress(ctx, logger, job.ID, overall)
	}

	result, err := pipeline.Run(ctx, src, pipeline.Options{
		Range:      requestRange(job.Request),
		Categories: job.Request.Categories,
		OutputDir:  m.packager.RecordingDir(job.ID, rec),
		OnProgress: onProgress,
		Logger:     logger,
	})
	if err != nil {
		// Throttled progress must land before the file is marked failed.
		mu.Lock()
		final, flush := last, reported
		mu.Unlock()
		if flush {
			m.writeFileProgress(ctx, logger, job.ID, rec.ID, final)
			m.writeJobProgress(ctx, logger, job.ID, tracker.set(idx, final.Progress))
		}
		m.metrics.FileFinished(string(queue.StatusFailed), result.Extracted)
		return err
	}

	mu.Lock()
	final := last
	mu.Unlock()
	m.writeFileProgress(ctx, logger, job.ID, rec.ID, final)
	if err := m.store.CompleteFile(ctx, job.ID, rec.ID, result.Artifacts); err != nil {
		m.metrics.FileFinished(string(queue.StatusFailed), result.Extracted)
		return fmt.Errorf("complete file: %w", err)
	}
	m.writeJobProgress(ctx, logger, job.ID, tracker.set(idx, 100))
	m.metrics.FileFinished(string(queue.StatusCompleted), result.Extracted)
	counts := make(map[string]int)
	for _, a := range result.Artifacts {
		counts[string(a.Category)]++
	}
	for category, n := range counts {
		m.metrics.ArtifactsWritten(category, n)
	}

	attrs := []logging.Attr{
		logging.Int("extracted", result.Extracted),
		logging.Int("planned", result.Planned),
		logging.Int("artifacts", len(result.Artifacts)),
		logging.Duration("file_duration", time.Since(started)),
	}
	if result.EndedEarly {
		logging.WarnWithContext(logger, "file ended before the planned range", "file_ended_early",
			append(attrs, logging.String(logging.FieldImpact, "fewer frames extracted than requested"))...)
	} else {
		attrs = append(attrs, logging.Event("file_complete"))
		logger.Info("file completed", logging.Args(attrs...)...)
	}
	return nil
}

func (m *Manager) writeFileProgress(ctx context.Context, logger *slog.Logger, jobID, recordingID int64, p queue.FileProgress) {
	if err := m.store.UpdateFileProgress(ctx, jobID, recordingID, p); err != nil {
		logPersistError(logger, "file progress", err)
	}
}

func (m *Manager) writeJobProgress(ctx context.Context, logger *slog.Logger, jobID int64, progress float64) {
	if err := m.store.UpdateJobProgress(ctx, jobID, progress); err != nil {
		logPersistError(logger, "job progress", err)
	}
}

func logPersistError(logger *slog.Logger, what string, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		logger.Debug("daemon shutting down, progress update skipped", logging.String("update", what))
	case errors.Is(err, queue.ErrTransition):
		logger.Debug("progress update rejected", logging.String("update", what), logging.Error(err))
	default:
		logger.Warn("failed to persist progress", logging.String("update", what), logging.Error(err))
	}
}
