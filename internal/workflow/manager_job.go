package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"svoextract/internal/extract"
	"svoextract/internal/logging"
	"svoextract/internal/notifications"
	"svoextract/internal/pipeline"
	"svoextract/internal/queue"
	"svoextract/internal/services"
)

const stageName = "extraction"

// shutdownWriteTimeout bounds the final status writes made after the run
// context has been cancelled.
const shutdownWriteTimeout = 5 * time.Second

func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	if m.preflight != nil {
		if err := m.preflight(ctx); err != nil {
			m.setLastError(err)
			return err
		}
	}

	correlationID := uuid.NewString()
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithRequestID(jobCtx, correlationID)
	jobCtx = services.WithStage(jobCtx, stageName)
	logger := logging.WithContext(jobCtx, m.logger)

	recordings, err := m.store.RecordingsForJob(jobCtx, job.ID)
	if err != nil {
		m.setLastError(err)
		return fmt.Errorf("load job recordings: %w", err)
	}

	if err := m.store.StartJob(jobCtx, job.ID); err != nil {
		m.setLastError(err)
		if errors.Is(err, queue.ErrTransition) {
			logger.Warn("job no longer pending; skipping", logging.Error(err))
			return nil
		}
		return fmt.Errorf("start job: %w", err)
	}
	m.setActiveJob(job.ID)
	defer m.setActiveJob(0)

	started := time.Now()
	logger.Info("job started",
		logging.Event("job_start"),
		logging.Int("recordings", len(recordings)),
		logging.String("categories", job.Request.Categories.String()),
		logging.String("depth_mode", string(job.Request.DepthMode)),
	)

	hbCtx, hbCancel := context.WithCancel(jobCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)
	runErr := m.runJob(jobCtx, logger, job, recordings)
	hbCancel()
	hbWG.Wait()

	m.refreshLastJob(jobCtx, job.ID)
	if runErr != nil {
		if ctx.Err() != nil {
			m.abandonJob(jobCtx, logger, job)
			m.metrics.JobFinished(string(queue.StatusFailed), time.Since(started))
			return ctx.Err()
		}
		m.setLastError(runErr)
		m.metrics.JobFinished(string(queue.StatusFailed), time.Since(started))
		m.notifyOutcome(jobCtx, logger, job.ID, len(recordings), time.Since(started), runErr)
		return runErr
	}
	m.metrics.JobFinished(string(queue.StatusCompleted), time.Since(started))
	logger.Info("job completed",
		logging.Event("job_complete"),
		logging.Duration("job_duration", time.Since(started)),
	)
	m.notifyOutcome(jobCtx, logger, job.ID, len(recordings), time.Since(started), nil)
	return nil
}

// notifyOutcome pushes the finished job to the configured notifier. Delivery
// failures are logged and never change the job's status.
func (m *Manager) notifyOutcome(ctx context.Context, logger *slog.Logger, jobID int64, recordings int, elapsed time.Duration, runErr error) {
	if m.notifier == nil {
		return
	}
	event := notifications.JobEvent{JobID: jobID, Recordings: recordings, Duration: elapsed}
	var err error
	if runErr != nil {
		event.Error = classifyFailure(runErr)
		err = m.notifier.NotifyJobFailed(ctx, event)
	} else {
		if artifacts, listErr := m.store.ListArtifacts(ctx, jobID); listErr == nil {
			event.Artifacts = len(artifacts)
		}
		if job, getErr := m.store.GetJob(ctx, jobID); getErr == nil && job != nil {
			event.BundlePath = job.BundlePath
		}
		err = m.notifier.NotifyJobCompleted(ctx, event)
	}
	if err != nil {
		logger.Warn("job notification failed",
			logging.Error(err),
			logging.Event("notification_failed"),
			logging.Hint("check notifications.ntfy_topic"),
		)
	}
}

func (m *Manager) runJob(ctx context.Context, logger *slog.Logger, job *queue.Job, recordings []*queue.Recording) error {
	if len(recordings) == 0 {
		err := services.Wrap(services.ErrInvalidConfiguration, stageName, "start", "job has no recordings", nil)
		m.handleJobFailure(ctx, logger, job, nil, err)
		return err
	}
	if err := requestRange(job.Request).Validate(); err != nil {
		m.handleJobFailure(ctx, logger, job, nil, err)
		return err
	}

	if err := m.runFiles(ctx, logger, job, recordings); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.packageJob(ctx, logger, job, recordings)
}

// runFiles runs one pipeline per recording, up to FileConcurrency at a time.
// The first failure fails the job; files not yet started stay pending.
func (m *Manager) runFiles(ctx context.Context, logger *slog.Logger, job *queue.Job, recordings []*queue.Recording) error {
	tracker := newProgressTracker(len(recordings))
	limit := m.cfg.Workflow.FileConcurrency
	if limit < 1 {
		limit = 1
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	var failOnce sync.Once
	for idx, rec := range recordings {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			err := m.runFile(groupCtx, logger, job, rec, idx, tracker)
			if err == nil {
				return nil
			}
			switch {
			case ctx.Err() != nil:
				m.failFileQuietly(ctx, logger, job.ID, rec.ID, queue.DaemonStopReason)
			case groupCtx.Err() != nil && errors.Is(err, context.Canceled):
				m.failFileQuietly(ctx, logger, job.ID, rec.ID, "aborted after another recording failed")
			default:
				failOnce.Do(func() { m.handleJobFailure(ctx, logger, job, rec, err) })
			}
			return err
		})
	}
	return group.Wait()
}

func (m *Manager) packageJob(ctx context.Context, logger *slog.Logger, job *queue.Job, recordings []*queue.Recording) error {
	stored, err := m.store.ListArtifacts(ctx, job.ID)
	if err != nil {
		wrapped := services.Wrap(services.ErrPackaging, "packaging", "list artifacts", "", err)
		m.handleJobFailure(ctx, logger, job, nil, wrapped)
		return wrapped
	}
	byRecording := make(map[int64][]extract.Artifact, len(recordings))
	for _, a := range stored {
		byRecording[a.RecordingID] = append(byRecording[a.RecordingID], a.ToExtract())
	}
	bundle, err := m.packager.Package(ctx, job.ID, recordings, byRecording)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.handleJobFailure(ctx, logger, job, nil, err)
		return err
	}
	if err := m.store.CompleteJob(ctx, job.ID, bundle); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	m.refreshLastJob(ctx, job.ID)
	return nil
}

// abandonJob fails a job interrupted by shutdown so it is not left processing.
func (m *Manager) abandonJob(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownWriteTimeout)
	defer cancel()
	if err := m.store.FailJob(writeCtx, job.ID, queue.DaemonStopReason); err != nil && !errors.Is(err, queue.ErrTransition) {
		logger.Warn("failed to record shutdown on job", logging.Error(err))
		return
	}
	logger.Info("job interrupted by shutdown",
		logging.Event("job_interrupted"),
	)
}

func requestRange(req queue.Request) pipeline.Range {
	return pipeline.Range{Start: req.FrameStart, End: req.FrameEnd, Step: req.FrameStep}
}
