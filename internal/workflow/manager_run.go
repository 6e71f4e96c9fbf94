package workflow

import (
	"context"
	"errors"
	"time"

	"svoextract/internal/logging"
	"svoextract/internal/queue"
)

// Start fails jobs orphaned by a previous run and begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.opener == nil {
		m.mu.Unlock()
		return errors.New("workflow frame source not configured")
	}
	m.mu.Unlock()

	if err := m.RecoverOrphans(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.loop(runCtx)
	return nil
}

// Stop terminates background processing and waits for the running job to
// wind down.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// RecoverOrphans fails jobs and file states left processing by an earlier
// daemon process.
func (m *Manager) RecoverOrphans(ctx context.Context) error {
	n, err := m.store.FailOrphanedProcessing(ctx, queue.DaemonStopReason)
	if err != nil {
		return err
	}
	if n > 0 {
		logging.WarnWithContext(m.logger, "failed jobs interrupted by a previous shutdown", "orphaned_jobs_failed",
			logging.Int64("count", n),
			logging.String(logging.FieldImpact, "interrupted jobs must be resubmitted"),
		)
	}
	return nil
}

// RunOnce processes the oldest pending job, if any, and reports whether one
// was found.
func (m *Manager) RunOnce(ctx context.Context) (bool, error) {
	job, err := m.store.NextPending(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	return true, m.processJob(ctx, job)
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextPending(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleNextJobError(ctx, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx, m.pollInterval)
			continue
		}

		if err := m.processJob(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, errPreflight) {
				m.waitForJobOrShutdown(ctx, m.cfg.ErrorRetryInterval())
			}
		}
	}
}

func (m *Manager) handleNextJobError(ctx context.Context, err error) {
	m.setLastError(err)
	m.logger.Error("failed to fetch next job",
		logging.Error(err),
		logging.Event("queue_fetch_failed"),
		logging.Hint("check job database access"),
	)
	m.waitForJobOrShutdown(ctx, m.cfg.ErrorRetryInterval())
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context, wait time.Duration) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-m.wake:
	case <-timer.C:
	}
}
