package workflow

import (
	"context"

	"svoextract/internal/logging"
	"svoextract/internal/preflight"
	"svoextract/internal/queue"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	ActiveJobID int64
	LastError   string
	LastJob     *queue.Job
	JobStats    map[queue.Status]int
	StaleJobIDs []int64
	Checks      []preflight.Result
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running, ActiveJobID: m.activeJob}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		last := *m.lastJob
		summary.LastJob = &last
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read job stats", logging.Error(err))
	}
	summary.JobStats = stats
	if m.metrics != nil && stats != nil {
		counts := make(map[string]int, len(stats))
		for status, n := range stats {
			counts[string(status)] = n
		}
		m.metrics.SetJobCounts(counts)
	}

	stale, err := m.heartbeat.StaleJobs(ctx)
	if err != nil {
		m.logger.Warn("failed to check heartbeats", logging.Error(err))
	}
	for _, job := range stale {
		summary.StaleJobIDs = append(summary.StaleJobIDs, job.ID)
	}
	if len(summary.StaleJobIDs) > 0 {
		logging.WarnWithContext(m.logger, "jobs missed their heartbeat", "heartbeat_stale",
			logging.Any("job_ids", summary.StaleJobIDs),
			logging.String(logging.FieldImpact, "a job may be stuck; restart the daemon to fail it"),
		)
	}

	summary.Checks = preflight.RunAll(ctx, m.cfg)
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setActiveJob(id int64) {
	m.mu.Lock()
	m.activeJob = id
	m.mu.Unlock()
}

func (m *Manager) refreshLastJob(ctx context.Context, id int64) {
	job, err := m.store.GetJob(ctx, id)
	if err != nil || job == nil {
		return
	}
	m.mu.Lock()
	m.lastJob = job
	m.mu.Unlock()
}
