package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"svoextract/internal/config"
	"svoextract/internal/framesource"
	"svoextract/internal/logging"
	"svoextract/internal/metrics"
	"svoextract/internal/notifications"
	"svoextract/internal/packager"
	"svoextract/internal/queue"
)

// Manager coordinates job processing.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	opener       framesource.Opener
	packager     *packager.Packager
	metrics      *metrics.Metrics
	notifier     notifications.Service
	logger       *slog.Logger
	pollInterval time.Duration

	heartbeat *HeartbeatMonitor
	preflight func(context.Context) error

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastJob   *queue.Job
	activeJob int64
	wake      chan struct{}
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithMetrics records job and file outcomes on m.
func WithMetrics(m *metrics.Metrics) ManagerOption {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// WithNotifier replaces the ntfy notifier built from configuration.
func WithNotifier(n notifications.Service) ManagerOption {
	return func(mgr *Manager) {
		if n != nil {
			mgr.notifier = n
		}
	}
}

// WithPreflight replaces the readiness check run before each job.
func WithPreflight(check func(context.Context) error) ManagerOption {
	return func(mgr *Manager) {
		mgr.preflight = check
	}
}

// NewManager constructs a workflow manager reading recordings through opener.
func NewManager(cfg *config.Config, store *queue.Store, opener framesource.Opener, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow-manager")
	m := &Manager{
		cfg:          cfg,
		store:        store,
		opener:       opener,
		packager:     packager.New(cfg.ResultsDir(), logger),
		notifier:     notifications.NewService(cfg),
		logger:       logger,
		pollInterval: cfg.PollInterval(),
		heartbeat:    NewHeartbeatMonitor(store, logger, cfg.HeartbeatInterval(), cfg.HeartbeatTimeout()),
		wake:         make(chan struct{}, 1),
	}
	m.preflight = m.runPreflightChecks
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Packager exposes the packager used for job output.
func (m *Manager) Packager() *packager.Packager {
	return m.packager
}

// Notify wakes the polling loop early, typically after a submission.
func (m *Manager) Notify() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
