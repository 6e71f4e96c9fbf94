package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"svoextract/internal/api"
	"svoextract/internal/config"
	"svoextract/internal/framesource"
	"svoextract/internal/logging"
	"svoextract/internal/metrics"
	"svoextract/internal/preview"
	"svoextract/internal/queue"
	"svoextract/internal/workflow"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	workflow   *workflow.Manager
	jobs       *api.JobService
	recordings *api.RecordingService
	preview    *preview.Service
	metrics    *metrics.Metrics
	api        *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
	LogPath      string
}

// Option configures optional Daemon behavior.
type Option func(*daemonOptions)

type daemonOptions struct {
	metrics   *metrics.Metrics
	preflight func(context.Context) error
}

// WithMetrics records job, preview and API metrics on m and serves them on
// /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *daemonOptions) {
		o.metrics = m
	}
}

// WithPreflight replaces the readiness check run before each job.
func WithPreflight(check func(context.Context) error) Option {
	return func(o *daemonOptions) {
		o.preflight = check
	}
}

// New constructs a daemon reading recordings through opener.
func New(cfg *config.Config, store *queue.Store, opener framesource.Opener, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || opener == nil {
		return nil, errors.New("daemon requires config, store, and frame source")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var options daemonOptions
	for _, opt := range opts {
		opt(&options)
	}

	wfOpts := []workflow.ManagerOption{workflow.WithMetrics(options.metrics)}
	if options.preflight != nil {
		wfOpts = append(wfOpts, workflow.WithPreflight(options.preflight))
	}
	wf := workflow.NewManager(cfg, store, opener, logger, wfOpts...)

	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		workflow:   wf,
		jobs:       api.NewJobService(cfg, store, logger, api.WithNotifier(wf.Notify)),
		recordings: api.NewRecordingService(cfg, store, logger),
		preview: preview.New(opener, preview.Options{
			MaxWidth:    cfg.Preview.MaxWidth,
			JPEGQuality: cfg.Preview.JPEGQuality,
		}, logger),
		metrics:  options.metrics,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, opens the API listener and launches the
// workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another svoextract daemon instance is already running")
	}

	if err := d.api.listen(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	if cleaned, err := d.jobs.CleanOrphanedOutput(ctx); err != nil {
		d.logger.Warn("orphaned output scan failed", logging.Error(err))
	} else if len(cleaned.Removed) > 0 {
		d.logger.Info("removed output of deleted jobs",
			logging.Int("count", len(cleaned.Removed)),
			logging.Event("orphaned_output_removed"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		d.api.close()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("svoextract daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.Event("daemon_start"),
	)
	return nil
}

// Run starts the daemon and blocks until ctx is cancelled or the API server
// fails. The daemon is stopped before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	defer d.Stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return d.api.serve(groupCtx)
	})
	group.Go(func() error {
		d.refreshMetrics(groupCtx)
		return nil
	})
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	d.api.close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("svoextract daemon stopped", logging.Event("daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.cfg.LogPath(),
	}
}

// Handler exposes the API router without starting the listener.
func (d *Daemon) Handler() http.Handler {
	return d.api.router
}

// refreshMetrics keeps job gauges current between requests.
func (d *Daemon) refreshMetrics(ctx context.Context) {
	if d.metrics == nil {
		<-ctx.Done()
		return
	}
	interval := d.cfg.HeartbeatInterval()
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.workflow.Status(ctx)
		}
	}
}
