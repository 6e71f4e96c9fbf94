package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"svoextract/internal/config"
	"svoextract/internal/daemon"
	"svoextract/internal/framesource"
	"svoextract/internal/logging"
	"svoextract/internal/metrics"
	"svoextract/internal/preflight"
	"svoextract/internal/queue"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the svoextract daemon and blocks until SIGINT/SIGTERM or ctx
// cancellation.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg, logging.Overrides{
		Level:       opts.LogLevel,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logEnvironmentSnapshot(signalCtx, logger, cfg)

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	opener, err := framesource.Lookup(cfg.FrameSource.Backend)
	if err != nil {
		logger.Error("frame source unavailable",
			logging.Error(err),
			logging.Event("frame_source_unavailable"),
			logging.Hint("set frame_source.backend to one of the registered backends"),
		)
		return err
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, store, opener, logger, daemon.WithMetrics(metrics.New()))
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Run(signalCtx); err != nil {
		logger.Error("daemon stopped with error",
			logging.Error(err),
			logging.Event("daemon_run_failed"),
			logging.Hint("check the API bind address and the daemon lock file"),
		)
		return err
	}
	logger.Info("svoextract daemon shutting down")
	return nil
}

// PIDPath returns where the running daemon records its process id.
func PIDPath(cfg *config.Config) string {
	if cfg == nil || cfg.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, "svoextract.pid")
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logEnvironmentSnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.Event("environment_snapshot"),
		logging.String("frame_source", cfg.FrameSource.Backend),
		logging.String("registered_backends", strings.Join(framesource.Backends(), ",")),
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_set", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.Int("file_concurrency", cfg.Workflow.FileConcurrency),
	}
	for _, check := range preflight.RunAll(ctx, cfg) {
		attrs = append(attrs, logging.Bool("check_"+check.Name, check.Passed))
	}
	logger.Info("environment snapshot", logging.Args(attrs...)...)
}
