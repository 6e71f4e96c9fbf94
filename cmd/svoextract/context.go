package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"svoextract/internal/api"
	"svoextract/internal/config"
	"svoextract/internal/framesource"
	"svoextract/internal/logging"
	"svoextract/internal/preview"
	"svoextract/internal/queue"
)

type commandContext struct {
	configFlag *string
	outputFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, outputFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		outputFlag: outputFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) outputFormat() string {
	if c.outputFlag == nil {
		return outputTable
	}
	return normalizeOutputFormat(*c.outputFlag)
}

// cliServices bundles what a one-shot command needs against the local store.
type cliServices struct {
	cfg        *config.Config
	store      *queue.Store
	jobs       *api.JobService
	recordings *api.RecordingService
	logger     *slog.Logger
}

// cliLogger keeps library warnings visible on stderr without mixing them
// into command output.
func cliLogger() *slog.Logger {
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) withServices(fn func(*cliServices) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	logger := cliLogger()
	return fn(&cliServices{
		cfg:        cfg,
		store:      store,
		jobs:       api.NewJobService(cfg, store, logger),
		recordings: api.NewRecordingService(cfg, store, logger),
		logger:     logger,
	})
}

func (c *commandContext) previewService() (*preview.Service, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	opener, err := framesource.Lookup(cfg.FrameSource.Backend)
	if err != nil {
		return nil, nil, err
	}
	svc := preview.New(opener, preview.Options{
		MaxWidth:    cfg.Preview.MaxWidth,
		JPEGQuality: cfg.Preview.JPEGQuality,
	}, cliLogger())
	return svc, cfg, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
