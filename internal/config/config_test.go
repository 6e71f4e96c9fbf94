package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"svoextract/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "svoextract")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.UploadsDir() != filepath.Join(wantData, "svo2_files") {
		t.Fatalf("unexpected uploads dir: %q", cfg.UploadsDir())
	}
	if cfg.ResultsDir() != filepath.Join(wantData, "extraction_results") {
		t.Fatalf("unexpected results dir: %q", cfg.ResultsDir())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Extraction.DepthMode != "ULTRA" {
		t.Fatalf("unexpected depth mode: %q", cfg.Extraction.DepthMode)
	}
	if cfg.Workflow.FileConcurrency != 1 {
		t.Fatalf("expected sequential files by default, got %d", cfg.Workflow.FileConcurrency)
	}
	if cfg.Preview.MaxWidth != 800 || cfg.Preview.JPEGQuality != 90 {
		t.Fatalf("unexpected preview defaults: %+v", cfg.Preview)
	}
	if cfg.FrameSource.Backend != "synthetic" {
		t.Fatalf("unexpected backend: %q", cfg.FrameSource.Backend)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dataDir := t.TempDir()
	t.Setenv("SVOEXTRACT_DATA_DIR", dataDir)
	t.Setenv("SVOEXTRACT_API_BIND", "0.0.0.0:9000")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DataDir != dataDir {
		t.Fatalf("expected env data dir, got %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("expected env bind, got %q", cfg.Paths.APIBind)
	}
}

func TestLoadCustomFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "svoextract.toml")
	custom := config.Default()
	custom.Paths.DataDir = filepath.Join(dir, "data")
	custom.Extraction.DepthMode = "neural"
	custom.Extraction.Categories = []string{" Depth ", "point_cloud"}
	custom.Workflow.FileConcurrency = 3
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected custom file to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Extraction.DepthMode != "NEURAL" {
		t.Fatalf("expected upper-cased depth mode, got %q", cfg.Extraction.DepthMode)
	}
	if strings.Join(cfg.Extraction.Categories, ",") != "depth,point_cloud" {
		t.Fatalf("unexpected categories %v", cfg.Extraction.Categories)
	}
	if cfg.Workflow.FileConcurrency != 3 {
		t.Fatalf("unexpected concurrency %d", cfg.Workflow.FileConcurrency)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format %q", cfg.Logging.Format)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.LogDir, "svoextract.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"depth mode", func(c *config.Config) { c.Extraction.DepthMode = "FAST" }, "extraction.depth_mode"},
		{"category", func(c *config.Config) { c.Extraction.Categories = []string{"thermal"} }, "extraction.categories"},
		{"frame step", func(c *config.Config) { c.Extraction.FrameStep = -1 }, "extraction.frame_step"},
		{"concurrency", func(c *config.Config) { c.Workflow.FileConcurrency = -2 }, "workflow.file_concurrency"},
		{"heartbeat", func(c *config.Config) { c.Workflow.HeartbeatTimeout = 1 }, "workflow.heartbeat_timeout"},
		{"jpeg quality", func(c *config.Config) { c.Preview.JPEGQuality = 101 }, "preview.jpeg_quality"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" }, "notifications.ntfy_topic"},
		{"ntfy timeout", func(c *config.Config) { c.Notifications.RequestTimeout = -1 }, "notifications.request_timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Workflow.ProgressWriteIntervalMs != 250 {
		t.Fatalf("unexpected progress interval %d", cfg.Workflow.ProgressWriteIntervalMs)
	}
}
