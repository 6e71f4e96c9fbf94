package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"svoextract/internal/config"
	"svoextract/internal/framesource/synthetic"
	"svoextract/internal/logging"
	"svoextract/internal/queue"
	"svoextract/internal/workflow"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("SVOEXTRACT_DATA_DIR", "")
	t.Setenv("SVOEXTRACT_API_BIND", "")
	t.Setenv("SVOEXTRACT_API_TOKEN", "")

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = %q\n\n[extraction]\ndepth_mode = \"QUALITY\"\ncategories = [\"stereo_left\"]\n\n[frame_source]\nbackend = %q\n\n[logging]\nlevel = \"error\"\n",
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		"127.0.0.1:0",
		synthetic.BackendName,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, env, args...)
	if err != nil {
		t.Fatalf("%s failed: %v (stderr: %s)", strings.Join(args, " "), err, stderr)
	}
	return out
}

func (env *cliTestEnv) writeRecording(t *testing.T, name string, frames int) string {
	t.Helper()
	opts := synthetic.DefaultOptions()
	opts.Frames = frames
	opts.Width = 8
	opts.Height = 6
	path := filepath.Join(env.baseDir, name)
	if err := synthetic.WriteRecording(path, opts); err != nil {
		t.Fatalf("WriteRecording failed: %v", err)
	}
	return path
}

// processPending runs one workflow pass against the CLI's store so job
// commands can observe finished jobs without a daemon.
func (env *cliTestEnv) processPending(t *testing.T) {
	t.Helper()
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open failed: %v", err)
	}
	defer store.Close()
	mgr := workflow.NewManager(cfg, store, synthetic.FileOpener{}, logging.NewNop(),
		workflow.WithPreflight(func(context.Context) error { return nil }))
	if _, err := mgr.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
