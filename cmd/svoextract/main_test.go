package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"svoextract/internal/api"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "config", "validate")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRunCLI(t, env, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	mustRunCLI(t, env, "config", "init", "--path", target, "--overwrite")
}

func TestRecordingAddAndList(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "recording", "add", env.writeRecording(t, "walk.svo2", 4))
	requireContains(t, out, "Registered recording 1: walk.svo2")

	if _, _, err := runCLI(t, env, "recording", "add", filepath.Join(env.baseDir, "notes.txt")); err == nil {
		t.Fatal("expected non-recording file to be rejected")
	}

	out = mustRunCLI(t, env, "recording", "list")
	requireContains(t, out, "walk.svo2")

	out = mustRunCLI(t, env, "recording", "list", "-o", "json")
	var resp api.RecordingListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(resp.Recordings) != 1 || resp.Recordings[0].Name != "walk.svo2" {
		t.Fatalf("unexpected recordings %+v", resp.Recordings)
	}
}

func TestJobLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "recording", "add", env.writeRecording(t, "walk.svo2", 6))

	out := mustRunCLI(t, env, "job", "submit", "1", "--category", "stereo_left", "--category", "depth", "--step", "2")
	requireContains(t, out, "Submitted job 1")

	out = mustRunCLI(t, env, "job", "list")
	requireContains(t, out, "Pending")

	env.processPending(t)

	out = mustRunCLI(t, env, "job", "status", "1")
	requireContains(t, out, "Completed")
	requireContains(t, out, "walk.svo2")

	out = mustRunCLI(t, env, "job", "status", "1", "-o", "json")
	var progress api.JobProgress
	if err := json.Unmarshal([]byte(out), &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if progress.Status != "completed" || len(progress.Files) != 1 || progress.Files[0].TotalFrames != 3 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	out = mustRunCLI(t, env, "job", "artifacts", "1", "-o", "yaml")
	var artifacts struct {
		JobID     int64            `yaml:"job_id"`
		Artifacts []map[string]any `yaml:"artifacts"`
	}
	if err := yaml.Unmarshal([]byte(out), &artifacts); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if artifacts.JobID != 1 || len(artifacts.Artifacts) != 6 {
		t.Fatalf("expected 6 artifacts for job 1, got %d", len(artifacts.Artifacts))
	}

	out = mustRunCLI(t, env, "job", "artifacts", "1", "--category", "depth")
	if strings.Contains(out, "stereo_left") {
		t.Fatalf("category filter leaked other categories:\n%s", out)
	}

	out = mustRunCLI(t, env, "job", "import", "1")
	requireContains(t, out, "Imported 0 of")

	out = mustRunCLI(t, env, "job", "delete", "1", "2")
	requireContains(t, out, "Job 1 deleted")
	requireContains(t, out, "Job 2 not found")

	out = mustRunCLI(t, env, "job", "list")
	requireContains(t, out, "No jobs")
}

func TestJobSubmitValidation(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "job", "submit", "9"); err == nil {
		t.Fatal("expected unknown recording to be rejected")
	}
	if _, _, err := runCLI(t, env, "job", "submit", "abc"); err == nil {
		t.Fatal("expected non-numeric id to be rejected")
	}

	mustRunCLI(t, env, "recording", "add", env.writeRecording(t, "walk.svo2", 4))
	if _, _, err := runCLI(t, env, "job", "submit", "1", "--category", "thermal"); err == nil {
		t.Fatal("expected unknown category to be rejected")
	}
	if _, _, err := runCLI(t, env, "job", "submit", "1", "--depth-mode", "FAST"); err == nil {
		t.Fatal("expected unknown depth mode to be rejected")
	}
	if _, _, err := runCLI(t, env, "job", "list", "-o", "xml"); err == nil {
		t.Fatal("expected unsupported output format to be rejected")
	}
}

func TestPreviewCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "recording", "add", env.writeRecording(t, "walk.svo2", 5))

	out := mustRunCLI(t, env, "preview", "info", "1")
	requireContains(t, out, "Total frames: 5")

	target := filepath.Join(t.TempDir(), "frame.jpg")
	out = mustRunCLI(t, env, "preview", "frame", "1", "--frame", "40", "--view", "depth", "--out", target)
	requireContains(t, out, "Frame 4/5 depth")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read preview: %v", err)
	}
	if len(data) < 3 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatal("preview output is not a JPEG")
	}

	if _, _, err := runCLI(t, env, "preview", "frame", "1", "--view", "thermal"); err == nil {
		t.Fatal("expected unknown view to be rejected")
	}

	out = mustRunCLI(t, env, "preview", "imu", "1", "--frame", "2")
	requireContains(t, out, "angular_velocity")
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "status")
	requireContains(t, out, "Environment")
	requireContains(t, out, "Pending")

	out = mustRunCLI(t, env, "status", "-o", "json")
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if report.ConfigBackend != "synthetic" || len(report.JobStats) != 4 {
		t.Fatalf("unexpected status report %+v", report)
	}
}

func TestLogsCommandFiltersByJob(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := filepath.Join(env.baseDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := "INFO job started job_id=1\nINFO job started job_id=2\nINFO job failed job_id=2\n"
	if err := os.WriteFile(filepath.Join(logDir, "svoextract.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out := mustRunCLI(t, env, "logs", "--job", "2")
	if strings.Contains(out, "job_id=1") || strings.Count(out, "job_id=2") != 2 {
		t.Fatalf("unexpected filtered log output:\n%s", out)
	}

	out = mustRunCLI(t, env, "logs", "-n", "1")
	requireContains(t, out, "job failed")
}

func TestStopWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	out := mustRunCLI(t, env, "stop")
	requireContains(t, out, "Daemon is not running")
}

func TestNotifyTestDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("SVOEXTRACT_NTFY_TOPIC", "")
	out := mustRunCLI(t, env, "notify-test")
	requireContains(t, out, "Notifications are disabled")
}
