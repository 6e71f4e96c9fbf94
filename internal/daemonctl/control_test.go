package daemonctl

import (
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"svoextract/internal/daemonrun"
	"svoextract/internal/testsupport"
)

func TestProcessInfoWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	running, pid, err := ProcessInfo(cfg)
	if err != nil {
		t.Fatalf("ProcessInfo failed: %v", err)
	}
	if running || pid != 0 {
		t.Fatalf("expected no daemon, got running=%v pid=%d", running, pid)
	}
	if _, err := Stop(cfg, time.Second); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestProcessInfoDetectsHeldLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	lock := flock.New(cfg.LockPath())
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock failed: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	if err := os.WriteFile(daemonrun.PIDPath(cfg), []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	running, pid, err := ProcessInfo(cfg)
	if err != nil {
		t.Fatalf("ProcessInfo failed: %v", err)
	}
	if !running || pid != 4242 {
		t.Fatalf("expected running daemon with pid 4242, got running=%v pid=%d", running, pid)
	}
}

func TestStopRefusesCurrentProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	lock := flock.New(cfg.LockPath())
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock failed: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()
	if err := os.WriteFile(daemonrun.PIDPath(cfg), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	if _, err := Stop(cfg, time.Second); err == nil {
		t.Fatal("expected Stop to refuse signalling the test process")
	}
	if _, err := ForceKillProcess(daemonrun.PIDPath(cfg), 0); err == nil {
		t.Fatal("expected ForceKillProcess to refuse the test process")
	}
}

func TestReadPIDRejectsGarbage(t *testing.T) {
	path := t.TempDir() + "/svoextract.pid"
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readPID(path); err == nil {
		t.Fatal("expected malformed pid error")
	}
}
