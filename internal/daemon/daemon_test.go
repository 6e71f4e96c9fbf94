package daemon

import (
	"context"
	"testing"
	"time"

	"svoextract/internal/testsupport"
)

func TestDaemonEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	first := newTestDaemon(t, cfg)
	second := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second daemon to fail acquiring the lock")
	}
	if !first.Status(ctx).Running {
		t.Fatal("expected running status")
	}

	first.Stop()
	if first.Status(ctx).Running {
		t.Fatal("expected stopped status")
	}
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start after release failed: %v", err)
	}
	second.Stop()
}

func TestDaemonRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	d := newTestDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !d.Status(context.Background()).Running {
		if time.Now().After(deadline) {
			t.Fatal("daemon did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if d.Status(context.Background()).Running {
		t.Fatal("expected daemon stopped")
	}
}
