package api_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"svoextract/internal/api"
	"svoextract/internal/services"
	"svoextract/internal/testsupport"
)

func TestValidRecordingName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"walk.svo2", true},
		{"WALK.SVO2", true},
		{"legacy.svo", true},
		{"clip.mp4", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := api.ValidRecordingName(tt.name); got != tt.want {
			t.Fatalf("ValidRecordingName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAddFileCopiesIntoUploads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewRecordingService(cfg, store, nil)
	ctx := context.Background()

	src := filepath.Join(testsupport.BaseDir(cfg), "incoming", "field test.svo2")
	testsupport.WriteFile(t, src, 128)

	rec, err := svc.AddFile(ctx, src)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if filepath.Dir(rec.Path) != cfg.UploadsDir() {
		t.Fatalf("expected copy under uploads, got %s", rec.Path)
	}
	if rec.SizeBytes != 128 {
		t.Fatalf("expected 128 bytes, got %d", rec.SizeBytes)
	}
	if rec.Name != "field test.svo2" {
		t.Fatalf("unexpected name %q", rec.Name)
	}
	if _, err := os.Stat(rec.Path); err != nil {
		t.Fatalf("copied recording missing: %v", err)
	}

	again, err := svc.AddFile(ctx, rec.Path)
	if err != nil {
		t.Fatalf("AddFile of stored path failed: %v", err)
	}
	if again.ID != rec.ID {
		t.Fatalf("expected existing recording %d, got %d", rec.ID, again.ID)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 recording, got %d", len(list))
	}
}

func TestAddFileRejectsBadInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewRecordingService(cfg, store, nil)
	ctx := context.Background()

	video := filepath.Join(testsupport.BaseDir(cfg), "clip.mp4")
	testsupport.WriteFile(t, video, 8)
	if _, err := svc.AddFile(ctx, video); !errors.Is(err, services.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := svc.AddFile(ctx, filepath.Join(testsupport.BaseDir(cfg), "missing.svo2")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, 42); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreWritesUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewRecordingService(cfg, store, nil)
	ctx := context.Background()

	first, err := svc.Store(ctx, "run.svo2", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	second, err := svc.Store(ctx, "run.svo2", strings.NewReader("other"))
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if first.Path == second.Path {
		t.Fatalf("expected distinct paths, got %s", first.Path)
	}
	if second.SizeBytes != 5 {
		t.Fatalf("expected 5 bytes, got %d", second.SizeBytes)
	}
	if _, err := svc.Store(ctx, "run.txt", strings.NewReader("x")); !errors.Is(err, services.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	entries, err := os.ReadDir(cfg.UploadsDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".upload-") {
			t.Fatalf("staging file left behind: %s", e.Name())
		}
	}
}
