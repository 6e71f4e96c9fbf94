package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"svoextract/internal/config"
	"svoextract/internal/framesource/synthetic"
	"svoextract/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRecording writes a synthetic recording into the uploads directory and
// registers it with the store.
func NewRecording(t testing.TB, store *queue.Store, cfg *config.Config, name string, opts synthetic.Options) *queue.Recording {
	t.Helper()

	if err := os.MkdirAll(cfg.UploadsDir(), 0o755); err != nil {
		t.Fatalf("mkdir uploads: %v", err)
	}
	path := filepath.Join(cfg.UploadsDir(), name)
	if err := synthetic.WriteRecording(path, opts); err != nil {
		t.Fatalf("synthetic.WriteRecording: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat recording: %v", err)
	}
	rec, err := store.AddRecording(context.Background(), name, path, info.Size())
	if err != nil {
		t.Fatalf("store.AddRecording: %v", err)
	}
	return rec
}
