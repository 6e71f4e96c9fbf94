package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"svoextract/internal/config"
	"svoextract/internal/fileutil"
	"svoextract/internal/logging"
	"svoextract/internal/queue"
	"svoextract/internal/services"
	"svoextract/internal/textutil"
)

// recordingExtensions lists accepted recording file extensions.
var recordingExtensions = []string{".svo2", ".svo"}

// RecordingService registers recordings stored in the uploads directory.
type RecordingService struct {
	store      *queue.Store
	uploadsDir string
	logger     *slog.Logger
}

// NewRecordingService constructs a RecordingService using cfg's uploads dir.
func NewRecordingService(cfg *config.Config, store *queue.Store, logger *slog.Logger) *RecordingService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RecordingService{
		store:      store,
		uploadsDir: cfg.UploadsDir(),
		logger:     logging.NewComponentLogger(logger, "recording-service"),
	}
}

// ValidRecordingName reports whether name carries an accepted extension.
func ValidRecordingName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range recordingExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// AddFile registers the recording at path. Files outside the uploads
// directory are copied in first; re-adding a stored path returns the
// existing recording.
func (s *RecordingService) AddFile(ctx context.Context, path string) (*Recording, error) {
	path = strings.TrimSpace(path)
	if !ValidRecordingName(path) {
		return nil, invalidRequest(fmt.Sprintf("%s is not a .svo2 or .svo recording", filepath.Base(path)), nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, invalidRequest("resolve path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "recording", "stat", filepath.Base(abs), err)
	}
	if !info.Mode().IsRegular() {
		return nil, invalidRequest(fmt.Sprintf("%s is not a regular file", abs), nil)
	}

	target := abs
	if filepath.Dir(abs) != filepath.Clean(s.uploadsDir) {
		if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
			return nil, fmt.Errorf("create uploads dir: %w", err)
		}
		target, err = fileutil.UniquePath(s.uploadsDir, safeName(filepath.Base(abs)))
		if err != nil {
			return nil, fmt.Errorf("choose upload path: %w", err)
		}
		if err := fileutil.CopyFileVerified(abs, target); err != nil {
			return nil, fmt.Errorf("copy recording: %w", err)
		}
	}
	return s.register(ctx, filepath.Base(abs), target, info.Size())
}

// Store writes an uploaded recording body into the uploads directory and
// registers it.
func (s *RecordingService) Store(ctx context.Context, name string, body io.Reader) (*Recording, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if !ValidRecordingName(name) {
		return nil, invalidRequest(fmt.Sprintf("%s is not a .svo2 or .svo recording", name), nil)
	}
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	staging, err := os.CreateTemp(s.uploadsDir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	stagingPath := staging.Name()
	size, copyErr := staging.ReadFrom(body)
	closeErr := staging.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(stagingPath)
		if copyErr == nil {
			copyErr = closeErr
		}
		return nil, fmt.Errorf("write upload: %w", copyErr)
	}

	target, err := fileutil.UniquePath(s.uploadsDir, safeName(name))
	if err != nil {
		_ = os.Remove(stagingPath)
		return nil, fmt.Errorf("choose upload path: %w", err)
	}
	if err := os.Rename(stagingPath, target); err != nil {
		_ = os.Remove(stagingPath)
		return nil, fmt.Errorf("store upload: %w", err)
	}
	return s.register(ctx, name, target, size)
}

// List returns every registered recording.
func (s *RecordingService) List(ctx context.Context) ([]Recording, error) {
	recs, err := s.store.ListRecordings(ctx)
	if err != nil {
		return nil, err
	}
	return FromRecordings(recs), nil
}

// Get returns the recording with id.
func (s *RecordingService) Get(ctx context.Context, id int64) (*Recording, error) {
	rec, err := s.store.GetRecording(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound("recording", id)
	}
	dto := FromRecording(rec)
	return &dto, nil
}

func (s *RecordingService) register(ctx context.Context, name, path string, size int64) (*Recording, error) {
	rec, err := s.store.AddRecording(ctx, name, path, size)
	if err != nil {
		return nil, err
	}
	s.logger.Info("recording registered",
		logging.RecordingID(rec.ID),
		logging.String("name", rec.Name),
		logging.String("size", textutil.FormatBytes(uint64(rec.SizeBytes))),
		logging.Event("recording_registered"),
	)
	dto := FromRecording(rec)
	return &dto, nil
}

func safeName(name string) string {
	return textutil.FileStem(name, "recording") + strings.ToLower(filepath.Ext(name))
}
