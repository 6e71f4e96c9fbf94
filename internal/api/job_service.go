package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"svoextract/internal/config"
	"svoextract/internal/extract"
	"svoextract/internal/framesource"
	"svoextract/internal/logging"
	"svoextract/internal/packager"
	"svoextract/internal/pipeline"
	"svoextract/internal/queue"
	"svoextract/internal/services"
)

// JobService exposes job operations returning API DTOs.
type JobService struct {
	store    *queue.Store
	packager *packager.Packager
	defaults config.Extraction
	notify   func()
	logger   *slog.Logger
}

// JobServiceOption configures optional JobService behavior.
type JobServiceOption func(*JobService)

// WithNotifier registers a callback run after each successful submission,
// typically the workflow manager's Notify.
func WithNotifier(notify func()) JobServiceOption {
	return func(s *JobService) {
		s.notify = notify
	}
}

// NewJobService constructs a JobService. Output paths come from cfg.
func NewJobService(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...JobServiceOption) *JobService {
	if logger == nil {
		logger = logging.NewNop()
	}
	svc := &JobService{
		store:    store,
		packager: packager.New(cfg.ResultsDir(), logger),
		defaults: cfg.Extraction,
		logger:   logging.NewComponentLogger(logger, "job-service"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Submit validates req, fills defaults and stores a pending job.
func (s *JobService) Submit(ctx context.Context, req SubmitRequest) (*Job, error) {
	if len(req.RecordingIDs) == 0 {
		return nil, invalidRequest("at least one recording is required", nil)
	}
	for _, id := range req.RecordingIDs {
		rec, err := s.store.GetRecording(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, notFound("recording", id)
		}
	}

	categories := req.Categories
	if len(categories) == 0 {
		categories = s.defaults.Categories
	}
	selection, err := extract.ParseSelection(categories)
	if err != nil {
		return nil, invalidRequest("categories", err)
	}
	if selection.Empty() {
		return nil, invalidRequest("at least one category is required", nil)
	}

	modeName := req.DepthMode
	if strings.TrimSpace(modeName) == "" {
		modeName = s.defaults.DepthMode
	}
	mode, err := framesource.ParseDepthMode(modeName)
	if err != nil {
		return nil, invalidRequest("depth mode", err)
	}

	step := req.FrameStep
	if step == 0 {
		step = s.defaults.FrameStep
	}
	if step == 0 {
		step = 1
	}
	frameRange := pipeline.Range{Start: req.FrameStart, End: req.FrameEnd, Step: step}
	if err := frameRange.Validate(); err != nil {
		return nil, err
	}

	job, err := s.store.NewJob(ctx, queue.Request{
		Categories: selection,
		DepthMode:  mode,
		FrameStart: req.FrameStart,
		FrameEnd:   req.FrameEnd,
		FrameStep:  step,
	}, req.RecordingIDs)
	if err != nil {
		return nil, invalidRequest("create job", err)
	}
	s.logger.Info("job submitted",
		logging.JobID(job.ID),
		logging.Int("recordings", len(job.RecordingIDs)),
		logging.String("categories", selection.String()),
		logging.String("depth_mode", string(mode)),
		logging.Event("job_submitted"),
	)
	if s.notify != nil {
		s.notify()
	}
	dto := FromJob(job)
	return &dto, nil
}

// List returns jobs filtered by status, newest first.
func (s *JobService) List(ctx context.Context, statuses ...queue.Status) ([]Job, error) {
	jobs, err := s.store.ListJobs(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Describe fetches a single job.
func (s *JobService) Describe(ctx context.Context, id int64) (*Job, error) {
	job, err := s.getJob(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

// Progress returns the job's overall and per-file progress.
func (s *JobService) Progress(ctx context.Context, id int64) (*JobProgress, error) {
	job, err := s.getJob(ctx, id)
	if err != nil {
		return nil, err
	}
	recordings, err := s.store.RecordingsForJob(ctx, id)
	if err != nil {
		return nil, err
	}
	states, err := s.store.ListFileStates(ctx, id)
	if err != nil {
		return nil, err
	}
	progress := FromProgress(job, recordings, states)
	return &progress, nil
}

// Artifacts lists a job's artifacts in display order.
func (s *JobService) Artifacts(ctx context.Context, id int64) ([]Artifact, error) {
	if _, err := s.getJob(ctx, id); err != nil {
		return nil, err
	}
	items, err := s.store.ListArtifacts(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromArtifacts(items), nil
}

// Bundle returns the archive path of a completed job.
func (s *JobService) Bundle(ctx context.Context, id int64) (string, error) {
	job, err := s.getJob(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != queue.StatusCompleted || job.BundlePath == "" {
		return "", services.Wrap(services.ErrUnavailable, "bundle", "download",
			fmt.Sprintf("job %d is %s; bundles exist only for completed jobs", id, job.Status), nil)
	}
	if _, err := os.Stat(job.BundlePath); err != nil {
		return "", services.Wrap(services.ErrNotFound, "bundle", "download",
			fmt.Sprintf("bundle for job %d is missing on disk", id), err)
	}
	return job.BundlePath, nil
}

// DeleteResult reports what a job deletion removed.
type DeleteResult struct {
	JobID            int64    `json:"job_id"`
	RemovedPaths     []string `json:"removed_paths"`
	PurgedRecordings []int64  `json:"purged_recordings,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// Delete removes a job with its artifacts, result directory and bundle. With
// purge set, recordings no longer used by any job are removed as well.
// Processing jobs are refused with queue.ErrJobBusy.
func (s *JobService) Delete(ctx context.Context, id int64, purge bool) (*DeleteResult, error) {
	deleted, err := s.store.DeleteJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return nil, notFound("job", id)
	}

	result := &DeleteResult{JobID: id}
	collect := func(clean packager.CleanResult) {
		result.RemovedPaths = append(result.RemovedPaths, clean.Removed...)
		for _, e := range clean.Errors {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", e.Path, e.Error))
		}
	}
	collect(s.packager.RemoveFiles(deleted.ArtifactPaths))
	collect(s.packager.RemoveJobOutput(id, deleted.Job.BundlePath))

	if purge {
		removed, err := s.store.DeleteUnreferencedRecordings(ctx, deleted.RecordingIDs)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("purge recordings: %v", err))
		}
		paths := make([]string, 0, len(removed))
		for _, rec := range removed {
			result.PurgedRecordings = append(result.PurgedRecordings, rec.ID)
			paths = append(paths, rec.Path)
		}
		collect(s.packager.RemoveFiles(paths))
	}

	s.logger.Info("job deleted",
		logging.JobID(id),
		logging.Int("removed_paths", len(result.RemovedPaths)),
		logging.Int("purged_recordings", len(result.PurgedRecordings)),
		logging.Event("job_deleted"),
	)
	return result, nil
}

// ImportResult reports how many existing files were registered for a job.
type ImportResult struct {
	JobID    int64 `json:"job_id"`
	Scanned  int   `json:"scanned"`
	Imported int   `json:"imported"`
	Skipped  int   `json:"skipped"`
}

// Import registers files already present in the job's result directories as
// artifacts. Files already known are skipped. Processing jobs are refused.
func (s *JobService) Import(ctx context.Context, id int64) (*ImportResult, error) {
	job, err := s.getJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == queue.StatusProcessing {
		return nil, queue.ErrJobBusy
	}
	recordings, err := s.store.RecordingsForJob(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &ImportResult{JobID: id}
	for _, rec := range recordings {
		found, err := packager.ScanExisting(s.packager.RecordingDir(id, rec))
		if err != nil {
			return result, services.Wrap(services.ErrExtraction, "import", "scan", rec.Name, err)
		}
		for _, a := range found {
			result.Scanned++
			created, err := s.store.ImportArtifact(ctx, id, rec.ID, a)
			if err != nil {
				return result, err
			}
			if created {
				result.Imported++
			} else {
				result.Skipped++
			}
		}
	}
	s.logger.Info("artifacts imported",
		logging.JobID(id),
		logging.Int("scanned", result.Scanned),
		logging.Int("imported", result.Imported),
		logging.Event("artifacts_imported"),
	)
	return result, nil
}

// CleanOrphanedOutput removes result directories and bundles left behind by
// jobs that no longer exist.
func (s *JobService) CleanOrphanedOutput(ctx context.Context) (packager.CleanResult, error) {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return packager.CleanResult{}, err
	}
	active := make(map[int64]struct{}, len(jobs))
	for _, job := range jobs {
		active[job.ID] = struct{}{}
	}
	return s.packager.CleanOrphaned(active), nil
}

func (s *JobService) getJob(ctx context.Context, id int64) (*queue.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, notFound("job", id)
	}
	return job, nil
}

func invalidRequest(message string, err error) error {
	return services.Wrap(services.ErrInvalidConfiguration, "request", "validate", message, err)
}

func notFound(what string, id int64) error {
	return services.Wrap(services.ErrNotFound, what, "lookup", fmt.Sprintf("%s %d not found", what, id), nil)
}

// IsBusy reports whether err means the job is processing.
func IsBusy(err error) bool {
	return errors.Is(err, queue.ErrJobBusy)
}
