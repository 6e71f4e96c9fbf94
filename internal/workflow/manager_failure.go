package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"svoextract/internal/logging"
	"svoextract/internal/queue"
	"svoextract/internal/services"
)

// handleJobFailure records err on the failing file state (when rec is set)
// and on the job. Both carry the same detail.
func (m *Manager) handleJobFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, rec *queue.Recording, failure error) {
	message := classifyFailure(failure)
	details := services.Details(failure)

	attrs := []logging.Attr{
		logging.String("error_kind", string(details.Kind)),
		logging.String("error_operation", details.Operation),
		logging.String("error_message", message),
		logging.Hint(hintFor(details.Kind)),
	}
	if rec != nil {
		attrs = append(attrs, logging.RecordingID(rec.ID), logging.String("recording", rec.Name))
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(failure))
	}
	logging.ErrorWithContext(logger, "job failed", "job_failure", attrs...)

	if rec != nil {
		if err := m.store.FailFile(ctx, job.ID, rec.ID, message); err != nil {
			logFailurePersistError(logger, "file", err)
		}
	}
	if err := m.store.FailJob(ctx, job.ID, message); err != nil {
		logFailurePersistError(logger, "job", err)
	}
}

// failFileQuietly marks a file that stopped because of cancellation rather
// than its own error.
func (m *Manager) failFileQuietly(ctx context.Context, logger *slog.Logger, jobID, recordingID int64, reason string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownWriteTimeout)
	defer cancel()
	if err := m.store.FailFile(writeCtx, jobID, recordingID, reason); err != nil {
		logFailurePersistError(logger, "file", err)
	}
}

func classifyFailure(err error) string {
	if err == nil {
		return "extraction failed without error detail"
	}
	message := strings.TrimSpace(services.Details(err).Message)
	if message == "" {
		message = strings.TrimSpace(err.Error())
	}
	if message == "" {
		message = "extraction failed"
	}
	return message
}

func hintFor(kind services.Kind) string {
	switch kind {
	case services.KindOpenFailed:
		return "check that the recording exists and the frame source backend can read it"
	case services.KindExtraction:
		return "check free space and permissions under data_dir"
	case services.KindPackaging:
		return "check free space under extraction_results"
	case services.KindInvalidConfiguration:
		return "fix the job's frame range or categories and resubmit"
	default:
		return "check logs for details"
	}
}

func logFailurePersistError(logger *slog.Logger, what string, err error) {
	if errors.Is(err, queue.ErrTransition) {
		logger.Debug("failure already recorded", logging.String("target", what), logging.Error(err))
		return
	}
	logger.Error("failed to persist failure", logging.String("target", what), logging.Error(err))
}
