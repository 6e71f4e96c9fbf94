package api

import (
	"context"
	"errors"

	"svoextract/internal/services"
)

// JobDeleter captures the job operation needed by per-id delete workflows.
type JobDeleter interface {
	Delete(ctx context.Context, id int64, purge bool) (*DeleteResult, error)
}

type DeleteJobOutcome string

const (
	DeleteJobRemoved  DeleteJobOutcome = "removed"
	DeleteJobNotFound DeleteJobOutcome = "not_found"
	DeleteJobBusy     DeleteJobOutcome = "processing"
)

type DeleteJobResult struct {
	ID       int64            `json:"id"`
	Outcome  DeleteJobOutcome `json:"outcome"`
	Warnings []string         `json:"warnings,omitempty"`
}

type DeleteJobsResult struct {
	RemovedCount int               `json:"removed_count"`
	Jobs         []DeleteJobResult `json:"jobs"`
}

// DeleteJobsByID deletes jobs one-by-one so each ID can report removed,
// not_found or processing. Any other error aborts the batch.
func DeleteJobsByID(ctx context.Context, service JobDeleter, ids []int64, purge bool) (DeleteJobsResult, error) {
	result := DeleteJobsResult{Jobs: make([]DeleteJobResult, 0, len(ids))}
	for _, id := range ids {
		deleted, err := service.Delete(ctx, id, purge)
		switch {
		case err == nil:
			result.RemovedCount++
			result.Jobs = append(result.Jobs, DeleteJobResult{ID: id, Outcome: DeleteJobRemoved, Warnings: deleted.Warnings})
		case errors.Is(err, services.ErrNotFound):
			result.Jobs = append(result.Jobs, DeleteJobResult{ID: id, Outcome: DeleteJobNotFound})
		case IsBusy(err):
			result.Jobs = append(result.Jobs, DeleteJobResult{ID: id, Outcome: DeleteJobBusy})
		default:
			return DeleteJobsResult{}, err
		}
	}
	return result, nil
}
