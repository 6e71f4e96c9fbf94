package api

import (
	"context"
	"errors"
	"testing"

	"svoextract/internal/queue"
	"svoextract/internal/services"
)

type fakeDeleter struct {
	results map[int64]error
}

func (f fakeDeleter) Delete(_ context.Context, id int64, _ bool) (*DeleteResult, error) {
	if err := f.results[id]; err != nil {
		return nil, err
	}
	return &DeleteResult{JobID: id}, nil
}

func TestDeleteJobsByID(t *testing.T) {
	deleter := fakeDeleter{results: map[int64]error{
		2: notFound("job", 2),
		3: queue.ErrJobBusy,
	}}
	result, err := DeleteJobsByID(context.Background(), deleter, []int64{1, 2, 3}, false)
	if err != nil {
		t.Fatalf("DeleteJobsByID returned error: %v", err)
	}
	if result.RemovedCount != 1 {
		t.Fatalf("expected 1 removed, got %d", result.RemovedCount)
	}
	want := []DeleteJobOutcome{DeleteJobRemoved, DeleteJobNotFound, DeleteJobBusy}
	for i, outcome := range want {
		if result.Jobs[i].Outcome != outcome {
			t.Fatalf("job %d: expected %s, got %s", i, outcome, result.Jobs[i].Outcome)
		}
	}
}

func TestDeleteJobsByIDStopsOnError(t *testing.T) {
	boom := errors.New("database locked")
	deleter := fakeDeleter{results: map[int64]error{1: boom}}
	if _, err := DeleteJobsByID(context.Background(), deleter, []int64{1, 2}, false); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if !errors.Is(notFound("job", 1), services.ErrNotFound) {
		t.Fatal("notFound must wrap ErrNotFound")
	}
}
