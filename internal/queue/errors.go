package queue

import "errors"

// ErrTransition reports a status change rejected because the row was not in
// the required source state.
var ErrTransition = errors.New("invalid status transition")

// ErrJobBusy reports an operation refused while the job is processing.
var ErrJobBusy = errors.New("job is processing")
