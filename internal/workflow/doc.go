// Package workflow runs extraction jobs from the queue to completion.
//
// The Manager polls the store for the oldest pending job, runs preflight
// checks, moves the job to processing and drives one File Pipeline per
// recording in submission order. Each pipeline writes only its own file state;
// overall job progress is recomputed from a snapshot of every file's progress
// and never decreases. The first file failure fails the job with the same
// detail and leaves later files pending. When every file completes, the
// packager bundles the output and the job completes.
//
// Jobs interrupted by a shutdown are failed with queue.DaemonStopReason, both
// on the way down and again on the next start for anything left behind. There
// is no resume; a retry is a new job. Heartbeats are recorded while a job runs
// and stale ones are reported through Status.
package workflow
