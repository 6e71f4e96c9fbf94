// Package api defines wire-format types and the job and recording services
// shared by the daemon HTTP API and the CLI. It translates internal queue
// models into transport-friendly DTOs so callers never touch store types.
//
// # Key Types
//
// Job: a submitted extraction with its request, status and overall progress.
//
// JobProgress: the per-job progress view, with one FileProgress per recording
// in submission order.
//
// WorkflowStatus / DaemonStatus: runtime information for status endpoints.
//
// # Services
//
// JobService: submit, list, describe, progress, artifacts, delete and import.
//
// RecordingService: register uploaded recordings and list them.
//
// # Design Notes
//
// DTOs use snake_case JSON tags to match the progress payload consumed by the
// upload frontend. Timestamps use RFC3339 with milliseconds. Request
// validation errors are tagged services.ErrInvalidConfiguration and unknown
// ids services.ErrNotFound so transports can map them to status codes.
package api
