// Package services defines shared utilities consumed by the extraction
// pipeline, the job orchestrator and the preview service.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, recording IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that give every failure a
//     stable classification (invalid configuration, open failure, extraction
//     failure, packaging failure, not found, unavailable) and a human-readable
//     detail string suitable for persisting on jobs and file states.
//
// Use these helpers when wiring new pipeline logic so error reporting and
// observability stay uniform across components.
package services
