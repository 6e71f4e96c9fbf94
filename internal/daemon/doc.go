// Package daemon coordinates the long-running svoextract process.
//
// It wires configuration, the job store, the workflow manager, the preview
// service and the HTTP API into a single lifecycle with flock-based locking to
// prevent multiple instances. Run supervises the API server and the metrics
// refresher with an errgroup; the first failure or context cancellation stops
// everything and interrupted jobs are failed by the workflow manager.
//
// Keep orchestration logic here: extraction steps live in workflow and
// pipeline while the daemon focuses on startup, shutdown, and transport.
package daemon
