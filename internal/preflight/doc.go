// Package preflight provides readiness checks for the filesystem paths and
// frame source backend svoextract depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before starting each job. If any check
//     fails, the job is left pending and the manager retries later.
//   - The CLI and the daemon status endpoint use the individual checks to
//     display health.
package preflight
