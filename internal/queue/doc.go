// Package queue persists recordings, extraction jobs, per-file pipeline
// state and artifacts in SQLite.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking and the conditional status transitions that
// keep job and file lifecycles one-directional: pending, then processing,
// then completed or failed. Terminal rows are never moved back; a retry is a
// new job.
//
// The database is treated as working state for jobs and their outputs rather
// than a long-term archive. Schema changes bump the version in schema.go;
// users clear the database to adopt the new schema.
package queue
