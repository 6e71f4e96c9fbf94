// Package config loads, normalizes, and validates svoextract configuration.
//
// It merges TOML files with repository defaults, expands user paths, applies
// environment fallbacks (SVOEXTRACT_DATA_DIR, SVOEXTRACT_API_BIND) and exposes
// the derived locations used by the daemon and CLI: the upload directory, the
// extraction results root, the SQLite database and the daemon lock file.
//
// Call Load early in process startup, then pass the resulting *Config down to
// the store, workflow manager, preview service and API server.
package config
