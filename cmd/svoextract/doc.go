// Package main hosts the svoextract CLI entrypoint and command graph.
//
// The Cobra-based command tree registers recordings, submits and inspects
// extraction jobs, renders single-frame previews and scaffolds configuration.
// Commands talk to the SQLite store directly, so they work whether or not the
// daemon is running; `svoextract run` hosts the daemon in-process.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
