// Package logs tails the daemon log file for the CLI.
//
// Reads keep memory bounded to the requested line count, negative offsets mean
// "last N lines", and follow mode polls for appended lines until the caller's
// context ends. A Filter narrows output to one job's lines in either the
// console or JSON log format.
package logs
