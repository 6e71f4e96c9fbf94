// Package textutil provides small text helpers shared by the CLI, the daemon
// and the packager: filename sanitization, byte-size and status formatting.
package textutil
