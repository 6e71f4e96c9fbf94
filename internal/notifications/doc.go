// Package notifications pushes job outcomes to an ntfy topic.
//
// NewService returns a no-op implementation when no topic is configured, so
// the workflow can notify unconditionally.
package notifications
