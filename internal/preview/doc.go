// Package preview renders single frames, frame counts and inertial samples
// from a recording without running a full extraction.
//
// Every request opens its own Frame Source handle, seeks to the clamped frame,
// grabs once, renders and closes. Session keeps a handle open across requests
// for one recording and reopens it whenever the depth mode changes. Failures
// come back as tagged results rather than panics or bare errors so callers
// can surface them directly.
package preview
