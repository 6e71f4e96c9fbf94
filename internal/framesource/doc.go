// Package framesource defines the contract for the external capability that
// decodes stereo-camera recordings.
//
// A Source is a stateful handle over one recording. Callers seek, grab one
// frame, then retrieve images, float measures, or the inertial sample for the
// grabbed frame. Handles are not safe for concurrent use; every pipeline run
// and every preview request opens its own.
//
// Concrete backends register an Opener by name so the daemon and CLI can pick
// one from configuration. The synthetic subpackage provides a deterministic
// backend used by tests and local demos.
package framesource
