// Package extract turns one grabbed frame into artifact files.
//
// Each category has a stable output directory and file naming scheme based on
// the dense, zero-based output index of the frame within its recording, never
// the sparse source frame index. Images are written as PNG, raw float measures
// as NumPy .npy arrays, point clouds as ASCII PLY and inertial samples as one
// CSV log per recording.
//
// Writers place artifacts directly at their final location beneath a
// per-recording root so packaging never copies payloads.
package extract
