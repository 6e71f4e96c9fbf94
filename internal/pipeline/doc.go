// Package pipeline drives one recording through a frame source.
//
// Run normalizes the requested frame range against the recording length,
// visits start, start+step, ... strictly below the clamped end, invokes every
// enabled extractor for each grabbed frame and reports fractional progress.
// An end-of-stream or grab failure ends the run early without error; an
// extractor failure aborts the file with ErrExtraction.
package pipeline
