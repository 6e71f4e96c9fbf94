// Package packager lays out per-job extraction output on disk and bundles it
// into a downloadable zip archive.
//
// Each job owns `extraction_results/job_<id>/` with one directory per
// recording (`file_<recording id>_<name>`) holding one directory per
// category. Package walks that tree once and writes
// `extraction_results/job_<id>_results.zip` with slash-separated entry names
// relative to the job root. Cleanup helpers remove a job's output or result
// directories that no longer belong to any job.
package packager
