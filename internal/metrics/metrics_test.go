package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"svoextract/internal/metrics"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.JobFinished("completed", time.Second)
	m.FileStarted()
	m.FileFinished("completed", 3)
	m.ArtifactsWritten("depth", 2)
	m.SetJobCounts(map[string]int{"pending": 1})
	m.PreviewServed("depth", true)
	m.APIRequest("/api/jobs", 200)
	if m.Registry() != nil {
		t.Fatal("expected nil registry")
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := metrics.New()
	m.JobFinished("completed", 2*time.Second)
	m.FileStarted()
	m.FileFinished("completed", 5)
	m.ArtifactsWritten("stereo_left", 5)
	m.SetJobCounts(map[string]int{"pending": 2})
	m.APIRequest("/api/jobs", 201)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		`svoextract_jobs_finished_total{status="completed"} 1`,
		`svoextract_frames_extracted_total 5`,
		`svoextract_artifacts_written_total{category="stereo_left"} 5`,
		`svoextract_jobs{status="pending"} 2`,
		`svoextract_active_file_pipelines 0`,
		`svoextract_api_requests_total{code="201",route="/api/jobs"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
