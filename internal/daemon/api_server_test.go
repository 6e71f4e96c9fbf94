package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"svoextract/internal/api"
	"svoextract/internal/config"
	"svoextract/internal/framesource/synthetic"
	"svoextract/internal/metrics"
	"svoextract/internal/testsupport"
)

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	d, err := New(cfg, store, synthetic.FileOpener{}, nil,
		WithMetrics(metrics.New()),
		WithPreflight(func(context.Context) error { return nil }),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func writeSourceRecording(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	opts := synthetic.DefaultOptions()
	opts.Frames = 5
	opts.Width = 8
	opts.Height = 6
	path := filepath.Join(testsupport.BaseDir(cfg), name)
	if err := synthetic.WriteRecording(path, opts); err != nil {
		t.Fatalf("WriteRecording failed: %v", err)
	}
	return path
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestAPIJobLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)
	h := d.Handler()

	w := do(t, h, http.MethodPost, "/api/recordings", map[string]string{"path": writeSourceRecording(t, cfg, "walk.svo2")})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	rec := decode[api.Recording](t, w)

	w = do(t, h, http.MethodPost, "/api/jobs", api.SubmitRequest{
		RecordingIDs: []int64{rec.ID},
		Categories:   []string{"stereo_left", "depth"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	job := decode[api.JobResponse](t, w).Job
	jobURL := fmt.Sprintf("/api/jobs/%d", job.ID)

	if w := do(t, h, http.MethodGet, jobURL+"/bundle", nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for pending bundle, got %d", w.Code)
	}

	if _, err := d.workflow.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	w = do(t, h, http.MethodGet, jobURL+"/progress", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	progress := decode[api.JobProgress](t, w)
	if progress.Status != "completed" || progress.Progress != 100 {
		t.Fatalf("unexpected progress %+v", progress)
	}
	if len(progress.Files) != 1 || progress.Files[0].Filename != "walk.svo2" || progress.Files[0].TotalFrames != 5 {
		t.Fatalf("unexpected files %+v", progress.Files)
	}

	w = do(t, h, http.MethodGet, jobURL+"/artifacts", nil)
	artifacts := decode[api.ArtifactListResponse](t, w)
	if len(artifacts.Artifacts) != 10 {
		t.Fatalf("expected 10 artifacts, got %d", len(artifacts.Artifacts))
	}

	w = do(t, h, http.MethodGet, jobURL+"/bundle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 bundle, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Fatal("bundle is not a zip archive")
	}

	w = do(t, h, http.MethodGet, "/api/jobs?status=completed", nil)
	if jobs := decode[api.JobListResponse](t, w).Jobs; len(jobs) != 1 {
		t.Fatalf("expected 1 completed job, got %d", len(jobs))
	}

	if w := do(t, h, http.MethodDelete, jobURL, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 delete, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodGet, jobURL, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestAPISubmitValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)
	h := d.Handler()

	w := do(t, h, http.MethodPost, "/api/jobs", api.SubmitRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := decode[api.ErrorResponse](t, w); resp.Kind != "invalid_configuration" {
		t.Fatalf("unexpected error kind %q", resp.Kind)
	}

	w = do(t, h, http.MethodPost, "/api/jobs", api.SubmitRequest{RecordingIDs: []int64{77}})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"bogus":1}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}

	if w := do(t, h, http.MethodPut, "/api/jobs", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	d := newTestDaemon(t, cfg)
	h := d.Handler()

	if w := do(t, h, http.MethodGet, "/api/jobs", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	if w := do(t, h, http.MethodGet, "/metrics", nil); w.Code != http.StatusOK {
		t.Fatalf("expected metrics without token, got %d", w.Code)
	}
}

func TestAPIPreviewEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)
	h := d.Handler()

	w := do(t, h, http.MethodPost, "/api/recordings", map[string]string{"path": writeSourceRecording(t, cfg, "walk.svo2")})
	rec := decode[api.Recording](t, w)
	base := fmt.Sprintf("/api/recordings/%d", rec.ID)

	w = do(t, h, http.MethodGet, base+"/frame?frame=99&view=depth", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("unexpected content type %q", ct)
	}

	w = do(t, h, http.MethodGet, base+"/frame?frame=2&format=json", nil)
	frame := decode[struct {
		OK      bool   `json:"ok"`
		Frame   int    `json:"frame"`
		DataURI string `json:"data_uri"`
	}](t, w)
	if !frame.OK || frame.Frame != 2 || !strings.HasPrefix(frame.DataURI, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected frame result %+v", frame)
	}

	if w := do(t, h, http.MethodGet, base+"/frame?view=thermal", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown view, got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, base+"/info", nil)
	info := decode[struct {
		OK          bool `json:"ok"`
		TotalFrames int  `json:"total_frames"`
	}](t, w)
	if !info.OK || info.TotalFrames != 5 {
		t.Fatalf("unexpected info %+v", info)
	}

	if w := do(t, h, http.MethodGet, base+"/imu?frame=1", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 imu, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodGet, base+"/thumbnail", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 thumbnail, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/recordings/999/info", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/metrics", nil)
	if !strings.Contains(w.Body.String(), "svoextract_preview_requests_total") {
		t.Fatal("expected preview metrics to be exported")
	}
}

func TestAPIMultipartUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)
	h := d.Handler()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "upload.svo2")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("synthetic:\n  frames: 3\n  width: 4\n  height: 4\n")); err != nil {
		t.Fatal(err)
	}
	if err := form.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/recordings", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	rec := decode[api.Recording](t, w)
	if filepath.Dir(rec.Path) != cfg.UploadsDir() {
		t.Fatalf("expected upload under uploads dir, got %s", rec.Path)
	}

	w = do(t, h, http.MethodGet, "/api/recordings", nil)
	if recs := decode[api.RecordingListResponse](t, w).Recordings; len(recs) != 1 {
		t.Fatalf("expected 1 recording, got %d", len(recs))
	}
}
