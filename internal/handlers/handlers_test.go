package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"focus-thumbnailer/internal/filesystem"
	"focus-thumbnailer/internal/jobs"
	"focus-thumbnailer/internal/media"

	"golang.org/x/crypto/bcrypt"
)

type fakeWorker struct{ running bool }

func (f fakeWorker) IsRunning() bool { return f.running }

type recordingSubmitter struct {
	mu  sync.Mutex
	got []jobs.Job
	d   *jobs.Dispatcher
}

func newRecordingSubmitter() *recordingSubmitter {
	return &recordingSubmitter{d: jobs.NewDispatcher()}
}

func (r *recordingSubmitter) Submit(job jobs.Job) jobs.Admission {
	r.mu.Lock()
	r.got = append(r.got, job)
	r.mu.Unlock()
	return r.d.Submit(job)
}

func (r *recordingSubmitter) Stats() jobs.Stats { return r.d.Stats() }

func (r *recordingSubmitter) submitted() []jobs.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]jobs.Job(nil), r.got...)
}

func testRetry() filesystem.RetryConfig {
	return filesystem.RetryConfig{MaxRetries: 0}
}

func testLimits() media.Limits {
	return media.Limits{MaxDimension: 1000, MaxPixels: 250_000}
}

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.jpg")
	if err := os.WriteFile(path, []byte("not really a jpeg"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func postEnqueue(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, EnqueueResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/enqueue", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp EnqueueResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %q", rr.Body.String())
	}
	return rr, resp
}

func enqueueBody(t *testing.T, req EnqueueRequest) string {
	t.Helper()
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return string(b)
}

func TestEnqueueAdmitsAndDeduplicates(t *testing.T) {
	src := writeSource(t)
	sub := newRecordingSubmitter()
	h := New(sub, fakeWorker{}, Config{Retry: testRetry(), Limits: testLimits()})
	handler := http.HandlerFunc(h.Enqueue)

	body := enqueueBody(t, EnqueueRequest{JobID: "a", Src: src, Dst: "/tmp/out/a.jpg", Width: 100, Height: 100})

	rr, resp := postEnqueue(t, handler, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("first enqueue status = %d, want 200", rr.Code)
	}
	if !resp.OK || resp.Status != "queued" {
		t.Errorf("first enqueue = %+v, want ok queued", resp)
	}

	rr, resp = postEnqueue(t, handler, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("second enqueue status = %d, want 200", rr.Code)
	}
	if !resp.OK || resp.Status != "already_queued" {
		t.Errorf("second enqueue = %+v, want ok already_queued", resp)
	}

	if got := sub.Stats().QueueSize; got != 1 {
		t.Errorf("queue size = %d, want 1", got)
	}

	got := sub.submitted()
	if len(got) != 2 {
		t.Fatalf("submitted %d jobs, want 2", len(got))
	}
	want := jobs.Job{ID: "a", Src: src, Dst: "/tmp/out/a.jpg", Width: 100, Height: 100}
	if got[0] != want {
		t.Errorf("submitted job = %+v, want %+v", got[0], want)
	}
}

func TestEnqueueRejectsBadRequests(t *testing.T) {
	src := writeSource(t)
	missing := filepath.Join(t.TempDir(), "missing.jpg")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
		wantSrc    string
	}{
		{
			name:       "empty body",
			body:       "",
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing parameters",
		},
		{
			name:       "malformed json",
			body:       `{"job_id": "a",`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing parameters",
		},
		{
			name:       "missing job id",
			body:       enqueueBody(t, EnqueueRequest{Src: src, Dst: "/tmp/x.jpg", Width: 1, Height: 1}),
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing parameters",
		},
		{
			name:       "missing dst",
			body:       `{"job_id":"a","src":"` + src + `","width":10,"height":10}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing parameters",
		},
		{
			name:       "zero width",
			body:       enqueueBody(t, EnqueueRequest{JobID: "a", Src: src, Dst: "/tmp/x.jpg", Height: 10}),
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing parameters",
		},
		{
			name:       "negative height",
			body:       enqueueBody(t, EnqueueRequest{JobID: "a", Src: src, Dst: "/tmp/x.jpg", Width: 10, Height: -5}),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid parameters",
		},
		{
			name:       "width above max dimension",
			body:       enqueueBody(t, EnqueueRequest{JobID: "a", Src: src, Dst: "/tmp/x.jpg", Width: 100000, Height: 10}),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid parameters",
		},
		{
			name:       "too many pixels",
			body:       enqueueBody(t, EnqueueRequest{JobID: "a", Src: src, Dst: "/tmp/x.jpg", Width: 600, Height: 600}),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid parameters",
		},
		{
			name:       "huge size overflowing the pixel count",
			body:       `{"job_id":"a","src":"` + src + `","dst":"/tmp/x.jpg","width":4000000000,"height":4000000000}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid parameters",
		},
		{
			name:       "wrong field type",
			body:       `{"job_id":"a","src":"` + src + `","dst":"/tmp/x.jpg","width":"ten","height":10}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing parameters",
		},
		{
			name:       "missing source",
			body:       enqueueBody(t, EnqueueRequest{JobID: "a", Src: missing, Dst: "/tmp/x.jpg", Width: 10, Height: 10}),
			wantStatus: http.StatusNotFound,
			wantError:  "Source image not found",
			wantSrc:    missing,
		},
		{
			name:       "source is a directory",
			body:       enqueueBody(t, EnqueueRequest{JobID: "a", Src: filepath.Dir(src), Dst: "/tmp/x.jpg", Width: 10, Height: 10}),
			wantStatus: http.StatusNotFound,
			wantError:  "Source image not found",
			wantSrc:    filepath.Dir(src),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := newRecordingSubmitter()
			h := New(sub, fakeWorker{}, Config{Retry: testRetry(), Limits: testLimits()})

			rr, resp := postEnqueue(t, http.HandlerFunc(h.Enqueue), tt.body)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if resp.OK {
				t.Error("ok = true, want false")
			}
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
			if resp.Src != tt.wantSrc {
				t.Errorf("src = %q, want %q", resp.Src, tt.wantSrc)
			}
			if n := len(sub.submitted()); n != 0 {
				t.Errorf("submitted %d jobs, want 0", n)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	src := writeSource(t)
	d := jobs.NewDispatcher()
	h := New(d, fakeWorker{}, Config{Retry: testRetry()})

	for _, id := range []string{"a", "b"} {
		d.Submit(jobs.Job{ID: id, Src: src, Dst: "/tmp/" + id + ".jpg", Width: 1, Height: 1})
	}
	d.Begin("a")

	rr := httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got["ok"] != true {
		t.Errorf("ok = %v, want true", got["ok"])
	}
	if got["pending"] != float64(1) {
		t.Errorf("pending = %v, want 1", got["pending"])
	}
	if got["processing"] != float64(1) {
		t.Errorf("processing = %v, want 1", got["processing"])
	}
	if got["queue_size"] != float64(2) {
		t.Errorf("queue_size = %v, want 2", got["queue_size"])
	}
	ids, ok := got["processing_jobs"].([]interface{})
	if !ok || len(ids) != 1 || ids[0] != "a" {
		t.Errorf("processing_jobs = %v, want [a]", got["processing_jobs"])
	}
}

func TestHealthCheckEmpty(t *testing.T) {
	h := New(jobs.NewDispatcher(), fakeWorker{}, Config{})

	rr := httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if !strings.Contains(rr.Body.String(), `"processing_jobs":[]`) {
		t.Errorf("body = %s, want empty processing_jobs array", rr.Body.String())
	}
}

func TestLivenessCheck(t *testing.T) {
	h := New(jobs.NewDispatcher(), fakeWorker{}, Config{})

	rr := httptest.NewRecorder()
	h.LivenessCheck(rr, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "alive") {
		t.Errorf("GET body = %q, want alive", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.LivenessCheck(rr, httptest.NewRequest(http.MethodHead, "/livez", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("HEAD status = %d, want 200", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("HEAD body = %q, want empty", rr.Body.String())
	}
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		worker     WorkerStatus
		wantStatus int
		wantBody   string
	}{
		{"running", fakeWorker{running: true}, http.StatusOK, "ready"},
		{"stopped", fakeWorker{running: false}, http.StatusServiceUnavailable, "not_ready"},
		{"no worker", nil, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(jobs.NewDispatcher(), tt.worker, Config{})
			rr := httptest.NewRecorder()
			h.ReadinessCheck(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if body["status"] != tt.wantBody {
				t.Errorf("status field = %q, want %q", body["status"], tt.wantBody)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	h := New(jobs.NewDispatcher(), fakeWorker{}, Config{})
	rr := httptest.NewRecorder()
	h.GetVersion(rr, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := body["version"]; !ok {
		t.Errorf("body = %v, want version field", body)
	}
}

func TestRequireToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}

	src := writeSource(t)
	body := enqueueBody(t, EnqueueRequest{JobID: "a", Src: src, Dst: "/tmp/a.jpg", Width: 10, Height: 10})

	tests := []struct {
		name       string
		auth       string
		wantStatus int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic czNjcmV0", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer s3cret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := newRecordingSubmitter()
			h := New(sub, fakeWorker{}, Config{TokenHash: string(hash), Retry: testRetry()})
			handler := h.RequireToken(http.HandlerFunc(h.Enqueue))

			req := httptest.NewRequest(http.MethodPost, "/enqueue", bytes.NewBufferString(body))
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			wantSubmitted := 0
			if tt.wantStatus == http.StatusOK {
				wantSubmitted = 1
			}
			if n := len(sub.submitted()); n != wantSubmitted {
				t.Errorf("submitted %d jobs, want %d", n, wantSubmitted)
			}
		})
	}
}

func TestRequireTokenDisabled(t *testing.T) {
	h := New(jobs.NewDispatcher(), fakeWorker{}, Config{})
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	h.RequireToken(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/enqueue", nil))

	if !called {
		t.Error("next handler not called without a configured token")
	}
	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rr.Code)
	}
}
