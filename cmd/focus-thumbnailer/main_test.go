package main

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"focus-thumbnailer/internal/detect"
	"focus-thumbnailer/internal/filesystem"
	"focus-thumbnailer/internal/handlers"
	"focus-thumbnailer/internal/jobs"
	"focus-thumbnailer/internal/startup"
	"focus-thumbnailer/internal/thumbnail"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Encode: %v", err)
	}
}

func TestSetupRouter(t *testing.T) {
	d := jobs.NewDispatcher()
	router := setupRouter(handlers.New(d, nil, handlers.Config{}))

	routes, err := startup.GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes: %v", err)
	}

	want := map[string]bool{
		"POST /enqueue": true,
		"GET /health":   true,
		"GET /livez":    true,
		"HEAD /livez":   true,
		"GET /readyz":   true,
		"GET /version":  true,
	}
	got := make(map[string]bool)
	for _, r := range routes {
		got[r.Method+" "+r.Path] = true
	}
	for k := range want {
		if !got[k] {
			t.Errorf("missing route %s", k)
		}
	}
	if len(got) != len(want) {
		t.Errorf("routes = %v, want exactly %v", got, want)
	}
}

func TestRouterRejectsWrongMethod(t *testing.T) {
	router := setupRouter(handlers.New(jobs.NewDispatcher(), nil, handlers.Config{}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/enqueue", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /enqueue status = %d, want 405", rr.Code)
	}
}

func TestServerTimeouts(t *testing.T) {
	srv := newServer("127.0.0.1:5001", http.NotFoundHandler())
	if srv.ReadHeaderTimeout == 0 || srv.ReadTimeout == 0 || srv.WriteTimeout == 0 || srv.IdleTimeout == 0 {
		t.Errorf("server has an unbounded timeout: %+v", srv)
	}

	metricsSrv := newMetricsServer("127.0.0.1:9090", http.NotFoundHandler())
	if metricsSrv.ReadHeaderTimeout == 0 {
		t.Error("metrics server has no ReadHeaderTimeout")
	}
}

func TestMetricsServerServesMetrics(t *testing.T) {
	h := handlers.New(jobs.NewDispatcher(), nil, handlers.Config{})
	srv := newMetricsServer("127.0.0.1:0", h.MetricsHandler())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "focus_thumbnailer_") {
		t.Error("metrics output has no focus_thumbnailer_ series")
	}
}

func TestLoadDetectorChain(t *testing.T) {
	t.Run("from names", func(t *testing.T) {
		config := &startup.Config{
			Detectors:       "http",
			DetectorURL:     "http://detector/detect",
			DetectorTimeout: 5 * time.Second,
		}
		chain, source, err := loadDetectorChain(config)
		if err != nil {
			t.Fatalf("loadDetectorChain: %v", err)
		}
		if source != "DETECTORS=http" {
			t.Errorf("source = %q", source)
		}
		if len(chain.Detectors) != 1 || chain.Detectors[0].URL != "http://detector/detect" {
			t.Errorf("chain = %+v", chain.Detectors)
		}
	})

	t.Run("from yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "detectors.yaml")
		yaml := "detectors:\n  - name: remote\n    type: http\n    url: http://x/detect\n"
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		chain, source, err := loadDetectorChain(&startup.Config{DetectorsConfig: path, Detectors: "pigo"})
		if err != nil {
			t.Fatalf("loadDetectorChain: %v", err)
		}
		if source != path {
			t.Errorf("source = %q, want %q", source, path)
		}
		if names := chain.Names(); len(names) != 1 || names[0] != "remote" {
			t.Errorf("names = %v, want [remote]", names)
		}
	})

	t.Run("unknown detector", func(t *testing.T) {
		if _, _, err := loadDetectorChain(&startup.Config{Detectors: "magic"}); err == nil {
			t.Error("loadDetectorChain succeeded for an unknown detector")
		}
	})
}

func TestPipelineOptions(t *testing.T) {
	options := pipelineOptions(&startup.Config{
		FaceOffsetY:       0.2,
		Quality:           70,
		MaxImageDimension: 1000,
		MaxImagePixels:    500_000,
	})

	if options.FaceOffsetY != 0.2 || options.Quality != 70 {
		t.Errorf("options = %+v", options)
	}
	if options.Limits.MaxDimension != 1000 || options.Limits.MaxPixels != 500_000 {
		t.Errorf("limits = %+v", options.Limits)
	}
	if options.Retry != filesystem.DefaultRetryConfig() {
		t.Errorf("retry = %+v, want defaults", options.Retry)
	}
}

// TestEndToEnd wires the intake, dispatcher, worker and pipeline together
// with an empty detector chain and renders one thumbnail.
func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "out", "thumb.png")
	writePNG(t, src, 200, 100)

	dispatcher := jobs.NewDispatcher()
	pipeline := thumbnail.NewPipeline(detect.NewPipeline(), thumbnail.DefaultOptions())
	worker := jobs.NewWorker(dispatcher, pipeline, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	router := setupRouter(handlers.New(dispatcher, worker, handlers.Config{Retry: filesystem.DefaultRetryConfig()}))
	server := httptest.NewServer(router)
	defer server.Close()

	body, _ := json.Marshal(map[string]interface{}{
		"job_id": "e2e", "src": src, "dst": dst, "width": 50, "height": 50,
	})
	resp, err := http.Post(server.URL+"/enqueue", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("POST /enqueue: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("enqueue status = %d, want 200", resp.StatusCode)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		if stats := dispatcher.Stats(); stats.Pending == 0 && stats.Processing == 0 {
			if _, err := os.Stat(dst); err == nil {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("thumbnail %s not written in time", dst)
		}
		time.Sleep(10 * time.Millisecond)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 50 {
		t.Errorf("thumbnail is %dx%d, want 50x50", cfg.Width, cfg.Height)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200 while the worker runs", rr.Code)
	}
}
