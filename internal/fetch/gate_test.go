package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/simcrawl/racecrawl/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		UserAgent:      "racecrawl-test",
		RateLimitMin:   20 * time.Millisecond,
		RateLimitMax:   20 * time.Millisecond,
		RequestsPerMin: 6000,
		MaxRetries:     2,
		BackoffFactor:  1,
		RequestTimeout: 2 * time.Second,
		RenderWait:     50 * time.Millisecond,
	}
}

func TestFetchStaticRateLimitsSuccessiveRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	gate := NewGate(testConfig())
	ctx := context.Background()

	start := time.Now()
	if _, err := gate.FetchStatic(ctx, srv.URL+"/a"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := gate.FetchStatic(ctx, srv.URL+"/b"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < gate.rateMin {
		t.Errorf("two distinct-URL fetches completed in %v, want at least the %v gap enforced", elapsed, gate.rateMin)
	}
}

func TestFetchStaticUsesRunCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("<html><body>cached</body></html>"))
	}))
	defer srv.Close()

	gate := NewGate(testConfig())
	ctx := context.Background()

	if _, err := gate.FetchStatic(ctx, srv.URL); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := gate.FetchStatic(ctx, srv.URL); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server received %d requests, want 1 (second should be served from the run cache)", got)
	}
}

func TestFetchStaticRetriesThenFails(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxRetries = 2
	gate := NewGate(cfg)

	_, err := gate.FetchStatic(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected an error from a server that always returns 500")
	}
	te, ok := err.(*TransportError)
	if !ok {
		t.Fatalf("error type = %T, want *TransportError", err)
	}
	if te.Attempt != cfg.MaxRetries+1 {
		t.Errorf("TransportError.Attempt = %d, want %d", te.Attempt, cfg.MaxRetries+1)
	}
	if got := atomic.LoadInt32(&attempts); int(got) != cfg.MaxRetries+1 {
		t.Errorf("server saw %d attempts, want %d", got, cfg.MaxRetries+1)
	}
}

func TestFetchStaticSucceedsAfterTransientFailure(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html><body>recovered</body></html>"))
	}))
	defer srv.Close()

	gate := NewGate(testConfig())
	doc, err := gate.FetchStatic(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error after a single transient failure: %v", err)
	}
	if got := doc.Find("body").Text(); got != "recovered" {
		t.Errorf("body text = %q, want %q", got, "recovered")
	}
}

func TestFetchStaticContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	gate := NewGate(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := gate.FetchStatic(ctx, srv.URL); err == nil {
		t.Error("expected an error when the context is already cancelled")
	}
}

func TestRunCacheExpiry(t *testing.T) {
	c := newRunCache(10 * time.Millisecond)
	c.set("https://example.test", "<html></html>")
	if _, ok := c.get("https://example.test"); !ok {
		t.Fatal("expected a cache hit immediately after set")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.get("https://example.test"); ok {
		t.Error("expected the entry to have expired")
	}
}
