package extract

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/simcrawl/racecrawl/internal/config"
	"github.com/simcrawl/racecrawl/internal/fetch"
)

func newTestGate() *fetch.Gate {
	return fetch.NewGate(&config.Config{
		UserAgent:      "racecrawl-test",
		RateLimitMin:   0,
		RateLimitMax:   0,
		RequestsPerMin: 6000,
		MaxRetries:     0,
		BackoffFactor:  1,
		RequestTimeout: 2 * time.Second,
	})
}

func TestLeagueExtractorNameFromPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>iRacing | Demo League</title></head><body>
			<div class="dropdown-toggle"><b>Demo Racing League</b></div>
			<script>
				series.push({id: 101, name: 'Fixed Setup Series', url: 'https://example.test/s/101'});
			</script>
			<div class="series-card">
				<a href="?series_id=101">Fixed Setup Series</a>
				<span class="series-title series-name">Fixed Setup Series</span>
			</div>
		</body></html>`))
	}))
	defer srv.Close()

	ext := &LeagueExtractor{Gate: newTestGate()}
	result, err := ext.Extract(t.Context(), srv.URL+"/?league_id=1")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Series) != 1 {
		t.Fatalf("got %d series, want 1", len(result.Series))
	}
	if result.Series[0].Name != "Fixed Setup Series" {
		t.Errorf("Series[0].Name = %q, want %q (taken from the push() payload)", result.Series[0].Name, "Fixed Setup Series")
	}
}

func TestLeagueExtractorNameFallsBackToCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>iRacing | Demo League</title></head><body>
			<div class="dropdown-toggle"><b>Demo Racing League</b></div>
			<script>
				series.push({id: 202, url: 'https://example.test/s/202'});
			</script>
			<div class="series-card">
				<a href="?series_id=202">link text</a>
				<span class="series-title series-name">Open Setup Series</span>
			</div>
		</body></html>`))
	}))
	defer srv.Close()

	ext := &LeagueExtractor{Gate: newTestGate()}
	result, err := ext.Extract(t.Context(), srv.URL+"/?league_id=1")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Series) != 1 {
		t.Fatalf("got %d series, want 1", len(result.Series))
	}
	if result.Series[0].Name != "Open Setup Series" {
		t.Errorf("Series[0].Name = %q, want %q (resolved via the DOM card fallback)", result.Series[0].Name, "Open Setup Series")
	}
}
