package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// openTestStore connects to a disposable database named by DATABASE_URL and
// applies the schema. There is no in-pack precedent for a mocked pgx pool,
// so these tests exercise the real upsert-merge SQL against a real
// database and are skipped when one isn't configured.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping store integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	s := NewWithPool(pool)
	if err := s.applySchema(ctx); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(pool.Close)
	return s
}

// TestUpsertLeagueMergesOptionalFields verifies the COALESCE-merge contract:
// a second upsert that omits description must not blank out the first
// upsert's description, and its newer scraped_at replaces the sentinel.
func TestUpsertLeagueMergesOptionalFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	desc := "Fixed setup racing for everyone"
	if _, err := s.UpsertLeague(ctx, 9001, LeagueAttrs{
		Name:        "Fixed Setup League",
		Description: &desc,
		URL:         "https://example.test/league/9001",
		ScrapedAt:   EpochSentinel,
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// TIMESTAMPTZ keeps microseconds, so compare against a value it can hold.
	now := time.Now().UTC().Truncate(time.Microsecond)
	if _, err := s.UpsertLeague(ctx, 9001, LeagueAttrs{
		Name:      "Fixed Setup League",
		URL:       "https://example.test/league/9001",
		ScrapedAt: now,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	league, err := s.GetLeague(ctx, 9001)
	if err != nil {
		t.Fatalf("get league: %v", err)
	}
	if league.Description == nil || *league.Description != desc {
		t.Errorf("Description = %v, want preserved %q", league.Description, desc)
	}
	if !league.ScrapedAt.Equal(now) {
		t.Errorf("ScrapedAt = %v, want %v (monotonic advance)", league.ScrapedAt, now)
	}
}

// TestUpsertLeagueScrapedAtNeverRegresses checks the GREATEST(...) clause:
// upserting with an older scraped_at than what's stored must not move the
// timestamp backwards.
func TestUpsertLeagueScrapedAtNeverRegresses(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	later := time.Now().UTC().Truncate(time.Microsecond)
	earlier := later.Add(-48 * time.Hour)

	if _, err := s.UpsertLeague(ctx, 9002, LeagueAttrs{
		Name: "Open Setup League", URL: "https://example.test/league/9002", ScrapedAt: later,
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := s.UpsertLeague(ctx, 9002, LeagueAttrs{
		Name: "Open Setup League", URL: "https://example.test/league/9002", ScrapedAt: earlier,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	league, err := s.GetLeague(ctx, 9002)
	if err != nil {
		t.Fatalf("get league: %v", err)
	}
	if !league.ScrapedAt.Equal(later) {
		t.Errorf("ScrapedAt regressed to %v, want it to stay at %v", league.ScrapedAt, later)
	}
}

// TestShouldScrapeRaceCompletedNeverRescrapes checks that a race marked
// complete is cache-immutable regardless of scraped_at age.
func TestShouldScrapeRaceCompletedNeverRescrapes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertLeague(ctx, 9003, LeagueAttrs{Name: "L", URL: "https://example.test/l/9003", ScrapedAt: EpochSentinel}); err != nil {
		t.Fatalf("league: %v", err)
	}
	if _, err := s.UpsertSeries(ctx, 9003, 9003, SeriesAttrs{Name: "S", URL: "https://example.test/s/9003", ScrapedAt: EpochSentinel}); err != nil {
		t.Fatalf("series: %v", err)
	}
	if _, err := s.UpsertSeason(ctx, 9003, 9003, SeasonAttrs{Name: "Season 1", URL: "https://example.test/se/9003", ScrapedAt: EpochSentinel}); err != nil {
		t.Fatalf("season: %v", err)
	}

	old := time.Now().UTC().Add(-365 * 24 * time.Hour)
	raceID, err := s.UpsertRace(ctx, 9003, 9003, RaceAttrs{
		URL: "https://example.test/r/9003", IsComplete: true, ScrapedAt: old,
	})
	if err != nil {
		t.Fatalf("race: %v", err)
	}

	complete, err := s.IsRaceComplete(ctx, 9003)
	if err != nil {
		t.Fatalf("IsRaceComplete: %v", err)
	}
	if !complete {
		t.Fatal("expected race 9003 to be complete")
	}

	validity := 1 // one hour validity window, far shorter than "old"
	should, reason, err := s.ShouldScrape(ctx, KindRace, raceID, &validity)
	if err != nil {
		t.Fatalf("ShouldScrape: %v", err)
	}
	if should {
		t.Errorf("ShouldScrape returned true for a completed race (reason %q), want false", reason)
	}
}
