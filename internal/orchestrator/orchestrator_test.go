package orchestrator

import (
	"testing"

	"github.com/simcrawl/racecrawl/internal/config"
	"github.com/simcrawl/racecrawl/internal/extract"
)

func TestParseDepth(t *testing.T) {
	cases := []struct {
		in      string
		want    Depth
		wantErr bool
	}{
		{in: "", want: DepthRace},
		{in: "league", want: DepthLeague},
		{in: "series", want: DepthSeries},
		{in: "season", want: DepthSeason},
		{in: "race", want: DepthRace},
		{in: "galaxy", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDepth(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseDepth(%q) = %v, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDepth(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseDepth(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDepthAtLeast(t *testing.T) {
	if !DepthRace.atLeast(DepthLeague) {
		t.Error("DepthRace should be at least DepthLeague")
	}
	if DepthLeague.atLeast(DepthRace) {
		t.Error("DepthLeague should not be at least DepthRace")
	}
	if !DepthSeason.atLeast(DepthSeason) {
		t.Error("a depth should be at least itself")
	}
}

func TestFiltersAllowsSeries(t *testing.T) {
	empty := Filters{}
	if !empty.allowsSeries(42) {
		t.Error("an empty Filters should allow every series")
	}

	f := Filters{SeriesIDs: []int{1, 2, 3}}
	if !f.allowsSeries(2) {
		t.Error("allowsSeries(2) should be true when 2 is listed")
	}
	if f.allowsSeries(99) {
		t.Error("allowsSeries(99) should be false when 99 is not listed")
	}
}

func TestFilterSeasonsByYear(t *testing.T) {
	seasons := []extract.SeasonRef{
		{SeasonID: 1, Name: "2024 Season 4"},
		{SeasonID: 2, Name: "2025 Season 1"},
		{SeasonID: 3, Name: "2025 Season 2"},
	}
	got := filterSeasonsByYear(seasons, 2025)
	if len(got) != 2 {
		t.Fatalf("filterSeasonsByYear returned %d seasons, want 2", len(got))
	}
	for _, s := range got {
		if s.SeasonID == 1 {
			t.Errorf("2024 season %d should have been filtered out", s.SeasonID)
		}
	}
}

func TestOptionsCacheMaxAgeDays(t *testing.T) {
	cfg := &config.Config{CacheMaxAgeDays: 7}

	withOverride := Options{CacheMaxAgeDays: intPtr(2)}
	if got := withOverride.cacheMaxAgeDays(cfg); got == nil || *got != 2 {
		t.Errorf("cacheMaxAgeDays with override = %v, want 2", got)
	}

	withoutOverride := Options{}
	if got := withoutOverride.cacheMaxAgeDays(cfg); got == nil || *got != 7 {
		t.Errorf("cacheMaxAgeDays without override = %v, want 7 (from Cfg)", got)
	}
}

func intPtr(n int) *int { return &n }

func TestCancellationErrorMessage(t *testing.T) {
	err := &CancellationError{Stage: "series"}
	want := "crawl cancelled during series"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
