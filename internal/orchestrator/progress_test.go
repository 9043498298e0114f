package orchestrator

import (
	"errors"
	"sync"
	"testing"
)

func TestProgressCounters(t *testing.T) {
	p := NewProgress()
	p.addLeague()
	p.addSeries()
	p.addSeries()
	p.addSeason()
	p.addRace()
	p.addRace()
	p.addRace()
	p.addDriver()
	p.addSkipped()
	p.AddError("race", "https://example.test/r/1", errors.New("boom"))

	if p.LeaguesScraped != 1 || p.SeriesScraped != 2 || p.SeasonsScraped != 1 ||
		p.RacesScraped != 3 || p.DriversScraped != 1 || p.SkippedCached != 1 {
		t.Fatalf("unexpected counters: %+v", p)
	}
	if len(p.Errors) != 1 || p.Errors[0].Stage != "race" {
		t.Fatalf("unexpected errors: %+v", p.Errors)
	}

	summary := p.Summary()
	want := "leagues=1 series=2 seasons=1 races=3 drivers=1 skipped=1 errors=1"
	if summary != want {
		t.Errorf("Summary() = %q, want %q", summary, want)
	}
}

func TestProgressAddErrorf(t *testing.T) {
	p := NewProgress()
	p.AddErrorf("driver", "John Smith", "cannot resolve driver id for %q", "John Smith")
	if len(p.Errors) != 1 {
		t.Fatalf("expected one error, got %d", len(p.Errors))
	}
	if got := p.Errors[0].Err.Error(); got != `cannot resolve driver id for "John Smith"` {
		t.Errorf("error message = %q", got)
	}
}

func TestProgressMerge(t *testing.T) {
	combined := NewProgress()
	a := NewProgress()
	a.addLeague()
	a.addRace()
	a.AddError("race", "https://example.test/a", errors.New("a failed"))

	b := NewProgress()
	b.addLeague()
	b.addRace()
	b.addRace()
	b.AddError("race", "https://example.test/b", errors.New("b failed"))

	combined.Merge(a)
	combined.Merge(b)

	if combined.LeaguesScraped != 2 {
		t.Errorf("LeaguesScraped = %d, want 2", combined.LeaguesScraped)
	}
	if combined.RacesScraped != 3 {
		t.Errorf("RacesScraped = %d, want 3", combined.RacesScraped)
	}
	if len(combined.Errors) != 2 {
		t.Errorf("Errors = %d, want 2", len(combined.Errors))
	}
}

func TestProgressConcurrentUse(t *testing.T) {
	p := NewProgress()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.addRace()
		}()
	}
	wg.Wait()
	if p.RacesScraped != 50 {
		t.Errorf("RacesScraped = %d, want 50 after concurrent increments", p.RacesScraped)
	}
}
