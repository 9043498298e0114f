package orchestrator

import (
	"fmt"
	"sync"
)

// ProgressError records one failed operation without aborting the run.
type ProgressError struct {
	Stage string
	URL   string
	Err   error
}

func (e ProgressError) String() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.URL, e.Err)
}

// Progress accumulates run-wide counters and errors across a crawl,
// safe for concurrent use from RunMany's worker pool.
type Progress struct {
	mu sync.Mutex

	LeaguesScraped int
	SeriesScraped  int
	SeasonsScraped int
	RacesScraped   int
	DriversScraped int
	SkippedCached  int
	Errors         []ProgressError
}

func NewProgress() *Progress {
	return &Progress{}
}

func (p *Progress) addLeague() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LeaguesScraped++
}

func (p *Progress) addSeries() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SeriesScraped++
}

func (p *Progress) addSeason() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SeasonsScraped++
}

func (p *Progress) addRace() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RacesScraped++
}

func (p *Progress) addDriver() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DriversScraped++
}

func (p *Progress) addSkipped() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SkippedCached++
}

// AddError records a failed operation and lets the run continue.
func (p *Progress) AddError(stage, url string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Errors = append(p.Errors, ProgressError{Stage: stage, URL: url, Err: err})
}

// AddErrorf is AddError with a formatted message.
func (p *Progress) AddErrorf(stage, url, format string, args ...any) {
	p.AddError(stage, url, fmt.Errorf(format, args...))
}

// Summary renders a one-line, human-readable count of the run so far.
func (p *Progress) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf(
		"leagues=%d series=%d seasons=%d races=%d drivers=%d skipped=%d errors=%d",
		p.LeaguesScraped, p.SeriesScraped, p.SeasonsScraped, p.RacesScraped,
		p.DriversScraped, p.SkippedCached, len(p.Errors),
	)
}

// Merge folds another Progress's counters and errors into p. Used by
// RunMany to combine per-league results into one final report.
func (p *Progress) Merge(other *Progress) {
	other.mu.Lock()
	leagues, series, seasons, races, drivers, skipped := other.LeaguesScraped, other.SeriesScraped,
		other.SeasonsScraped, other.RacesScraped, other.DriversScraped, other.SkippedCached
	errs := append([]ProgressError(nil), other.Errors...)
	other.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.LeaguesScraped += leagues
	p.SeriesScraped += series
	p.SeasonsScraped += seasons
	p.RacesScraped += races
	p.DriversScraped += drivers
	p.SkippedCached += skipped
	p.Errors = append(p.Errors, errs...)
}
