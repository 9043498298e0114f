package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/simcrawl/racecrawl/internal/config"
	"github.com/simcrawl/racecrawl/internal/fetch"
	"github.com/simcrawl/racecrawl/internal/store"
)

// LeagueJob is one unit of work for RunMany: a league URL to crawl plus the
// options to crawl it with.
type LeagueJob struct {
	LeagueURL string
	Opts      Options
}

// RunMany crawls multiple leagues concurrently, one Orchestrator and one
// dedicated FetchGate per worker — a FetchGate is never shared across
// leagues, so each league's rate limiting and browser session stay
// independent. Per-league progress is merged into a single snapshot.
func RunMany(ctx context.Context, st *store.Store, cfg *config.Config, logger *slog.Logger, jobs []LeagueJob, workers int) (*Progress, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan LeagueJob, len(jobs))
	for _, j := range jobs {
		ch <- j
	}
	close(ch)

	combined := NewProgress()
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range ch {
				gate := fetch.NewGate(cfg)
				orch := New(st, gate, cfg, logger)

				progress, err := orch.ScrapeLeague(ctx, job.LeagueURL, job.Opts)
				gate.Close(ctx.Err() != nil)
				if err != nil {
					logger.Warn("league crawl ended with error", "league_url", job.LeagueURL, "err", err)
				}

				mu.Lock()
				combined.Merge(progress)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return combined, nil
}
