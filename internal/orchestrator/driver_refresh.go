package orchestrator

import (
	"context"
	"time"

	"github.com/simcrawl/racecrawl/internal/store"
)

// RefreshDriver re-fetches one driver's rating page, overwriting the stub
// left behind by a result-row upsert with the full snapshot the driver page
// carries (car numbers, club, irating, safety rating, license class).
// Unlike race rows, a driver has no terminal status, so force is the only
// way to bypass an otherwise-fresh cache hit.
func (o *Orchestrator) RefreshDriver(ctx context.Context, driverID int, cacheMaxAgeDays *int, force bool) error {
	started := time.Now()
	d, err := o.Store.GetDriver(ctx, driverID)
	if err != nil {
		return err
	}
	if d == nil {
		return &store.ValidationError{Field: "driver_id", Detail: "unknown driver"}
	}

	if !force {
		days := o.Cfg.CacheMaxAgeDays
		if cacheMaxAgeDays != nil {
			days = *cacheMaxAgeDays
		}
		cached, err := o.Store.IsURLCached(ctx, d.URL, store.KindDriver, &days)
		if err == nil && cached {
			o.Progress.addSkipped()
			o.logScrapeSkipped(ctx, store.KindDriver, d.URL, started)
			return nil
		}
	}

	result, err := o.driver.Extract(ctx, d.URL)
	if err != nil {
		o.recordExtractorFailure(ctx, store.KindDriver, d.URL, err, started)
		o.Progress.AddError("driver", d.URL, err)
		return err
	}

	now := time.Now().UTC()
	if _, err := o.Store.UpsertDriver(ctx, driverID, d.LeagueID, store.DriverAttrs{
		Name:          result.Metadata.Name,
		FirstName:     result.Metadata.FirstName,
		LastName:      result.Metadata.LastName,
		CarNumbers:    result.Metadata.CarNumbers,
		PrimaryNumber: result.Metadata.PrimaryNumber,
		Club:          result.Metadata.Club,
		ClubID:        result.Metadata.ClubID,
		IRating:       result.Metadata.IRating,
		SafetyRating:  result.Metadata.SafetyRating,
		LicenseClass:  result.Metadata.LicenseClass,
		URL:           result.Metadata.URL,
		ScrapedAt:     now,
	}); err != nil {
		o.Progress.AddError("driver", d.URL, err)
		return err
	}
	o.logScrapeSuccess(ctx, store.KindDriver, d.URL, started)
	o.Progress.addDriver()
	return nil
}

// RefreshAllDrivers walks every driver owned by leagueID and refreshes each
// one in turn, continuing past individual failures the same way
// ScrapeLeague does. Intended for the maintenance ticker and the
// `refresh-drivers` CLI subcommand.
func (o *Orchestrator) RefreshAllDrivers(ctx context.Context, leagueID int, cacheMaxAgeDays *int, force bool) (*Progress, error) {
	drivers, err := o.Store.GetDriversByLeague(ctx, leagueID)
	if err != nil {
		return o.Progress, err
	}
	for _, d := range drivers {
		if ctx.Err() != nil {
			return o.Progress, o.cancel("driver_refresh")
		}
		if err := o.RefreshDriver(ctx, d.DriverID, cacheMaxAgeDays, force); err != nil {
			o.Progress.AddError("driver", d.URL, err)
		}
	}
	return o.Progress, nil
}
