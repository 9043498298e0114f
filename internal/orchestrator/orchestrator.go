// Package orchestrator drives the crawl: traversing league → series →
// season → race → result, gating each step by cache freshness and
// completion status, and persisting everything through internal/store.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/simcrawl/racecrawl/internal/config"
	"github.com/simcrawl/racecrawl/internal/extract"
	"github.com/simcrawl/racecrawl/internal/fetch"
	"github.com/simcrawl/racecrawl/internal/schemaguard"
	"github.com/simcrawl/racecrawl/internal/store"
)

// Depth is the closed enum of traversal depths; each level implies every
// level before it.
type Depth string

const (
	DepthLeague Depth = "league"
	DepthSeries Depth = "series"
	DepthSeason Depth = "season"
	DepthRace   Depth = "race"
)

var depthRank = map[Depth]int{
	DepthLeague: 0,
	DepthSeries: 1,
	DepthSeason: 2,
	DepthRace:   3,
}

// ParseDepth validates a CLI/config-supplied depth string against the
// closed enum, defaulting callers to DepthRace on empty input.
func ParseDepth(s string) (Depth, error) {
	if s == "" {
		return DepthRace, nil
	}
	d := Depth(s)
	if _, ok := depthRank[d]; !ok {
		return "", &store.ValidationError{Field: "depth", Detail: "unknown depth " + s}
	}
	return d, nil
}

func (d Depth) atLeast(other Depth) bool {
	return depthRank[d] >= depthRank[other]
}

// Filters narrows traversal within a depth level. All fields are optional;
// a nil/empty field applies no restriction.
type Filters struct {
	SeriesIDs   []int // only descend into series whose external id is listed
	SeasonYear  *int  // only descend into seasons whose name contains this year
	SeasonLimit *int  // descend into at most the first N seasons per series
}

func (f Filters) allowsSeries(seriesID int) bool {
	if len(f.SeriesIDs) == 0 {
		return true
	}
	for _, id := range f.SeriesIDs {
		if id == seriesID {
			return true
		}
	}
	return false
}

// CancellationError is returned when a run is stopped by context
// cancellation rather than completing or failing normally.
type CancellationError struct {
	Stage string
}

func (e *CancellationError) Error() string {
	return "crawl cancelled during " + e.Stage
}

// Options configures one ScrapeLeague call.
type Options struct {
	Depth           Depth
	Filters         Filters
	CacheMaxAgeDays *int // nil means "use Orchestrator.Cfg.CacheMaxAgeDays"
	Force           bool
}

func (opts Options) cacheMaxAgeDays(cfg *config.Config) *int {
	if opts.CacheMaxAgeDays != nil {
		return opts.CacheMaxAgeDays
	}
	days := cfg.CacheMaxAgeDays
	return &days
}

// Orchestrator owns one crawl's extractors, store handle, and shared
// fetch gate. One Orchestrator corresponds to one FetchGate; RunMany
// (scheduler.go) creates one Orchestrator+FetchGate pair per concurrent
// league, never sharing a gate across leagues.
type Orchestrator struct {
	Store *store.Store
	Gate  *fetch.Gate
	Cfg   *config.Config
	Log   *slog.Logger

	league    extract.LeagueExtractor
	series    extract.SeriesExtractor
	season    extract.SeasonExtractor
	race      extract.RaceExtractor
	driver    extract.DriverExtractor
	teamIndex extract.TeamIndexExtractor

	currentLeagueID int

	Progress *Progress
}

// New builds an Orchestrator sharing gate across every extractor.
func New(st *store.Store, gate *fetch.Gate, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Store:     st,
		Gate:      gate,
		Cfg:       cfg,
		Log:       logger,
		league:    extract.LeagueExtractor{Gate: gate},
		series:    extract.SeriesExtractor{Gate: gate},
		season:    extract.SeasonExtractor{Gate: gate},
		race:      extract.RaceExtractor{Gate: gate},
		driver:    extract.DriverExtractor{Gate: gate},
		teamIndex: extract.TeamIndexExtractor{Gate: gate},
		Progress:  NewProgress(),
	}
}

// GetProgress returns the run's progress snapshot so far. Safe to call
// concurrently with an in-flight ScrapeLeague, since Progress's own
// counters are mutex-guarded.
func (o *Orchestrator) GetProgress() *Progress {
	return o.Progress
}

// ScrapeLeague walks one league's full tree under opts.Depth, honoring
// opts.Filters and opts.Force, down to series/season/race/driver as
// configured. Returns the run's progress snapshot. On context
// cancellation, returns *CancellationError after closing the FetchGate
// without blocking on graceful browser shutdown.
func (o *Orchestrator) ScrapeLeague(ctx context.Context, leagueURL string, opts Options) (*Progress, error) {
	if opts.Depth == "" {
		opts.Depth = DepthRace
	}

	started := time.Now()
	leagueResult, err := o.league.Extract(ctx, leagueURL)
	if err != nil {
		if ctx.Err() != nil {
			return o.Progress, o.cancel("league")
		}
		return o.Progress, o.fail(ctx, "league", leagueURL, err, started)
	}
	now := time.Now().UTC()

	leagueID, err := o.Store.UpsertLeague(ctx, leagueResult.Metadata.LeagueID, store.LeagueAttrs{
		Name:        leagueResult.Metadata.Name,
		Description: leagueResult.Metadata.Description,
		URL:         leagueResult.Metadata.URL,
		ScrapedAt:   now,
	})
	if err != nil {
		return o.Progress, o.fail(ctx, "league", leagueURL, err, started)
	}
	o.currentLeagueID = leagueID
	o.logScrapeSuccess(ctx, store.KindLeague, leagueURL, started)
	o.Progress.addLeague()

	if leagueResult.TeamsIndex != nil {
		o.scrapeTeamsIndex(ctx, leagueID, leagueResult.TeamsIndex.URL)
	}

	if !opts.Depth.atLeast(DepthSeries) {
		return o.Progress, nil
	}

	for _, sref := range leagueResult.Series {
		if ctx.Err() != nil {
			return o.Progress, o.cancel("series")
		}
		if !opts.Filters.allowsSeries(sref.SeriesID) {
			continue
		}
		o.scrapeSeries(ctx, leagueID, sref, opts)
	}
	return o.Progress, nil
}

func (o *Orchestrator) scrapeTeamsIndex(ctx context.Context, leagueID int, teamsURL string) {
	result, err := o.teamIndex.Extract(ctx, teamsURL)
	if err != nil {
		o.Progress.AddError("team_index", teamsURL, err)
		return
	}
	now := time.Now().UTC()
	for _, t := range result.Teams {
		if _, err := o.Store.UpsertTeam(ctx, t.TeamID, leagueID, store.TeamAttrs{
			Name:        t.Name,
			DriverCount: t.DriverCount,
			URL:         t.URL,
			ScrapedAt:   now,
		}); err != nil {
			o.Progress.AddError("team", teamsURL, err)
		}
	}
}

// scrapeSeries writes a parent-discovery placeholder for the series (so
// its row exists with a foreign key target even if the fetch below fails),
// then fetches the series page unless the cache policy says to skip it.
// Series pages are fetched unconditionally when AlwaysFetchRoots is set;
// Force always overrides both the ticking clock and AlwaysFetchRoots.
func (o *Orchestrator) scrapeSeries(ctx context.Context, leagueID int, sref extract.SeriesRef, opts Options) {
	started := time.Now()
	if _, err := o.Store.UpsertSeries(ctx, sref.SeriesID, leagueID, store.SeriesAttrs{
		Name:        sref.Name,
		Description: sref.Description,
		URL:         sref.URL,
		ScrapedAt:   store.EpochSentinel,
	}); err != nil {
		o.Progress.AddError("series", sref.URL, err)
		return
	}

	if !opts.Force && !o.Cfg.AlwaysFetchRoots {
		validityHours := *opts.cacheMaxAgeDays(o.Cfg) * 24
		shouldScrape, _, err := o.Store.ShouldScrape(ctx, store.KindSeries, sref.SeriesID, &validityHours)
		if err == nil && !shouldScrape {
			o.Progress.addSkipped()
			o.logScrapeSkipped(ctx, store.KindSeries, sref.URL, started)
			return
		}
	}

	seriesResult, err := o.series.Extract(ctx, sref.URL)
	if err != nil {
		o.recordExtractorFailure(ctx, store.KindSeries, sref.URL, err, started)
		o.Progress.AddError("series", sref.URL, err)
		return
	}
	now := time.Now().UTC()
	if _, err := o.Store.UpsertSeries(ctx, seriesResult.Metadata.SeriesID, leagueID, store.SeriesAttrs{
		Name:        seriesResult.Metadata.Name,
		Description: seriesResult.Metadata.Description,
		CreatedDate: seriesResult.Metadata.CreatedDate,
		NumSeasons:  seriesResult.Metadata.NumSeasons,
		URL:         seriesResult.Metadata.URL,
		ScrapedAt:   now,
	}); err != nil {
		o.Progress.AddError("series", sref.URL, err)
		return
	}
	o.logScrapeSuccess(ctx, store.KindSeries, sref.URL, started)
	o.Progress.addSeries()

	if !opts.Depth.atLeast(DepthSeason) {
		return
	}

	seasons := seriesResult.Seasons
	if opts.Filters.SeasonYear != nil {
		seasons = filterSeasonsByYear(seasons, *opts.Filters.SeasonYear)
	}
	if opts.Filters.SeasonLimit != nil && len(seasons) > *opts.Filters.SeasonLimit {
		seasons = seasons[:*opts.Filters.SeasonLimit]
	}

	for _, season := range seasons {
		if ctx.Err() != nil {
			o.Progress.AddError("season", sref.URL, o.cancel("season"))
			return
		}
		o.scrapeSeason(ctx, seriesResult.Metadata.SeriesID, season, opts)
	}
}

func filterSeasonsByYear(seasons []extract.SeasonRef, year int) []extract.SeasonRef {
	yearStr := strconv.Itoa(year)
	var out []extract.SeasonRef
	for _, s := range seasons {
		if strings.Contains(s.Name, yearStr) {
			out = append(out, s)
		}
	}
	return out
}

func (o *Orchestrator) scrapeSeason(ctx context.Context, seriesID int, sref extract.SeasonRef, opts Options) {
	started := time.Now()
	if _, err := o.Store.UpsertSeason(ctx, sref.SeasonID, seriesID, store.SeasonAttrs{
		Name:      sref.Name,
		URL:       sref.URL,
		ScrapedAt: store.EpochSentinel,
	}); err != nil {
		o.Progress.AddError("season", sref.URL, err)
		return
	}

	if !opts.Force {
		validityHours := *opts.cacheMaxAgeDays(o.Cfg) * 24
		shouldScrape, _, err := o.Store.ShouldScrape(ctx, store.KindSeason, sref.SeasonID, &validityHours)
		if err == nil && !shouldScrape {
			o.Progress.addSkipped()
			o.logScrapeSkipped(ctx, store.KindSeason, sref.URL, started)
			return
		}
	}

	seasonResult, err := o.season.Extract(ctx, sref.URL)
	if err != nil {
		o.recordExtractorFailure(ctx, store.KindSeason, sref.URL, err, started)
		o.Progress.AddError("season", sref.URL, err)
		return
	}
	now := time.Now().UTC()
	if _, err := o.Store.UpsertSeason(ctx, seasonResult.Metadata.SeasonID, seriesID, store.SeasonAttrs{
		Name:        seasonResult.Metadata.Name,
		Description: seasonResult.Metadata.Description,
		URL:         seasonResult.Metadata.URL,
		ScrapedAt:   now,
	}); err != nil {
		o.Progress.AddError("season", sref.URL, err)
		return
	}
	o.logScrapeSuccess(ctx, store.KindSeason, sref.URL, started)
	o.Progress.addSeason()

	if !opts.Depth.atLeast(DepthRace) {
		return
	}

	for _, race := range seasonResult.Races {
		if ctx.Err() != nil {
			o.Progress.AddError("race", sref.URL, o.cancel("race"))
			return
		}
		o.scrapeRace(ctx, seasonResult.Metadata.SeasonID, race, opts)
	}
}

// scrapeRace applies the two-layered cache gate: a completed race is never
// re-fetched regardless of age, and an incomplete race within the
// freshness window is skipped too. Force bypasses both checks.
func (o *Orchestrator) scrapeRace(ctx context.Context, seasonID int, rref extract.RaceRef, opts Options) {
	started := time.Now()
	raceID, err := o.Store.UpsertRace(ctx, rref.ScheduleID, seasonID, store.RaceAttrs{
		RaceNumber: rref.RaceNumber,
		TrackName:  rref.TrackHint,
		EventDate:  rref.PlannedDate,
		URL:        rref.URL,
		IsComplete: false,
		ScrapedAt:  store.EpochSentinel,
	})
	if err != nil {
		o.Progress.AddError("race", rref.URL, err)
		return
	}

	if !opts.Force {
		complete, err := o.Store.IsRaceComplete(ctx, rref.ScheduleID)
		if err == nil && complete {
			o.Progress.addSkipped()
			o.logScrapeSkipped(ctx, store.KindRace, rref.URL, started)
			return
		}
		validityHours := *opts.cacheMaxAgeDays(o.Cfg) * 24
		shouldScrape, _, err := o.Store.ShouldScrape(ctx, store.KindRace, raceID, &validityHours)
		if err == nil && !shouldScrape {
			o.Progress.addSkipped()
			o.logScrapeSkipped(ctx, store.KindRace, rref.URL, started)
			return
		}
	}

	raceResult, err := o.race.Extract(ctx, rref.URL)
	if err != nil {
		o.recordExtractorFailure(ctx, store.KindRace, rref.URL, err, started)
		o.Progress.AddError("race", rref.URL, err)
		return
	}

	now := time.Now().UTC()
	isComplete := len(raceResult.Results) > 0
	raceID, err = o.Store.UpsertRace(ctx, rref.ScheduleID, seasonID, store.RaceAttrs{
		RaceNumber:           rref.RaceNumber,
		EventName:            raceResult.Metadata.EventName,
		EventDate:            raceResult.Metadata.EventDate,
		RaceTime:             raceResult.Metadata.RaceTime,
		PracticeTime:         raceResult.Metadata.PracticeTime,
		TrackID:              raceResult.Metadata.TrackID,
		TrackConfigID:        raceResult.Metadata.TrackConfigID,
		TrackName:            raceResult.Metadata.TrackName,
		TrackType:            raceResult.Metadata.TrackType,
		TrackLength:          raceResult.Metadata.TrackLength,
		TrackConfigIracingID: raceResult.Metadata.TrackConfigIracingID,
		PlannedLaps:          raceResult.Metadata.PlannedLaps,
		PointsRace:           raceResult.Metadata.PointsRace,
		OffWeek:              raceResult.Metadata.OffWeek,
		NightRace:            raceResult.Metadata.NightRace,
		PlayoffRace:          raceResult.Metadata.PlayoffRace,
		RaceDurationMinutes:  raceResult.Metadata.RaceDurationMinutes,
		TotalLaps:            raceResult.Metadata.TotalLaps,
		Leaders:              raceResult.Metadata.Leaders,
		LeadChanges:          raceResult.Metadata.LeadChanges,
		Cautions:             raceResult.Metadata.Cautions,
		CautionLaps:          raceResult.Metadata.CautionLaps,
		NumDrivers:           raceResult.Metadata.NumDrivers,
		WeatherType:          raceResult.Metadata.WeatherType,
		CloudConditions:      raceResult.Metadata.CloudConditions,
		TemperatureF:         raceResult.Metadata.TemperatureF,
		HumidityPct:          raceResult.Metadata.HumidityPct,
		FogPct:               raceResult.Metadata.FogPct,
		WeatherWindSpeed:     raceResult.Metadata.WeatherWindSpeed,
		WeatherWindDir:       raceResult.Metadata.WeatherWindDir,
		WeatherWindUnit:      raceResult.Metadata.WeatherWindUnit,
		URL:                  raceResult.Metadata.URL,
		IsComplete:           isComplete,
		ScrapedAt:            now,
	})
	if err != nil {
		o.Progress.AddError("race", rref.URL, err)
		return
	}
	o.logScrapeSuccess(ctx, store.KindRace, rref.URL, started)
	o.Progress.addRace()

	// Result rows are written in the order the extractor emitted them
	// (finish-position order off the results table).
	for _, row := range raceResult.Results {
		o.scrapeResultRow(ctx, raceID, row)
	}
}

func (o *Orchestrator) scrapeResultRow(ctx context.Context, raceID int, row extract.ResultRow) {
	first, last := extract.ParseDriverName(row.DriverName)

	var driverID int
	if row.DriverID != nil {
		driverID = *row.DriverID
	} else {
		existing, err := o.Store.FindDriverByName(ctx, row.DriverName, &o.currentLeagueID)
		if err != nil || len(existing) == 0 {
			o.Progress.AddErrorf("result", row.DriverName, "cannot resolve driver id for %q", row.DriverName)
			return
		}
		driverID = existing[0].DriverID
	}

	driverURL := ""
	if row.DriverURL != nil {
		driverURL = *row.DriverURL
	}
	driverID, err := o.upsertDriverStub(ctx, driverID, row.DriverName, first, last, driverURL)
	if err != nil {
		o.Progress.AddError("driver", row.DriverName, err)
		return
	}
	o.Progress.addDriver()

	if _, err := o.Store.UpsertRaceResult(ctx, raceID, driverID, store.RaceResultAttrs{
		Team:                   row.Team,
		FinishPosition:         row.FinishPosition,
		StartingPosition:       row.StartingPosition,
		CarNumber:              row.CarNumber,
		QualifyingTime:         row.QualifyingTime,
		FastestLap:             row.FastestLap,
		FastestLapNumber:       row.FastestLapNumber,
		AverageLap:             row.AverageLap,
		Interval:               row.Interval,
		LapsCompleted:          row.LapsCompleted,
		LapsLed:                row.LapsLed,
		IncidentPoints:         row.IncidentPoints,
		RacePoints:             row.RacePoints,
		BonusPoints:            row.BonusPoints,
		PenaltyPoints:          row.PenaltyPoints,
		TotalPoints:            row.TotalPoints,
		FastLaps:               row.FastLaps,
		QualityPasses:          row.QualityPasses,
		ClosingPasses:          row.ClosingPasses,
		TotalPasses:            row.TotalPasses,
		AverageRunningPosition: row.AverageRunningPosition,
		IRating:                row.IRating,
		Status:                 row.Status,
		CarID:                  row.CarID,
	}); err != nil {
		o.Progress.AddError("result", row.DriverName, err)
	}
}

// upsertDriverStub records the bare minimum a results row reveals about a
// driver, without triggering a full driver-page fetch. RefreshDriver (see
// driver_refresh.go) fills in rating detail later during maintenance.
func (o *Orchestrator) upsertDriverStub(ctx context.Context, driverID int, name string, first, last *string, url string) (int, error) {
	d, err := o.Store.GetDriver(ctx, driverID)
	if err != nil {
		return 0, err
	}
	if d != nil && url == "" {
		url = d.URL
	}
	if url == "" {
		return 0, &store.ValidationError{Field: "url", Detail: "no known URL for driver " + name}
	}
	return o.Store.UpsertDriver(ctx, driverID, o.currentLeagueID, store.DriverAttrs{
		Name:      name,
		FirstName: first,
		LastName:  last,
		URL:       url,
		ScrapedAt: store.EpochSentinel,
	})
}

// cancel implements the interrupt contract: stop scheduling new fetches,
// close the gate without waiting on graceful browser shutdown, and surface
// a *CancellationError so the CLI can map it to exit code 130.
func (o *Orchestrator) cancel(stage string) error {
	o.Log.Warn("crawl cancelled", "stage", stage)
	o.Gate.Close(true)
	return &CancellationError{Stage: stage}
}

func (o *Orchestrator) fail(ctx context.Context, stage, url string, err error, started time.Time) error {
	o.logScrapeFailure(ctx, store.EntityKind(stage), url, err, started)
	o.Progress.AddError(stage, url, err)
	return err
}

// recordExtractorFailure appends a SchemaAlert row when the failure was a
// schema drift, then logs the scrape failure either way.
func (o *Orchestrator) recordExtractorFailure(ctx context.Context, kind store.EntityKind, url string, err error, started time.Time) {
	var drift *schemaguard.SchemaDrift
	if errors.As(err, &drift) {
		u := url
		_ = o.Store.RecordSchemaAlert(ctx, kind, "schema_drift", drift.Detail, &u)
	}
	o.logScrapeFailure(ctx, kind, url, err, started)
}

func elapsedMillis(started time.Time) *int {
	ms := int(time.Since(started).Milliseconds())
	return &ms
}

func (o *Orchestrator) logScrapeSuccess(ctx context.Context, kind store.EntityKind, url string, started time.Time) {
	_ = o.Store.LogScrape(ctx, kind, url, store.OutcomeSuccess, nil, nil, elapsedMillis(started))
}

func (o *Orchestrator) logScrapeSkipped(ctx context.Context, kind store.EntityKind, url string, started time.Time) {
	_ = o.Store.LogScrape(ctx, kind, url, store.OutcomeSkipped, nil, nil, elapsedMillis(started))
}

func (o *Orchestrator) logScrapeFailure(ctx context.Context, kind store.EntityKind, url string, err error, started time.Time) {
	msg := err.Error()
	_ = o.Store.LogScrape(ctx, kind, url, store.OutcomeFailed, nil, &msg, elapsedMillis(started))
}
