package store

import (
	"context"
	"time"

	"github.com/simcrawl/racecrawl/internal/config"
)

// tableForKind maps an entity kind to its table name and URL-bearing column
// set, for the freshness queries that are generic across entity kinds.
func tableForKind(kind EntityKind) (table string, ok bool) {
	switch kind {
	case KindLeague:
		return config.LeaguesTable, true
	case KindSeries:
		return config.SeriesTable, true
	case KindSeason:
		return config.SeasonsTable, true
	case KindRace:
		return config.RacesTable, true
	case KindDriver:
		return config.DriversTable, true
	case KindTeam:
		return config.TeamsTable, true
	default:
		return "", false
	}
}

// IsURLCached reports whether a row with this URL exists and, when
// maxAgeDays is non-nil, whether its last-scraped timestamp is newer than
// now-maxAgeDays. A row whose scraped_at equals EpochSentinel (written
// during parent-discovery only) is never considered cached, since the
// sentinel is always older than any finite window.
func (s *Store) IsURLCached(ctx context.Context, url string, kind EntityKind, maxAgeDays *int) (bool, error) {
	table, ok := tableForKind(kind)
	if !ok {
		return false, &ValidationError{Field: "entity_kind", Detail: "unknown kind " + string(kind)}
	}

	var scrapedAt time.Time
	err := s.pool.QueryRow(ctx, `SELECT scraped_at FROM `+table+` WHERE url = $1`, url).Scan(&scrapedAt)
	if err != nil {
		if isNotFoundRow(err) {
			return false, nil
		}
		return false, err
	}

	if scrapedAt.Equal(EpochSentinel) {
		return false, nil
	}
	if maxAgeDays == nil {
		return true, nil
	}
	cutoff := time.Now().UTC().Add(-time.Duration(*maxAgeDays) * 24 * time.Hour)
	return scrapedAt.After(cutoff), nil
}

// ShouldScrape reports whether an entity needs a fresh fetch, and why.
// For a race, a set completion flag reports false ("completed") whatever the
// row's age. Otherwise false ("fresh") is returned only when the row exists,
// is not an EpochSentinel row, and its last-scraped is within validityHours;
// an incomplete race inside the window is reported fresh, not as needing a
// refresh. A missing row, an EpochSentinel row, a nil validityHours, or a
// stale row reports true.
func (s *Store) ShouldScrape(ctx context.Context, kind EntityKind, id int, validityHours *int) (bool, string, error) {
	switch kind {
	case KindRace:
		return s.shouldScrapeRace(ctx, id, validityHours)
	default:
		table, ok := tableForKind(kind)
		if !ok {
			return false, "", &ValidationError{Field: "entity_kind", Detail: "unknown kind " + string(kind)}
		}
		return s.shouldScrapeGeneric(ctx, table, kindIDColumn(kind), id, validityHours)
	}
}

func kindIDColumn(kind EntityKind) string {
	switch kind {
	case KindLeague:
		return "league_id"
	case KindSeries:
		return "series_id"
	case KindSeason:
		return "season_id"
	case KindDriver:
		return "driver_id"
	case KindTeam:
		return "team_id"
	default:
		return ""
	}
}

func (s *Store) shouldScrapeGeneric(ctx context.Context, table, idCol string, id int, validityHours *int) (bool, string, error) {
	var scrapedAt time.Time
	err := s.pool.QueryRow(ctx, `SELECT scraped_at FROM `+table+` WHERE `+idCol+` = $1`, id).Scan(&scrapedAt)
	if err != nil {
		if isNotFoundRow(err) {
			return true, "not_found", nil
		}
		return false, "", err
	}
	if scrapedAt.Equal(EpochSentinel) {
		return true, "status_needs_refresh", nil
	}
	if validityHours == nil {
		return true, "status_needs_refresh", nil
	}
	cutoff := time.Now().UTC().Add(-time.Duration(*validityHours) * time.Hour)
	if scrapedAt.After(cutoff) {
		return false, "fresh", nil
	}
	// Past the freshness window: entities other than race have no terminal
	// status, so they always need a refresh once stale.
	return true, "status_needs_refresh", nil
}

func (s *Store) shouldScrapeRace(ctx context.Context, raceID int, validityHours *int) (bool, string, error) {
	var scrapedAt time.Time
	var complete bool
	err := s.pool.QueryRow(ctx, `SELECT scraped_at, is_complete FROM `+config.RacesTable+` WHERE race_id = $1`, raceID).Scan(&scrapedAt, &complete)
	if err != nil {
		if isNotFoundRow(err) {
			return true, "not_found", nil
		}
		return false, "", err
	}
	if complete {
		return false, "completed", nil
	}
	if scrapedAt.Equal(EpochSentinel) {
		return true, "status_needs_refresh", nil
	}
	if validityHours != nil {
		cutoff := time.Now().UTC().Add(-time.Duration(*validityHours) * time.Hour)
		if scrapedAt.After(cutoff) {
			return false, "fresh", nil
		}
	}
	return true, "status_needs_refresh", nil
}
