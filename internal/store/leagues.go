package store

import (
	"context"
	"strings"
	"time"

	"github.com/simcrawl/racecrawl/internal/config"
)

// LeagueAttrs carries the fields a caller supplies to UpsertLeague. Fields
// left nil are not overwritten on an existing row.
type LeagueAttrs struct {
	Name        string
	Description *string
	URL         string
	ScrapedAt   time.Time
}

// UpsertLeague inserts or merges a league row. Name and URL are required;
// ScrapedAt is not merged like an optional attribute: the stored value
// becomes the later of the stored and supplied timestamps, so an older
// value (such as EpochSentinel) never moves it backwards.
func (s *Store) UpsertLeague(ctx context.Context, leagueID int, a LeagueAttrs) (int, error) {
	if strings.TrimSpace(a.Name) == "" {
		return 0, &ValidationError{Field: "name", Detail: "required"}
	}
	if strings.TrimSpace(a.URL) == "" {
		return 0, &ValidationError{Field: "url", Detail: "required"}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.LeaguesTable+` (league_id, name, description, url, scraped_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (league_id) DO UPDATE SET
			name        = COALESCE(EXCLUDED.name, `+config.LeaguesTable+`.name),
			description = COALESCE(EXCLUDED.description, `+config.LeaguesTable+`.description),
			url         = COALESCE(EXCLUDED.url, `+config.LeaguesTable+`.url),
			scraped_at  = GREATEST(EXCLUDED.scraped_at, `+config.LeaguesTable+`.scraped_at),
			updated_at  = now()`,
		leagueID, a.Name, a.Description, a.URL, a.ScrapedAt,
	)
	if err != nil {
		return 0, err
	}
	return leagueID, nil
}

// GetLeague returns the league row, or (nil, nil) if it does not exist.
func (s *Store) GetLeague(ctx context.Context, leagueID int) (*League, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT league_id, name, description, url, scraped_at, created_at, updated_at
		FROM `+config.LeaguesTable+` WHERE league_id = $1`, leagueID)

	var l League
	if err := row.Scan(&l.LeagueID, &l.Name, &l.Description, &l.URL, &l.ScrapedAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if isNotFoundRow(err) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
