package store

import (
	"context"
	"strings"
	"time"

	"github.com/simcrawl/racecrawl/internal/config"
)

// SeriesAttrs carries upsertable series fields.
type SeriesAttrs struct {
	Name        string
	Description *string
	CreatedDate *time.Time
	NumSeasons  *int
	URL         string
	ScrapedAt   time.Time
}

// UpsertSeries inserts or merges a series row owned by leagueID.
func (s *Store) UpsertSeries(ctx context.Context, seriesID, leagueID int, a SeriesAttrs) (int, error) {
	if strings.TrimSpace(a.Name) == "" {
		return 0, &ValidationError{Field: "name", Detail: "required"}
	}
	if strings.TrimSpace(a.URL) == "" {
		return 0, &ValidationError{Field: "url", Detail: "required"}
	}
	if err := s.requireLeague(ctx, leagueID); err != nil {
		return 0, err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.SeriesTable+` (series_id, league_id, name, description, created_date, num_seasons, url, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (series_id) DO UPDATE SET
			name         = COALESCE(EXCLUDED.name, `+config.SeriesTable+`.name),
			description  = COALESCE(EXCLUDED.description, `+config.SeriesTable+`.description),
			created_date = COALESCE(EXCLUDED.created_date, `+config.SeriesTable+`.created_date),
			num_seasons  = COALESCE(EXCLUDED.num_seasons, `+config.SeriesTable+`.num_seasons),
			url          = COALESCE(EXCLUDED.url, `+config.SeriesTable+`.url),
			scraped_at   = GREATEST(EXCLUDED.scraped_at, `+config.SeriesTable+`.scraped_at),
			updated_at   = now()`,
		seriesID, leagueID, a.Name, a.Description, a.CreatedDate, a.NumSeasons, a.URL, a.ScrapedAt,
	)
	if err != nil {
		return 0, err
	}
	return seriesID, nil
}

// GetSeries returns the series row, or (nil, nil) if it does not exist.
func (s *Store) GetSeries(ctx context.Context, seriesID int) (*Series, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT series_id, league_id, name, description, created_date, num_seasons, url, scraped_at, created_at, updated_at
		FROM `+config.SeriesTable+` WHERE series_id = $1`, seriesID)

	var sr Series
	if err := row.Scan(&sr.SeriesID, &sr.LeagueID, &sr.Name, &sr.Description, &sr.CreatedDate,
		&sr.NumSeasons, &sr.URL, &sr.ScrapedAt, &sr.CreatedAt, &sr.UpdatedAt); err != nil {
		if isNotFoundRow(err) {
			return nil, nil
		}
		return nil, err
	}
	return &sr, nil
}

// GetSeriesByLeague returns every series owned by leagueID, ordered by
// external id.
func (s *Store) GetSeriesByLeague(ctx context.Context, leagueID int) ([]Series, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT series_id, league_id, name, description, created_date, num_seasons, url, scraped_at, created_at, updated_at
		FROM `+config.SeriesTable+` WHERE league_id = $1 ORDER BY series_id`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Series
	for rows.Next() {
		var sr Series
		if err := rows.Scan(&sr.SeriesID, &sr.LeagueID, &sr.Name, &sr.Description, &sr.CreatedDate,
			&sr.NumSeasons, &sr.URL, &sr.ScrapedAt, &sr.CreatedAt, &sr.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}
