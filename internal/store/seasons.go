package store

import (
	"context"
	"strings"
	"time"

	"github.com/simcrawl/racecrawl/internal/config"
)

// SeasonAttrs carries upsertable season fields.
type SeasonAttrs struct {
	Name        string
	Description *string
	URL         string
	ScrapedAt   time.Time
}

// UpsertSeason inserts or merges a season row owned by seriesID.
func (s *Store) UpsertSeason(ctx context.Context, seasonID, seriesID int, a SeasonAttrs) (int, error) {
	if strings.TrimSpace(a.Name) == "" {
		return 0, &ValidationError{Field: "name", Detail: "required"}
	}
	if strings.TrimSpace(a.URL) == "" {
		return 0, &ValidationError{Field: "url", Detail: "required"}
	}
	if err := s.requireSeries(ctx, seriesID); err != nil {
		return 0, err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.SeasonsTable+` (season_id, series_id, name, description, url, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (season_id) DO UPDATE SET
			name        = COALESCE(EXCLUDED.name, `+config.SeasonsTable+`.name),
			description = COALESCE(EXCLUDED.description, `+config.SeasonsTable+`.description),
			url         = COALESCE(EXCLUDED.url, `+config.SeasonsTable+`.url),
			scraped_at  = GREATEST(EXCLUDED.scraped_at, `+config.SeasonsTable+`.scraped_at),
			updated_at  = now()`,
		seasonID, seriesID, a.Name, a.Description, a.URL, a.ScrapedAt,
	)
	if err != nil {
		return 0, err
	}
	return seasonID, nil
}

// GetSeason returns the season row, or (nil, nil) if it does not exist.
func (s *Store) GetSeason(ctx context.Context, seasonID int) (*Season, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT season_id, series_id, name, description, url, scraped_at, created_at, updated_at
		FROM `+config.SeasonsTable+` WHERE season_id = $1`, seasonID)

	var se Season
	if err := row.Scan(&se.SeasonID, &se.SeriesID, &se.Name, &se.Description, &se.URL, &se.ScrapedAt, &se.CreatedAt, &se.UpdatedAt); err != nil {
		if isNotFoundRow(err) {
			return nil, nil
		}
		return nil, err
	}
	return &se, nil
}

// GetSeasonsBySeries returns every season owned by seriesID, ordered by
// external id.
func (s *Store) GetSeasonsBySeries(ctx context.Context, seriesID int) ([]Season, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT season_id, series_id, name, description, url, scraped_at, created_at, updated_at
		FROM `+config.SeasonsTable+` WHERE series_id = $1 ORDER BY season_id`, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Season
	for rows.Next() {
		var se Season
		if err := rows.Scan(&se.SeasonID, &se.SeriesID, &se.Name, &se.Description, &se.URL, &se.ScrapedAt, &se.CreatedAt, &se.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

func (s *Store) requireSeries(ctx context.Context, seriesID int) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM `+config.SeriesTable+` WHERE series_id = $1)`, seriesID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return &IntegrityError{Detail: "series " + itoa(seriesID) + " does not exist"}
	}
	return nil
}
