package store

import (
	"context"
	"strings"
	"time"

	"github.com/simcrawl/racecrawl/internal/config"
)

// TeamAttrs carries upsertable team fields.
type TeamAttrs struct {
	Name        string
	DriverCount *int
	URL         *string
	ScrapedAt   time.Time
}

// UpsertTeam inserts or merges a team row owned by leagueID.
func (s *Store) UpsertTeam(ctx context.Context, teamID, leagueID int, a TeamAttrs) (int, error) {
	if strings.TrimSpace(a.Name) == "" {
		return 0, &ValidationError{Field: "name", Detail: "required"}
	}
	if err := s.requireLeague(ctx, leagueID); err != nil {
		return 0, err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.TeamsTable+` (team_id, league_id, name, driver_count, url, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (team_id) DO UPDATE SET
			name         = COALESCE(EXCLUDED.name, `+config.TeamsTable+`.name),
			driver_count = COALESCE(EXCLUDED.driver_count, `+config.TeamsTable+`.driver_count),
			url          = COALESCE(EXCLUDED.url, `+config.TeamsTable+`.url),
			scraped_at   = GREATEST(EXCLUDED.scraped_at, `+config.TeamsTable+`.scraped_at),
			updated_at   = now()`,
		teamID, leagueID, a.Name, a.DriverCount, a.URL, a.ScrapedAt,
	)
	if err != nil {
		return 0, err
	}
	return teamID, nil
}

// GetTeam returns the team row, or (nil, nil) if it does not exist.
func (s *Store) GetTeam(ctx context.Context, teamID int) (*Team, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT team_id, league_id, name, driver_count, url, scraped_at, created_at, updated_at
		FROM `+config.TeamsTable+` WHERE team_id = $1`, teamID)

	var t Team
	if err := row.Scan(&t.TeamID, &t.LeagueID, &t.Name, &t.DriverCount, &t.URL, &t.ScrapedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if isNotFoundRow(err) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// GetTeamsByLeague returns every team owned by leagueID, ordered by
// external id.
func (s *Store) GetTeamsByLeague(ctx context.Context, leagueID int) ([]Team, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT team_id, league_id, name, driver_count, url, scraped_at, created_at, updated_at
		FROM `+config.TeamsTable+` WHERE league_id = $1 ORDER BY team_id`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.TeamID, &t.LeagueID, &t.Name, &t.DriverCount, &t.URL, &t.ScrapedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) requireLeague(ctx context.Context, leagueID int) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM `+config.LeaguesTable+` WHERE league_id = $1)`, leagueID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return &IntegrityError{Detail: "league " + itoa(leagueID) + " does not exist"}
	}
	return nil
}
