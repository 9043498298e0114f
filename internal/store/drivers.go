package store

import (
	"context"
	"strings"
	"time"

	"github.com/simcrawl/racecrawl/internal/config"
)

// DriverAttrs carries upsertable driver fields. TeamID is a foreign-key-style
// external id resolved lazily on demand (§9 design note), not an ownership
// edge — it may be nil if the driver's team is unknown at write time.
type DriverAttrs struct {
	TeamID        *int
	Name          string
	FirstName     *string
	LastName      *string
	CarNumbers    *string
	PrimaryNumber *string
	Club          *string
	ClubID        *int
	IRating       *int
	SafetyRating  *float64
	LicenseClass  *string
	URL           string
	ScrapedAt     time.Time
}

// UpsertDriver inserts or merges a driver row owned by leagueID.
func (s *Store) UpsertDriver(ctx context.Context, driverID, leagueID int, a DriverAttrs) (int, error) {
	if strings.TrimSpace(a.Name) == "" {
		return 0, &ValidationError{Field: "name", Detail: "required"}
	}
	if strings.TrimSpace(a.URL) == "" {
		return 0, &ValidationError{Field: "url", Detail: "required"}
	}
	if err := s.requireLeague(ctx, leagueID); err != nil {
		return 0, err
	}
	if a.TeamID != nil {
		if err := s.requireTeam(ctx, *a.TeamID); err != nil {
			return 0, err
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.DriversTable+` (
			driver_id, league_id, team_id, name, first_name, last_name,
			car_numbers, primary_number, club, club_id, irating, safety_rating,
			license_class, url, scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (driver_id) DO UPDATE SET
			team_id        = COALESCE(EXCLUDED.team_id, `+config.DriversTable+`.team_id),
			name           = COALESCE(EXCLUDED.name, `+config.DriversTable+`.name),
			first_name     = COALESCE(EXCLUDED.first_name, `+config.DriversTable+`.first_name),
			last_name      = COALESCE(EXCLUDED.last_name, `+config.DriversTable+`.last_name),
			car_numbers    = COALESCE(EXCLUDED.car_numbers, `+config.DriversTable+`.car_numbers),
			primary_number = COALESCE(EXCLUDED.primary_number, `+config.DriversTable+`.primary_number),
			club           = COALESCE(EXCLUDED.club, `+config.DriversTable+`.club),
			club_id        = COALESCE(EXCLUDED.club_id, `+config.DriversTable+`.club_id),
			irating        = COALESCE(EXCLUDED.irating, `+config.DriversTable+`.irating),
			safety_rating  = COALESCE(EXCLUDED.safety_rating, `+config.DriversTable+`.safety_rating),
			license_class  = COALESCE(EXCLUDED.license_class, `+config.DriversTable+`.license_class),
			url            = COALESCE(EXCLUDED.url, `+config.DriversTable+`.url),
			scraped_at     = GREATEST(EXCLUDED.scraped_at, `+config.DriversTable+`.scraped_at),
			updated_at     = now()`,
		driverID, leagueID, a.TeamID, a.Name, a.FirstName, a.LastName,
		a.CarNumbers, a.PrimaryNumber, a.Club, a.ClubID, a.IRating, a.SafetyRating,
		a.LicenseClass, a.URL, a.ScrapedAt,
	)
	if err != nil {
		return 0, err
	}
	return driverID, nil
}

// GetDriver returns the driver row, or (nil, nil) if it does not exist.
func (s *Store) GetDriver(ctx context.Context, driverID int) (*Driver, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT driver_id, league_id, team_id, name, first_name, last_name,
			car_numbers, primary_number, club, club_id, irating, safety_rating,
			license_class, url, scraped_at, created_at, updated_at
		FROM `+config.DriversTable+` WHERE driver_id = $1`, driverID)

	var d Driver
	if err := row.Scan(&d.DriverID, &d.LeagueID, &d.TeamID, &d.Name, &d.FirstName, &d.LastName,
		&d.CarNumbers, &d.PrimaryNumber, &d.Club, &d.ClubID, &d.IRating, &d.SafetyRating,
		&d.LicenseClass, &d.URL, &d.ScrapedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if isNotFoundRow(err) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// GetDriversByLeague returns every driver owned by leagueID, ordered by
// external id.
func (s *Store) GetDriversByLeague(ctx context.Context, leagueID int) ([]Driver, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT driver_id, league_id, team_id, name, first_name, last_name,
			car_numbers, primary_number, club, club_id, irating, safety_rating,
			license_class, url, scraped_at, created_at, updated_at
		FROM `+config.DriversTable+` WHERE league_id = $1 ORDER BY driver_id`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.DriverID, &d.LeagueID, &d.TeamID, &d.Name, &d.FirstName, &d.LastName,
			&d.CarNumbers, &d.PrimaryNumber, &d.Club, &d.ClubID, &d.IRating, &d.SafetyRating,
			&d.LicenseClass, &d.URL, &d.ScrapedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FindDriverByName performs a case-insensitive substring search over driver
// display names, optionally scoped to one league.
func (s *Store) FindDriverByName(ctx context.Context, substring string, leagueID *int) ([]Driver, error) {
	query := `
		SELECT driver_id, league_id, team_id, name, first_name, last_name,
			car_numbers, primary_number, club, club_id, irating, safety_rating,
			license_class, url, scraped_at, created_at, updated_at
		FROM ` + config.DriversTable + `
		WHERE name ILIKE '%' || $1 || '%'`
	args := []interface{}{substring}
	if leagueID != nil {
		query += ` AND league_id = $2`
		args = append(args, *leagueID)
	}
	query += ` ORDER BY driver_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.DriverID, &d.LeagueID, &d.TeamID, &d.Name, &d.FirstName, &d.LastName,
			&d.CarNumbers, &d.PrimaryNumber, &d.Club, &d.ClubID, &d.IRating, &d.SafetyRating,
			&d.LicenseClass, &d.URL, &d.ScrapedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) requireTeam(ctx context.Context, teamID int) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM `+config.TeamsTable+` WHERE team_id = $1)`, teamID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return &IntegrityError{Detail: "team " + itoa(teamID) + " does not exist"}
	}
	return nil
}
