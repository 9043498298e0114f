package store

import (
	"context"
	"time"

	"github.com/simcrawl/racecrawl/internal/config"
)

// RaceAttrs carries upsertable race fields. ScheduleID is immutable once
// created; RaceNumber is required. URL is a "replace" field; IsComplete is
// sticky (stored OR supplied, so a later false never clears it); ScrapedAt
// keeps the later of the stored and supplied values. Every other optional
// attribute merges via COALESCE.
type RaceAttrs struct {
	RaceNumber           int
	EventName            *string
	EventDate            *time.Time
	RaceTime             *string
	PracticeTime         *string
	TrackID              *int
	TrackConfigID        *int
	TrackName            *string
	TrackType            *string
	TrackLength          *float64
	TrackConfigIracingID *string
	PlannedLaps          *int
	PointsRace           *bool
	OffWeek              *bool
	NightRace            *bool
	PlayoffRace          *bool
	RaceDurationMinutes  *int
	TotalLaps            *int
	Leaders              *int
	LeadChanges          *int
	Cautions             *int
	CautionLaps          *int
	NumDrivers           *int
	WeatherType          *string
	CloudConditions      *string
	TemperatureF         *int
	HumidityPct          *int
	FogPct               *int
	WeatherWindSpeed     *string
	WeatherWindDir       *string
	WeatherWindUnit      *string
	URL                  string
	IsComplete           bool
	ScrapedAt            time.Time
}

// UpsertRace inserts or merges a race row owned by seasonID, keyed by the
// external scheduleID. Returns the internal surrogate RaceID.
func (s *Store) UpsertRace(ctx context.Context, scheduleID, seasonID int, a RaceAttrs) (int, error) {
	if a.URL == "" {
		return 0, &ValidationError{Field: "url", Detail: "required"}
	}
	if err := s.requireSeason(ctx, seasonID); err != nil {
		return 0, err
	}

	var raceID int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO `+config.RacesTable+` (
			schedule_id, season_id, race_number, event_name, event_date, race_time, practice_time,
			track_id, track_config_id, track_name, track_type, track_length, track_config_iracing_id,
			planned_laps, points_race, off_week, night_race, playoff_race,
			race_duration_minutes, total_laps, leaders, lead_changes, cautions, caution_laps, num_drivers,
			weather_type, cloud_conditions, temperature_f, humidity_pct, fog_pct,
			weather_wind_speed, weather_wind_dir, weather_wind_unit,
			url, is_complete, scraped_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25,
			$26, $27, $28, $29, $30,
			$31, $32, $33,
			$34, $35, $36
		)
		ON CONFLICT (schedule_id) DO UPDATE SET
			race_number              = COALESCE(EXCLUDED.race_number, `+config.RacesTable+`.race_number),
			event_name               = COALESCE(EXCLUDED.event_name, `+config.RacesTable+`.event_name),
			event_date               = COALESCE(EXCLUDED.event_date, `+config.RacesTable+`.event_date),
			race_time                = COALESCE(EXCLUDED.race_time, `+config.RacesTable+`.race_time),
			practice_time            = COALESCE(EXCLUDED.practice_time, `+config.RacesTable+`.practice_time),
			track_id                 = COALESCE(EXCLUDED.track_id, `+config.RacesTable+`.track_id),
			track_config_id          = COALESCE(EXCLUDED.track_config_id, `+config.RacesTable+`.track_config_id),
			track_name               = COALESCE(EXCLUDED.track_name, `+config.RacesTable+`.track_name),
			track_type               = COALESCE(EXCLUDED.track_type, `+config.RacesTable+`.track_type),
			track_length             = COALESCE(EXCLUDED.track_length, `+config.RacesTable+`.track_length),
			track_config_iracing_id  = COALESCE(EXCLUDED.track_config_iracing_id, `+config.RacesTable+`.track_config_iracing_id),
			planned_laps             = COALESCE(EXCLUDED.planned_laps, `+config.RacesTable+`.planned_laps),
			points_race              = COALESCE(EXCLUDED.points_race, `+config.RacesTable+`.points_race),
			off_week                 = COALESCE(EXCLUDED.off_week, `+config.RacesTable+`.off_week),
			night_race               = COALESCE(EXCLUDED.night_race, `+config.RacesTable+`.night_race),
			playoff_race             = COALESCE(EXCLUDED.playoff_race, `+config.RacesTable+`.playoff_race),
			race_duration_minutes    = COALESCE(EXCLUDED.race_duration_minutes, `+config.RacesTable+`.race_duration_minutes),
			total_laps               = COALESCE(EXCLUDED.total_laps, `+config.RacesTable+`.total_laps),
			leaders                  = COALESCE(EXCLUDED.leaders, `+config.RacesTable+`.leaders),
			lead_changes             = COALESCE(EXCLUDED.lead_changes, `+config.RacesTable+`.lead_changes),
			cautions                 = COALESCE(EXCLUDED.cautions, `+config.RacesTable+`.cautions),
			caution_laps             = COALESCE(EXCLUDED.caution_laps, `+config.RacesTable+`.caution_laps),
			num_drivers              = COALESCE(EXCLUDED.num_drivers, `+config.RacesTable+`.num_drivers),
			weather_type             = COALESCE(EXCLUDED.weather_type, `+config.RacesTable+`.weather_type),
			cloud_conditions         = COALESCE(EXCLUDED.cloud_conditions, `+config.RacesTable+`.cloud_conditions),
			temperature_f            = COALESCE(EXCLUDED.temperature_f, `+config.RacesTable+`.temperature_f),
			humidity_pct             = COALESCE(EXCLUDED.humidity_pct, `+config.RacesTable+`.humidity_pct),
			fog_pct                  = COALESCE(EXCLUDED.fog_pct, `+config.RacesTable+`.fog_pct),
			weather_wind_speed       = COALESCE(EXCLUDED.weather_wind_speed, `+config.RacesTable+`.weather_wind_speed),
			weather_wind_dir         = COALESCE(EXCLUDED.weather_wind_dir, `+config.RacesTable+`.weather_wind_dir),
			weather_wind_unit        = COALESCE(EXCLUDED.weather_wind_unit, `+config.RacesTable+`.weather_wind_unit),
			url                      = EXCLUDED.url,
			is_complete              = EXCLUDED.is_complete OR `+config.RacesTable+`.is_complete,
			scraped_at               = GREATEST(EXCLUDED.scraped_at, `+config.RacesTable+`.scraped_at),
			updated_at               = now()
		RETURNING race_id`,
		scheduleID, seasonID, a.RaceNumber, a.EventName, a.EventDate, a.RaceTime, a.PracticeTime,
		a.TrackID, a.TrackConfigID, a.TrackName, a.TrackType, a.TrackLength, a.TrackConfigIracingID,
		a.PlannedLaps, a.PointsRace, a.OffWeek, a.NightRace, a.PlayoffRace,
		a.RaceDurationMinutes, a.TotalLaps, a.Leaders, a.LeadChanges, a.Cautions, a.CautionLaps, a.NumDrivers,
		a.WeatherType, a.CloudConditions, a.TemperatureF, a.HumidityPct, a.FogPct,
		a.WeatherWindSpeed, a.WeatherWindDir, a.WeatherWindUnit,
		a.URL, a.IsComplete, a.ScrapedAt,
	).Scan(&raceID)
	if err != nil {
		return 0, err
	}
	return raceID, nil
}

// GetRace returns the race row by surrogate id, or (nil, nil) if absent.
func (s *Store) GetRace(ctx context.Context, raceID int) (*Race, error) {
	return s.scanRace(ctx, `race_id = $1`, raceID)
}

// GetRaceByScheduleID returns the race row by external schedule id, or
// (nil, nil) if absent.
func (s *Store) GetRaceByScheduleID(ctx context.Context, scheduleID int) (*Race, error) {
	return s.scanRace(ctx, `schedule_id = $1`, scheduleID)
}

func (s *Store) scanRace(ctx context.Context, where string, arg int) (*Race, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT race_id, schedule_id, season_id, race_number, event_name, event_date, race_time, practice_time,
			track_id, track_config_id, track_name, track_type, track_length, track_config_iracing_id,
			planned_laps, points_race, off_week, night_race, playoff_race,
			race_duration_minutes, total_laps, leaders, lead_changes, cautions, caution_laps, num_drivers,
			weather_type, cloud_conditions, temperature_f, humidity_pct, fog_pct,
			weather_wind_speed, weather_wind_dir, weather_wind_unit,
			url, is_complete, scraped_at, created_at, updated_at
		FROM `+config.RacesTable+` WHERE `+where, arg)

	var r Race
	err := row.Scan(&r.RaceID, &r.ScheduleID, &r.SeasonID, &r.RaceNumber, &r.EventName, &r.EventDate, &r.RaceTime, &r.PracticeTime,
		&r.TrackID, &r.TrackConfigID, &r.TrackName, &r.TrackType, &r.TrackLength, &r.TrackConfigIracingID,
		&r.PlannedLaps, &r.PointsRace, &r.OffWeek, &r.NightRace, &r.PlayoffRace,
		&r.RaceDurationMinutes, &r.TotalLaps, &r.Leaders, &r.LeadChanges, &r.Cautions, &r.CautionLaps, &r.NumDrivers,
		&r.WeatherType, &r.CloudConditions, &r.TemperatureF, &r.HumidityPct, &r.FogPct,
		&r.WeatherWindSpeed, &r.WeatherWindDir, &r.WeatherWindUnit,
		&r.URL, &r.IsComplete, &r.ScrapedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if isNotFoundRow(err) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GetRacesBySeason returns every race owned by seasonID, ordered by race
// number (discovery order within a season).
func (s *Store) GetRacesBySeason(ctx context.Context, seasonID int) ([]Race, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT race_id, schedule_id, season_id, race_number, event_name, event_date, race_time, practice_time,
			track_id, track_config_id, track_name, track_type, track_length, track_config_iracing_id,
			planned_laps, points_race, off_week, night_race, playoff_race,
			race_duration_minutes, total_laps, leaders, lead_changes, cautions, caution_laps, num_drivers,
			weather_type, cloud_conditions, temperature_f, humidity_pct, fog_pct,
			weather_wind_speed, weather_wind_dir, weather_wind_unit,
			url, is_complete, scraped_at, created_at, updated_at
		FROM `+config.RacesTable+` WHERE season_id = $1 ORDER BY race_number`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Race
	for rows.Next() {
		var r Race
		if err := rows.Scan(&r.RaceID, &r.ScheduleID, &r.SeasonID, &r.RaceNumber, &r.EventName, &r.EventDate, &r.RaceTime, &r.PracticeTime,
			&r.TrackID, &r.TrackConfigID, &r.TrackName, &r.TrackType, &r.TrackLength, &r.TrackConfigIracingID,
			&r.PlannedLaps, &r.PointsRace, &r.OffWeek, &r.NightRace, &r.PlayoffRace,
			&r.RaceDurationMinutes, &r.TotalLaps, &r.Leaders, &r.LeadChanges, &r.Cautions, &r.CautionLaps, &r.NumDrivers,
			&r.WeatherType, &r.CloudConditions, &r.TemperatureF, &r.HumidityPct, &r.FogPct,
			&r.WeatherWindSpeed, &r.WeatherWindDir, &r.WeatherWindUnit,
			&r.URL, &r.IsComplete, &r.ScrapedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IsRaceComplete reports whether a race row exists for scheduleID and its
// completion flag is set.
func (s *Store) IsRaceComplete(ctx context.Context, scheduleID int) (bool, error) {
	var complete bool
	err := s.pool.QueryRow(ctx, `SELECT is_complete FROM `+config.RacesTable+` WHERE schedule_id = $1`, scheduleID).Scan(&complete)
	if err != nil {
		if isNotFoundRow(err) {
			return false, nil
		}
		return false, err
	}
	return complete, nil
}

func (s *Store) requireSeason(ctx context.Context, seasonID int) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM `+config.SeasonsTable+` WHERE season_id = $1)`, seasonID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return &IntegrityError{Detail: "season " + itoa(seasonID) + " does not exist"}
	}
	return nil
}
