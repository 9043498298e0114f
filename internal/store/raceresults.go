package store

import (
	"context"

	"github.com/simcrawl/racecrawl/internal/config"
)

// RaceResultAttrs carries the full result-row field set race.go's extractor
// parses (§3 expansion — wider than the original orchestrator's six-field
// write).
type RaceResultAttrs struct {
	Team                   *string
	FinishPosition         *int
	StartingPosition       *int
	CarNumber              *string
	QualifyingTime         *string
	FastestLap             *string
	FastestLapNumber       *int
	AverageLap             *string
	Interval               *string
	LapsCompleted          *int
	LapsLed                *int
	IncidentPoints         *int
	RacePoints             *int
	BonusPoints            *int
	PenaltyPoints          *int
	TotalPoints            *int
	FastLaps               *int
	QualityPasses          *int
	ClosingPasses          *int
	TotalPasses            *int
	AverageRunningPosition *float64
	IRating                *int
	Status                 *string
	CarID                  *int
}

// UpsertRaceResult inserts or merges a race-result fact row, unique by
// (raceID, driverID). Fails with IntegrityError when either referenced row
// is absent.
func (s *Store) UpsertRaceResult(ctx context.Context, raceID, driverID int, a RaceResultAttrs) (int, error) {
	if err := s.requireRace(ctx, raceID); err != nil {
		return 0, err
	}
	if err := s.requireDriver(ctx, driverID); err != nil {
		return 0, err
	}

	var resultID int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO `+config.RaceResultsTable+` (
			race_id, driver_id, team, finish_position, starting_position, car_number,
			qualifying_time, fastest_lap, fastest_lap_number, average_lap, interval,
			laps_completed, laps_led, incident_points, race_points, bonus_points,
			penalty_points, total_points, fast_laps, quality_passes, closing_passes,
			total_passes, average_running_position, irating, status, car_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		)
		ON CONFLICT (race_id, driver_id) DO UPDATE SET
			team                     = COALESCE(EXCLUDED.team, `+config.RaceResultsTable+`.team),
			finish_position          = COALESCE(EXCLUDED.finish_position, `+config.RaceResultsTable+`.finish_position),
			starting_position        = COALESCE(EXCLUDED.starting_position, `+config.RaceResultsTable+`.starting_position),
			car_number               = COALESCE(EXCLUDED.car_number, `+config.RaceResultsTable+`.car_number),
			qualifying_time          = COALESCE(EXCLUDED.qualifying_time, `+config.RaceResultsTable+`.qualifying_time),
			fastest_lap              = COALESCE(EXCLUDED.fastest_lap, `+config.RaceResultsTable+`.fastest_lap),
			fastest_lap_number       = COALESCE(EXCLUDED.fastest_lap_number, `+config.RaceResultsTable+`.fastest_lap_number),
			average_lap              = COALESCE(EXCLUDED.average_lap, `+config.RaceResultsTable+`.average_lap),
			interval                 = COALESCE(EXCLUDED.interval, `+config.RaceResultsTable+`.interval),
			laps_completed           = COALESCE(EXCLUDED.laps_completed, `+config.RaceResultsTable+`.laps_completed),
			laps_led                 = COALESCE(EXCLUDED.laps_led, `+config.RaceResultsTable+`.laps_led),
			incident_points          = COALESCE(EXCLUDED.incident_points, `+config.RaceResultsTable+`.incident_points),
			race_points              = COALESCE(EXCLUDED.race_points, `+config.RaceResultsTable+`.race_points),
			bonus_points             = COALESCE(EXCLUDED.bonus_points, `+config.RaceResultsTable+`.bonus_points),
			penalty_points           = COALESCE(EXCLUDED.penalty_points, `+config.RaceResultsTable+`.penalty_points),
			total_points             = COALESCE(EXCLUDED.total_points, `+config.RaceResultsTable+`.total_points),
			fast_laps                = COALESCE(EXCLUDED.fast_laps, `+config.RaceResultsTable+`.fast_laps),
			quality_passes           = COALESCE(EXCLUDED.quality_passes, `+config.RaceResultsTable+`.quality_passes),
			closing_passes           = COALESCE(EXCLUDED.closing_passes, `+config.RaceResultsTable+`.closing_passes),
			total_passes             = COALESCE(EXCLUDED.total_passes, `+config.RaceResultsTable+`.total_passes),
			average_running_position = COALESCE(EXCLUDED.average_running_position, `+config.RaceResultsTable+`.average_running_position),
			irating                  = COALESCE(EXCLUDED.irating, `+config.RaceResultsTable+`.irating),
			status                   = COALESCE(EXCLUDED.status, `+config.RaceResultsTable+`.status),
			car_id                   = COALESCE(EXCLUDED.car_id, `+config.RaceResultsTable+`.car_id),
			updated_at               = now()
		RETURNING result_id`,
		raceID, driverID, a.Team, a.FinishPosition, a.StartingPosition, a.CarNumber,
		a.QualifyingTime, a.FastestLap, a.FastestLapNumber, a.AverageLap, a.Interval,
		a.LapsCompleted, a.LapsLed, a.IncidentPoints, a.RacePoints, a.BonusPoints,
		a.PenaltyPoints, a.TotalPoints, a.FastLaps, a.QualityPasses, a.ClosingPasses,
		a.TotalPasses, a.AverageRunningPosition, a.IRating, a.Status, a.CarID,
	).Scan(&resultID)
	if err != nil {
		return 0, err
	}
	return resultID, nil
}

// GetRaceResultsByRace returns every result row for raceID, ordered by
// finish position; nulls (DNF/unparsed) sort last.
func (s *Store) GetRaceResultsByRace(ctx context.Context, raceID int) ([]RaceResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT result_id, race_id, driver_id, team, finish_position, starting_position, car_number,
			qualifying_time, fastest_lap, fastest_lap_number, average_lap, interval,
			laps_completed, laps_led, incident_points, race_points, bonus_points,
			penalty_points, total_points, fast_laps, quality_passes, closing_passes,
			total_passes, average_running_position, irating, status, car_id
		FROM `+config.RaceResultsTable+` WHERE race_id = $1
		ORDER BY finish_position NULLS LAST, result_id`, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RaceResult
	for rows.Next() {
		var r RaceResult
		if err := rows.Scan(&r.ResultID, &r.RaceID, &r.DriverID, &r.Team, &r.FinishPosition, &r.StartingPosition, &r.CarNumber,
			&r.QualifyingTime, &r.FastestLap, &r.FastestLapNumber, &r.AverageLap, &r.Interval,
			&r.LapsCompleted, &r.LapsLed, &r.IncidentPoints, &r.RacePoints, &r.BonusPoints,
			&r.PenaltyPoints, &r.TotalPoints, &r.FastLaps, &r.QualityPasses, &r.ClosingPasses,
			&r.TotalPasses, &r.AverageRunningPosition, &r.IRating, &r.Status, &r.CarID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) requireRace(ctx context.Context, raceID int) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM `+config.RacesTable+` WHERE race_id = $1)`, raceID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return &IntegrityError{Detail: "race " + itoa(raceID) + " does not exist"}
	}
	return nil
}

func (s *Store) requireDriver(ctx context.Context, driverID int) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM `+config.DriversTable+` WHERE driver_id = $1)`, driverID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return &IntegrityError{Detail: "driver " + itoa(driverID) + " does not exist"}
	}
	return nil
}
