// Package extract holds one extractor per entity kind (league, series,
// season, race, driver). Each extractor fetches its page through a shared
// fetch.Gate, validates it through schemaguard, and returns typed metadata
// plus child-entity references.
//
// Entities are represented as tagged, typed attribute records with
// pointer-typed optional fields, in the style of a canonical struct,
// rather than map[string]any — except at the SchemaGuard boundary, which
// takes a flat field mapping.
package extract

import "time"

// ValidationError is raised when a URL cannot be parsed for its external id,
// or another structural precondition the extractor itself owns is violated.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return "validation error: " + e.Detail }

// LeagueMetadata is what LeagueExtractor.Extract returns as page-level data.
type LeagueMetadata struct {
	LeagueID    int
	Name        string
	Description *string
	URL         string
}

// SeriesRef is a child reference discovered on a league page.
type SeriesRef struct {
	SeriesID    int
	Name        string
	Description *string
	URL         string
}

// TeamsURLHint is the optional teams-index URL a league page may advertise.
type TeamsURLHint struct {
	URL string
}

// SeriesMetadata is what SeriesExtractor.Extract returns.
type SeriesMetadata struct {
	SeriesID    int
	Name        string
	Description *string
	CreatedDate *time.Time
	NumSeasons  *int
	URL         string
}

// SeasonRef is a child reference discovered on a series page.
type SeasonRef struct {
	SeasonID    int
	Name        string
	Description *string
	StartDate   *time.Time
	URL         string
}

// SeasonMetadata is what SeasonExtractor.Extract returns.
type SeasonMetadata struct {
	SeasonID    int
	Name        string
	Description *string
	URL         string
}

// RaceRef is a child reference discovered on a season page: one entry per
// schedule-link or schedule-table row, already de-duplicated by schedule id
// and filtered to rows with a parseable race number.
type RaceRef struct {
	ScheduleID  int
	RaceNumber  int
	TrackHint   *string
	PlannedDate *time.Time
	URL         string
}

// RaceMetadata is what RaceExtractor.Extract returns as page-level data,
// assembled by overlaying DOM-parsed session stats on top of the embedded
// structured payload.
type RaceMetadata struct {
	ScheduleID           int
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
}

// ResultRow is one parsed row of a race's results table.
type ResultRow struct {
	DriverID               *int
	DriverName             string
	DriverURL              *string
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

// DriverMetadata is what DriverExtractor.Extract returns.
type DriverMetadata struct {
	DriverID      int
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
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(n int) *int { return &n }
