package extract

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkoBio/goquery"

	"github.com/simcrawl/racecrawl/internal/fetch"
	"github.com/simcrawl/racecrawl/internal/schemaguard"
)

// RaceResult is what RaceExtractor.Extract returns: page-level race
// metadata (assembled per the two-source overlay policy) plus the parsed
// result rows. A race extractor never returns child refs.
type RaceResult struct {
	Metadata RaceMetadata
	Results  []ResultRow
}

// RaceExtractor fetches a race page in rendered mode and returns its
// metadata and results. No child refs.
type RaceExtractor struct {
	Gate *fetch.Gate
}

func (e *RaceExtractor) Extract(ctx context.Context, raceURL string) (*RaceResult, error) {
	scheduleID, err := queryInt(raceURL, "schedule_id")
	if err != nil {
		return nil, err
	}

	doc, err := e.Gate.FetchRendered(ctx, raceURL)
	if err != nil {
		return nil, err
	}
	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil, err
	}

	if err := schemaguard.ValidateMarkers("race", html); err != nil {
		return nil, err
	}

	meta := RaceMetadata{ScheduleID: scheduleID, URL: raceURL}

	// Source 1: embedded structured payload — authoritative for
	// configuration, track identity, weather, and flags.
	if payloads := extractPushObjects(html, "raceData"); len(payloads) > 0 {
		applyStructuredPayload(&meta, payloads[0])
	}

	// Source 2: DOM-parsed "session details" block — authoritative for
	// realized race statistics, always overlaid on top of source 1.
	details := doc.Find(".session-details").First().Text()
	applyStatsSegment(&meta, details)
	applyWeatherSegment(&meta, details)

	fields := map[string]any{"url": meta.URL}
	if err := schemaguard.ValidateFields("race", fields); err != nil {
		return nil, err
	}

	table := doc.Find("table.results-table").First()
	if err := schemaguard.ValidateTable("race", table); err != nil {
		return nil, err
	}

	results := parseResultRows(table)
	meta.NumDrivers = intPtr(len(results))

	return &RaceResult{Metadata: meta, Results: results}, nil
}

func applyStructuredPayload(meta *RaceMetadata, raw map[string]any) {
	if v, ok := asString(raw, "event_name"); ok {
		meta.EventName = strPtr(v)
	}
	if v, ok := asInt(raw, "track_id"); ok {
		meta.TrackID = intPtr(v)
	}
	if v, ok := asInt(raw, "track_config_id"); ok {
		meta.TrackConfigID = intPtr(v)
	}
	if v, ok := asString(raw, "track_name"); ok {
		meta.TrackName = strPtr(v)
	}
	if v, ok := asString(raw, "track_type"); ok {
		meta.TrackType = strPtr(v)
	}
	if v, ok := raw["track_length"]; ok {
		if f, ok := v.(float64); ok {
			meta.TrackLength = &f
		}
	}
	if v, ok := asString(raw, "track_config_iracing_id"); ok {
		meta.TrackConfigIracingID = strPtr(v)
	}
	if v, ok := asInt(raw, "planned_laps"); ok {
		meta.PlannedLaps = intPtr(v)
	}
	if v, ok := raw["points_race"].(bool); ok {
		meta.PointsRace = &v
	}
	if v, ok := raw["off_week"].(bool); ok {
		meta.OffWeek = &v
	}
	if v, ok := raw["night_race"].(bool); ok {
		meta.NightRace = &v
	}
	if v, ok := raw["playoff_race"].(bool); ok {
		meta.PlayoffRace = &v
	}
	if v, ok := asString(raw, "weather_type"); ok {
		meta.WeatherType = strPtr(v)
	}
}

var (
	statRacePattern    = regexp.MustCompile(`(?i)duration[:\s]+([0-9:]+)`)
	statLapsPattern    = regexp.MustCompile(`(?i)(?:total\s+)?laps[:\s]+(\d+)`)
	statLeadersPattern = regexp.MustCompile(`(?i)leaders[:\s]+(\d+)`)
	statChangesPattern = regexp.MustCompile(`(?i)lead[\s-]*changes[:\s]+(\d+)`)
	statCautionPattern = regexp.MustCompile(`(?i)cautions[:\s]+(\d+)\s*\((\d+)\s*laps?\)`)
)

// applyStatsSegment parses the realized-statistics half of the session
// details block, split conceptually on a line-break from the weather half.
func applyStatsSegment(meta *RaceMetadata, details string) {
	if m := statRacePattern.FindStringSubmatch(details); m != nil {
		if mins, ok := parseDurationMinutes(m[1]); ok {
			meta.RaceDurationMinutes = intPtr(mins)
		}
	}
	if m := statLapsPattern.FindStringSubmatch(details); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			meta.TotalLaps = intPtr(n)
		}
	}
	if m := statLeadersPattern.FindStringSubmatch(details); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			meta.Leaders = intPtr(n)
		}
	}
	if m := statChangesPattern.FindStringSubmatch(details); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			meta.LeadChanges = intPtr(n)
		}
	}
	if m := statCautionPattern.FindStringSubmatch(details); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			meta.Cautions = intPtr(n)
		}
		if n, err := strconv.Atoi(m[2]); err == nil {
			meta.CautionLaps = intPtr(n)
		}
	}
}

func parseDurationMinutes(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, false
	}
	h, m := 0, 0
	if len(parts) == 3 {
		h, _ = strconv.Atoi(parts[0])
		m, _ = strconv.Atoi(parts[1])
	} else {
		m, _ = strconv.Atoi(parts[0])
	}
	return h*60 + m, true
}

var (
	weatherModePattern   = regexp.MustCompile(`(?i)weather[:\s]+([A-Za-z ]+?)(?:\||$)`)
	weatherSkyPattern    = regexp.MustCompile(`(?i)sky[:\s]+([A-Za-z ]+?)(?:\||$)`)
	weatherTempPattern   = regexp.MustCompile(`(?i)temp(?:erature)?[:\s]+(-?\d+)\s*°\s*([CF])`)
	weatherHumidPattern  = regexp.MustCompile(`(?i)humidity[:\s]+(\d+)\s*%`)
	weatherFogPattern    = regexp.MustCompile(`(?i)fog[:\s]+(\d+)\s*%`)
	weatherWindPattern   = regexp.MustCompile(`(?i)wind[:\s]+([\d.]+)\s*(mph|kph)\s*([A-Z]{1,3})?`)
)

// applyWeatherSegment parses the weather half of the session details block.
// Temperature is stored as integer Fahrenheit: converted from Celsius when
// the page reports °C, parsed as-is when already °F.
func applyWeatherSegment(meta *RaceMetadata, details string) {
	if m := weatherModePattern.FindStringSubmatch(details); m != nil {
		meta.WeatherType = strPtr(strings.TrimSpace(m[1]))
	}
	if m := weatherSkyPattern.FindStringSubmatch(details); m != nil {
		meta.CloudConditions = strPtr(strings.TrimSpace(m[1]))
	}
	if m := weatherTempPattern.FindStringSubmatch(details); m != nil {
		if c, err := strconv.Atoi(m[1]); err == nil {
			if strings.EqualFold(m[2], "C") {
				f := int(math.Round(float64(c)*9.0/5.0 + 32))
				meta.TemperatureF = intPtr(f)
			} else {
				meta.TemperatureF = intPtr(c)
			}
		}
	}
	if m := weatherHumidPattern.FindStringSubmatch(details); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			meta.HumidityPct = intPtr(n)
		}
	}
	if m := weatherFogPattern.FindStringSubmatch(details); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			meta.FogPct = intPtr(n)
		}
	}
	if m := weatherWindPattern.FindStringSubmatch(details); m != nil {
		meta.WeatherWindSpeed = strPtr(m[1])
		meta.WeatherWindUnit = strPtr(m[2])
		if len(m) > 3 && m[3] != "" {
			meta.WeatherWindDir = strPtr(m[3])
		}
	}
}

// resultColumns is the positional layout of the results table, wide enough
// to cover the full field set race_results persists.
var resultColumns = []string{
	"finish_position", "starting_position", "car_number", "driver", "team",
	"qualifying_time", "fastest_lap", "fastest_lap_number", "average_lap", "interval",
	"laps_completed", "laps_led", "incident_points", "race_points", "bonus_points",
	"penalty_points", "total_points", "fast_laps", "quality_passes", "closing_passes",
	"total_passes", "average_running_position", "irating", "status", "car_id",
}

var driverIDPattern = regexp.MustCompile(`(?i)[?&]driver_id=(\d+)`)

// parseResultRows parses a result row from a wide table by positional
// column index. Missing/blank/"-" cells become absent fields, never empty
// strings.
func parseResultRows(table *goquery.Selection) []ResultRow {
	var out []ResultRow
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		var r ResultRow
		for i, col := range resultColumns {
			if i >= cells.Length() {
				break
			}
			cell := cells.Eq(i)
			text := cleanCell(cell.Text())

			switch col {
			case "driver":
				r.DriverName = text
				if href, ok := cell.Find("a").First().Attr("href"); ok {
					r.DriverURL = strPtr(href)
					if m := driverIDPattern.FindStringSubmatch(href); m != nil {
						if id, err := strconv.Atoi(m[1]); err == nil {
							r.DriverID = intPtr(id)
						}
					}
				}
			case "team":
				r.Team = optionalString(text)
			case "finish_position":
				r.FinishPosition = optionalInt(text)
			case "starting_position":
				r.StartingPosition = optionalInt(text)
			case "car_number":
				r.CarNumber = optionalString(text)
			case "qualifying_time":
				r.QualifyingTime = optionalString(text)
			case "fastest_lap":
				r.FastestLap = optionalString(text)
			case "fastest_lap_number":
				r.FastestLapNumber = optionalInt(text)
			case "average_lap":
				r.AverageLap = optionalString(text)
			case "interval":
				r.Interval = optionalString(text)
			case "laps_completed":
				r.LapsCompleted = optionalInt(text)
			case "laps_led":
				r.LapsLed = optionalInt(text)
			case "incident_points":
				r.IncidentPoints = optionalInt(text)
			case "race_points":
				r.RacePoints = optionalInt(text)
			case "bonus_points":
				r.BonusPoints = optionalInt(text)
			case "penalty_points":
				r.PenaltyPoints = optionalInt(text)
			case "total_points":
				r.TotalPoints = optionalInt(text)
			case "fast_laps":
				r.FastLaps = optionalInt(text)
			case "quality_passes":
				r.QualityPasses = optionalInt(text)
			case "closing_passes":
				r.ClosingPasses = optionalInt(text)
			case "total_passes":
				r.TotalPasses = optionalInt(text)
			case "average_running_position":
				r.AverageRunningPosition = optionalFloat(text)
			case "irating":
				r.IRating = optionalInt(text)
			case "status":
				r.Status = optionalString(text)
			case "car_id":
				r.CarID = optionalInt(text)
			}
		}
		if r.DriverName == "" {
			return
		}
		out = append(out, r)
	})
	return out
}

func cleanCell(s string) string {
	return strings.TrimSpace(s)
}

func optionalString(s string) *string {
	if s == "" || s == "-" {
		return nil
	}
	return &s
}

func optionalInt(s string) *int {
	if s == "" || s == "-" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func optionalFloat(s string) *float64 {
	if s == "" || s == "-" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}
