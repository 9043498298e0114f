package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkoBio/goquery"

	"github.com/simcrawl/racecrawl/internal/fetch"
	"github.com/simcrawl/racecrawl/internal/schemaguard"
)

// SeasonResult is what SeasonExtractor.Extract returns.
type SeasonResult struct {
	Metadata SeasonMetadata
	Races    []RaceRef
}

// SeasonExtractor fetches a season page in rendered mode and returns its
// race list (schedule id, race number, track hint, planned date).
type SeasonExtractor struct {
	Gate *fetch.Gate
}

var raceNumberPattern = regexp.MustCompile(`(?i)^\s*(?:race\s*)?(\d+)\s*$`)

func (e *SeasonExtractor) Extract(ctx context.Context, seasonURL string) (*SeasonResult, error) {
	seasonID, err := queryInt(seasonURL, "season_id")
	if err != nil {
		return nil, err
	}

	doc, err := e.Gate.FetchRendered(ctx, seasonURL)
	if err != nil {
		return nil, err
	}
	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil, err
	}

	if err := schemaguard.ValidateMarkers("season", html); err != nil {
		return nil, err
	}

	name := resolveDisplayName(doc, "season")
	meta := SeasonMetadata{SeasonID: seasonID, Name: name, URL: seasonURL}

	fields := map[string]any{"name": meta.Name, "url": meta.URL}
	if err := schemaguard.ValidateFields("season", fields); err != nil {
		return nil, err
	}

	races := e.extractRacesFromDropdown(html)
	if len(races) == 0 {
		table := doc.Find("table.schedule-table").First()
		if err := schemaguard.ValidateTable("season", table); err != nil {
			return nil, err
		}
		races = extractRacesFromTable(table)
	}

	return &SeasonResult{Metadata: meta, Races: dedupeRaceRefs(races)}, nil
}

// extractRacesFromDropdown prefers the JavaScript-rendered dropdown of
// schedule links: a `schedule = [...]` embedded array, reusing the generic
// array extractor against the schedule-shaped variable.
func (e *SeasonExtractor) extractRacesFromDropdown(html string) []RaceRef {
	var out []RaceRef
	for _, raw := range extractJSArray(html, "schedule") {
		scheduleID, ok := asInt(raw, "scrt")
		if !ok {
			scheduleID, ok = asInt(raw, "schedule_id")
			if !ok {
				continue
			}
		}
		raceNum, ok := parseRaceNumberField(raw)
		if !ok {
			continue
		}
		ref := RaceRef{ScheduleID: scheduleID, RaceNumber: raceNum}
		if u, ok := asString(raw, "url"); ok {
			ref.URL = u
		}
		if track, ok := asString(raw, "track"); ok && track != "" {
			ref.TrackHint = strPtr(track)
		}
		if date, ok := asString(raw, "date"); ok {
			if tm, ok2 := asString(raw, "time"); ok2 {
				tz, _ := asString(raw, "tz")
				if t, err := parseLocalDateTime("2006-01-02 15:04", date+" "+tm, tz); err == nil {
					ref.PlannedDate = &t
				}
			}
		}
		out = append(out, ref)
	}
	return out
}

func parseRaceNumberField(raw map[string]any) (int, bool) {
	if n, ok := asInt(raw, "nr"); ok {
		return n, true
	}
	if s, ok := asString(raw, "n"); ok {
		return parseRaceNumberText(s)
	}
	return 0, false
}

// parseRaceNumberText accepts either a bare integer or the pattern
// "Race N"; rows without a parseable race number are informational only
// and dropped by the caller.
func parseRaceNumberText(s string) (int, bool) {
	m := raceNumberPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// extractRacesFromTable is the static-HTML fallback when the dropdown
// array is empty: a plain schedule table parsed by position.
func extractRacesFromTable(table *goquery.Selection) []RaceRef {
	var out []RaceRef
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		raceText := strings.TrimSpace(cells.Eq(0).Text())
		raceNum, ok := parseRaceNumberText(raceText)
		if !ok {
			return
		}

		ref := RaceRef{RaceNumber: raceNum}
		if href, ok := row.Find("a").First().Attr("href"); ok {
			ref.URL = href
			if sid, err := queryInt(href, "schedule_id"); err == nil {
				ref.ScheduleID = sid
			}
		}
		if ref.ScheduleID == 0 {
			return
		}
		if cells.Length() > 1 {
			if track := strings.TrimSpace(cells.Eq(1).Text()); track != "" {
				ref.TrackHint = strPtr(track)
			}
		}
		out = append(out, ref)
	})
	return out
}

func dedupeRaceRefs(refs []RaceRef) []RaceRef {
	seen := make(map[int]bool, len(refs))
	out := make([]RaceRef, 0, len(refs))
	for _, r := range refs {
		if seen[r.ScheduleID] {
			continue
		}
		seen[r.ScheduleID] = true
		out = append(out, r)
	}
	return out
}
