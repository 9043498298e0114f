package extract

import "time"

// tzAbbreviations is a closed abbreviation table. Timezone inference for
// race schedules is best-effort and scoped to these eight abbreviations of
// four US zones; any
// abbreviation outside this table falls back to UTC rather than guessing.
var tzAbbreviations = map[string]string{
	"EST": "America/New_York",
	"EDT": "America/New_York",
	"CST": "America/Chicago",
	"CDT": "America/Chicago",
	"MST": "America/Denver",
	"MDT": "America/Denver",
	"PST": "America/Los_Angeles",
	"PDT": "America/Los_Angeles",
}

// resolveLocation maps a timezone abbreviation to an IANA zone via the
// closed table above, assuming UTC for anything outside it.
func resolveLocation(abbrev string) *time.Location {
	name, ok := tzAbbreviations[abbrev]
	if !ok {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseLocalDateTime parses a date+time pair as local time in the zone
// named by abbrev (falling back to UTC per resolveLocation), then
// normalizes to UTC. layout follows the standard library's reference-time
// convention.
func parseLocalDateTime(layout, value, abbrev string) (time.Time, error) {
	loc := resolveLocation(abbrev)
	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
