package extract

import "testing"

func TestResolveLocation(t *testing.T) {
	cases := []struct {
		abbrev   string
		wantUTC  bool
		wantName string
	}{
		{abbrev: "EST", wantName: "America/New_York"},
		{abbrev: "PDT", wantName: "America/Los_Angeles"},
		{abbrev: "GMT", wantUTC: true},
		{abbrev: "", wantUTC: true},
	}

	for _, tc := range cases {
		t.Run(tc.abbrev, func(t *testing.T) {
			loc := resolveLocation(tc.abbrev)
			if tc.wantUTC {
				if loc != nil && loc.String() != "UTC" {
					t.Errorf("resolveLocation(%q) = %v, want UTC", tc.abbrev, loc)
				}
				return
			}
			if loc.String() != tc.wantName {
				t.Errorf("resolveLocation(%q) = %v, want %q", tc.abbrev, loc, tc.wantName)
			}
		})
	}
}

func TestParseLocalDateTime(t *testing.T) {
	got, err := parseLocalDateTime("2006-01-02 15:04", "2025-06-01 14:00", "EDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location() != nil && got.Location().String() != "UTC" {
		t.Errorf("parseLocalDateTime did not normalize to UTC, got location %v", got.Location())
	}
	// 14:00 EDT is 18:00 UTC.
	if got.Hour() != 18 {
		t.Errorf("parseLocalDateTime hour = %d, want 18", got.Hour())
	}

	if _, err := parseLocalDateTime("2006-01-02 15:04", "not-a-date", "EDT"); err == nil {
		t.Error("parseLocalDateTime with invalid value: expected error, got nil")
	}
}
