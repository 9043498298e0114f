package extract

import "testing"

func TestQueryInt(t *testing.T) {
	cases := []struct {
		name    string
		rawURL  string
		param   string
		want    int
		wantErr bool
	}{
		{name: "present", rawURL: "https://example.test/page?league_id=42", param: "league_id", want: 42},
		{name: "missing", rawURL: "https://example.test/page", param: "league_id", wantErr: true},
		{name: "non-integer", rawURL: "https://example.test/page?league_id=abc", param: "league_id", wantErr: true},
		{name: "unparseable url", rawURL: "://bad", param: "league_id", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := queryInt(tc.rawURL, tc.param)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("queryInt(%q, %q) = %d, want error", tc.rawURL, tc.param, got)
				}
				if _, ok := err.(*ValidationError); !ok {
					t.Errorf("queryInt error type = %T, want *ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("queryInt(%q, %q) unexpected error: %v", tc.rawURL, tc.param, err)
			}
			if got != tc.want {
				t.Errorf("queryInt(%q, %q) = %d, want %d", tc.rawURL, tc.param, got, tc.want)
			}
		})
	}
}

func TestParseLeagueID(t *testing.T) {
	got, err := ParseLeagueID("https://example.test/league?league_id=1558")
	if err != nil {
		t.Fatalf("ParseLeagueID unexpected error: %v", err)
	}
	if got != 1558 {
		t.Errorf("ParseLeagueID = %d, want 1558", got)
	}

	if _, err := ParseLeagueID("https://example.test/league"); err == nil {
		t.Error("ParseLeagueID with no league_id = nil error, want error")
	}
}
