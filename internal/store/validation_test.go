package store

import "testing"

func TestUpsertLeagueRejectsBlankRequiredFields(t *testing.T) {
	s := &Store{} // no pool needed: validation runs before any query

	if _, err := s.UpsertLeague(nil, 1, LeagueAttrs{Name: "  ", URL: "https://example.test"}); err == nil {
		t.Error("expected a ValidationError for a blank name")
	} else if ve, ok := err.(*ValidationError); !ok || ve.Field != "name" {
		t.Errorf("err = %v, want *ValidationError{Field: \"name\"}", err)
	}

	if _, err := s.UpsertLeague(nil, 1, LeagueAttrs{Name: "Fixed Setup League", URL: " "}); err == nil {
		t.Error("expected a ValidationError for a blank url")
	} else if ve, ok := err.(*ValidationError); !ok || ve.Field != "url" {
		t.Errorf("err = %v, want *ValidationError{Field: \"url\"}", err)
	}
}

func TestValidEntityKind(t *testing.T) {
	for _, k := range []EntityKind{KindLeague, KindSeries, KindSeason, KindRace, KindDriver, KindTeam} {
		if !validEntityKind(k) {
			t.Errorf("validEntityKind(%q) = false, want true", k)
		}
	}
	if validEntityKind(EntityKind("spaceship")) {
		t.Error("validEntityKind(\"spaceship\") = true, want false")
	}
}
