package schemaguard

import (
	"strings"
	"testing"

	"github.com/PuerkoBio/goquery"
)

func TestValidateMarkersUnknownKind(t *testing.T) {
	if err := ValidateMarkers("spaceship", "anything"); err == nil {
		t.Fatal("expected an error for an unrecognized entity kind")
	} else if _, ok := err.(*ValidationError); !ok {
		t.Errorf("error type = %T, want *ValidationError", err)
	}
}

func TestValidateMarkersEmptyPage(t *testing.T) {
	err := ValidateMarkers("series", "   \n  ")
	if err == nil {
		t.Fatal("expected SchemaDrift for empty page text")
	}
	drift, ok := err.(*SchemaDrift)
	if !ok {
		t.Fatalf("error type = %T, want *SchemaDrift", err)
	}
	if drift.EntityKind != "series" {
		t.Errorf("drift.EntityKind = %q, want %q", drift.EntityKind, "series")
	}
}

func TestValidateMarkersMissingPattern(t *testing.T) {
	if err := ValidateMarkers("series", "there's nothing useful here"); err == nil {
		t.Fatal("expected SchemaDrift when the seasons array marker is missing")
	}
}

func TestValidateMarkersPresent(t *testing.T) {
	page := `var seasons = [{id: 1}];`
	if err := ValidateMarkers("series", page); err != nil {
		t.Errorf("ValidateMarkers() = %v, want nil", err)
	}
}

func TestValidateFieldsMissingAndNull(t *testing.T) {
	// An explicitly-null required field must fail the same way an absent
	// one does.
	absent := map[string]any{"url": "https://example.test"}
	null := map[string]any{"url": "https://example.test", "name": nil}

	for _, extracted := range []map[string]any{absent, null} {
		if err := ValidateFields("series", extracted); err == nil {
			t.Errorf("ValidateFields(%v) = nil, want SchemaDrift", extracted)
		}
	}
}

func TestValidateFieldsBlankString(t *testing.T) {
	extracted := map[string]any{"name": "   ", "url": "https://example.test"}
	if err := ValidateFields("series", extracted); err == nil {
		t.Error("ValidateFields with a whitespace-only required field should fail")
	}
}

func TestValidateFieldsComplete(t *testing.T) {
	extracted := map[string]any{"name": "Fixed Setup Series", "url": "https://example.test"}
	if err := ValidateFields("series", extracted); err != nil {
		t.Errorf("ValidateFields() = %v, want nil", err)
	}
}

func TestValidateTableNoRequiredHeaders(t *testing.T) {
	if err := ValidateTable("team", nil); err != nil {
		t.Errorf("ValidateTable with no declared headers should short-circuit nil, got %v", err)
	}
}

func TestValidateTableMissingElement(t *testing.T) {
	if err := ValidateTable("race", nil); err == nil {
		t.Error("ValidateTable(nil selection) should report SchemaDrift")
	}
}

func TestValidateTableMissingHeader(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table><thead><tr><th>Pos</th><th>Car</th></tr></thead></table>
	`))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	if err := ValidateTable("race", doc.Find("table").First()); err == nil {
		t.Error("ValidateTable should fail when the driver column header is missing")
	}
}

func TestValidateTableHeadersPresent(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table><thead><tr><th>Pos</th><th>Driver Name</th><th>Car</th></tr></thead></table>
	`))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	if err := ValidateTable("race", doc.Find("table").First()); err != nil {
		t.Errorf("ValidateTable() = %v, want nil", err)
	}
}
