// Package schemaguard validates that a fetched page (or the data extracted
// from it) still matches the structural contract the site is expected to
// have, so that structural drift on the remote site surfaces as a loud,
// diagnosable failure instead of silently-wrong rows.
//
// SchemaGuard is pure: it never fetches and holds no state beyond the
// catalogue below.
package schemaguard

import (
	"regexp"
	"strings"

	"github.com/PuerkoBio/goquery"
)

// entitySchema is one catalogue entry: the declared marker patterns,
// required extracted fields, and required table header names for one
// entity kind.
type entitySchema struct {
	markers         []*regexp.Regexp
	requiredFields  []string
	requiredHeaders []string // case-insensitive, extra columns allowed
}

// catalogue is the closed set of entity kinds SchemaGuard recognizes.
var catalogue = map[string]entitySchema{
	"league": {
		markers: []*regexp.Regexp{
			regexp.MustCompile(`series\.push\(\{`),
			// The league page's series-name fallback chain depends on an
			// element combining these two class markers. This is the single
			// most fragile rule in the system — its disappearance means the
			// fallback chain itself is gone, not just degraded.
			regexp.MustCompile(`class=["'][^"']*series-title[^"']*series-name[^"']*["']|class=["'][^"']*series-name[^"']*series-title[^"']*["']`),
		},
		requiredFields: []string{"name", "url"},
	},
	"series": {
		markers: []*regexp.Regexp{
			regexp.MustCompile(`seasons\s*=\s*\[`),
		},
		requiredFields: []string{"name", "url"},
	},
	"season": {
		markers: []*regexp.Regexp{
			regexp.MustCompile(`n\s*:\s*["']`),
			regexp.MustCompile(`scrt\s*:\s*\d+`),
		},
		requiredFields:  []string{"name", "url"},
		requiredHeaders: []string{"race", "date", "track"},
	},
	"race": {
		markers: []*regexp.Regexp{
			regexp.MustCompile(`ns\s*:\s*\d+`),
			regexp.MustCompile(`nr\s*:\s*\d+`),
		},
		requiredFields:  []string{"url"},
		requiredHeaders: []string{"pos", "driver", "car"},
	},
	"driver": {
		markers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)driver`),
		},
		requiredFields: []string{"name", "url"},
	},
	"team": {
		markers:        nil,
		requiredFields: []string{"name", "url"},
	},
}

// SchemaDrift is raised when a page or extracted mapping fails to match its
// entity kind's declared contract.
type SchemaDrift struct {
	EntityKind string
	Detail     string
}

func (e *SchemaDrift) Error() string {
	return "schema drift in " + e.EntityKind + ": " + e.Detail
}

// ValidationError is raised for an unrecognized entity kind.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return "schemaguard validation error: " + e.Detail
}

func schemaFor(entityKind string) (entitySchema, error) {
	s, ok := catalogue[entityKind]
	if !ok {
		return entitySchema{}, &ValidationError{Detail: "unknown entity kind " + entityKind}
	}
	return s, nil
}

// ValidateMarkers fails with SchemaDrift if any declared marker pattern for
// entityKind is missing from rawPageText, or if rawPageText is empty or
// all-whitespace.
func ValidateMarkers(entityKind, rawPageText string) error {
	schema, err := schemaFor(entityKind)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rawPageText) == "" {
		return &SchemaDrift{EntityKind: entityKind, Detail: "page text is empty"}
	}
	for _, m := range schema.markers {
		if !m.MatchString(rawPageText) {
			return &SchemaDrift{EntityKind: entityKind, Detail: "missing marker pattern " + m.String()}
		}
	}
	return nil
}

// ValidateFields fails with SchemaDrift if any declared required field of
// extracted is absent or explicitly nil.
func ValidateFields(entityKind string, extracted map[string]any) error {
	schema, err := schemaFor(entityKind)
	if err != nil {
		return err
	}
	for _, f := range schema.requiredFields {
		v, ok := extracted[f]
		if !ok || v == nil {
			return &SchemaDrift{EntityKind: entityKind, Detail: "missing required field " + f}
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return &SchemaDrift{EntityKind: entityKind, Detail: "required field " + f + " is empty"}
		}
	}
	return nil
}

// ValidateTable fails with SchemaDrift if the table's header row does not
// exist, exposes fewer columns than declared, or is missing any required
// header name (case-insensitive; extra columns are allowed).
func ValidateTable(entityKind string, table *goquery.Selection) error {
	schema, err := schemaFor(entityKind)
	if err != nil {
		return err
	}
	if len(schema.requiredHeaders) == 0 {
		return nil
	}
	if table == nil || table.Length() == 0 {
		return &SchemaDrift{EntityKind: entityKind, Detail: "table element not found"}
	}

	headerRow := table.Find("thead tr").First()
	if headerRow.Length() == 0 {
		headerRow = table.Find("tr").First()
	}
	if headerRow.Length() == 0 {
		return &SchemaDrift{EntityKind: entityKind, Detail: "header row not found"}
	}

	var headers []string
	headerRow.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
	})

	if len(headers) < len(schema.requiredHeaders) {
		return &SchemaDrift{EntityKind: entityKind, Detail: "table exposes fewer columns than declared"}
	}

	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	for _, want := range schema.requiredHeaders {
		found := false
		for h := range present {
			if strings.Contains(h, strings.ToLower(want)) {
				found = true
				break
			}
		}
		if !found {
			return &SchemaDrift{EntityKind: entityKind, Detail: "missing required header " + want}
		}
	}
	return nil
}
