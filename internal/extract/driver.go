package extract

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkoBio/goquery"

	"github.com/simcrawl/racecrawl/internal/fetch"
	"github.com/simcrawl/racecrawl/internal/schemaguard"
)

// DriverResult is what DriverExtractor.Extract returns: a terminal entity
// with no child refs.
type DriverResult struct {
	Metadata DriverMetadata
}

// DriverExtractor fetches a driver page in static mode and returns the
// driver's current rating snapshot.
type DriverExtractor struct {
	Gate *fetch.Gate
}

func (e *DriverExtractor) Extract(ctx context.Context, driverURL string) (*DriverResult, error) {
	driverID, err := queryInt(driverURL, "driver_id")
	if err != nil {
		return nil, err
	}

	doc, err := e.Gate.FetchStatic(ctx, driverURL)
	if err != nil {
		return nil, err
	}
	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil, err
	}

	if err := schemaguard.ValidateMarkers("driver", html); err != nil {
		return nil, err
	}

	name := resolveDisplayName(doc, "driver")
	first, last := ParseDriverName(name)

	meta := DriverMetadata{
		DriverID:  driverID,
		Name:      name,
		FirstName: first,
		LastName:  last,
		URL:       driverURL,
	}

	fields := map[string]any{"name": meta.Name, "url": meta.URL}
	if err := schemaguard.ValidateFields("driver", fields); err != nil {
		return nil, err
	}

	if numbers := strings.TrimSpace(doc.Find(".driver-car-numbers").First().Text()); numbers != "" {
		meta.CarNumbers = strPtr(numbers)
		if primary := firstCarNumber(numbers); primary != "" {
			meta.PrimaryNumber = strPtr(primary)
		}
	}
	if club := strings.TrimSpace(doc.Find(".driver-club").First().Text()); club != "" {
		meta.Club = strPtr(club)
	}
	if href, ok := doc.Find("a.driver-club-link").First().Attr("href"); ok {
		if id, err := queryInt(href, "club_id"); err == nil {
			meta.ClubID = intPtr(id)
		}
	}
	if irating := strings.TrimSpace(doc.Find(".driver-irating").First().Text()); irating != "" {
		if n, err := strconv.Atoi(stripNonDigits(irating)); err == nil {
			meta.IRating = intPtr(n)
		}
	}
	if sr := strings.TrimSpace(doc.Find(".driver-safety-rating").First().Text()); sr != "" {
		if f, ok := parseSafetyRating(sr); ok {
			meta.SafetyRating = &f
		}
	}
	if class := strings.TrimSpace(doc.Find(".driver-license-class").First().Text()); class != "" {
		meta.LicenseClass = strPtr(class)
	}

	return &DriverResult{Metadata: meta}, nil
}

func firstCarNumber(numbers string) string {
	parts := strings.FieldsFunc(numbers, func(r rune) bool {
		return r == ',' || r == '/' || r == ' '
	})
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseSafetyRating accepts the site's "A 4.32" / "4.32" style safety
// rating text and returns just the numeric component.
func parseSafetyRating(s string) (float64, bool) {
	fields := strings.Fields(s)
	for i := len(fields) - 1; i >= 0; i-- {
		if f, err := strconv.ParseFloat(fields[i], 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
