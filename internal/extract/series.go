package extract

import (
	"context"
	"time"

	"github.com/PuerkoBio/goquery"

	"github.com/simcrawl/racecrawl/internal/fetch"
	"github.com/simcrawl/racecrawl/internal/schemaguard"
)

// SeriesResult is what SeriesExtractor.Extract returns.
type SeriesResult struct {
	Metadata SeriesMetadata
	Seasons  []SeasonRef
}

// SeriesExtractor fetches a series page in static mode and returns its
// season list.
type SeriesExtractor struct {
	Gate *fetch.Gate
}

func (e *SeriesExtractor) Extract(ctx context.Context, seriesURL string) (*SeriesResult, error) {
	seriesID, err := queryInt(seriesURL, "series_id")
	if err != nil {
		return nil, err
	}

	doc, err := e.Gate.FetchStatic(ctx, seriesURL)
	if err != nil {
		return nil, err
	}
	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil, err
	}

	if err := schemaguard.ValidateMarkers("series", html); err != nil {
		return nil, err
	}

	name := resolveDisplayName(doc, "series")

	meta := SeriesMetadata{
		SeriesID: seriesID,
		Name:     name,
		URL:      seriesURL,
	}
	if d := doc.Find(".series-description").First().Text(); d != "" {
		meta.Description = strPtr(d)
	}

	fields := map[string]any{"name": meta.Name, "url": meta.URL}
	if err := schemaguard.ValidateFields("series", fields); err != nil {
		return nil, err
	}

	result := &SeriesResult{Metadata: meta}
	seasons := extractJSArray(html, "seasons")
	meta.NumSeasons = intPtr(len(seasons))
	result.Metadata = meta

	for _, raw := range seasons {
		id, ok := asInt(raw, "season_id")
		if !ok {
			id, ok = asInt(raw, "id")
			if !ok {
				continue
			}
		}
		name, _ := asString(raw, "name")
		var seasonURL string
		if u, ok := asString(raw, "url"); ok {
			seasonURL = u
		}
		ref := SeasonRef{
			SeasonID: id,
			Name:     firstNonEmpty(name, "Unknown season"),
			URL:      seasonURL,
		}
		if start, ok := asString(raw, "start_date"); ok {
			if t, err := time.Parse("2006-01-02", start); err == nil {
				ref.StartDate = &t
			}
		}
		result.Seasons = append(result.Seasons, ref)
	}
	return result, nil
}
