package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkoBio/goquery"

	"github.com/simcrawl/racecrawl/internal/fetch"
	"github.com/simcrawl/racecrawl/internal/schemaguard"
)

// LeagueResult is what LeagueExtractor.Extract returns: page-level metadata
// plus the series list (and an optional teams-index URL hint) discovered
// on the league's own page.
type LeagueResult struct {
	Metadata   LeagueMetadata
	Series     []SeriesRef
	TeamsIndex *TeamsURLHint
}

// LeagueExtractor fetches a league page in static mode and returns its
// series list plus an optional teams-index URL hint.
type LeagueExtractor struct {
	Gate *fetch.Gate
}

func (e *LeagueExtractor) Extract(ctx context.Context, leagueURL string) (*LeagueResult, error) {
	leagueID, err := queryInt(leagueURL, "league_id")
	if err != nil {
		return nil, err
	}

	doc, err := e.Gate.FetchStatic(ctx, leagueURL)
	if err != nil {
		return nil, err
	}
	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil, err
	}

	if err := schemaguard.ValidateMarkers("league", html); err != nil {
		return nil, err
	}

	name := resolveDisplayName(doc, "league")
	var description *string
	if d := strings.TrimSpace(doc.Find(".league-description").First().Text()); d != "" {
		description = strPtr(d)
	}

	meta := LeagueMetadata{
		LeagueID:    leagueID,
		Name:        name,
		Description: description,
		URL:         leagueURL,
	}

	fields := map[string]any{"name": meta.Name, "url": meta.URL}
	if err := schemaguard.ValidateFields("league", fields); err != nil {
		return nil, err
	}

	result := &LeagueResult{Metadata: meta}
	for _, raw := range extractPushObjects(html, "series") {
		id, ok := asInt(raw, "id")
		if !ok {
			continue
		}
		seriesName, _ := asString(raw, "name")
		if strings.TrimSpace(seriesName) == "" {
			seriesName = seriesNameFromCard(doc, id)
		}
		var seriesURL string
		if u, ok := asString(raw, "url"); ok {
			seriesURL = u
		} else {
			seriesURL = "https://members.iracing.com/membersite/member/Series.do?series_id=" + strconv.Itoa(id)
		}
		var desc *string
		if d, ok := asString(raw, "description"); ok && d != "" {
			desc = strPtr(d)
		}
		result.Series = append(result.Series, SeriesRef{
			SeriesID:    id,
			Name:        firstNonEmpty(seriesName, "Unknown series"),
			Description: desc,
			URL:         seriesURL,
		})
	}

	if href, ok := doc.Find("a.teams-index-link").First().Attr("href"); ok && href != "" {
		result.TeamsIndex = &TeamsURLHint{URL: href}
	}

	return result, nil
}

// seriesNameFromCard falls back to the DOM when the series.push() payload
// carries no name field: it locates the card containing this series' own
// link and runs it through the two-class-marker fallback chain.
func seriesNameFromCard(doc *goquery.Document, seriesID int) string {
	anchor := doc.Find(fmt.Sprintf(`a[href*="series_id=%d"]`, seriesID)).First()
	if anchor.Length() == 0 {
		return ""
	}
	card := anchor.Closest(".series-card")
	if card.Length() == 0 {
		card = anchor
	}
	return seriesDisplayName(card)
}

func firstNonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
