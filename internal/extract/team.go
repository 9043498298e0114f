package extract

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkoBio/goquery"

	"github.com/simcrawl/racecrawl/internal/fetch"
	"github.com/simcrawl/racecrawl/internal/schemaguard"
)

// TeamRef is one row parsed from a league's teams-index page.
type TeamRef struct {
	TeamID      int
	Name        string
	DriverCount *int
	URL         *string
}

// TeamIndexResult is what TeamIndexExtractor.Extract returns.
type TeamIndexResult struct {
	Teams []TeamRef
}

// TeamIndexExtractor fetches the optional teams-index page a league may
// advertise and returns every listed team, parsed positionally from a
// static table.
type TeamIndexExtractor struct {
	Gate *fetch.Gate
}

func (e *TeamIndexExtractor) Extract(ctx context.Context, teamsURL string) (*TeamIndexResult, error) {
	doc, err := e.Gate.FetchStatic(ctx, teamsURL)
	if err != nil {
		return nil, err
	}
	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return nil, err
	}
	if err := schemaguard.ValidateMarkers("team", html); err != nil {
		return nil, err
	}

	result := &TeamIndexResult{}
	doc.Find("table.teams-table tbody tr").Each(func(_ int, row *goquery.Selection) {
		anchor := row.Find("a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		id, err := queryInt(href, "team_id")
		if err != nil {
			return
		}
		name := strings.TrimSpace(anchor.Text())
		if name == "" {
			return
		}
		ref := TeamRef{TeamID: id, Name: name, URL: strPtr(href)}
		if cells := row.Find("td"); cells.Length() > 1 {
			if n, err := strconv.Atoi(strings.TrimSpace(cells.Eq(1).Text())); err == nil {
				ref.DriverCount = intPtr(n)
			}
		}
		result.Teams = append(result.Teams, ref)
	})
	return result, nil
}
