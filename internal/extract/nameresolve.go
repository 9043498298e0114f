package extract

import (
	"strings"

	"github.com/PuerkoBio/goquery"
)

// resolveDisplayName implements the ordered fallback chain every extractor
// uses to read an entity's display name off its own page: first a
// named/bold dropdown label, then secondary headings, then the page title
// with a known prefix stripped, finally a constant "Unknown <kind>".
func resolveDisplayName(doc *goquery.Document, kind string) string {
	if sel := doc.Find(".dropdown-toggle b, .dropdown-toggle strong").First(); sel.Length() > 0 {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			return name
		}
	}
	for _, h := range []string{"h1", "h2.subtitle", "h2"} {
		if sel := doc.Find(h).First(); sel.Length() > 0 {
			if name := strings.TrimSpace(sel.Text()); name != "" {
				return name
			}
		}
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		for _, prefix := range []string{"iRacing | ", "iRacing - ", "Results | "} {
			if strings.HasPrefix(title, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(title, prefix))
			}
		}
		return title
	}
	return "Unknown " + kind
}

// seriesDisplayName applies the league page's fragile two-class-marker
// selector ahead of the generic fallback chain; schemaguard carries a
// matching marker for the same selector.
func seriesDisplayName(card *goquery.Selection) string {
	if sel := card.Find(".series-title.series-name, .series-name.series-title").First(); sel.Length() > 0 {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			return name
		}
	}
	if sel := card.Find(".series-title, .series-name").First(); sel.Length() > 0 {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(card.Text()); name != "" {
		return name
	}
	return "Unknown series"
}
