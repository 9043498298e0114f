package extract

import (
	"net/url"
	"strconv"
)

// ParseLeagueID parses the league_id query parameter off a league URL, the
// same way LeagueExtractor does internally. Exported so callers that need a
// league's external id before extraction runs (e.g. to address the
// maintenance ticker at a league) don't have to duplicate the parsing rule.
func ParseLeagueID(leagueURL string) (int, error) {
	return queryInt(leagueURL, "league_id")
}

// queryInt parses an integer query parameter off rawURL. Every extractor
// parses its entity's external id this way; returns a ValidationError if the
// parameter is absent or not an integer.
func queryInt(rawURL, param string) (int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, &ValidationError{Detail: "cannot parse URL " + rawURL + ": " + err.Error()}
	}
	raw := u.Query().Get(param)
	if raw == "" {
		return 0, &ValidationError{Detail: "missing query parameter " + param + " in " + rawURL}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Detail: "non-integer query parameter " + param + " in " + rawURL}
	}
	return n, nil
}
