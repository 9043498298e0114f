package store

import (
	"context"

	"github.com/simcrawl/racecrawl/internal/config"
)

// LogScrape appends a row to the append-only scrape audit log. Validates
// that kind and outcome are known enum members before writing.
func (s *Store) LogScrape(ctx context.Context, kind EntityKind, url string, outcome ScrapeOutcome, entityID *int, errMsg *string, elapsedMs *int) error {
	if !validEntityKind(kind) {
		return &ValidationError{Field: "entity_type", Detail: "unknown kind " + string(kind)}
	}
	if !validOutcome(outcome) {
		return &ValidationError{Field: "status", Detail: "unknown outcome " + string(outcome)}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.ScrapeLogTable+` (entity_type, entity_id, entity_url, status, error_message, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		kind, entityID, url, outcome, errMsg, elapsedMs,
	)
	return err
}
