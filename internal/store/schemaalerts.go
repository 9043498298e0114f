package store

import (
	"context"
	"time"

	"github.com/simcrawl/racecrawl/internal/config"
)

// SchemaAlert is one unresolved-or-resolved schema-drift record.
type SchemaAlert struct {
	AlertID   int
	EntityType EntityKind
	AlertType string
	Details   string
	URL       *string
	Resolved  bool
	Timestamp time.Time
}

// RecordSchemaAlert appends a SchemaAlert row. Called by the orchestrator
// when an extractor's page is rejected by SchemaGuard.
func (s *Store) RecordSchemaAlert(ctx context.Context, kind EntityKind, alertKind, detail string, url *string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.SchemaAlertTable+` (entity_type, alert_type, details, url)
		VALUES ($1, $2, $3, $4)`,
		kind, alertKind, detail, url,
	)
	return err
}

// ListUnresolvedSchemaAlerts returns every alert not yet marked resolved,
// oldest first, for the maintenance sweep to surface.
func (s *Store) ListUnresolvedSchemaAlerts(ctx context.Context) ([]SchemaAlert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT alert_id, entity_type, alert_type, details, url, resolved, timestamp
		FROM `+config.SchemaAlertTable+`
		WHERE resolved = false
		ORDER BY timestamp`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SchemaAlert
	for rows.Next() {
		var a SchemaAlert
		if err := rows.Scan(&a.AlertID, &a.EntityType, &a.AlertType, &a.Details, &a.URL, &a.Resolved, &a.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ResolveSchemaAlert marks an alert resolved so the maintenance sweep does
// not keep re-reporting it.
func (s *Store) ResolveSchemaAlert(ctx context.Context, alertID int) error {
	_, err := s.pool.Exec(ctx, `UPDATE `+config.SchemaAlertTable+` SET resolved = true WHERE alert_id = $1`, alertID)
	return err
}
