package orchestrator

import (
	"context"
	"log/slog"
	"time"
)

// StartMaintenance launches the background driver-refresh and schema-alert
// sweep tickers. Blocks until ctx is cancelled; intended to be called with
// `go`. A zero interval disables both tasks — maintenance is off by
// default and only runs when a caller opts in via --maintenance-interval.
func StartMaintenance(ctx context.Context, o *Orchestrator, leagueIDs []int, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("maintenance ticker started", "interval", interval)

	t := time.NewTicker(interval)
	defer t.Stop()

	runLoop(ctx, t.C, "driver_refresh", func() {
		refreshAllLeagues(ctx, o, leagueIDs, logger)
	})
	logger.Info("maintenance ticker stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, name string, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

func refreshAllLeagues(ctx context.Context, o *Orchestrator, leagueIDs []int, logger *slog.Logger) {
	for _, leagueID := range leagueIDs {
		if ctx.Err() != nil {
			return
		}
		if _, err := o.RefreshAllDrivers(ctx, leagueID, nil, false); err != nil {
			logger.Warn("driver refresh sweep failed", "league_id", leagueID, "error", err)
		}
	}
	sweepSchemaAlerts(ctx, o, logger)
}

// sweepSchemaAlerts surfaces unresolved drift alerts in the log so an
// operator watching the process notices a structural break without having
// to poll the table directly. It does not auto-resolve anything — an alert
// is only cleared once a human (or a future extractor update) calls
// ResolveSchemaAlert.
func sweepSchemaAlerts(ctx context.Context, o *Orchestrator, logger *slog.Logger) {
	alerts, err := o.Store.ListUnresolvedSchemaAlerts(ctx)
	if err != nil {
		logger.Warn("schema alert sweep failed", "error", err)
		return
	}
	for _, a := range alerts {
		logger.Warn("unresolved schema alert",
			"alert_id", a.AlertID,
			"entity_type", a.EntityType,
			"alert_type", a.AlertType,
			"details", a.Details,
			"age", time.Since(a.Timestamp).Round(time.Minute),
		)
	}
}
