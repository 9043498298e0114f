// Package statusapi exposes a small HTTP surface for observing a
// long-running crawl: liveness, the current Progress snapshot, and the
// unresolved schema-drift alerts, which POST /alerts/{id}/resolve marks
// resolved in the store.
package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/simcrawl/racecrawl/internal/config"
	"github.com/simcrawl/racecrawl/internal/orchestrator"
	"github.com/simcrawl/racecrawl/internal/store"
)

// ProgressSource is satisfied by *orchestrator.Orchestrator and lets the
// handler read the live snapshot without depending on a concrete run.
type ProgressSource interface {
	GetProgress() *orchestrator.Progress
}

// AlertSource is satisfied by *store.Store and lets the handler surface and
// clear schema-drift alerts without depending on a concrete run.
type AlertSource interface {
	ListUnresolvedSchemaAlerts(ctx context.Context) ([]store.SchemaAlert, error)
	ResolveSchemaAlert(ctx context.Context, alertID int) error
}

// NewRouter builds the status router: health check, progress snapshot,
// schema-drift alerts, and swagger docs describing all three.
func NewRouter(source ProgressSource, alerts AlertSource, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS", "POST"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	h := &handler{source: source, alerts: alerts}

	r.Get("/healthz", h.healthz)
	r.Get("/progress", h.progress)
	r.Get("/alerts", h.listAlerts)
	r.Post("/alerts/{id}/resolve", h.resolveAlert)
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	return r
}

type handler struct {
	source ProgressSource
	alerts AlertSource
}

// healthz reports liveness.
//
// @Summary Liveness check
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// progress reports the current run's accumulated counters and errors.
//
// @Summary Current crawl progress
// @Success 200 {object} orchestrator.Progress
// @Router /progress [get]
func (h *handler) progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.GetProgress())
}

// listAlerts reports every unresolved schema-drift alert, oldest first.
//
// @Summary Unresolved schema-drift alerts
// @Success 200 {array} store.SchemaAlert
// @Router /alerts [get]
func (h *handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.ListUnresolvedSchemaAlerts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// resolveAlert marks one schema-drift alert resolved so it stops being
// reported by listAlerts and the maintenance sweep's log output.
//
// @Summary Resolve a schema-drift alert
// @Param id path int true "Alert id"
// @Success 204
// @Router /alerts/{id}/resolve [post]
func (h *handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid alert id", http.StatusBadRequest)
		return
	}
	if err := h.alerts.ResolveSchemaAlert(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve builds the status HTTP server for addr with fixed timeouts. It does
// not start it; the caller runs ListenAndServe and Shutdown.
func Serve(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
