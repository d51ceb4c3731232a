// Package server wires the report API handlers into an http.Handler.
package server

import (
	"net/http"

	"github.com/maruel/reportdb/internal/server/dto"
	"github.com/maruel/reportdb/internal/server/handlers"
	"github.com/maruel/reportdb/internal/server/ratelimit"
)

// DefaultMaxBodyBytes limits JSON request bodies when the Config leaves it
// unset.
const DefaultMaxBodyBytes = 4 << 20

// Router serves the API under /api/v1.
type Router struct {
	handler http.Handler
	export  *ratelimit.Tier
}

// NewRouter creates and configures the HTTP router. exportTier limits the
// endpoints that rasterize a page; nil disables limiting.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, exportTier *ratelimit.Tier) *Router {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	mux := http.NewServeMux()

	health := handlers.NewHealthHandler(cfg.Version)
	reports := &handlers.ReportHandler{Svc: svc, Cfg: cfg}
	elements := &handlers.ElementHandler{Svc: svc}
	exports := handlers.NewExportHandler(svc, cfg)
	assets := &handlers.AssetHandler{Svc: svc, Cfg: cfg}
	schedules := handlers.NewScheduleHandler(svc)
	schema := &handlers.SchemaHandler{}

	mux.Handle("GET /api/v1/health", Wrap(health.Health, cfg))

	// Reports
	mux.Handle("GET /api/v1/reports", Wrap(reports.ListReports, cfg))
	mux.Handle("POST /api/v1/reports", Wrap(reports.CreateReport, cfg))
	mux.HandleFunc("POST /api/v1/reports/import", reports.ImportYAML)
	mux.Handle("GET /api/v1/reports/{slug}", Wrap(reports.GetReport, cfg))
	mux.Handle("PUT /api/v1/reports/{slug}", Wrap(reports.SaveReport, cfg))
	mux.Handle("DELETE /api/v1/reports/id/{id}", Wrap(reports.DeleteReport, cfg))
	mux.HandleFunc("GET /api/v1/reports/{slug}/definition.yaml", reports.DefinitionYAML)

	// Elements
	const el = "/api/v1/reports/{slug}/elements"
	mux.Handle("POST "+el, Wrap(elements.AddElement, cfg))
	mux.Handle("PATCH "+el+"/{eid}", Wrap(elements.UpdateElement, cfg))
	mux.Handle("DELETE "+el+"/{eid}", Wrap(elements.DeleteElement, cfg))
	mux.Handle("POST "+el+"/{eid}/front", Wrap(elements.BringToFront, cfg))
	mux.Handle("POST "+el+"/{eid}/back", Wrap(elements.SendToBack, cfg))

	// Table content
	mux.Handle("POST "+el+"/{eid}/table/columns", Wrap(elements.AddColumn, cfg))
	mux.Handle("PATCH "+el+"/{eid}/table/columns/{col}", Wrap(elements.RenameColumn, cfg))
	mux.Handle("DELETE "+el+"/{eid}/table/columns/{index}", Wrap(elements.RemoveColumn, cfg))
	mux.Handle("POST "+el+"/{eid}/table/rows", Wrap(elements.AddRow, cfg))
	mux.Handle("DELETE "+el+"/{eid}/table/rows/{index}", Wrap(elements.RemoveRow, cfg))
	mux.Handle("PUT "+el+"/{eid}/table/cells/{row}/{col}", Wrap(elements.SetCell, cfg))

	// Chart content
	mux.Handle("POST "+el+"/{eid}/chart/points", Wrap(elements.AddPoint, cfg))
	mux.Handle("PUT "+el+"/{eid}/chart/points/{index}", Wrap(elements.SetPoint, cfg))
	mux.Handle("DELETE "+el+"/{eid}/chart/points/{index}", Wrap(elements.RemovePoint, cfg))

	// Export
	mux.Handle("GET /api/v1/reports/{slug}/export.pdf", RateLimited(exportTier, http.HandlerFunc(exports.ExportReport)))
	mux.Handle("GET /api/v1/reports/{slug}/preview.png", RateLimited(exportTier, http.HandlerFunc(exports.Preview)))
	mux.Handle("POST /api/v1/export", RateLimited(exportTier, http.HandlerFunc(exports.ExportElements)))
	mux.Handle("GET /api/v1/schema/element", Wrap(schema.ElementSchema, cfg))

	// Assets
	mux.HandleFunc("POST /api/v1/assets", assets.Upload)
	mux.Handle("POST /api/v1/assets/prune", Wrap(assets.Prune, cfg))
	mux.HandleFunc("GET /api/v1/assets/{ref}", assets.Serve)

	// Schedules
	mux.Handle("GET /api/v1/schedules", Wrap(schedules.ListSchedules, cfg))
	mux.Handle("POST /api/v1/schedules", Wrap(schedules.CreateSchedule, cfg))
	mux.Handle("PATCH /api/v1/schedules/{id}", Wrap(schedules.UpdateSchedule, cfg))
	mux.Handle("DELETE /api/v1/schedules/{id}", Wrap(schedules.DeleteSchedule, cfg))
	mux.Handle("POST /api/v1/schedules/{id}/run", RateLimited(exportTier, Wrap(schedules.RunSchedule, cfg)))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, dto.NotFound("endpoint"))
	})

	return &Router{handler: LogRequests(mux), export: exportTier}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.handler.ServeHTTP(w, r)
}

// Close stops the rate limiter cleanup goroutines.
func (rt *Router) Close() error {
	rt.export.Close()
	return nil
}
