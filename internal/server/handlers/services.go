// Package handlers implements the HTTP handlers of the report API.
package handlers

import (
	"github.com/maruel/reportdb/internal/export"
	"github.com/maruel/reportdb/internal/render"
	"github.com/maruel/reportdb/internal/schedule"
	"github.com/maruel/reportdb/internal/storage"
)

// Services holds the service dependencies of the handlers.
type Services struct {
	Reports   *storage.ReportService
	Schedules *storage.ScheduleService
	Assets    *storage.AssetService
	Renderer  *render.Renderer
	Exporter  *export.Pipeline
	Scheduler *schedule.Scheduler
}

// Config holds the configuration values needed by handlers.
type Config struct {
	Version string
	// MaxBodyBytes limits JSON request bodies.
	MaxBodyBytes int64
	// MaxUploadBytes limits uploaded assets.
	MaxUploadBytes int64
}
