package dto

import "github.com/maruel/reportdb/internal/models"

// OkResponse is a simple success response.
type OkResponse struct {
	Ok bool `json:"ok"`
}

// HealthResponse is the response of the health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ListReportsResponse lists report metadata in ID order.
type ListReportsResponse struct {
	Reports []models.ReportMetadata `json:"reports"`
}

// ReportResponse contains a full report.
type ReportResponse struct {
	Report *models.Report `json:"report"`
}

// ElementResponse contains one element after an edit and the slug of the
// saved report.
type ElementResponse struct {
	Element models.Element `json:"element"`
	Slug    string         `json:"slug"`
}

// AssetResponse describes an uploaded image. Src is usable as an image
// element source.
type AssetResponse struct {
	Ref         string `json:"ref"`
	Src         string `json:"src"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// ListSchedulesResponse lists schedules in creation order.
type ListSchedulesResponse struct {
	Schedules []*models.Schedule `json:"schedules"`
}

// ScheduleResponse contains one schedule.
type ScheduleResponse struct {
	Schedule *models.Schedule `json:"schedule"`
}

// RunScheduleResponse is the result of running a schedule now.
type RunScheduleResponse struct {
	Schedule *models.Schedule `json:"schedule"`
	File     string           `json:"file"`
}
