package handlers

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/maruel/reportdb/internal/models"
	"github.com/maruel/reportdb/internal/schedule"
	"github.com/maruel/reportdb/internal/server/dto"
)

// ScheduleHandler manages scheduled exports. Every change is applied to the
// running scheduler.
type ScheduleHandler struct {
	Svc     *Services
	reports ReportHandler
}

// NewScheduleHandler returns a ScheduleHandler.
func NewScheduleHandler(svc *Services) *ScheduleHandler {
	return &ScheduleHandler{Svc: svc, reports: ReportHandler{Svc: svc}}
}

// ListSchedules lists every schedule, or those of the report given by slug.
func (h *ScheduleHandler) ListSchedules(ctx context.Context, req *dto.ListSchedulesRequest) (*dto.ListSchedulesResponse, error) {
	if req.Report == "" {
		return &dto.ListSchedulesResponse{Schedules: h.Svc.Schedules.List()}, nil
	}
	r, err := h.reports.load(ctx, req.Report)
	if err != nil {
		return nil, err
	}
	return &dto.ListSchedulesResponse{Schedules: h.Svc.Schedules.ListByReport(r.ID)}, nil
}

// CreateSchedule creates a schedule. Schedules are active unless isActive is
// false.
func (h *ScheduleHandler) CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	r, err := h.reports.load(ctx, req.ReportSlug)
	if err != nil {
		return nil, err
	}
	active := req.IsActive == nil || *req.IsActive
	sc, err := h.Svc.Schedules.Create(ctx, &models.Schedule{
		ReportID:   r.ID,
		ReportName: r.Name,
		ReportSlug: r.Slug,
		Frequency:  req.Frequency,
		Time:       req.Time,
		Days:       req.Days,
		DayOfMonth: req.DayOfMonth,
		CustomCron: req.CustomCron,
		IsActive:   active,
	})
	if err != nil {
		return nil, apiError(err, "failed to save schedule")
	}
	if err := h.Svc.Scheduler.Add(sc); err != nil {
		return nil, apiError(err, "failed to register schedule")
	}
	slog.InfoContext(ctx, "schedule created", "schedule", sc.ID, "report", sc.ReportSlug, "next", sc.NextRun)
	return &dto.ScheduleResponse{Schedule: sc}, nil
}

// UpdateSchedule pauses or resumes a schedule.
func (h *ScheduleHandler) UpdateSchedule(ctx context.Context, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	var sc *models.Schedule
	var err error
	if req.IsActive == nil {
		sc, err = h.Svc.Schedules.Toggle(ctx, req.ID)
	} else {
		sc, err = h.Svc.Schedules.SetActive(ctx, req.ID, *req.IsActive)
	}
	if err != nil {
		return nil, apiError(err, "failed to save schedule")
	}
	if err := h.Svc.Scheduler.Add(sc); err != nil {
		return nil, apiError(err, "failed to register schedule")
	}
	return &dto.ScheduleResponse{Schedule: sc}, nil
}

// DeleteSchedule deletes a schedule. Deleting a missing schedule succeeds.
func (h *ScheduleHandler) DeleteSchedule(ctx context.Context, req *dto.ScheduleRequest) (*dto.OkResponse, error) {
	h.Svc.Scheduler.Remove(req.ID)
	if err := h.Svc.Schedules.Delete(ctx, req.ID); err != nil {
		return nil, apiError(err, "failed to delete schedule")
	}
	return &dto.OkResponse{Ok: true}, nil
}

// RunSchedule exports the schedule's report now, as if the schedule fired.
func (h *ScheduleHandler) RunSchedule(ctx context.Context, req *dto.ScheduleRequest) (*dto.RunScheduleResponse, error) {
	sc, ok := h.Svc.Schedules.Get(req.ID)
	if !ok {
		return nil, dto.NotFound("schedule")
	}
	path, err := h.Svc.Scheduler.Run(ctx, req.ID)
	if err != nil {
		if errors.Is(err, schedule.ErrReportNotFound) {
			return nil, dto.ReportNotFound(sc.ReportSlug)
		}
		return nil, dto.ExportFailed(err)
	}
	if updated, ok := h.Svc.Schedules.Get(req.ID); ok {
		sc = updated
	}
	return &dto.RunScheduleResponse{Schedule: sc, File: filepath.Base(path)}, nil
}
