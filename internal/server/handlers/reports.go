package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/maruel/reportdb/internal/models"
	"github.com/maruel/reportdb/internal/server/dto"
	"github.com/maruel/reportdb/internal/storage"
)

// ReportHandler handles report documents.
type ReportHandler struct {
	Svc *Services
	Cfg *Config
}

// ListReports returns the metadata of every report.
func (h *ReportHandler) ListReports(ctx context.Context, req *dto.ListReportsRequest) (*dto.ListReportsResponse, error) {
	list, err := h.Svc.Reports.ListMetadata(ctx)
	if err != nil {
		return nil, apiError(err, "failed to load report")
	}
	return &dto.ListReportsResponse{Reports: list}, nil
}

// GetReport loads a report by slug.
func (h *ReportHandler) GetReport(ctx context.Context, req *dto.GetReportRequest) (*dto.ReportResponse, error) {
	r, err := h.load(ctx, req.Slug)
	if err != nil {
		return nil, err
	}
	return &dto.ReportResponse{Report: r}, nil
}

// CreateReport saves a new report. The slug is derived from the name.
func (h *ReportHandler) CreateReport(ctx context.Context, req *dto.CreateReportRequest) (*dto.ReportResponse, error) {
	r, err := h.Svc.Reports.Save(ctx, &models.Report{
		Name:        req.Name,
		Description: req.Description,
		Elements:    req.Elements,
	})
	if err != nil {
		return nil, apiError(err, "failed to save report")
	}
	slog.InfoContext(ctx, "report created", "slug", r.Slug, "elements", len(r.Elements))
	return &dto.ReportResponse{Report: r}, nil
}

// SaveReport overwrites the report stored under the slug. Renaming the report
// may change its slug.
func (h *ReportHandler) SaveReport(ctx context.Context, req *dto.SaveReportRequest) (*dto.ReportResponse, error) {
	r, ok, err := h.Svc.Reports.Edit(ctx, req.Slug, func(r *models.Report) error {
		r.Name = req.Name
		r.Description = req.Description
		r.Elements = req.Elements
		return nil
	})
	if err != nil {
		return nil, apiError(err, "failed to save report")
	}
	if !ok {
		return nil, dto.ReportNotFound(req.Slug)
	}
	return &dto.ReportResponse{Report: r}, nil
}

// DeleteReport deletes a report by ID. Deleting a missing report succeeds.
func (h *ReportHandler) DeleteReport(ctx context.Context, req *dto.DeleteReportRequest) (*dto.OkResponse, error) {
	if err := h.Svc.Reports.DeleteByID(ctx, req.ID); err != nil {
		return nil, apiError(err, "failed to delete report")
	}
	slog.InfoContext(ctx, "report deleted", "id", req.ID)
	return &dto.OkResponse{Ok: true}, nil
}

// DefinitionYAML writes the YAML form of a report.
// This is a raw http.HandlerFunc because the response is not JSON.
func (h *ReportHandler) DefinitionYAML(w http.ResponseWriter, r *http.Request) {
	rep, err := h.load(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	b, err := storage.EncodeReportYAML(rep)
	if err != nil {
		writeErrorResponse(w, dto.InternalWithError("failed to encode report", err))
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": rep.Slug + ".yaml"}))
	if _, err := w.Write(b); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write report definition", "err", err)
	}
}

// ImportYAML saves the reports of a YAML document holding one report, as
// written by DefinitionYAML, or a sequence of them. Imported reports always
// get a new ID and slug.
func (h *ReportHandler) ImportYAML(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.Cfg.MaxBodyBytes)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeErrorResponse(w, dto.PayloadTooLarge(mbe.Limit))
			return
		}
		writeErrorResponse(w, dto.BadRequest("Failed to read request body"))
		return
	}
	docs, err := storage.DecodeReportsYAML(data)
	if err != nil {
		writeErrorResponse(w, dto.BadRequest("invalid report definition: "+err.Error()))
		return
	}
	for _, d := range docs {
		if err := d.Validate(); err != nil {
			writeErrorResponse(w, apiError(err, "invalid report"))
			return
		}
	}
	resp := dto.ListReportsResponse{Reports: make([]models.ReportMetadata, 0, len(docs))}
	for _, d := range docs {
		d.ID = 0
		d.Slug = ""
		saved, err := h.Svc.Reports.Save(ctx, d)
		if err != nil {
			writeErrorResponse(w, apiError(err, "failed to save report"))
			return
		}
		resp.Reports = append(resp.Reports, saved.Metadata())
	}
	slog.InfoContext(ctx, "reports imported", "count", len(docs))
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ReportHandler) load(ctx context.Context, slug string) (*models.Report, error) {
	r, ok, err := h.Svc.Reports.LoadBySlug(ctx, slug)
	if err != nil {
		return nil, apiError(err, "failed to load report")
	}
	if !ok {
		return nil, dto.ReportNotFound(slug)
	}
	return r, nil
}
