package handlers

import (
	"bytes"
	"image/png"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/maruel/reportdb/internal/export"
	"github.com/maruel/reportdb/internal/models"
	"github.com/maruel/reportdb/internal/render"
	"github.com/maruel/reportdb/internal/server/dto"
)

// MaxPreviewScale bounds the preview supersampling factor.
const MaxPreviewScale = render.MaxScale

// ExportHandler serves PDF exports and preview rasters. These are raw
// http.HandlerFuncs because the responses are not JSON.
type ExportHandler struct {
	Svc     *Services
	Cfg     *Config
	reports ReportHandler
}

// NewExportHandler returns an ExportHandler.
func NewExportHandler(svc *Services, cfg *Config) *ExportHandler {
	return &ExportHandler{Svc: svc, Cfg: cfg, reports: ReportHandler{Svc: svc, Cfg: cfg}}
}

// ExportReport writes the PDF of a stored report.
func (h *ExportHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.load(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	h.writePDF(w, r, rep.Elements)
}

// ExportElements writes the PDF of an element list sent in the request body.
func (h *ExportHandler) ExportElements(w http.ResponseWriter, r *http.Request) {
	var req dto.ExportRequest
	if err := decodeBody(w, r, h.Cfg.MaxBodyBytes, &req); err != nil {
		writeErrorResponse(w, err)
		return
	}
	h.writePDF(w, r, req.Elements)
}

func (h *ExportHandler) writePDF(w http.ResponseWriter, r *http.Request, elements []models.Element) {
	ctx := r.Context()
	res, err := h.Svc.Exporter.Export(ctx, elements)
	if err != nil {
		slog.ErrorContext(ctx, "export failed", "err", err)
		writeErrorResponse(w, dto.ExportFailed(err))
		return
	}
	hdr := w.Header()
	hdr.Set("Content-Type", "application/pdf")
	hdr.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.DefaultFilename}))
	hdr.Set("Content-Length", strconv.Itoa(len(res.PDF)))
	hdr.Set("X-Charts-Degraded", strconv.Itoa(res.Stats.ChartsDegraded))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.PDF); err != nil {
		slog.ErrorContext(ctx, "Failed to write export", "err", err)
	}
}

// Preview writes the interactive canvas of a stored report as PNG.
//
// Query parameters: selected (element id), scale (1 to MaxPreviewScale) and
// grid (any non-empty value draws the dot grid).
func (h *ExportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	opts := render.PreviewOptions{Scale: 1, Selected: q.Get("selected"), Grid: q.Get("grid") != ""}
	if v := q.Get("scale"); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil || s < 1 || s > MaxPreviewScale {
			writeErrorResponse(w, dto.InvalidField("scale", "must be between 1 and "+strconv.Itoa(MaxPreviewScale)))
			return
		}
		opts.Scale = s
	}
	rep, err := h.reports.load(ctx, r.PathValue("slug"))
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	img := h.Svc.Renderer.Preview(ctx, rep.Elements, opts)
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		writeErrorResponse(w, dto.InternalWithError("failed to encode preview", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.ErrorContext(ctx, "Failed to write preview", "err", err)
	}
}
