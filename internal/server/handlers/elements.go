package handlers

import (
	"context"
	"log/slog"

	"github.com/maruel/reportdb/internal/models"
	"github.com/maruel/reportdb/internal/server/dto"
)

// ElementHandler edits the elements of a stored report. Every edit is saved
// immediately.
type ElementHandler struct {
	Svc *Services
}

// edit applies fn to the report and returns element eid of the saved report.
func (h *ElementHandler) edit(ctx context.Context, slug, eid string, fn func(r *models.Report) error) (*dto.ElementResponse, error) {
	saved, ok, err := h.Svc.Reports.Edit(ctx, slug, fn)
	if err != nil {
		return nil, apiError(err, "failed to save report")
	}
	if !ok {
		return nil, dto.ReportNotFound(slug)
	}
	e, err := saved.Element(eid)
	if err != nil {
		return nil, apiError(err, "failed to load element")
	}
	return &dto.ElementResponse{Element: *e, Slug: saved.Slug}, nil
}

// AddElement adds an element with the editor defaults of its type on top of
// the z-order.
func (h *ElementHandler) AddElement(ctx context.Context, req *dto.AddElementRequest) (*dto.ElementResponse, error) {
	e, err := models.NewElement(req.Type)
	if err != nil {
		return nil, apiError(err, "failed to create element")
	}
	if req.Position != nil {
		e.Position = *req.Position
	}
	if req.Size != nil {
		e.Size = *req.Size
	}
	resp, err := h.edit(ctx, req.Slug, e.ID, func(r *models.Report) error { return r.AddElement(e) })
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "element added", "report", resp.Slug, "element", e.ID, "type", e.Type)
	return resp, nil
}

// UpdateElement merges a partial update into an element.
func (h *ElementHandler) UpdateElement(ctx context.Context, req *dto.UpdateElementRequest) (*dto.ElementResponse, error) {
	return h.edit(ctx, req.Slug, req.ElementID, func(r *models.Report) error {
		return r.UpdateElement(req.ElementID, req.Update())
	})
}

// DeleteElement removes an element.
func (h *ElementHandler) DeleteElement(ctx context.Context, req *dto.ElementRequest) (*dto.OkResponse, error) {
	_, ok, err := h.Svc.Reports.Edit(ctx, req.Slug, func(r *models.Report) error {
		return r.RemoveElement(req.ElementID)
	})
	if err != nil {
		return nil, apiError(err, "failed to save report")
	}
	if !ok {
		return nil, dto.ReportNotFound(req.Slug)
	}
	return &dto.OkResponse{Ok: true}, nil
}

// BringToFront moves an element on top of every other.
func (h *ElementHandler) BringToFront(ctx context.Context, req *dto.ElementRequest) (*dto.ElementResponse, error) {
	return h.edit(ctx, req.Slug, req.ElementID, func(r *models.Report) error {
		return r.BringToFront(req.ElementID)
	})
}

// SendToBack moves an element below every other.
func (h *ElementHandler) SendToBack(ctx context.Context, req *dto.ElementRequest) (*dto.ElementResponse, error) {
	return h.edit(ctx, req.Slug, req.ElementID, func(r *models.Report) error {
		return r.SendToBack(req.ElementID)
	})
}

// table applies fn to the table payload of the element.
func (h *ElementHandler) table(ctx context.Context, slug, eid string, fn func(t *models.TableContent) error) (*dto.ElementResponse, error) {
	return h.edit(ctx, slug, eid, func(r *models.Report) error {
		t, err := r.Table(eid)
		if err != nil {
			return err
		}
		return fn(t)
	})
}

// AddColumn appends a column.
func (h *ElementHandler) AddColumn(ctx context.Context, req *dto.TableColumnRequest) (*dto.ElementResponse, error) {
	return h.table(ctx, req.Slug, req.ElementID, func(t *models.TableContent) error {
		return t.AddColumn(req.Header)
	})
}

// RenameColumn changes a column header.
func (h *ElementHandler) RenameColumn(ctx context.Context, req *dto.TableColumnRequest) (*dto.ElementResponse, error) {
	return h.table(ctx, req.Slug, req.ElementID, func(t *models.TableContent) error {
		return t.RenameColumn(req.Column, req.Header)
	})
}

// RemoveColumn deletes a column and its cells.
func (h *ElementHandler) RemoveColumn(ctx context.Context, req *dto.IndexRequest) (*dto.ElementResponse, error) {
	return h.table(ctx, req.Slug, req.ElementID, func(t *models.TableContent) error {
		return t.RemoveColumn(req.Index)
	})
}

// AddRow appends an empty row.
func (h *ElementHandler) AddRow(ctx context.Context, req *dto.IndexRequest) (*dto.ElementResponse, error) {
	return h.table(ctx, req.Slug, req.ElementID, func(t *models.TableContent) error {
		t.AddRow()
		return nil
	})
}

// RemoveRow deletes a row.
func (h *ElementHandler) RemoveRow(ctx context.Context, req *dto.IndexRequest) (*dto.ElementResponse, error) {
	return h.table(ctx, req.Slug, req.ElementID, func(t *models.TableContent) error {
		return t.RemoveRow(req.Index)
	})
}

// SetCell sets one cell.
func (h *ElementHandler) SetCell(ctx context.Context, req *dto.SetCellRequest) (*dto.ElementResponse, error) {
	return h.table(ctx, req.Slug, req.ElementID, func(t *models.TableContent) error {
		return t.SetCell(req.Row, req.Column, req.Value)
	})
}

// chart applies fn to the chart payload of the element.
func (h *ElementHandler) chart(ctx context.Context, slug, eid string, fn func(c *models.ChartContent) error) (*dto.ElementResponse, error) {
	return h.edit(ctx, slug, eid, func(r *models.Report) error {
		c, err := r.Chart(eid)
		if err != nil {
			return err
		}
		return fn(c)
	})
}

// AddPoint appends a data point.
func (h *ElementHandler) AddPoint(ctx context.Context, req *dto.ChartPointRequest) (*dto.ElementResponse, error) {
	return h.chart(ctx, req.Slug, req.ElementID, func(c *models.ChartContent) error {
		c.AddPoint(req.Name, req.Value)
		return nil
	})
}

// SetPoint replaces a data point.
func (h *ElementHandler) SetPoint(ctx context.Context, req *dto.ChartPointRequest) (*dto.ElementResponse, error) {
	return h.chart(ctx, req.Slug, req.ElementID, func(c *models.ChartContent) error {
		return c.SetPoint(req.Index, req.Name, req.Value)
	})
}

// RemovePoint deletes a data point.
func (h *ElementHandler) RemovePoint(ctx context.Context, req *dto.IndexRequest) (*dto.ElementResponse, error) {
	return h.chart(ctx, req.Slug, req.ElementID, func(c *models.ChartContent) error {
		return c.RemovePoint(req.Index)
	})
}
