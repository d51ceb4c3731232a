package dto

import (
	"strings"

	"github.com/maruel/ksid"
	"github.com/maruel/reportdb/internal/models"
)

// --- Health ---

// HealthRequest is a request to check the server health.
type HealthRequest struct{}

// Validate is a no-op.
func (r *HealthRequest) Validate() error {
	return nil
}

// --- Reports ---

// ListReportsRequest is a request to list report metadata.
type ListReportsRequest struct{}

// Validate is a no-op.
func (r *ListReportsRequest) Validate() error {
	return nil
}

// GetReportRequest is a request to load a report by slug.
type GetReportRequest struct {
	Slug string `path:"slug"`
}

// Validate validates the get report request fields.
func (r *GetReportRequest) Validate() error {
	if r.Slug == "" {
		return MissingField("slug")
	}
	return nil
}

// CreateReportRequest is a request to create and save a new report.
type CreateReportRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Elements    []models.Element `json:"elements,omitempty"`
}

// Validate validates the create report request fields.
func (r *CreateReportRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	return validateElements(r.Elements)
}

// SaveReportRequest overwrites a stored report.
type SaveReportRequest struct {
	Slug        string           `path:"slug"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Elements    []models.Element `json:"elements"`
}

// Validate validates the save report request fields.
func (r *SaveReportRequest) Validate() error {
	if r.Slug == "" {
		return MissingField("slug")
	}
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	return validateElements(r.Elements)
}

// DeleteReportRequest deletes a report by ID.
type DeleteReportRequest struct {
	ID ksid.ID `path:"id"`
}

// Validate validates the delete report request fields.
func (r *DeleteReportRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "must be a report id")
	}
	return nil
}

func validateElements(elements []models.Element) error {
	seen := make(map[string]struct{}, len(elements))
	for i := range elements {
		e := &elements[i]
		if e.ID == "" {
			return MissingField("elements.id")
		}
		if !e.Type.Valid() {
			return InvalidField("elements.type", string(e.Type)).WithDetail("element", e.ID)
		}
		if _, ok := seen[e.ID]; ok {
			return InvalidField("elements.id", "duplicate "+e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// --- Elements ---

// ElementRequest addresses one element of a report.
type ElementRequest struct {
	Slug      string `path:"slug"`
	ElementID string `path:"eid"`
}

// Validate validates the element request fields.
func (r *ElementRequest) Validate() error {
	if r.Slug == "" {
		return MissingField("slug")
	}
	if r.ElementID == "" {
		return MissingField("eid")
	}
	return nil
}

// AddElementRequest adds a new element with the editor defaults of its type.
type AddElementRequest struct {
	Slug     string             `path:"slug"`
	Type     models.ElementType `json:"type"`
	Position *models.Position   `json:"position,omitempty"`
	Size     *models.Size       `json:"size,omitempty"`
}

// Validate validates the add element request fields.
func (r *AddElementRequest) Validate() error {
	if r.Slug == "" {
		return MissingField("slug")
	}
	if r.Type == "" {
		return MissingField("type")
	}
	if !r.Type.Valid() {
		return InvalidField("type", string(r.Type))
	}
	if r.Size != nil && (r.Size.Width <= 0 || r.Size.Height <= 0) {
		return InvalidField("size", "must be positive")
	}
	return nil
}

// UpdateElementRequest merges a partial update into an element.
type UpdateElementRequest struct {
	Slug      string           `path:"slug"`
	ElementID string           `path:"eid"`
	Position  *models.Position `json:"position,omitempty"`
	Size      *models.Size     `json:"size,omitempty"`
	Content   map[string]any   `json:"content,omitempty"`
	Style     map[string]any   `json:"style,omitempty"`
}

// Validate validates the update element request fields.
func (r *UpdateElementRequest) Validate() error {
	if r.Slug == "" {
		return MissingField("slug")
	}
	if r.ElementID == "" {
		return MissingField("eid")
	}
	if r.Position == nil && r.Size == nil && r.Content == nil && r.Style == nil {
		return BadRequest("nothing to update")
	}
	return nil
}

// Update returns the model update.
func (r *UpdateElementRequest) Update() *models.ElementUpdate {
	return &models.ElementUpdate{Position: r.Position, Size: r.Size, Content: r.Content, Style: r.Style}
}

// --- Tables ---

// TableColumnRequest adds or renames a column. Column is ignored when adding.
type TableColumnRequest struct {
	Slug      string `path:"slug"`
	ElementID string `path:"eid"`
	Column    int    `path:"col"`
	Header    string `json:"header"`
}

// Validate validates the table column request fields.
func (r *TableColumnRequest) Validate() error {
	if r.Slug == "" {
		return MissingField("slug")
	}
	if r.ElementID == "" {
		return MissingField("eid")
	}
	if strings.TrimSpace(r.Header) == "" {
		return MissingField("header")
	}
	return nil
}

// IndexRequest addresses a table row or column, or a chart point, by index.
type IndexRequest struct {
	Slug      string `path:"slug"`
	ElementID string `path:"eid"`
	Index     int    `path:"index"`
}

// Validate validates the index request fields.
func (r *IndexRequest) Validate() error {
	if r.Slug == "" {
		return MissingField("slug")
	}
	if r.ElementID == "" {
		return MissingField("eid")
	}
	return nil
}

// SetCellRequest sets one table cell.
type SetCellRequest struct {
	Slug      string `path:"slug"`
	ElementID string `path:"eid"`
	Row       int    `path:"row"`
	Column    int    `path:"col"`
	Value     string `json:"value"`
}

// Validate validates the set cell request fields.
func (r *SetCellRequest) Validate() error {
	if r.Slug == "" {
		return MissingField("slug")
	}
	if r.ElementID == "" {
		return MissingField("eid")
	}
	return nil
}

// --- Charts ---

// ChartPointRequest adds or replaces a chart data point. Index is ignored when
// adding.
type ChartPointRequest struct {
	Slug      string  `path:"slug"`
	ElementID string  `path:"eid"`
	Index     int     `path:"index"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
}

// Validate validates the chart point request fields.
func (r *ChartPointRequest) Validate() error {
	if r.Slug == "" {
		return MissingField("slug")
	}
	if r.ElementID == "" {
		return MissingField("eid")
	}
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	return nil
}

// --- Export ---

// ExportRequest renders an element list that has not been saved.
type ExportRequest struct {
	Elements []models.Element `json:"elements"`
}

// Validate validates the export request fields.
func (r *ExportRequest) Validate() error {
	return validateElements(r.Elements)
}

// --- Schema ---

// SchemaRequest is a request for the element JSON schema.
type SchemaRequest struct{}

// Validate is a no-op.
func (r *SchemaRequest) Validate() error {
	return nil
}

// --- Assets ---

// PruneAssetsRequest removes assets no report references.
type PruneAssetsRequest struct{}

// Validate is a no-op.
func (r *PruneAssetsRequest) Validate() error {
	return nil
}

// --- Schedules ---

// ListSchedulesRequest lists schedules, optionally of one report.
type ListSchedulesRequest struct {
	Report string `query:"report"`
}

// Validate is a no-op.
func (r *ListSchedulesRequest) Validate() error {
	return nil
}

// CreateScheduleRequest creates a recurring export of a report.
type CreateScheduleRequest struct {
	ReportSlug string           `json:"reportSlug"`
	Frequency  models.Frequency `json:"frequency"`
	Time       string           `json:"time,omitempty"`
	Days       []string         `json:"days,omitempty"`
	DayOfMonth int              `json:"dayOfMonth,omitempty"`
	CustomCron string           `json:"customCron,omitempty"`
	IsActive   *bool            `json:"isActive,omitempty"`
}

// Validate validates the create schedule request fields.
func (r *CreateScheduleRequest) Validate() error {
	if r.ReportSlug == "" {
		return MissingField("reportSlug")
	}
	if r.Frequency == "" {
		return MissingField("frequency")
	}
	return nil
}

// ScheduleRequest addresses one schedule.
type ScheduleRequest struct {
	ID ksid.ID `path:"id"`
}

// Validate validates the schedule request fields.
func (r *ScheduleRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "must be a schedule id")
	}
	return nil
}

// UpdateScheduleRequest pauses or resumes a schedule. Without isActive the
// state is toggled.
type UpdateScheduleRequest struct {
	ID       ksid.ID `path:"id"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// Validate validates the update schedule request fields.
func (r *UpdateScheduleRequest) Validate() error {
	if r.ID.IsZero() {
		return InvalidField("id", "must be a schedule id")
	}
	return nil
}
