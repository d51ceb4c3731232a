package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/maruel/ksid"
)

// Report is a persisted report document.
type Report struct {
	ID          ksid.ID   `json:"id" jsonschema:"description=Stable identifier assigned at first save"`
	Slug        string    `json:"slug,omitempty" jsonschema:"description=URL-safe unique identifier derived from the name"`
	Name        string    `json:"name" jsonschema:"description=Display name"`
	Description string    `json:"description,omitempty"`
	Elements    []Element `json:"elements" jsonschema:"description=Canvas elements in z-order"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ReportMetadata is everything about a report except its elements.
type ReportMetadata struct {
	ID          ksid.ID   `json:"id"`
	Slug        string    `json:"slug,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Clone returns a deep copy.
func (r *Report) Clone() *Report {
	c := *r
	if r.Elements != nil {
		c.Elements = make([]Element, len(r.Elements))
		for i := range r.Elements {
			c.Elements[i] = r.Elements[i].Clone()
		}
	}
	return &c
}

// GetID returns the report id.
func (r *Report) GetID() ksid.ID {
	return r.ID
}

// Metadata returns the report without its elements.
func (r *Report) Metadata() ReportMetadata {
	return ReportMetadata{
		ID:          r.ID,
		Slug:        r.Slug,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Validate checks that the report can be saved.
func (r *Report) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	seen := make(map[string]struct{}, len(r.Elements))
	for i := range r.Elements {
		e := &r.Elements[i]
		if e.ID == "" {
			return fmt.Errorf("element %d: id is required", i)
		}
		if _, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateElement, e.ID)
		}
		seen[e.ID] = struct{}{}
		if !e.Type.Valid() {
			return fmt.Errorf("element %q: %w: %q", e.ID, ErrInvalidElementType, e.Type)
		}
	}
	return nil
}

// Element returns the element with the given id.
func (r *Report) Element(id string) (*Element, error) {
	i := r.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}
	return &r.Elements[i], nil
}

func (r *Report) indexOf(id string) int {
	return slices.IndexFunc(r.Elements, func(e Element) bool { return e.ID == id })
}

// AddElement appends e on top of the z-order.
func (r *Report) AddElement(e Element) error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidElementType, e.Type)
	}
	if e.ID == "" {
		return fmt.Errorf("element id is required")
	}
	if r.indexOf(e.ID) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateElement, e.ID)
	}
	r.Elements = append(r.Elements, e)
	return nil
}

// RemoveElement deletes the element with the given id.
func (r *Report) RemoveElement(id string) error {
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}
	r.Elements = slices.Delete(r.Elements, i, i+1)
	return nil
}

// MoveElement sets the element position.
func (r *Report) MoveElement(id string, p Position) error {
	e, err := r.Element(id)
	if err != nil {
		return err
	}
	e.Position = p
	return nil
}

// ResizeElement sets the element size.
func (r *Report) ResizeElement(id string, s Size) error {
	if s.Width <= 0 || s.Height <= 0 {
		return ErrInvalidSize
	}
	e, err := r.Element(id)
	if err != nil {
		return err
	}
	e.Size = s
	return nil
}

// BringToFront moves the element to the end of the z-order.
func (r *Report) BringToFront(id string) error {
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}
	e := r.Elements[i]
	r.Elements = append(slices.Delete(r.Elements, i, i+1), e)
	return nil
}

// SendToBack moves the element to the start of the z-order.
func (r *Report) SendToBack(id string) error {
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}
	e := r.Elements[i]
	r.Elements = slices.Insert(slices.Delete(r.Elements, i, i+1), 0, e)
	return nil
}

// ElementUpdate is a partial update. Content and Style are merged key by key
// into the current values; the type never changes.
type ElementUpdate struct {
	Position *Position      `json:"position,omitempty"`
	Size     *Size          `json:"size,omitempty"`
	Content  map[string]any `json:"content,omitempty"`
	Style    map[string]any `json:"style,omitempty"`
}

// UpdateElement applies u to the element with the given id.
func (r *Report) UpdateElement(id string, u *ElementUpdate) error {
	e, err := r.Element(id)
	if err != nil {
		return err
	}
	if u.Size != nil && (u.Size.Width <= 0 || u.Size.Height <= 0) {
		return ErrInvalidSize
	}
	next := e.Clone()
	if u.Position != nil {
		next.Position = *u.Position
	}
	if u.Size != nil {
		next.Size = *u.Size
	}
	if len(u.Content) != 0 {
		raw, err := merge(next.Content, u.Content)
		if err != nil {
			return fmt.Errorf("failed to merge content: %w", err)
		}
		next.Content = decodeContent(next.Type, raw)
	}
	if len(u.Style) != 0 {
		raw, err := merge(next.Style, u.Style)
		if err != nil {
			return fmt.Errorf("failed to merge style: %w", err)
		}
		var s Style
		_ = json.Unmarshal(raw, &s)
		next.Style = s
	}
	*e = next
	return nil
}

// merge overlays patch on the JSON object form of v.
func merge(v any, patch map[string]any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, val := range patch {
		if val == nil {
			delete(m, k)
			continue
		}
		m[k] = val
	}
	return json.Marshal(m)
}

// Table returns the table payload of element id for in-place edits.
func (r *Report) Table(id string) (*TableContent, error) {
	e, err := r.Element(id)
	if err != nil {
		return nil, err
	}
	if e.Type != ElementTable {
		return nil, fmt.Errorf("%w: %s", ErrTypeMismatch, e.Type)
	}
	if e.Content.Table == nil {
		e.Content.Table = &TableContent{}
	}
	return e.Content.Table, nil
}

// Chart returns the chart payload of element id for in-place edits.
func (r *Report) Chart(id string) (*ChartContent, error) {
	e, err := r.Element(id)
	if err != nil {
		return nil, err
	}
	if e.Type != ElementChart {
		return nil, fmt.Errorf("%w: %s", ErrTypeMismatch, e.Type)
	}
	if e.Content.Chart == nil {
		e.Content.Chart = &ChartContent{ChartType: ChartBar}
	}
	return e.Content.Chart, nil
}
