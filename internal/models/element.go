// Package models defines the report document and its canvas elements.
package models

import (
	"encoding/json"
	"fmt"
)

// ElementType selects which content and style variant an element carries.
type ElementType string

// Element types. The set is closed; ParseElementType rejects anything else.
const (
	ElementText    ElementType = "text"
	ElementChart   ElementType = "chart"
	ElementTable   ElementType = "table"
	ElementDivider ElementType = "divider"
	ElementImage   ElementType = "image"
	ElementQuote   ElementType = "quote"
	ElementEmoji   ElementType = "emoji"
)

// ElementTypes lists every element type in toolbar order.
var ElementTypes = []ElementType{
	ElementText, ElementChart, ElementTable, ElementDivider, ElementImage, ElementQuote, ElementEmoji,
}

// Valid reports whether t is one of the known element types.
func (t ElementType) Valid() bool {
	switch t {
	case ElementText, ElementChart, ElementTable, ElementDivider, ElementImage, ElementQuote, ElementEmoji:
		return true
	default:
		return false
	}
}

// ParseElementType returns the element type named s.
func ParseElementType(s string) (ElementType, error) {
	t := ElementType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidElementType, s)
	}
	return t, nil
}

// Position is the top-left offset of an element in page pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the stored pixel size of an element.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one block placed on the report canvas.
//
// The position in the owning report's element slice is the z-order.
type Element struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	Position Position    `json:"position"`
	Size     Size        `json:"size"`
	Content  Content     `json:"content"`
	Style    Style       `json:"style"`
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() Element {
	c := *e
	c.Content = e.Content.clone()
	c.Style = e.Style.clone()
	return c
}

// LayoutSize returns the size used for layout. Dividers derive their height
// from the style; the stored size is left untouched.
func (e *Element) LayoutSize() Size {
	if e.Type == ElementDivider {
		d := e.Style.Divider()
		return Size{Width: e.Size.Width, Height: d.Thickness + 2*d.MarginVertical}
	}
	return e.Size
}

// UnmarshalJSON decodes an element, selecting the content variant from the
// type field. Malformed content or style fields fall back to defaults.
func (e *Element) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string          `json:"id"`
		Type     ElementType     `json:"type"`
		Position Position        `json:"position"`
		Size     Size            `json:"size"`
		Content  json.RawMessage `json:"content"`
		Style    Style           `json:"style"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Element{
		ID:       raw.ID,
		Type:     raw.Type,
		Position: raw.Position,
		Size:     raw.Size,
		Content:  decodeContent(raw.Type, raw.Content),
		Style:    raw.Style,
	}
	return nil
}
