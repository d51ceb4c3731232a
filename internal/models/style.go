package models

import (
	"encoding/json"
)

// LineStyle is the stroke pattern of a divider.
type LineStyle string

// Divider line styles.
const (
	LineSolid  LineStyle = "solid"
	LineDashed LineStyle = "dashed"
	LineDotted LineStyle = "dotted"
)

// Style holds the visual attributes of an element.
//
// Empty strings and nil pointers mean "use the default". Pointers are used
// where zero is a meaningful value, e.g. a padding of 0.
type Style struct {
	BackgroundColor string   `json:"backgroundColor,omitempty"`
	Color           string   `json:"color,omitempty"`
	BorderColor     string   `json:"borderColor,omitempty"`
	BorderWidth     *float64 `json:"borderWidth,omitempty"`
	BorderRadius    *float64 `json:"borderRadius,omitempty"`
	Padding         *float64 `json:"padding,omitempty"`
	FontSize        float64  `json:"fontSize,omitempty"`
	FontWeight      string   `json:"fontWeight,omitempty"`

	// Divider only.
	Thickness      float64   `json:"thickness,omitempty"`
	LineStyle      LineStyle `json:"lineStyle,omitempty"`
	MarginVertical *float64  `json:"marginVertical,omitempty"`
}

// Float returns a pointer to v, for Style literals.
func Float(v float64) *float64 {
	return &v
}

// UnmarshalJSON decodes leniently: a malformed field is dropped.
func (s *Style) UnmarshalJSON(data []byte) error {
	f := looseFields(data)
	*s = Style{
		BackgroundColor: f.str("backgroundColor"),
		Color:           f.str("color"),
		BorderColor:     f.str("borderColor"),
		BorderWidth:     f.optNum("borderWidth"),
		BorderRadius:    f.optNum("borderRadius"),
		Padding:         f.optNum("padding"),
		FontSize:        f.num("fontSize"),
		FontWeight:      f.str("fontWeight"),
		Thickness:       f.num("thickness"),
		LineStyle:       LineStyle(f.str("lineStyle")),
		MarginVertical:  f.optNum("marginVertical"),
	}
	return nil
}

func (f fields) optNum(key string) *float64 {
	raw, ok := f[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func (s Style) clone() Style {
	c := s
	for _, p := range []**float64{&c.BorderWidth, &c.BorderRadius, &c.Padding, &c.MarginVertical} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}
	return c
}

// Box is the resolved frame drawn around every element except dividers.
type Box struct {
	BackgroundColor string
	BorderColor     string
	BorderWidth     float64
	BorderRadius    float64
	Padding         float64
}

// Box defaults.
const (
	DefaultBackgroundColor = "#ffffff"
	DefaultBorderColor     = "#e5e7eb"
	DefaultBorderWidth     = 1
	DefaultPadding         = 16
	DefaultTextColor       = "#1f2937"
)

// Box returns the element frame with defaults resolved.
func (s *Style) Box() Box {
	b := Box{
		BackgroundColor: s.BackgroundColor,
		BorderColor:     s.BorderColor,
		BorderWidth:     DefaultBorderWidth,
		Padding:         DefaultPadding,
	}
	if b.BackgroundColor == "" {
		b.BackgroundColor = DefaultBackgroundColor
	}
	if b.BorderColor == "" {
		b.BorderColor = DefaultBorderColor
	}
	if s.BorderWidth != nil && *s.BorderWidth >= 0 {
		b.BorderWidth = *s.BorderWidth
	}
	if s.BorderRadius != nil && *s.BorderRadius >= 0 {
		b.BorderRadius = *s.BorderRadius
	}
	if s.Padding != nil && *s.Padding >= 0 {
		b.Padding = *s.Padding
	}
	return b
}

// TextColor returns the foreground color, or the default text color.
func (s *Style) TextColor() string {
	if s.Color == "" {
		return DefaultTextColor
	}
	return s.Color
}

// Divider is the resolved divider rule.
type Divider struct {
	Thickness      float64
	LineStyle      LineStyle
	Color          string
	MarginVertical float64
}

// Divider defaults.
const (
	DefaultThickness      = 2
	DefaultMarginVertical = 8
	DefaultDividerColor   = "#e5e7eb"

	// MinThickness and MaxThickness bound a positive thickness, in page units.
	MinThickness = 0.5
	MaxThickness = 100
)

// Divider returns the divider rule with defaults resolved.
func (s *Style) Divider() Divider {
	d := Divider{
		Thickness:      s.Thickness,
		LineStyle:      s.LineStyle,
		Color:          s.Color,
		MarginVertical: DefaultMarginVertical,
	}
	if !(d.Thickness > 0) {
		d.Thickness = DefaultThickness
	}
	d.Thickness = min(max(d.Thickness, MinThickness), MaxThickness)
	switch d.LineStyle {
	case LineSolid, LineDashed, LineDotted:
	default:
		d.LineStyle = LineSolid
	}
	if d.Color == "" {
		d.Color = DefaultDividerColor
	}
	if s.MarginVertical != nil && *s.MarginVertical >= 0 {
		d.MarginVertical = *s.MarginVertical
	}
	return d
}
