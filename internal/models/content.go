package models

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// Content is the type-specific payload of an element.
//
// It is a tagged union: at most one field is set, matching the element type.
// Dividers carry no content.
type Content struct {
	Text  *TextContent
	Chart *ChartContent
	Table *TableContent
	Image *ImageContent
	Quote *QuoteContent
	Emoji *EmojiContent
}

// MarshalJSON encodes the active variant as a flat object.
func (c Content) MarshalJSON() ([]byte, error) {
	switch {
	case c.Text != nil:
		return json.Marshal(c.Text)
	case c.Chart != nil:
		return json.Marshal(c.Chart)
	case c.Table != nil:
		return json.Marshal(c.Table)
	case c.Image != nil:
		return json.Marshal(c.Image)
	case c.Quote != nil:
		return json.Marshal(c.Quote)
	case c.Emoji != nil:
		return json.Marshal(c.Emoji)
	default:
		return []byte("{}"), nil
	}
}

// JSONSchema describes the content as any one of the variant objects.
func (Content) JSONSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := &jsonschema.Schema{Description: "Type-specific payload selected by the element type"}
	for _, v := range []any{&TextContent{}, &ChartContent{}, &TableContent{}, &ImageContent{}, &QuoteContent{}, &EmojiContent{}} {
		variant := r.Reflect(v)
		variant.Version = ""
		s.AnyOf = append(s.AnyOf, variant)
	}
	s.AnyOf = append(s.AnyOf, &jsonschema.Schema{Type: "object", Description: "divider"})
	return s
}

func (c Content) clone() Content {
	var out Content
	if c.Text != nil {
		v := *c.Text
		out.Text = &v
	}
	if c.Chart != nil {
		v := *c.Chart
		v.Data = slices.Clone(c.Chart.Data)
		out.Chart = &v
	}
	if c.Table != nil {
		v := *c.Table
		v.Headers = slices.Clone(c.Table.Headers)
		v.Rows = make([][]string, len(c.Table.Rows))
		for i, row := range c.Table.Rows {
			v.Rows[i] = slices.Clone(row)
		}
		out.Table = &v
	}
	if c.Image != nil {
		v := *c.Image
		out.Image = &v
	}
	if c.Quote != nil {
		v := *c.Quote
		out.Quote = &v
	}
	if c.Emoji != nil {
		v := *c.Emoji
		out.Emoji = &v
	}
	return out
}

// decodeContent never fails: unknown shapes yield the type's defaults.
func decodeContent(t ElementType, raw json.RawMessage) Content {
	var c Content
	switch t {
	case ElementText:
		c.Text = &TextContent{}
		_ = json.Unmarshal(raw, c.Text)
	case ElementChart:
		c.Chart = &ChartContent{}
		_ = json.Unmarshal(raw, c.Chart)
	case ElementTable:
		c.Table = &TableContent{}
		_ = json.Unmarshal(raw, c.Table)
	case ElementImage:
		c.Image = &ImageContent{}
		_ = json.Unmarshal(raw, c.Image)
	case ElementQuote:
		c.Quote = &QuoteContent{}
		_ = json.Unmarshal(raw, c.Quote)
	case ElementEmoji:
		c.Emoji = &EmojiContent{}
		_ = json.Unmarshal(raw, c.Emoji)
	case ElementDivider:
	}
	return c
}

// TextContent is the payload of a text element.
type TextContent struct {
	Text       string  `json:"text"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"`
}

// UnmarshalJSON decodes leniently.
func (t *TextContent) UnmarshalJSON(data []byte) error {
	f := looseFields(data)
	*t = TextContent{
		Text:       f.str("text"),
		FontSize:   f.num("fontSize"),
		FontWeight: f.str("fontWeight"),
	}
	return nil
}

// ChartType selects the chart rendering.
type ChartType string

// Chart types. Anything else renders as a bar chart.
const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
)

// DataPoint is one named value of a chart series.
type DataPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ChartContent is the payload of a chart element.
type ChartContent struct {
	ChartType ChartType   `json:"chartType"`
	Data      []DataPoint `json:"data"`
}

// UnmarshalJSON decodes leniently. Points that are not objects are dropped.
func (c *ChartContent) UnmarshalJSON(data []byte) error {
	f := looseFields(data)
	*c = ChartContent{ChartType: ChartType(f.str("chartType"))}
	for _, raw := range f.list("data") {
		p := looseFields(raw)
		if p == nil {
			continue
		}
		c.Data = append(c.Data, DataPoint{Name: p.str("name"), Value: p.num("value")})
	}
	return nil
}

// TableContent is the payload of a table element.
//
// Every row has len(Headers) cells once normalized.
type TableContent struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// UnmarshalJSON decodes leniently. Non-string cells are stringified.
func (t *TableContent) UnmarshalJSON(data []byte) error {
	f := looseFields(data)
	*t = TableContent{Headers: f.strs("headers")}
	for _, raw := range f.list("rows") {
		t.Rows = append(t.Rows, looseStrings(raw))
	}
	return nil
}

// ImageSourceType records where an image src came from.
type ImageSourceType string

// Image source types.
const (
	SourceUpload ImageSourceType = "upload"
	SourceLink   ImageSourceType = "link"
)

// ImageContent is the payload of an image element.
type ImageContent struct {
	Src        string          `json:"src"`
	Alt        string          `json:"alt"`
	SourceType ImageSourceType `json:"sourceType,omitempty"`
}

// UnmarshalJSON decodes leniently.
func (i *ImageContent) UnmarshalJSON(data []byte) error {
	f := looseFields(data)
	*i = ImageContent{Src: f.str("src"), Alt: f.str("alt"), SourceType: ImageSourceType(f.str("sourceType"))}
	return nil
}

// QuoteContent is the payload of a quote element.
type QuoteContent struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// UnmarshalJSON decodes leniently.
func (q *QuoteContent) UnmarshalJSON(data []byte) error {
	f := looseFields(data)
	*q = QuoteContent{Text: f.str("text"), Author: f.str("author")}
	return nil
}

// EmojiContent is the payload of an emoji element.
type EmojiContent struct {
	Emoji string  `json:"emoji"`
	Size  float64 `json:"size,omitempty"`
	Scale float64 `json:"scale,omitempty"`
}

// UnmarshalJSON decodes leniently.
func (e *EmojiContent) UnmarshalJSON(data []byte) error {
	f := looseFields(data)
	*e = EmojiContent{Emoji: f.str("emoji"), Size: f.num("size"), Scale: f.num("scale")}
	return nil
}

// Defaults applied when a field is missing or zero.
const (
	DefaultText            = "Your text here"
	TextPlaceholder        = "Double-click to edit text"
	DefaultFontSize        = 16
	DefaultFontWeight      = "normal"
	DefaultQuoteText       = "Your quote here..."
	DefaultQuoteAuthor     = "Author"
	DefaultEmoji           = "😀"
	DefaultEmojiSize       = 48
	DefaultEmojiScale      = 1
	MinEmojiSize           = 16
	ImagePlaceholder       = "No image selected"
	DefaultContainerLength = 100
)

// TextContent returns the text payload with defaults resolved. The text
// itself is left empty so renderers can show the placeholder.
func (e *Element) TextContent() TextContent {
	var t TextContent
	if e.Content.Text != nil {
		t = *e.Content.Text
	}
	if t.FontSize <= 0 {
		t.FontSize = e.Style.FontSize
	}
	if t.FontSize <= 0 {
		t.FontSize = DefaultFontSize
	}
	if t.FontWeight == "" {
		t.FontWeight = e.Style.FontWeight
	}
	if t.FontWeight == "" {
		t.FontWeight = DefaultFontWeight
	}
	return t
}

// Bold reports whether the weight asks for a bold face.
func (t TextContent) Bold() bool {
	switch strings.ToLower(t.FontWeight) {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	default:
		return false
	}
}

// ChartContent returns the chart payload with defaults resolved.
func (e *Element) ChartContent() ChartContent {
	var c ChartContent
	if e.Content.Chart != nil {
		c = *e.Content.Chart
		c.Data = slices.Clone(c.Data)
	}
	if c.ChartType == "" {
		c.ChartType = ChartBar
	}
	return c
}

// TableContent returns the table payload, normalized to the header count.
func (e *Element) TableContent() TableContent {
	var t TableContent
	if e.Content.Table != nil {
		t = e.Content.clone().Table.normalized()
	}
	return t
}

// ImageContent returns the image payload with defaults resolved.
func (e *Element) ImageContent() ImageContent {
	var i ImageContent
	if e.Content.Image != nil {
		i = *e.Content.Image
	}
	if i.SourceType == "" {
		i.SourceType = SourceUpload
	}
	return i
}

// QuoteContent returns the quote payload with defaults resolved.
func (e *Element) QuoteContent() QuoteContent {
	var q QuoteContent
	if e.Content.Quote != nil {
		q = *e.Content.Quote
	}
	if q.Text == "" {
		q.Text = DefaultQuoteText
	}
	if q.Author == "" {
		q.Author = DefaultQuoteAuthor
	}
	return q
}

// EmojiContent returns the emoji payload with defaults resolved.
func (e *Element) EmojiContent() EmojiContent {
	var em EmojiContent
	if e.Content.Emoji != nil {
		em = *e.Content.Emoji
	}
	if em.Emoji == "" {
		em.Emoji = DefaultEmoji
	}
	if em.Size <= 0 {
		em.Size = DefaultEmojiSize
	}
	if em.Scale <= 0 {
		em.Scale = DefaultEmojiScale
	}
	return em
}

// EmojiRenderSize returns the glyph size for an emoji element:
// min(1, min(w, h)/base) * scale * base, never below MinEmojiSize.
func (e *Element) EmojiRenderSize() float64 {
	em := e.EmojiContent()
	w, h := e.Size.Width, e.Size.Height
	if w <= 0 {
		w = DefaultContainerLength
	}
	if h <= 0 {
		h = DefaultContainerLength
	}
	fit := min(1, min(w, h)/em.Size)
	return max(fit*em.Scale*em.Size, MinEmojiSize)
}

// fields is a JSON object decoded one key at a time so a bad value only
// loses that key.
type fields map[string]json.RawMessage

func looseFields(data []byte) fields {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	return f
}

func (f fields) str(key string) string {
	return looseString(f[key])
}

func (f fields) num(key string) float64 {
	raw, ok := f[key]
	if !ok {
		return 0
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return 0
}

func (f fields) list(key string) []json.RawMessage {
	var l []json.RawMessage
	if err := json.Unmarshal(f[key], &l); err != nil {
		return nil
	}
	return l
}

func (f fields) strs(key string) []string {
	return looseStrings(f[key])
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

func looseStrings(raw json.RawMessage) []string {
	var l []json.RawMessage
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil
	}
	out := make([]string, len(l))
	for i, v := range l {
		out[i] = looseString(v)
	}
	return out
}
