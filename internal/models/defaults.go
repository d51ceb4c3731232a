package models

import (
	"github.com/maruel/ksid"
)

// Placement of a freshly added element.
var (
	DefaultPosition = Position{X: 50, Y: 50}
	DefaultSize     = Size{Width: 200, Height: 100}
)

// NewElement returns an element of type t with the editor's initial content
// and style and a new unique id.
func NewElement(t ElementType) (Element, error) {
	if !t.Valid() {
		return Element{}, ErrInvalidElementType
	}
	return Element{
		ID:       "element-" + ksid.NewID().String(),
		Type:     t,
		Position: DefaultPosition,
		Size:     DefaultSize,
		Content:  initialContent(t),
		Style:    initialStyle(t),
	}, nil
}

func initialContent(t ElementType) Content {
	switch t {
	case ElementText:
		return Content{Text: &TextContent{Text: DefaultText, FontSize: DefaultFontSize, FontWeight: DefaultFontWeight}}
	case ElementChart:
		return Content{Chart: &ChartContent{
			ChartType: ChartBar,
			Data: []DataPoint{
				{Name: "Jan", Value: 400},
				{Name: "Feb", Value: 300},
				{Name: "Mar", Value: 600},
				{Name: "Apr", Value: 800},
			},
		}}
	case ElementTable:
		return Content{Table: &TableContent{
			Headers: []string{"Column 1", "Column 2", "Column 3"},
			Rows: [][]string{
				{"Data 1", "Data 2", "Data 3"},
				{"Data 4", "Data 5", "Data 6"},
			},
		}}
	case ElementImage:
		return Content{Image: &ImageContent{SourceType: SourceUpload}}
	case ElementQuote:
		return Content{Quote: &QuoteContent{Text: DefaultQuoteText, Author: DefaultQuoteAuthor}}
	case ElementEmoji:
		return Content{Emoji: &EmojiContent{Emoji: DefaultEmoji, Size: DefaultEmojiSize, Scale: DefaultEmojiScale}}
	case ElementDivider:
	}
	return Content{}
}

func initialStyle(t ElementType) Style {
	base := Style{
		BackgroundColor: DefaultBackgroundColor,
		BorderColor:     DefaultBorderColor,
		BorderWidth:     Float(DefaultBorderWidth),
		BorderRadius:    Float(4),
		Padding:         Float(DefaultPadding),
	}
	switch t {
	case ElementText:
		base.Color = DefaultTextColor
	case ElementChart:
		base.BackgroundColor = "#f9fafb"
	case ElementDivider:
		return Style{
			Thickness:      DefaultThickness,
			LineStyle:      LineSolid,
			Color:          DefaultDividerColor,
			MarginVertical: Float(DefaultMarginVertical),
			Padding:        Float(0),
		}
	case ElementImage:
		base.Padding = Float(0)
	case ElementQuote:
		base.BackgroundColor = "#f8fafc"
	case ElementEmoji:
		base.Padding = Float(0)
		base.BackgroundColor = "transparent"
	case ElementTable:
	}
	return base
}
