// Package render draws report elements onto a raster page.
//
// Every element type maps to a Drawable. The same drawables back the
// interactive preview and the export, so both produce identical pixels; the
// preview only adds the selection affordances on top.
package render

import (
	"context"
	"image"
	"log/slog"

	"github.com/maruel/reportdb/internal/models"
)

// Reference page, A4 at 96 DPI.
const (
	PageWidth  = 794
	PageHeight = 1123
)

// MaxScale bounds the supersampling factor of every canvas.
const MaxScale = 4

// Drawable is an element ready to be painted.
type Drawable interface {
	// Bounds is the area the element occupies on the page, in page units.
	Bounds() image.Rectangle
	// Draw paints the element. It never fails; missing data is drawn as a
	// placeholder.
	Draw(c *Canvas)
}

// Options configures a Renderer.
type Options struct {
	// PageWidth and PageHeight default to the A4 reference page.
	PageWidth  float64
	PageHeight float64
	// EmojiFont is an optional OpenType font with outline emoji glyphs.
	// Without it emoji are drawn as a badge.
	EmojiFont string
	// Images resolves image sources. Nil shows every image as missing.
	Images ImageSource
}

// Renderer turns elements into drawables. It is safe for concurrent use.
type Renderer struct {
	width  float64
	height float64
	fonts  *fontSet
	images ImageSource
}

// New loads the fonts and returns a Renderer.
func New(opts Options) (*Renderer, error) {
	fonts, err := loadFonts(opts.EmojiFont)
	if err != nil {
		return nil, err
	}
	r := &Renderer{width: opts.PageWidth, height: opts.PageHeight, fonts: fonts, images: opts.Images}
	if r.width <= 0 {
		r.width = PageWidth
	}
	if r.height <= 0 {
		r.height = PageHeight
	}
	return r, nil
}

// PageSize returns the page size in page units.
func (r *Renderer) PageSize() (width, height float64) {
	return r.width, r.height
}

// NewPage returns a blank white page canvas.
func (r *Renderer) NewPage(scale int) *Canvas {
	c := newCanvas(r.width, r.height, scale, r.fonts)
	c.Fill(White)
	return c
}

// Render returns the drawable for el. Images are loaded now so that drawing
// does no I/O; charts are drawn live at the canvas scale.
func (r *Renderer) Render(ctx context.Context, el models.Element) Drawable {
	el = el.Clone()
	switch el.Type {
	case models.ElementText:
		return &textElement{el: el}
	case models.ElementChart:
		return &chartElement{r: r, el: el, live: true}
	case models.ElementTable:
		return &tableElement{el: el}
	case models.ElementDivider:
		return &dividerElement{el: el}
	case models.ElementImage:
		return r.image(ctx, el)
	case models.ElementQuote:
		return &quoteElement{el: el}
	case models.ElementEmoji:
		return &emojiElement{el: el, hasFont: r.fonts.covers(Emoji, el.EmojiContent().Emoji)}
	default:
		return &emptyElement{el: el}
	}
}

// Chart returns a drawable that places a pre-rendered chart bitmap into the
// chart element's frame. A nil bitmap draws the chart placeholder text.
func (r *Renderer) Chart(el models.Element, bitmap image.Image) Drawable {
	return &chartElement{r: r, el: el.Clone(), bitmap: bitmap}
}

func (r *Renderer) image(ctx context.Context, el models.Element) Drawable {
	d := &imageElement{el: el}
	src := el.ImageContent().Src
	if src == "" || r.images == nil {
		return d
	}
	img, err := r.images.Open(ctx, src)
	if err != nil {
		slog.WarnContext(ctx, "failed to load image", "element", el.ID, "err", err)
		d.failed = true
		return d
	}
	d.img = img
	return d
}

// DrawAll paints drawables in order, so later ones are on top.
func DrawAll(c *Canvas, ds []Drawable) {
	for _, d := range ds {
		d.Draw(c)
	}
}

// PreviewOptions configures Preview.
type PreviewOptions struct {
	// Scale is the supersampling factor, 1 when zero and at most MaxScale.
	Scale int
	// Selected is the id of the selected element, if any.
	Selected string
	// Grid draws the editor's dot grid behind the elements.
	Grid bool
}

// Preview renders the interactive canvas: the same page as an export plus
// the selection outline, resize handles and delete control.
func (r *Renderer) Preview(ctx context.Context, elements []models.Element, opts PreviewOptions) *image.RGBA {
	c := r.NewPage(max(opts.Scale, 1))
	if opts.Grid {
		drawGrid(c, r.width, r.height)
	}
	var selected Drawable
	var selType models.ElementType
	for i := range elements {
		d := r.Render(ctx, elements[i])
		d.Draw(c)
		if opts.Selected != "" && elements[i].ID == opts.Selected {
			selected, selType = d, elements[i].Type
		}
	}
	if selected != nil {
		drawSelection(c, selected.Bounds(), selType == models.ElementDivider)
	}
	return c.Image()
}
