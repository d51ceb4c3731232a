package render

import (
	"image"
	"image/color"
	"math"

	"github.com/maruel/reportdb/internal/models"
)

// drawFrame paints the background and border of a boxed element and
// returns its content area.
func drawFrame(c *Canvas, r Rect, b models.Box) Rect {
	c.FillRoundRect(r, b.BorderRadius, colorOr(b.BackgroundColor, White))
	c.StrokeRoundRect(r, b.BorderRadius, b.BorderWidth, colorOr(b.BorderColor, tableBorder))
	return r.Inset(b.BorderWidth + b.Padding)
}

func elementRect(el *models.Element) Rect {
	return RectOf(el.Position, el.Size)
}

type textElement struct {
	el models.Element
}

func (d *textElement) Bounds() image.Rectangle { return elementRect(&d.el).Bounds() }

func (d *textElement) Draw(c *Canvas) {
	content := drawFrame(c, elementRect(&d.el), d.el.Style.Box())
	tc := d.el.TextContent()
	ts := TextStyle{Size: tc.FontSize, Font: Regular, Color: colorOr(d.el.Style.TextColor(), mustColor(models.DefaultTextColor))}
	if tc.Bold() {
		ts.Font = Bold
	}
	text := tc.Text
	if text == "" {
		text = models.TextPlaceholder
	}
	drawCentered(c, ts, text, content)
}

type chartElement struct {
	r      *Renderer
	el     models.Element
	live   bool
	bitmap image.Image
}

func (d *chartElement) Bounds() image.Rectangle { return elementRect(&d.el).Bounds() }

func (d *chartElement) Draw(c *Canvas) {
	content := drawFrame(c, elementRect(&d.el), d.el.Style.Box())
	bitmap := d.bitmap
	if d.live && bitmap == nil {
		if img, err := d.r.RenderChart(d.el, int(c.Scale())); err == nil {
			bitmap = img
		}
	}
	if bitmap == nil {
		ts := TextStyle{Size: 14, Font: Regular, Color: placeholderGray}
		drawCentered(c, ts, chartPlaceholder(&d.el), content)
		return
	}
	c.Clip(content).DrawImageContain(bitmap, content)
}

// Table layout, in page units.
const (
	tableFontSize    = 12
	tableCellPadding = 8
	tableBorderWidth = 1
)

type tableElement struct {
	el models.Element
}

func (d *tableElement) Bounds() image.Rectangle { return elementRect(&d.el).Bounds() }

func (d *tableElement) Draw(c *Canvas) {
	content := drawFrame(c, elementRect(&d.el), d.el.Style.Box())
	tc := d.el.TableContent()
	cols := len(tc.Headers)
	for _, row := range tc.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 || content.Empty() {
		return
	}
	cc := c.Clip(content)
	colW := content.W / float64(cols)
	body := TextStyle{Size: tableFontSize, Font: Regular, Color: mustColor(models.DefaultTextColor)}
	head := body
	head.Font = Bold
	y := content.Y
	if len(tc.Headers) > 0 {
		y = drawTableRow(cc, head, tc.Headers, content.X, y, colW, tableHeaderBg)
	}
	for _, row := range tc.Rows {
		if y >= content.Y+content.H {
			break
		}
		y = drawTableRow(cc, body, row, content.X, y, colW, Transparent)
	}
}

// drawTableRow paints one row of collapsed-border cells starting at y and
// returns the y of the next row.
func drawTableRow(c *Canvas, ts TextStyle, cells []string, x, y, colW float64, bg color.NRGBA) float64 {
	inner := max(colW-2*tableCellPadding, 1)
	blocks := make([]*textBlock, len(cells))
	h := ts.Size * lineHeight
	for i, cell := range cells {
		blocks[i] = &textBlock{style: ts, lines: wrapText(c, ts, cell, inner), align: AlignLeft}
		h = max(h, blocks[i].height())
	}
	rowH := h + 2*tableCellPadding
	for i, b := range blocks {
		cell := Rect{X: x + float64(i)*colW, Y: y, W: colW, H: rowH}
		c.FillRect(cell, bg)
		c.StrokeRoundRect(cell, 0, tableBorderWidth, tableBorder)
		text := cell.Inset(tableCellPadding)
		b.draw(c.Clip(text), text, text.Y)
	}
	// Collapsed borders: adjacent rows share one line.
	return y + rowH - tableBorderWidth
}

// Dash patterns as multiples of the divider thickness.
const (
	dashLength = 3
	dashGap    = 2
	dotGap     = 2
)

// maxRepeat bounds the dashes or dots drawn for one divider.
const maxRepeat = 1 << 16

// repeatX calls fn for every x0+i*step in [x0, end], skipping the steps that
// fall outside the drawable span of c. One step before the span is kept so a
// mark that starts off canvas is still drawn.
func repeatX(c *Canvas, x0, end, step float64, fn func(x float64)) {
	if !(step > 0) || !(end >= x0) {
		return
	}
	lo, hi := c.spanX()
	first := max(math.Floor((lo-x0)/step)-1, 0)
	last := min(math.Floor((end-x0)/step), math.Floor((hi-x0)/step))
	if !(last >= first) {
		return
	}
	n := int(min(last-first+1, maxRepeat))
	for i := range n {
		fn(x0 + (first+float64(i))*step)
	}
}

type dividerElement struct {
	el models.Element
}

func (d *dividerElement) Bounds() image.Rectangle {
	return RectOf(d.el.Position, d.el.LayoutSize()).Bounds()
}

func (d *dividerElement) Draw(c *Canvas) {
	dv := d.el.Style.Divider()
	col := colorOr(dv.Color, mustColor(models.DefaultDividerColor))
	x0, x1 := d.el.Position.X, d.el.Position.X+d.el.Size.Width
	y := d.el.Position.Y + dv.MarginVertical
	t := dv.Thickness
	switch dv.LineStyle {
	case models.LineDashed:
		repeatX(c, x0, x1, (dashLength+dashGap)*t, func(x float64) {
			c.FillRect(Rect{X: x, Y: y, W: min(dashLength*t, x1-x), H: t}, col)
		})
	case models.LineDotted:
		repeatX(c, x0, x1-t, dotGap*t, func(x float64) {
			c.FillCircle(x+t/2, y+t/2, t/2, col)
		})
	case models.LineSolid:
		c.FillRect(Rect{X: x0, Y: y, W: x1 - x0, H: t}, col)
	}
}

type imageElement struct {
	el     models.Element
	img    image.Image
	failed bool
}

func (d *imageElement) Bounds() image.Rectangle { return elementRect(&d.el).Bounds() }

func (d *imageElement) Draw(c *Canvas) {
	content := drawFrame(c, elementRect(&d.el), d.el.Style.Box())
	if d.img != nil {
		c.Clip(content).DrawImageContain(d.img, content)
		return
	}
	text := models.ImagePlaceholder
	if alt := d.el.ImageContent().Alt; d.failed && alt != "" {
		text = alt
	}
	drawCentered(c, TextStyle{Size: 12, Font: Regular, Color: imageEmptyGray}, text, content)
}

// Quote layout, in page units.
const (
	quoteBar        = 4
	quotePadX       = 16
	quotePadY       = 8
	quoteTextSize   = 18
	quoteAuthorSize = 14
	quoteAuthorGap  = 8
)

type quoteElement struct {
	el models.Element
}

func (d *quoteElement) Bounds() image.Rectangle { return elementRect(&d.el).Bounds() }

func (d *quoteElement) Draw(c *Canvas) {
	content := drawFrame(c, elementRect(&d.el), d.el.Style.Box())
	if content.Empty() {
		return
	}
	q := d.el.QuoteContent()
	cc := c.Clip(content)
	cc.FillRect(Rect{X: content.X, Y: content.Y, W: min(quoteBar, content.W), H: content.H}, quoteBorder)
	inner := Rect{
		X: content.X + quoteBar + quotePadX,
		Y: content.Y + quotePadY,
		W: max(content.W-quoteBar-2*quotePadX, 0),
		H: max(content.H-2*quotePadY, 0),
	}
	if inner.Empty() {
		return
	}
	bodyStyle := TextStyle{Size: quoteTextSize, Font: Italic, Color: quoteText}
	body := &textBlock{style: bodyStyle, lines: wrapText(cc, bodyStyle, "“"+q.Text+"”", inner.W), align: AlignCenter}
	author := &textBlock{
		style: TextStyle{Size: quoteAuthorSize, Font: Regular, Color: placeholderGray},
		lines: []string{"— " + q.Author},
		align: AlignRight,
	}
	total := body.height() + quoteAuthorGap + author.height()
	y := inner.Y + (inner.H-total)/2
	ic := cc.Clip(inner)
	body.draw(ic, inner, y)
	author.draw(ic, inner, y+body.height()+quoteAuthorGap)
}

type emojiElement struct {
	el      models.Element
	hasFont bool
}

func (d *emojiElement) Bounds() image.Rectangle { return elementRect(&d.el).Bounds() }

func (d *emojiElement) Draw(c *Canvas) {
	content := drawFrame(c, elementRect(&d.el), d.el.Style.Box())
	size := d.el.EmojiRenderSize()
	cx, cy := content.X+content.W/2, content.Y+content.H/2
	cc := c.Clip(elementRect(&d.el))
	if !d.hasFont {
		// Without an emoji font, mark the spot with a badge of the same size.
		r := size / 2
		cc.FillCircle(cx, cy, r, emojiBadgeEdge)
		cc.FillCircle(cx, cy, r-max(size/24, 1), emojiBadge)
		return
	}
	ts := TextStyle{Size: size, Font: Emoji, Color: mustColor(models.DefaultTextColor)}
	ascent, descent := cc.TextMetrics(ts)
	cc.DrawText(ts, d.el.EmojiContent().Emoji, cx, cy+(ascent-descent)/2, AlignCenter)
}

type emptyElement struct {
	el models.Element
}

func (d *emptyElement) Bounds() image.Rectangle { return elementRect(&d.el).Bounds() }

func (d *emptyElement) Draw(*Canvas) {}

// Editor chrome, in page units.
const (
	gridSpacing    = 20
	ringWidth      = 2
	handleSize     = 8
	deleteDiameter = 24
)

func drawGrid(c *Canvas, w, h float64) {
	for y := gridSpacing / 2.; y < h; y += gridSpacing {
		for x := gridSpacing / 2.; x < w; x += gridSpacing {
			c.FillCircle(x, y, 1, gridDot)
		}
	}
}

// drawSelection paints the selection ring, the resize handles and the
// delete control around b. Dividers only resize horizontally.
func drawSelection(c *Canvas, b image.Rectangle, horizontalOnly bool) {
	r := Rect{X: float64(b.Min.X), Y: float64(b.Min.Y), W: float64(b.Dx()), H: float64(b.Dy())}
	ring := Rect{X: r.X - ringWidth, Y: r.Y - ringWidth, W: r.W + 2*ringWidth, H: r.H + 2*ringWidth}
	c.StrokeRoundRect(ring, 0, ringWidth, selectionBlue)

	midX, midY := r.X+r.W/2, r.Y+r.H/2
	handles := []point{{r.X, midY}, {r.X + r.W, midY}}
	if !horizontalOnly {
		handles = append(handles,
			point{r.X, r.Y}, point{midX, r.Y}, point{r.X + r.W, r.Y},
			point{r.X, r.Y + r.H}, point{midX, r.Y + r.H}, point{r.X + r.W, r.Y + r.H},
		)
	}
	for _, p := range handles {
		h := Rect{X: p.x - handleSize/2, Y: p.y - handleSize/2, W: handleSize, H: handleSize}
		c.FillRect(h, White)
		c.StrokeRoundRect(h, 0, 1, selectionBlue)
	}

	// Delete control, overlapping the top-right corner.
	cx := r.X + r.W + 8 - deleteDiameter/2
	cy := r.Y - 8 + deleteDiameter/2
	c.FillCircle(cx, cy, deleteDiameter/2, deleteRed)
	k := deleteDiameter / 6.
	c.StrokeLine(cx-k, cy-k, cx+k, cy+k, 1.5, White)
	c.StrokeLine(cx-k, cy+k, cx+k, cy-k, 1.5, White)
}
