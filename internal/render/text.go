package render

import (
	"strings"
)

// lineHeight is the line box height as a multiple of the font size.
const lineHeight = 1.5

// wrapText breaks s into lines no wider than maxWidth. Newlines are kept; a
// word wider than maxWidth is split between runes.
func wrapText(c *Canvas, ts TextStyle, s string, maxWidth float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := ""
		for _, w := range words {
			candidate := w
			if cur != "" {
				candidate = cur + " " + w
			}
			if c.MeasureText(ts, candidate) <= maxWidth {
				cur = candidate
				continue
			}
			if cur != "" {
				lines = append(lines, cur)
			}
			cur = ""
			for _, part := range splitWord(c, ts, w, maxWidth) {
				if cur != "" {
					lines = append(lines, cur)
				}
				cur = part
			}
		}
		lines = append(lines, cur)
	}
	return lines
}

// splitWord breaks a single word into pieces that fit maxWidth. A piece is
// never empty, so a rune wider than maxWidth still makes progress.
func splitWord(c *Canvas, ts TextStyle, w string, maxWidth float64) []string {
	if c.MeasureText(ts, w) <= maxWidth {
		return []string{w}
	}
	var parts []string
	cur := ""
	for _, r := range w {
		next := cur + string(r)
		if cur != "" && c.MeasureText(ts, next) > maxWidth {
			parts = append(parts, cur)
			next = string(r)
		}
		cur = next
	}
	if cur != "" {
		parts = append(parts, cur)
	}
	return parts
}

// textBlock is laid out text ready to draw.
type textBlock struct {
	style TextStyle
	lines []string
	align Align
}

// height returns the block height in page units.
func (b *textBlock) height() float64 {
	return float64(len(b.lines)) * b.style.clampedSize() * lineHeight
}

// draw paints the block with its top at y inside the horizontal span of r.
func (b *textBlock) draw(c *Canvas, r Rect, y float64) {
	ascent, descent := c.TextMetrics(b.style)
	lh := b.style.clampedSize() * lineHeight
	// Center the glyph box within each line box.
	baseline := y + (lh-(ascent+descent))/2 + ascent
	for _, l := range b.lines {
		switch b.align {
		case AlignCenter:
			c.DrawText(b.style, l, r.X+r.W/2, baseline, AlignCenter)
		case AlignRight:
			c.DrawText(b.style, l, r.X+r.W, baseline, AlignRight)
		case AlignLeft:
			c.DrawText(b.style, l, r.X, baseline, AlignLeft)
		}
		baseline += lh
	}
}

// drawCentered lays out s in r, centered both ways, clipped to r.
func drawCentered(c *Canvas, ts TextStyle, s string, r Rect) {
	if r.Empty() {
		return
	}
	b := &textBlock{style: ts, lines: wrapText(c, ts, s, r.W), align: AlignCenter}
	b.draw(c.Clip(r), r, r.Y+(r.H-b.height())/2)
}
