package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/maruel/reportdb/internal/models"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Rect is a rectangle in page units.
type Rect struct {
	X, Y, W, H float64
}

// RectOf returns the rectangle of an element placed at p with size s.
func RectOf(p models.Position, s models.Size) Rect {
	return Rect{X: p.X, Y: p.Y, W: s.Width, H: s.Height}
}

// Inset shrinks r by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, W: max(r.W-2*d, 0), H: max(r.H-2*d, 0)}
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Bounds returns the smallest integer rectangle containing r.
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(int(math.Floor(r.X)), int(math.Floor(r.Y)), int(math.Ceil(r.X+r.W)), int(math.Ceil(r.Y+r.H)))
}

// Canvas is a raster surface addressed in page units. One page unit maps to
// Scale device pixels.
//
// A Canvas is not safe for concurrent use.
type Canvas struct {
	img   *image.RGBA
	scale float64
	fonts *fontSet
	faces map[faceKey]font.Face
}

func newCanvas(width, height float64, scale int, fonts *fontSet) *Canvas {
	scale = min(max(scale, 1), MaxScale)
	w := max(int(math.Ceil(width*float64(scale))), 1)
	h := max(int(math.Ceil(height*float64(scale))), 1)
	return &Canvas{
		img:   image.NewRGBA(image.Rect(0, 0, w, h)),
		scale: float64(scale),
		fonts: fonts,
		faces: map[faceKey]font.Face{},
	}
}

// Image returns the backing image. For a clipped canvas it is the clipped
// sub-image.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Scale returns the device pixels per page unit.
func (c *Canvas) Scale() float64 {
	return c.scale
}

// Clip returns a canvas sharing the same pixels whose drawing is limited to
// r. Coordinates are unchanged.
func (c *Canvas) Clip(r Rect) *Canvas {
	sub, _ := c.img.SubImage(c.device(r)).(*image.RGBA)
	return &Canvas{img: sub, scale: c.scale, fonts: c.fonts, faces: c.faces}
}

// spanX returns the horizontal extent of the drawable area in page units.
func (c *Canvas) spanX() (lo, hi float64) {
	b := c.img.Bounds()
	return float64(b.Min.X) / c.scale, float64(b.Max.X) / c.scale
}

// Fill paints the whole drawable area.
func (c *Canvas) Fill(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *Canvas) device(r Rect) image.Rectangle {
	s := c.scale
	return image.Rect(
		int(math.Round(r.X*s)), int(math.Round(r.Y*s)),
		int(math.Round((r.X+r.W)*s)), int(math.Round((r.Y+r.H)*s)),
	)
}

// FillRect paints r.
func (c *Canvas) FillRect(r Rect, col color.Color) {
	if r.Empty() || isClear(col) {
		return
	}
	c.fillPolygon(rectPoints(r), col)
}

// FillRoundRect paints r with corners of the given radius.
func (c *Canvas) FillRoundRect(r Rect, radius float64, col color.Color) {
	if r.Empty() || isClear(col) {
		return
	}
	c.fillPolygon(roundRectPoints(r, radius), col)
}

// StrokeRoundRect paints a border of width w inside r.
func (c *Canvas) StrokeRoundRect(r Rect, radius, w float64, col color.Color) {
	if r.Empty() || w <= 0 || isClear(col) {
		return
	}
	inner := r.Inset(w)
	outer := roundRectPoints(r, radius)
	if inner.Empty() {
		c.fillPolygon(outer, col)
		return
	}
	hole := roundRectPoints(inner, max(radius-w, 0))
	reverse(hole)
	c.fill(col, outer, hole)
}

// FillCircle paints a disc.
func (c *Canvas) FillCircle(cx, cy, radius float64, col color.Color) {
	if radius <= 0 || isClear(col) {
		return
	}
	c.fillPolygon(arcPoints(cx, cy, radius, 0, 2*math.Pi), col)
}

// FillPie paints a circular sector from angle a0 to a1, in radians,
// clockwise on screen.
func (c *Canvas) FillPie(cx, cy, radius, a0, a1 float64, col color.Color) {
	if radius <= 0 || a1 <= a0 || isClear(col) {
		return
	}
	pts := []point{{cx, cy}}
	pts = append(pts, arcPoints(cx, cy, radius, a0, a1)...)
	c.fillPolygon(pts, col)
}

// StrokeLine paints a segment of width w with butt caps.
func (c *Canvas) StrokeLine(x0, y0, x1, y1, w float64, col color.Color) {
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)
	if l == 0 || w <= 0 || isClear(col) {
		return
	}
	nx, ny := -dy/l*w/2, dx/l*w/2
	c.fillPolygon([]point{{x0 + nx, y0 + ny}, {x1 + nx, y1 + ny}, {x1 - nx, y1 - ny}, {x0 - nx, y0 - ny}}, col)
}

// strokePolyline paints connected segments of width w with round joins.
func (c *Canvas) strokePolyline(pts []point, w float64, col color.Color) {
	for i := 1; i < len(pts); i++ {
		c.StrokeLine(pts[i-1].x, pts[i-1].y, pts[i].x, pts[i].y, w, col)
	}
	for i := 1; i < len(pts)-1; i++ {
		c.FillCircle(pts[i].x, pts[i].y, w/2, col)
	}
}

// fillPolygon paints a closed polygon given in page units.
func (c *Canvas) fillPolygon(pts []point, col color.Color) {
	c.fill(col, pts)
}

// fill rasterizes one or more closed subpaths with the non-zero rule.
// Opposite windings cancel, which is how borders get their hole.
func (c *Canvas) fill(col color.Color, subpaths ...[]point) {
	s := c.scale
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	n := 0
	for _, sp := range subpaths {
		for _, p := range sp {
			minX, minY = min(minX, p.x*s), min(minY, p.y*s)
			maxX, maxY = max(maxX, p.x*s), max(maxY, p.y*s)
			n++
		}
	}
	if n < 3 {
		return
	}
	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY))).Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for _, sp := range subpaths {
		if len(sp) < 3 {
			continue
		}
		z.MoveTo(float32(sp[0].x*s-ox), float32(sp[0].y*s-oy))
		for _, p := range sp[1:] {
			z.LineTo(float32(p.x*s-ox), float32(p.y*s-oy))
		}
		z.ClosePath()
	}
	z.Draw(c.img, r, image.NewUniform(col), image.Point{})
}

// DrawImage scales src into r, ignoring its aspect ratio.
func (c *Canvas) DrawImage(src image.Image, r Rect) {
	if r.Empty() || src == nil || src.Bounds().Empty() {
		return
	}
	xdraw.CatmullRom.Scale(c.img, c.device(r), src, src.Bounds(), xdraw.Over, nil)
}

// DrawImageContain scales src to fit inside r preserving its aspect ratio,
// centered.
func (c *Canvas) DrawImageContain(src image.Image, r Rect) {
	if r.Empty() || src == nil || src.Bounds().Empty() {
		return
	}
	c.DrawImage(src, containRect(src.Bounds(), r))
}

// containRect fits a bitmap of size b inside r.
func containRect(b image.Rectangle, r Rect) Rect {
	iw, ih := float64(b.Dx()), float64(b.Dy())
	k := min(r.W/iw, r.H/ih)
	w, h := iw*k, ih*k
	return Rect{X: r.X + (r.W-w)/2, Y: r.Y + (r.H-h)/2, W: w, H: h}
}

// TextStyle describes how a run of text is drawn.
type TextStyle struct {
	Size  float64 // page units
	Font  FontStyle
	Color color.Color
}

// Align is a horizontal text alignment.
type Align int

// Alignments.
const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// MaxTextSize bounds the rendered font size in page units. Larger sizes are
// drawn at this size.
const MaxTextSize = 512

// clampedSize returns Size bounded by MaxTextSize, or zero when it is not
// a positive number.
func (ts TextStyle) clampedSize() float64 {
	if !(ts.Size > 0) {
		return 0
	}
	return min(ts.Size, MaxTextSize)
}

func (c *Canvas) textFace(ts TextStyle) font.Face {
	return c.face(ts.Font, ts.clampedSize()*c.scale)
}

// MeasureText returns the advance width of s in page units.
func (c *Canvas) MeasureText(ts TextStyle, s string) float64 {
	return fromFixed(font.MeasureString(c.textFace(ts), s)) / c.scale
}

// TextMetrics returns the ascent and descent of ts in page units.
func (c *Canvas) TextMetrics(ts TextStyle) (ascent, descent float64) {
	m := c.textFace(ts).Metrics()
	return fromFixed(m.Ascent) / c.scale, fromFixed(m.Descent) / c.scale
}

// DrawText draws s with its baseline at y. x is the left edge, the center or
// the right edge depending on align.
func (c *Canvas) DrawText(ts TextStyle, s string, x, y float64, align Align) {
	if s == "" || isClear(ts.Color) {
		return
	}
	face := c.textFace(ts)
	switch align {
	case AlignCenter:
		x -= c.MeasureText(ts, s) / 2
	case AlignRight:
		x -= c.MeasureText(ts, s)
	case AlignLeft:
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(ts.Color),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(x * c.scale), Y: toFixed(y * c.scale)},
	}
	d.DrawString(s)
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func isClear(col color.Color) bool {
	if col == nil {
		return true
	}
	_, _, _, a := col.RGBA()
	return a == 0
}

// point is a position in page units.
type point struct {
	x, y float64
}

func rectPoints(r Rect) []point {
	return []point{{r.X, r.Y}, {r.X + r.W, r.Y}, {r.X + r.W, r.Y + r.H}, {r.X, r.Y + r.H}}
}

// roundRectPoints returns r as a clockwise polygon with flattened corners.
func roundRectPoints(r Rect, radius float64) []point {
	radius = min(radius, r.W/2, r.H/2)
	if radius <= 0 {
		return rectPoints(r)
	}
	var pts []point
	corners := []struct{ cx, cy, a float64 }{
		{r.X + r.W - radius, r.Y + radius, -math.Pi / 2},
		{r.X + r.W - radius, r.Y + r.H - radius, 0},
		{r.X + radius, r.Y + r.H - radius, math.Pi / 2},
		{r.X + radius, r.Y + radius, math.Pi},
	}
	for _, k := range corners {
		pts = append(pts, arcPoints(k.cx, k.cy, radius, k.a, k.a+math.Pi/2)...)
	}
	return pts
}

// arcPoints flattens an arc from a0 to a1, both included.
func arcPoints(cx, cy, radius, a0, a1 float64) []point {
	steps := max(int(math.Ceil((a1-a0)/(math.Pi/48))), 1)
	pts := make([]point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(steps)
		pts = append(pts, point{cx + radius*math.Cos(a), cy + radius*math.Sin(a)})
	}
	return pts
}

func reverse(pts []point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}
