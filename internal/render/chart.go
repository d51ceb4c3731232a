package render

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/maruel/reportdb/internal/models"
)

// Chart layout constants, in page units.
const (
	chartPadding   = 40
	chartLabelSize = 12
	chartLabelGap  = 20
	lineStroke     = 2
	linePointSize  = 4
	pieLabelOffset = 20
)

// ErrChartSize is returned when a chart element has no drawable area or is
// larger than the page.
var ErrChartSize = errors.New("chart element has no area or exceeds the page")

// RenderChart draws the chart of el, statically, to a bitmap of the
// element's stored size times scale. The size is bounded by the page and the
// scale by MaxScale. A chart without data yields a fully
// transparent bitmap. Unknown chart types are drawn as bar charts.
func (r *Renderer) RenderChart(el models.Element, scale int) (*image.RGBA, error) {
	w, h := el.Size.Width, el.Size.Height
	if !(w > 0 && h > 0) || w > r.width || h > r.height {
		return nil, fmt.Errorf("%w: %gx%g", ErrChartSize, w, h)
	}
	c := newCanvas(w, h, scale, r.fonts)
	cc := el.ChartContent()
	if len(cc.Data) == 0 {
		return c.Image(), nil
	}
	for _, p := range cc.Data {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return nil, fmt.Errorf("chart point %q has a non-finite value", p.Name)
		}
	}
	c.Fill(White)
	plot := Rect{X: chartPadding, Y: chartPadding, W: w - 2*chartPadding, H: h - 2*chartPadding}
	switch cc.ChartType {
	case models.ChartLine:
		drawLineChart(c, cc.Data, plot)
	case models.ChartPie:
		drawPieChart(c, cc.Data, w/2, h/2, min(plot.W, plot.H)/2-pieLabelOffset)
	default:
		drawBarChart(c, cc.Data, plot)
	}
	return c.Image(), nil
}

func maxValue(data []models.DataPoint) float64 {
	m := math.Inf(-1)
	for _, p := range data {
		m = max(m, p.Value)
	}
	return m
}

func chartLabel() TextStyle {
	return TextStyle{Size: chartLabelSize, Font: Regular, Color: chartLabelColor}
}

func drawBarChart(c *Canvas, data []models.DataPoint, plot Rect) {
	n := float64(len(data))
	barWidth := plot.W / n * 0.8
	spacing := plot.W / n * 0.2
	top := maxValue(data)
	labels := chartLabel()
	for i, p := range data {
		x := plot.X + float64(i)*(barWidth+spacing) + spacing/2
		if top > 0 {
			bh := p.Value / top * plot.H
			y := plot.Y + plot.H - bh
			if bh < 0 {
				y, bh = plot.Y+plot.H, -bh
			}
			c.FillRect(Rect{X: x, Y: y, W: barWidth, H: bh}, chartBarColor)
		}
		c.DrawText(labels, p.Name, x+barWidth/2, plot.Y+plot.H+chartLabelGap, AlignCenter)
	}
}

func drawLineChart(c *Canvas, data []models.DataPoint, plot Rect) {
	top := maxValue(data)
	xs := make([]float64, len(data))
	if len(data) == 1 {
		xs[0] = plot.X + plot.W/2
	} else {
		step := plot.W / float64(len(data)-1)
		for i := range xs {
			xs[i] = plot.X + float64(i)*step
		}
	}
	pts := make([]point, len(data))
	for i, p := range data {
		y := plot.Y + plot.H
		if top > 0 {
			y -= p.Value / top * plot.H
		}
		pts[i] = point{xs[i], y}
	}
	c.strokePolyline(pts, lineStroke, chartBarColor)
	for _, p := range pts {
		c.FillCircle(p.x, p.y, linePointSize, chartBarColor)
	}
	labels := chartLabel()
	for i, p := range data {
		c.DrawText(labels, p.Name, xs[i], plot.Y+plot.H+chartLabelGap, AlignCenter)
	}
}

func drawPieChart(c *Canvas, data []models.DataPoint, cx, cy, radius float64) {
	total := 0.0
	for _, p := range data {
		total += p.Value
	}
	if total <= 0 || radius <= 0 {
		return
	}
	labels := chartLabel()
	angle := -math.Pi / 2
	for i, p := range data {
		sweep := p.Value / total * 2 * math.Pi
		c.FillPie(cx, cy, radius, angle, angle+sweep, chartPalette[i%len(chartPalette)])
		mid := angle + sweep/2
		lx := cx + math.Cos(mid)*(radius+pieLabelOffset)
		ly := cy + math.Sin(mid)*(radius+pieLabelOffset)
		c.DrawText(labels, p.Name+": "+formatValue(p.Value), lx, ly, AlignCenter)
		angle += sweep
	}
}

// formatValue prints integers without a fraction and other values in their
// shortest form.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// chartPlaceholder is the text shown when a chart bitmap could not be made.
func chartPlaceholder(el *models.Element) string {
	cc := el.ChartContent()
	return fmt.Sprintf("Chart: %s chart with %d data points", cc.ChartType, len(cc.Data))
}
