// Package export turns a report's elements into a single page PDF.
//
// The pipeline is a small state machine:
//
//	Idle -> RenderingCharts -> RenderingLayout -> Rasterizing -> Emitting -> Idle
//
// Chart failures degrade to a placeholder. Any other failure returns to Idle
// with an error and produces no output.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maruel/reportdb/internal/models"
	"github.com/maruel/reportdb/internal/render"
)

// Stage is the state of a Pipeline.
type Stage int32

// Pipeline stages, in order.
const (
	Idle Stage = iota
	RenderingCharts
	RenderingLayout
	Rasterizing
	Emitting
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case RenderingCharts:
		return "rendering-charts"
	case RenderingLayout:
		return "rendering-layout"
	case Rasterizing:
		return "rasterizing"
	case Emitting:
		return "emitting"
	default:
		return fmt.Sprintf("stage(%d)", int32(s))
	}
}

// DefaultScale is the supersampling factor of the page raster.
const DefaultScale = 2

// DefaultFilename is the name offered for a downloaded export.
const DefaultFilename = "report.pdf"

// ChartRenderer draws one chart to a bitmap. *render.Renderer implements it.
type ChartRenderer interface {
	RenderChart(el models.Element, scale int) (*image.RGBA, error)
}

// Options configures a Pipeline.
type Options struct {
	// Scale is the supersampling factor. DefaultScale when zero, at most
	// render.MaxScale.
	Scale int
	// Title and Creator are written to the document metadata.
	Title   string
	Creator string
	// Charts overrides the chart renderer. Defaults to the page renderer.
	Charts ChartRenderer
	// OnStage is called on every stage transition, from the exporting
	// goroutine.
	OnStage func(Stage)
	// Now is the clock used for the document creation date.
	Now func() time.Time
}

// Stats describes one export.
type Stats struct {
	Elements       int           `json:"elements"`
	ChartsRendered int           `json:"charts_rendered"`
	ChartsDegraded int           `json:"charts_degraded"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	Duration       time.Duration `json:"duration"`
}

// Result is a finished export.
type Result struct {
	PDF   []byte
	Stats Stats
}

// Pipeline exports element sequences. Exports are serialized: a concurrent
// call waits for the running one.
type Pipeline struct {
	renderer *render.Renderer
	charts   ChartRenderer
	opts     Options

	mu    sync.Mutex
	stage atomic.Int32
}

// New returns a Pipeline drawing with r.
func New(r *render.Renderer, opts Options) *Pipeline {
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	opts.Scale = min(opts.Scale, render.MaxScale)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &Pipeline{renderer: r, charts: opts.Charts, opts: opts}
	if p.charts == nil {
		p.charts = r
	}
	return p
}

// Stage returns the current stage.
func (p *Pipeline) Stage() Stage {
	return Stage(p.stage.Load())
}

func (p *Pipeline) enter(s Stage) {
	p.stage.Store(int32(s))
	if p.opts.OnStage != nil {
		p.opts.OnStage(s)
	}
}

// Stage results.
type (
	// chartBitmaps holds one bitmap per element index; nil for non-charts
	// and degraded charts.
	chartBitmaps []image.Image
	page         []render.Drawable
	raster       struct{ img *image.RGBA }
	document     []byte
)

// Export renders elements to a PDF. elements is not modified.
func (p *Pipeline) Export(ctx context.Context, elements []models.Element) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.enter(Idle)
	start := time.Now()
	st := Stats{Elements: len(elements)}

	p.enter(RenderingCharts)
	charts, err := p.renderCharts(ctx, elements, &st)
	if err != nil {
		return nil, err
	}
	p.enter(RenderingLayout)
	pg, err := p.layout(ctx, elements, charts)
	if err != nil {
		return nil, err
	}
	p.enter(Rasterizing)
	ras, err := p.rasterize(ctx, pg)
	if err != nil {
		return nil, err
	}
	p.enter(Emitting)
	doc, err := p.emit(ctx, ras)
	if err != nil {
		return nil, err
	}
	b := ras.img.Bounds()
	st.Width, st.Height = b.Dx(), b.Dy()
	st.Duration = time.Since(start)
	slog.InfoContext(ctx, "export", "elements", st.Elements, "charts", st.ChartsRendered, "degraded", st.ChartsDegraded, "bytes", len(doc), "dur", st.Duration)
	return &Result{PDF: doc, Stats: st}, nil
}

func (p *Pipeline) renderCharts(ctx context.Context, elements []models.Element, st *Stats) (chartBitmaps, error) {
	out := make(chartBitmaps, len(elements))
	for i := range elements {
		if elements[i].Type != models.ElementChart {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := p.renderChart(elements[i])
		if err != nil {
			slog.WarnContext(ctx, "chart degraded to placeholder", "element", elements[i].ID, "err", err)
			st.ChartsDegraded++
			continue
		}
		out[i] = img
		st.ChartsRendered++
	}
	return out, nil
}

// renderChart renders one chart, turning a panic into an error.
func (p *Pipeline) renderChart(el models.Element) (img image.Image, err error) {
	defer func() {
		if v := recover(); v != nil {
			img, err = nil, fmt.Errorf("chart renderer panicked: %v", v)
		}
	}()
	bitmap, err := p.charts.RenderChart(el.Clone(), p.opts.Scale)
	if err != nil {
		return nil, err
	}
	if bitmap == nil {
		return nil, errors.New("chart renderer returned no bitmap")
	}
	return bitmap, nil
}

func (p *Pipeline) layout(ctx context.Context, elements []models.Element, charts chartBitmaps) (page, error) {
	pg := make(page, 0, len(elements))
	for i := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if elements[i].Type == models.ElementChart {
			pg = append(pg, p.renderer.Chart(elements[i], charts[i]))
			continue
		}
		pg = append(pg, p.renderer.Render(ctx, elements[i]))
	}
	return pg, nil
}

func (p *Pipeline) rasterize(ctx context.Context, pg page) (raster, error) {
	if err := ctx.Err(); err != nil {
		return raster{}, err
	}
	c := p.renderer.NewPage(p.opts.Scale)
	render.DrawAll(c, pg)
	return raster{img: c.Image()}, nil
}

// ExportFile exports elements to path. The file is written to a temporary
// name in the same directory and renamed, so path never holds a partial
// document.
func (p *Pipeline) ExportFile(ctx context.Context, elements []models.Element, path string) (*Stats, error) {
	res, err := p.Export(ctx, elements)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, res.PDF); err != nil {
		return nil, err
	}
	return &res.Stats, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	tmp := f.Name()
	if _, err = f.Write(data); err == nil {
		err = f.Sync()
	}
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
