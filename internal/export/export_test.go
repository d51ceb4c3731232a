package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/reportdb/internal/models"
	"github.com/maruel/reportdb/internal/render"
)

func newPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	r, err := render.New(render.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	}
	return New(r, opts)
}

func checkPDF(t *testing.T, data []byte) {
	t.Helper()
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("missing PDF header: %.16q", data)
	}
	if n := bytes.Count(data, []byte("<</Type /Page\n")); n != 1 {
		t.Errorf("got %d pages, want 1", n)
	}
	if n := bytes.Count(data, []byte("/Subtype /Image")); n != 1 {
		t.Errorf("got %d images, want 1", n)
	}
	if !bytes.Contains(data, []byte("/MediaBox [0 0 794.00 1123.00]")) {
		t.Error("unexpected page size")
	}
	if !bytes.Contains(data, []byte("/Width 1588")) || !bytes.Contains(data, []byte("/Height 2246")) {
		t.Error("unexpected raster size")
	}
	if bytes.Contains(data, []byte("/SMask")) {
		t.Error("page image has an alpha channel")
	}
}

func newElement(t *testing.T, typ models.ElementType) models.Element {
	t.Helper()
	e, err := models.NewElement(typ)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestExport(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var stages []Stage
		p := newPipeline(t, Options{OnStage: func(s Stage) { stages = append(stages, s) }})
		res, err := p.Export(t.Context(), nil)
		if err != nil {
			t.Fatal(err)
		}
		checkPDF(t, res.PDF)
		want := []Stage{RenderingCharts, RenderingLayout, Rasterizing, Emitting, Idle}
		if diff := cmp.Diff(want, stages); diff != "" {
			t.Errorf("stages (-want +got):\n%s", diff)
		}
		if p.Stage() != Idle {
			t.Errorf("stage = %s", p.Stage())
		}
		if res.Stats.Width != 1588 || res.Stats.Height != 2246 {
			t.Errorf("stats = %+v", res.Stats)
		}
	})

	t.Run("every element type", func(t *testing.T) {
		p := newPipeline(t, Options{Title: "Q4 Sales Report", Creator: "reportdb"})
		var elements []models.Element
		for i, typ := range []models.ElementType{
			models.ElementText, models.ElementChart, models.ElementTable, models.ElementDivider,
			models.ElementImage, models.ElementQuote, models.ElementEmoji,
		} {
			e := newElement(t, typ)
			e.Position = models.Position{X: 20, Y: 20 + float64(i)*140}
			elements = append(elements, e)
		}
		before := make([]models.Element, len(elements))
		for i := range elements {
			before[i] = elements[i].Clone()
		}
		res, err := p.Export(t.Context(), elements)
		if err != nil {
			t.Fatal(err)
		}
		checkPDF(t, res.PDF)
		if !bytes.Contains(res.PDF, []byte("/Title")) {
			t.Error("missing title")
		}
		if res.Stats.Elements != 7 || res.Stats.ChartsRendered != 1 || res.Stats.ChartsDegraded != 0 {
			t.Errorf("stats = %+v", res.Stats)
		}
		if diff := cmp.Diff(before, elements); diff != "" {
			t.Errorf("elements mutated (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown chart type", func(t *testing.T) {
		p := newPipeline(t, Options{})
		e := newElement(t, models.ElementChart)
		e.Content.Chart.ChartType = "radar"
		res, err := p.Export(t.Context(), []models.Element{e})
		if err != nil {
			t.Fatal(err)
		}
		checkPDF(t, res.PDF)
		if res.Stats.ChartsRendered != 1 || res.Stats.ChartsDegraded != 0 {
			t.Errorf("stats = %+v", res.Stats)
		}
	})

	t.Run("out of page", func(t *testing.T) {
		p := newPipeline(t, Options{})
		e := newElement(t, models.ElementText)
		e.Position = models.Position{X: 700, Y: 1100}
		e.Size = models.Size{Width: 500, Height: 500}
		res, err := p.Export(t.Context(), []models.Element{e})
		if err != nil {
			t.Fatal(err)
		}
		checkPDF(t, res.PDF)
	})

	t.Run("canceled", func(t *testing.T) {
		var stages []Stage
		p := newPipeline(t, Options{OnStage: func(s Stage) { stages = append(stages, s) }})
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, err := p.Export(ctx, []models.Element{newElement(t, models.ElementText)}); err == nil {
			t.Fatal("expected error")
		}
		if got := stages[len(stages)-1]; got != Idle {
			t.Errorf("final stage = %s", got)
		}
	})
}

type chartFunc func(el models.Element, scale int) (*image.RGBA, error)

func (f chartFunc) RenderChart(el models.Element, scale int) (*image.RGBA, error) {
	return f(el, scale)
}

func TestExportDegradedCharts(t *testing.T) {
	for _, tc := range []struct {
		name string
		fn   chartFunc
	}{
		{"panic", func(models.Element, int) (*image.RGBA, error) { panic("boom") }},
		{"error", func(models.Element, int) (*image.RGBA, error) { return nil, errors.New("no canvas") }},
		{"nil", func(models.Element, int) (*image.RGBA, error) { return nil, nil }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := newPipeline(t, Options{Charts: tc.fn})
			elements := []models.Element{newElement(t, models.ElementChart), newElement(t, models.ElementText)}
			res, err := p.Export(t.Context(), elements)
			if err != nil {
				t.Fatal(err)
			}
			checkPDF(t, res.PDF)
			if res.Stats.ChartsRendered != 0 || res.Stats.ChartsDegraded != 1 || res.Stats.Elements != 2 {
				t.Errorf("stats = %+v", res.Stats)
			}
		})
	}
}

func TestExportDegenerateGeometry(t *testing.T) {
	chart := func(w, h float64) models.Element {
		e := newElement(t, models.ElementChart)
		e.Size = models.Size{Width: w, Height: h}
		return e
	}
	divider := func(ls models.LineStyle, thickness float64) models.Element {
		e := newElement(t, models.ElementDivider)
		e.Style.LineStyle = ls
		e.Style.Thickness = thickness
		return e
	}
	text := newElement(t, models.ElementText)
	text.Content.Text.FontSize = 1e9
	tests := []struct {
		name     string
		el       models.Element
		degraded int
	}{
		{"huge chart", chart(1e6, 1e6), 1},
		{"chart wider than page", chart(2000, 300), 1},
		{"page sized chart", chart(794, 1123), 0},
		{"dashed hairline divider", divider(models.LineDashed, 1e-20), 0},
		{"dotted hairline divider", divider(models.LineDotted, 1e-20), 0},
		{"huge font", text, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, Options{})
			type result struct {
				res *Result
				err error
			}
			done := make(chan result, 1)
			go func() {
				res, err := p.Export(t.Context(), []models.Element{tt.el})
				done <- result{res, err}
			}()
			var got result
			select {
			case got = <-done:
			case <-time.After(30 * time.Second):
				t.Fatalf("export did not finish (stage=%s)", p.Stage())
			}
			if got.err != nil {
				t.Fatal(got.err)
			}
			checkPDF(t, got.res.PDF)
			if got.res.Stats.ChartsDegraded != tt.degraded {
				t.Errorf("ChartsDegraded = %d, want %d", got.res.Stats.ChartsDegraded, tt.degraded)
			}
		})
	}
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	p := newPipeline(t, Options{})
	path := filepath.Join(dir, DefaultFilename)
	st, err := p.ExportFile(t.Context(), []models.Element{newElement(t, models.ElementQuote)}, path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Elements != 1 {
		t.Errorf("stats = %+v", st)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	checkPDF(t, data)

	t.Run("failure leaves no file", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		failed := filepath.Join(dir, "failed.pdf")
		if _, err := p.ExportFile(ctx, nil, failed); err == nil {
			t.Fatal("expected error")
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		if diff := cmp.Diff([]string{DefaultFilename}, names); diff != "" {
			t.Errorf("files (-want +got):\n%s", diff)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		if _, err := p.ExportFile(t.Context(), nil, filepath.Join(dir, "nope", "a.pdf")); err == nil {
			t.Fatal("expected error")
		}
	})
}
