package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/maruel/reportdb/internal/models"
	"github.com/maruel/reportdb/internal/storage"
)

func newTestRenderer(t *testing.T, images ImageSource) *Renderer {
	t.Helper()
	r, err := New(Options{Images: images})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// near reports whether got is within a rounding error of want.
func near(got color.RGBA, want color.NRGBA) bool {
	d := func(a, b uint8) bool { return max(a, b)-min(a, b) <= 3 }
	return d(got.R, want.R) && d(got.G, want.G) && d(got.B, want.B) && d(got.A, want.A)
}

func checkPixel(t *testing.T, img *image.RGBA, x, y int, want color.NRGBA) {
	t.Helper()
	if got := img.RGBAAt(x, y); !near(got, want) {
		t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
	}
}

func testChartElement(typ models.ChartType, w, h float64, data ...models.DataPoint) models.Element {
	return models.Element{
		ID:      "chart",
		Type:    models.ElementChart,
		Size:    models.Size{Width: w, Height: h},
		Content: models.Content{Chart: &models.ChartContent{ChartType: typ, Data: data}},
	}
}

func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseColor(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want color.NRGBA
	}{
		{"#3b82f6", color.NRGBA{0x3b, 0x82, 0xf6, 0xff}},
		{"#FFF", color.NRGBA{0xff, 0xff, 0xff, 0xff}},
		{"#00000080", color.NRGBA{0, 0, 0, 0x80}},
		{"#f008", color.NRGBA{0xff, 0, 0, 0x88}},
		{"transparent", color.NRGBA{}},
		{" Black ", color.NRGBA{0, 0, 0, 0xff}},
		{"rgb(59, 130, 246)", color.NRGBA{59, 130, 246, 0xff}},
		{"rgba(255,0,0,0.5)", color.NRGBA{255, 0, 0, 128}},
		{"rgb(100%, 0%, 0%)", color.NRGBA{255, 0, 0, 0xff}},
	} {
		got, err := ParseColor(tc.in)
		if err != nil {
			t.Errorf("ParseColor(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "#12", "#gggggg", "rgba(1,2,3)", "hsl(0,0%,0%)", "rgb(a,b,c)"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q) succeeded", bad)
		}
	}
	if got := colorOr("nope", White); got != White {
		t.Errorf("colorOr fallback = %v", got)
	}
}

func TestRenderChart(t *testing.T) {
	r := newTestRenderer(t, nil)
	blue := chartPalette[0]

	t.Run("bar", func(t *testing.T) {
		img, err := r.RenderChart(testChartElement(models.ChartBar, 200, 200, models.DataPoint{Name: "A", Value: 1}, models.DataPoint{Name: "B", Value: 2}), 1)
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
			t.Fatalf("bounds = %v", b)
		}
		// Plot area 40..160; bars are 48 wide with 12 spacing.
		checkPixel(t, img, 70, 130, blue)
		checkPixel(t, img, 70, 60, White)
		checkPixel(t, img, 130, 50, blue)
		checkPixel(t, img, 100, 100, White)
		checkPixel(t, img, 5, 5, White)
	})

	t.Run("unknown type is bar", func(t *testing.T) {
		data := []models.DataPoint{{Name: "A", Value: 3}, {Name: "B", Value: 1}}
		bar, err := r.RenderChart(testChartElement(models.ChartBar, 160, 120, data...), 1)
		if err != nil {
			t.Fatal(err)
		}
		donut, err := r.RenderChart(testChartElement("donut", 160, 120, data...), 1)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(bar.Pix, donut.Pix) {
			t.Error("unknown chart type differs from bar")
		}
	})

	t.Run("pie", func(t *testing.T) {
		img, err := r.RenderChart(testChartElement(models.ChartPie, 200, 200, models.DataPoint{Name: "A", Value: 1}, models.DataPoint{Name: "B", Value: 1}), 1)
		if err != nil {
			t.Fatal(err)
		}
		// Radius 40 around (100,100). The first slice starts at the top and
		// runs clockwise over the right half.
		checkPixel(t, img, 120, 100, chartPalette[0])
		checkPixel(t, img, 80, 100, chartPalette[1])
		checkPixel(t, img, 100, 45, White)
	})

	t.Run("line", func(t *testing.T) {
		img, err := r.RenderChart(testChartElement(models.ChartLine, 200, 200, models.DataPoint{Name: "A", Value: 0}, models.DataPoint{Name: "B", Value: 10}), 1)
		if err != nil {
			t.Fatal(err)
		}
		checkPixel(t, img, 40, 159, blue)
		checkPixel(t, img, 159, 41, blue)
		checkPixel(t, img, 99, 100, blue)
		checkPixel(t, img, 60, 60, White)
	})

	t.Run("single point line is centered", func(t *testing.T) {
		img, err := r.RenderChart(testChartElement(models.ChartLine, 200, 200, models.DataPoint{Name: "A", Value: 5}), 1)
		if err != nil {
			t.Fatal(err)
		}
		checkPixel(t, img, 100, 40, blue)
	})

	t.Run("no data", func(t *testing.T) {
		img, err := r.RenderChart(testChartElement(models.ChartPie, 100, 80), 2)
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 160 {
			t.Fatalf("bounds = %v", b)
		}
		for i := 3; i < len(img.Pix); i += 4 {
			if img.Pix[i] != 0 {
				t.Fatal("blank chart has painted pixels")
			}
		}
	})

	t.Run("zero and negative values", func(t *testing.T) {
		for _, typ := range []models.ChartType{models.ChartBar, models.ChartLine, models.ChartPie} {
			if _, err := r.RenderChart(testChartElement(typ, 200, 200, models.DataPoint{Name: "A", Value: 0}, models.DataPoint{Name: "B", Value: -4}), 1); err != nil {
				t.Errorf("%s: %v", typ, err)
			}
		}
	})

	t.Run("size", func(t *testing.T) {
		for _, sz := range []models.Size{
			{Width: 0, Height: 100},
			{Width: 100, Height: -1},
			{Width: math.NaN(), Height: 100},
			{Width: math.Inf(1), Height: 100},
			{Width: 1e6, Height: 1e6},
			{Width: PageWidth + 1, Height: 100},
			{Width: 100, Height: PageHeight + 1},
		} {
			if _, err := r.RenderChart(testChartElement(models.ChartBar, sz.Width, sz.Height, models.DataPoint{Name: "A", Value: 1}), 1); !errors.Is(err, ErrChartSize) {
				t.Errorf("%gx%g: got %v, want %v", sz.Width, sz.Height, err, ErrChartSize)
			}
		}
	})

	t.Run("full page", func(t *testing.T) {
		img, err := r.RenderChart(testChartElement(models.ChartBar, PageWidth, PageHeight, models.DataPoint{Name: "A", Value: 1}), 1)
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != PageWidth || b.Dy() != PageHeight {
			t.Fatalf("bounds = %v", b)
		}
	})

	t.Run("scale is bounded", func(t *testing.T) {
		img, err := r.RenderChart(testChartElement(models.ChartBar, 100, 50), 1000)
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 100*MaxScale || b.Dy() != 50*MaxScale {
			t.Fatalf("bounds = %v", b)
		}
	})
}

func TestDivider(t *testing.T) {
	r := newTestRenderer(t, nil)
	el := models.Element{
		ID:       "rule",
		Type:     models.ElementDivider,
		Position: models.Position{X: 10, Y: 100},
		Size:     models.Size{Width: 200, Height: 300},
		Style:    models.Style{Thickness: 4, Color: "#ff0000", MarginVertical: models.Float(10)},
	}
	d := r.Render(t.Context(), el)
	if got, want := d.Bounds(), image.Rect(10, 100, 210, 124); got != want {
		t.Errorf("Bounds = %v, want %v", got, want)
	}
	page := r.NewPage(1)
	d.Draw(page)
	img := page.Image()
	red := color.NRGBA{0xff, 0, 0, 0xff}
	checkPixel(t, img, 50, 112, red)
	checkPixel(t, img, 50, 105, White)
	checkPixel(t, img, 50, 200, White)
	if el.Size.Height != 300 {
		t.Error("stored height mutated")
	}

	t.Run("dashed", func(t *testing.T) {
		el := el
		el.Style.LineStyle = models.LineDashed
		page := r.NewPage(1)
		r.Render(t.Context(), el).Draw(page)
		// Dashes are 12 long with an 8 gap.
		checkPixel(t, page.Image(), 15, 112, red)
		checkPixel(t, page.Image(), 26, 112, White)
	})

	t.Run("hairline", func(t *testing.T) {
		for _, ls := range []models.LineStyle{models.LineSolid, models.LineDashed, models.LineDotted} {
			t.Run(string(ls), func(t *testing.T) {
				el := el
				el.Style.LineStyle = ls
				el.Style.Thickness = 1e-20
				img := drawWithin(t, r, el, 2).Image()
				// Clamped to half a page unit, one device pixel at scale 2.
				if near(img.RGBAAt(20, 220), White) {
					t.Error("rule not drawn")
				}
				checkPixel(t, img, 20, 218, White)
				checkPixel(t, img, 20, 222, White)
			})
		}
	})
}

// drawWithin renders el on a fresh page and fails if drawing does not finish
// promptly.
func drawWithin(t *testing.T, r *Renderer, el models.Element, scale int) *Canvas {
	t.Helper()
	page := r.NewPage(scale)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Render(t.Context(), el).Draw(page)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatalf("drawing %s element %q did not finish", el.Type, el.ID)
	}
	return page
}

func TestDegenerateGeometry(t *testing.T) {
	r := newTestRenderer(t, nil)
	divider := func(ls models.LineStyle, x, w, thickness float64) models.Element {
		return models.Element{
			ID:       "rule",
			Type:     models.ElementDivider,
			Position: models.Position{X: x, Y: 100},
			Size:     models.Size{Width: w, Height: 20},
			Style:    models.Style{Thickness: thickness, LineStyle: ls},
		}
	}
	text := func(fontSize float64) models.Element {
		return models.Element{
			ID:       "title",
			Type:     models.ElementText,
			Position: models.Position{X: 10, Y: 10},
			Size:     models.Size{Width: 300, Height: 200},
			Content:  models.Content{Text: &models.TextContent{Text: "Quarterly revenue", FontSize: fontSize}},
		}
	}
	tests := []struct {
		name string
		el   models.Element
	}{
		{"dashed hairline", divider(models.LineDashed, 10, 500, 1e-20)},
		{"dotted hairline", divider(models.LineDotted, 10, 500, 1e-20)},
		{"dashed very wide", divider(models.LineDashed, -1e12, 2e12, 1e-20)},
		{"dotted very wide", divider(models.LineDotted, -1e300, 1e308, 1)},
		{"dashed thick", divider(models.LineDashed, 10, 500, 1e9)},
		{"dotted infinite", divider(models.LineDotted, 10, 500, math.Inf(1))},
		{"huge font", text(1e9)},
		{"tiny font", text(1e-20)},
		{"huge emoji", models.Element{
			ID:       "smile",
			Type:     models.ElementEmoji,
			Position: models.Position{X: 10, Y: 10},
			Size:     models.Size{Width: 1e6, Height: 1e6},
			Content:  models.Content{Emoji: &models.EmojiContent{Emoji: "🙂", Size: 48, Scale: 1e9}},
		}},
		{"huge live chart", testChartElement(models.ChartBar, 1e6, 1e6, models.DataPoint{Name: "A", Value: 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := drawWithin(t, r, tt.el, 2)
			if b := page.Image().Bounds(); b.Dx() != 2*PageWidth || b.Dy() != 2*PageHeight {
				t.Errorf("bounds = %v", b)
			}
		})
	}
}

func TestBoxedElements(t *testing.T) {
	r := newTestRenderer(t, &Sources{})
	ctx := t.Context()
	green := color.NRGBA{0, 0x80, 0, 0xff}
	bg := color.NRGBA{0xff, 0, 0, 0xff}
	base := func(typ models.ElementType) models.Element {
		e, err := models.NewElement(typ)
		if err != nil {
			t.Fatal(err)
		}
		e.Position = models.Position{X: 100, Y: 100}
		e.Size = models.Size{Width: 200, Height: 100}
		e.Style.BackgroundColor = "#ff0000"
		e.Style.BorderWidth = models.Float(0)
		e.Style.BorderRadius = models.Float(0)
		return e
	}
	render := func(e models.Element) *image.RGBA {
		page := r.NewPage(1)
		r.Render(ctx, e).Draw(page)
		return page.Image()
	}

	t.Run("text", func(t *testing.T) {
		img := render(base(models.ElementText))
		checkPixel(t, img, 101, 101, bg)
		checkPixel(t, img, 99, 99, White)
		if countOther(img, image.Rect(100, 100, 300, 200), bg) == 0 {
			t.Error("no text drawn")
		}
	})

	t.Run("border", func(t *testing.T) {
		e := base(models.ElementText)
		e.Style.BorderWidth = models.Float(4)
		e.Style.BorderColor = "#008000"
		img := render(e)
		checkPixel(t, img, 101, 150, green)
		checkPixel(t, img, 106, 150, bg)
	})

	t.Run("image", func(t *testing.T) {
		e := base(models.ElementImage)
		e.Size = models.Size{Width: 100, Height: 100}
		e.Content.Image.Src = "data:image/png;base64," + base64.StdEncoding.EncodeToString(solidPNG(t, 4, 4, green))
		img := render(e)
		checkPixel(t, img, 150, 150, green)
		checkPixel(t, img, 101, 101, green)
	})

	t.Run("image contain", func(t *testing.T) {
		e := base(models.ElementImage)
		e.Content.Image.Src = "data:image/png;base64," + base64.StdEncoding.EncodeToString(solidPNG(t, 4, 4, green))
		img := render(e)
		// A square image in a 200x100 box is centered horizontally.
		checkPixel(t, img, 200, 150, green)
		checkPixel(t, img, 120, 150, bg)
	})

	t.Run("image placeholder", func(t *testing.T) {
		img := render(base(models.ElementImage))
		checkPixel(t, img, 101, 101, bg)
		if countOther(img, image.Rect(100, 100, 300, 200), bg) == 0 {
			t.Error("no placeholder drawn")
		}
	})

	t.Run("broken image", func(t *testing.T) {
		e := base(models.ElementImage)
		e.Content.Image.Src = "data:image/png;base64,AAAA"
		e.Content.Image.Alt = "logo"
		img := render(e)
		if countOther(img, image.Rect(100, 100, 300, 200), bg) == 0 {
			t.Error("no alt text drawn")
		}
	})

	t.Run("table", func(t *testing.T) {
		e := base(models.ElementTable)
		e.Style.Padding = models.Float(0)
		img := render(e)
		// Header row background, above the header text.
		checkPixel(t, img, 150, 103, tableHeaderBg)
		// Body cells are transparent over the element background.
		checkPixel(t, img, 103, 150, bg)
	})

	t.Run("quote", func(t *testing.T) {
		e := base(models.ElementQuote)
		e.Style.Padding = models.Float(0)
		img := render(e)
		checkPixel(t, img, 101, 150, quoteBorder)
		checkPixel(t, img, 110, 101, bg)
	})

	t.Run("emoji badge", func(t *testing.T) {
		e := base(models.ElementEmoji)
		e.Style.BackgroundColor = "transparent"
		img := render(e)
		checkPixel(t, img, 200, 150, emojiBadge)
		checkPixel(t, img, 101, 101, White)
	})

	t.Run("chart", func(t *testing.T) {
		e := base(models.ElementChart)
		e.Style.Padding = models.Float(0)
		img := render(e)
		// The live chart bitmap covers the frame with its white background.
		checkPixel(t, img, 102, 102, White)
	})

	t.Run("chart placeholder", func(t *testing.T) {
		e := base(models.ElementChart)
		page := r.NewPage(1)
		r.Chart(e, nil).Draw(page)
		checkPixel(t, page.Image(), 101, 101, bg)
		if countOther(page.Image(), image.Rect(100, 100, 300, 200), bg) == 0 {
			t.Error("no placeholder drawn")
		}
	})
}

// countOther counts the pixels of r that are not c.
func countOther(img *image.RGBA, r image.Rectangle, c color.NRGBA) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if !near(img.RGBAAt(x, y), c) {
				n++
			}
		}
	}
	return n
}

func TestClipping(t *testing.T) {
	r := newTestRenderer(t, nil)
	e, err := models.NewElement(models.ElementText)
	if err != nil {
		t.Fatal(err)
	}
	e.Position = models.Position{X: 700, Y: 1100}
	e.Size = models.Size{Width: 300, Height: 300}
	e.Style.BackgroundColor = "#ff0000"
	page := r.NewPage(2)
	r.Render(t.Context(), e).Draw(page)
	img := page.Image()
	if b := img.Bounds(); b.Dx() != 1588 || b.Dy() != 2246 {
		t.Fatalf("bounds = %v", b)
	}
	checkPixel(t, img, 1587, 2245, color.NRGBA{0xff, 0, 0, 0xff})
}

func TestPreview(t *testing.T) {
	r := newTestRenderer(t, nil)
	e, err := models.NewElement(models.ElementText)
	if err != nil {
		t.Fatal(err)
	}
	e.Position = models.Position{X: 100, Y: 100}
	e.Size = models.Size{Width: 200, Height: 100}
	elements := []models.Element{e}

	sel := r.Preview(t.Context(), elements, PreviewOptions{Selected: e.ID})
	checkPixel(t, sel, 99, 120, selectionBlue)
	checkPixel(t, sel, 98, 120, selectionBlue)

	plain := r.Preview(t.Context(), elements, PreviewOptions{})
	checkPixel(t, plain, 99, 120, White)

	// The export page is the preview without affordances.
	page := r.NewPage(1)
	DrawAll(page, []Drawable{r.Render(t.Context(), e)})
	if !bytes.Equal(page.Image().Pix, plain.Pix) {
		t.Error("preview without selection differs from the export page")
	}

	grid := r.Preview(t.Context(), nil, PreviewOptions{Grid: true})
	if near(grid.RGBAAt(10, 10), White) {
		t.Error("grid dot missing")
	}
	checkPixel(t, grid, 20, 20, White)
}

func TestSources(t *testing.T) {
	ctx := t.Context()
	green := color.NRGBA{0, 0x80, 0, 0xff}
	data := solidPNG(t, 3, 2, green)

	t.Run("data url", func(t *testing.T) {
		s := &Sources{}
		img, err := s.Open(ctx, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(data))
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
			t.Errorf("bounds = %v", b)
		}
		got, err := decodeDataURL("data:text/plain,hi%20there")
		if err != nil || string(got) != "hi there" {
			t.Errorf("got %q, %v", got, err)
		}
	})

	t.Run("asset", func(t *testing.T) {
		assets, err := storage.NewAssetService(filepath.Join(t.TempDir(), "assets"), 0)
		if err != nil {
			t.Fatal(err)
		}
		a, err := assets.Save(ctx, bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		s := &Sources{Assets: assets}
		img, err := s.Open(ctx, a.Src)
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 3 {
			t.Errorf("bounds = %v", b)
		}
		if _, err := (&Sources{}).Open(ctx, a.Src); !errors.Is(err, ErrUnsupportedSource) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("http", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path != "/logo.png" {
				http.NotFound(w, req)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(data)
		}))
		defer srv.Close()
		s := &Sources{Client: srv.Client()}
		if _, err := s.Open(ctx, srv.URL+"/logo.png"); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Open(ctx, srv.URL+"/missing.png"); err == nil {
			t.Error("404 succeeded")
		}
		if _, err := (&Sources{}).Open(ctx, srv.URL+"/logo.png"); !errors.Is(err, ErrUnsupportedSource) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := (&Sources{}).Open(ctx, "ftp://example.com/a.png"); !errors.Is(err, ErrUnsupportedSource) {
			t.Errorf("got %v", err)
		}
	})
}
