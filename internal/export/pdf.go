package export

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/go-pdf/fpdf"
)

const pageImage = "page"

// emit embeds the raster as one full-bleed image on a single page of the
// renderer's page size, one PDF point per page unit.
func (p *Pipeline) emit(ctx context.Context, ras raster) (document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The page is painted on white so the raster is opaque and encodes
	// without an alpha channel.
	var img bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&img, ras.img); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}

	w, h := p.renderer.PageSize()
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(p.opts.Now())
	if p.opts.Title != "" {
		pdf.SetTitle(p.opts.Title, true)
	}
	if p.opts.Creator != "" {
		pdf.SetCreator(p.opts.Creator, true)
	}
	pdf.AddPage()
	opt := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(pageImage, opt, &img)
	pdf.ImageOptions(pageImage, 0, 0, w, h, false, opt, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return out.Bytes(), nil
}
