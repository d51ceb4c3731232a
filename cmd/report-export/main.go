// Command report-export writes the PDF of a stored report without running the
// server.
//
// Usage:
//
//	report-export -data-dir ./data -o q4.pdf q4-sales-report
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/maruel/reportdb/internal/export"
	"github.com/maruel/reportdb/internal/render"
	"github.com/maruel/reportdb/internal/slug"
	"github.com/maruel/reportdb/internal/storage"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "report-export: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	dataDir := flag.String("data-dir", "./data", "Data directory")
	out := flag.String("o", "", "Output file (default: <slug>.pdf)")
	emojiFont := flag.String("emoji-font", "", "OpenType font with outline emoji glyphs (optional)")
	verbose := flag.Bool("v", false, "Log each export stage")
	flag.Parse()
	if flag.NArg() != 1 {
		return errors.New("expected exactly one report slug")
	}
	key := flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	serverCfg, err := storage.LoadServerConfig(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load server_config.json: %w", err)
	}
	reports, err := storage.NewReportService(filepath.Join(*dataDir, "db", "reports.jsonl"), slug.Options{})
	if err != nil {
		return fmt.Errorf("failed to open reports: %w", err)
	}
	r, ok, err := reports.LoadBySlug(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("report %q not found", key)
	}
	assets, err := storage.NewAssetService(filepath.Join(*dataDir, "assets"), serverCfg.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("failed to open assets: %w", err)
	}
	renderer, err := render.New(render.Options{
		PageWidth:  float64(serverCfg.Export.PageWidth),
		PageHeight: float64(serverCfg.Export.PageHeight),
		EmojiFont:  *emojiFont,
		Images: &render.Sources{
			Assets:   assets,
			Client:   &http.Client{},
			Timeout:  time.Duration(serverCfg.ImageFetchTimeout),
			MaxBytes: serverCfg.MaxUploadBytes,
		},
	})
	if err != nil {
		return err
	}
	p := export.New(renderer, export.Options{
		Scale:   serverCfg.Export.Scale,
		Title:   r.Name,
		Creator: "report-export",
		OnStage: func(s export.Stage) { slog.DebugContext(ctx, "stage", "stage", s) },
	})
	path := *out
	if path == "" {
		path = r.Slug + ".pdf"
	}
	st, err := p.ExportFile(ctx, r.Elements, path)
	if err != nil {
		return err
	}
	if st.ChartsDegraded > 0 {
		slog.WarnContext(ctx, "some charts could not be rendered", "count", st.ChartsDegraded)
	}
	fmt.Printf("%s: %d elements, %dx%d px, %s\n", path, st.Elements, st.Width, st.Height, st.Duration.Round(time.Millisecond))
	return nil
}
