// Package main is the entry point for the reportdb server.
//
// reportdb stores visual reports as JSONL, renders them to single page PDFs
// and serves a RESTful HTTP API. Configuration is read from CLI flags, a .env
// file and server_config.json (export, rate limit, upload and scheduler
// settings).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/maruel/reportdb/internal/export"
	"github.com/maruel/reportdb/internal/render"
	"github.com/maruel/reportdb/internal/schedule"
	"github.com/maruel/reportdb/internal/server"
	"github.com/maruel/reportdb/internal/server/handlers"
	"github.com/maruel/reportdb/internal/server/ratelimit"
	"github.com/maruel/reportdb/internal/slug"
	"github.com/maruel/reportdb/internal/storage"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "reportdb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:8080", "Address to listen on (e.g., localhost:8080, :8080, 0.0.0.0:8080). Use 0.0.0.0:port to listen on all interfaces.")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	emojiFont := flag.String("emoji-font", "", "OpenType font with outline emoji glyphs (optional)")
	seedSamples := flag.Bool("seed-samples", true, "Create the sample reports when the store is empty")
	transliterate := flag.Bool("transliterate-slugs", false, "Fold accented letters to ASCII in slugs")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Drop localhost IPs (not useful in logs).
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			if isZeroAttr(a.Value.Any()) {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	env, err := loadDotEnv(*dataDir)
	if err != nil {
		return err
	}
	// Load server_config.json (creates with defaults if missing)
	serverCfg, err := storage.LoadServerConfig(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load server_config.json: %w", err)
	}

	// Override with .env file values if not explicitly set via flags
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["http"] {
		if v := env["HTTP"]; v != "" {
			*httpAddr = v
		}
	}
	if !set["log-level"] {
		if v := env["LOG_LEVEL"]; v != "" {
			*logLevel = v
		}
	}
	if !set["emoji-font"] {
		if v := env["EMOJI_FONT"]; v != "" {
			*emojiFont = v
		}
	}
	if !set["transliterate-slugs"] {
		if v := env["TRANSLITERATE_SLUGS"]; v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid TRANSLITERATE_SLUGS: %w", err)
			}
			*transliterate = b
		}
	}

	// Normalize addr: ":8080" becomes "localhost:8080"
	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	dbDir := filepath.Join(*dataDir, "db")
	if err := os.MkdirAll(dbDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create db directory: %w", err)
	}
	reports, err := storage.NewReportService(filepath.Join(dbDir, "reports.jsonl"), slug.Options{Transliterate: *transliterate})
	if err != nil {
		return fmt.Errorf("failed to initialize report service: %w", err)
	}
	schedules, err := storage.NewScheduleService(filepath.Join(dbDir, "schedules.jsonl"))
	if err != nil {
		return fmt.Errorf("failed to initialize schedule service: %w", err)
	}
	assets, err := storage.NewAssetService(filepath.Join(*dataDir, "assets"), serverCfg.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("failed to initialize asset service: %w", err)
	}
	if *seedSamples {
		if n, err := storage.SeedSamples(ctx, reports); err != nil {
			slog.WarnContext(ctx, "Failed to seed sample reports", "err", err)
		} else if n > 0 {
			slog.InfoContext(ctx, "Seeded sample reports", "count", n)
		}
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
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}
	buildVersion, _, _, _ := getBuildInfo()
	exporter := export.New(renderer, export.Options{
		Scale:   serverCfg.Export.Scale,
		Creator: "reportdb " + buildVersion,
		OnStage: func(s export.Stage) { slog.DebugContext(ctx, "export stage", "stage", s) },
	})
	scheduler := schedule.New(reports, schedules, exporter, serverCfg.ExportDir(*dataDir))
	if serverCfg.Scheduler.Enabled {
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	svc := &handlers.Services{
		Reports:   reports,
		Schedules: schedules,
		Assets:    assets,
		Renderer:  renderer,
		Exporter:  exporter,
		Scheduler: scheduler,
	}
	cfg := &handlers.Config{
		Version:        buildVersion,
		MaxUploadBytes: serverCfg.MaxUploadBytes,
	}
	router := server.NewRouter(svc, cfg, ratelimit.NewTier("export", serverCfg.RateLimit))
	defer func() { _ = router.Close() }()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "version", buildVersion, "reports", reports.Len())
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// isZeroAttr reports whether a log attribute value carries no information.
func isZeroAttr(val any) bool {
	switch t := val.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case uint64:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case time.Time:
		return t.IsZero()
	case time.Duration:
		return t == 0
	case nil:
		return true
	}
	return false
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("reportdb %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

func loadDotEnv(dataDir string) (map[string]string, error) {
	env := make(map[string]string)
	content, err := os.ReadFile(filepath.Join(dataDir, ".env")) //nolint:gosec // G304: path is constructed from dataDir flag, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}
	return parseDotEnv(string(content))
}

func parseDotEnv(content string) (map[string]string, error) {
	env := make(map[string]string)
	for line := range strings.SplitSeq(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
				return nil, fmt.Errorf("single quotes are not supported for wrapping in .env: %s", line)
			}
			return nil, fmt.Errorf("unbalanced single quotes in .env: %s", line)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
