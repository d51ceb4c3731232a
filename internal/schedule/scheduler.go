// Package schedule runs the recurring report exports.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/reportdb/internal/export"
	"github.com/maruel/reportdb/internal/models"
	"github.com/maruel/reportdb/internal/storage"
	"github.com/robfig/cron/v3"
)

// ErrReportNotFound is recorded when a schedule's report no longer exists.
var ErrReportNotFound = errors.New("report not found")

// Exporter writes a PDF of elements to path. *export.Pipeline implements it.
type Exporter interface {
	ExportFile(ctx context.Context, elements []models.Element, path string) (*export.Stats, error)
}

// Scheduler registers active schedules with cron and exports their report
// into a directory when they fire.
type Scheduler struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	reports   *storage.ReportService
	schedules *storage.ScheduleService
	exporter  Exporter
	dir       string
	cron      *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	entries map[ksid.ID]cron.EntryID
}

// New returns a stopped Scheduler writing exports to dir.
func New(reports *storage.ReportService, schedules *storage.ScheduleService, exporter Exporter, dir string) *Scheduler {
	l := cronLogger{}
	return &Scheduler{
		Now:       time.Now,
		reports:   reports,
		schedules: schedules,
		exporter:  exporter,
		dir:       dir,
		cron:      cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
		ctx:       context.Background(),
		entries:   map[ksid.ID]cron.EntryID{},
	}
}

// Start registers every active schedule and starts the cron loop. Jobs run
// with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	if err := s.Sync(); err != nil {
		return err
	}
	s.cron.Start()
	slog.InfoContext(ctx, "scheduler started", "schedules", s.Len(), "dir", s.dir)
	return nil
}

// Stop stops the cron loop and waits for running exports.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Sync makes the registered jobs match the stored schedules.
func (s *Scheduler) Sync() error {
	all := s.schedules.List()
	keep := make(map[ksid.ID]struct{}, len(all))
	var errs []error
	for _, sc := range all {
		keep[sc.ID] = struct{}{}
		if err := s.Add(sc); err != nil {
			errs = append(errs, fmt.Errorf("schedule %s: %w", sc.ID, err))
		}
	}
	s.mu.Lock()
	for id, entry := range s.entries {
		if _, ok := keep[id]; !ok {
			s.cron.Remove(entry)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()
	return errors.Join(errs...)
}

// Add registers sc, replacing any previous registration. An inactive
// schedule is only unregistered.
func (s *Scheduler) Add(sc *models.Schedule) error {
	s.Remove(sc.ID)
	if !sc.IsActive {
		return nil
	}
	spec, err := sc.CronSpec()
	if err != nil {
		return err
	}
	id := sc.ID
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		_, _ = s.Run(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrInvalidSchedule, err)
	}
	s.entries[id] = entry
	return nil
}

// Remove unregisters a schedule. Unknown IDs are ignored.
func (s *Scheduler) Remove(id ksid.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[id]; ok {
		s.cron.Remove(entry)
		delete(s.entries, id)
	}
}

// Len returns the number of registered schedules.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Registered reports whether id has a cron entry.
func (s *Scheduler) Registered(id ksid.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// Run exports the report of schedule id now and records the outcome. It
// returns the path of the written file.
func (s *Scheduler) Run(ctx context.Context, id ksid.ID) (string, error) {
	sc, ok := s.schedules.Get(id)
	if !ok {
		return "", fmt.Errorf("schedule %s not found", id)
	}
	start := s.Now()
	path, err := s.export(ctx, sc, start)
	if _, err2 := s.schedules.RecordRun(ctx, id, start, err); err2 != nil {
		slog.ErrorContext(ctx, "failed to record scheduled run", "schedule", id, "err", err2)
	}
	if err != nil {
		slog.ErrorContext(ctx, "scheduled export failed", "schedule", id, "report", sc.ReportSlug, "err", err)
		return "", err
	}
	slog.InfoContext(ctx, "scheduled export", "schedule", id, "report", sc.ReportSlug, "path", path)
	return path, nil
}

func (s *Scheduler) export(ctx context.Context, sc *models.Schedule, now time.Time) (string, error) {
	// The slug changes on rename and may then be taken by another report, so
	// it is only used when the schedule carries no report id.
	var r *models.Report
	var ok bool
	var err error
	if sc.ReportID.IsZero() {
		r, ok, err = s.reports.LoadBySlug(ctx, sc.ReportSlug)
	} else {
		r, ok, err = s.reports.LoadByID(ctx, sc.ReportID)
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrReportNotFound, sc.ReportSlug)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s.pdf", r.Slug, now.Format("20060102-150405")))
	if _, err := s.exporter.ExportFile(ctx, r.Elements, path); err != nil {
		return "", err
	}
	return path, nil
}

// cronLogger sends cron's logs to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
