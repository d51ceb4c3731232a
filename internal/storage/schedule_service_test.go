package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/reportdb/internal/models"
)

func newTestScheduleService(t *testing.T) *ScheduleService {
	t.Helper()
	s, err := NewScheduleService(filepath.Join(t.TempDir(), "schedules.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	// Wednesday.
	s.Now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestScheduleService(t *testing.T) {
	s := newTestScheduleService(t)
	ctx := t.Context()
	reportID := ksid.NewID()

	sc, err := s.Create(ctx, &models.Schedule{
		ReportID:   reportID,
		ReportSlug: "q4",
		Frequency:  models.Daily,
		Time:       "09:00",
		IsActive:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC); !sc.NextRun.Equal(want) {
		t.Errorf("NextRun = %v, want %v", sc.NextRun, want)
	}
	if _, err := s.Create(ctx, &models.Schedule{ReportSlug: "q4", Frequency: models.Weekly, Time: "09:00"}); !errors.Is(err, models.ErrInvalidSchedule) {
		t.Errorf("got %v, want %v", err, models.ErrInvalidSchedule)
	}
	if _, err := s.Create(ctx, &models.Schedule{ReportID: ksid.NewID(), ReportSlug: "other", Frequency: models.Monthly, Time: "00:00"}); err != nil {
		t.Fatal(err)
	}

	if got := s.ListByReport(reportID); len(got) != 1 || got[0].ID != sc.ID {
		t.Errorf("ListByReport = %+v", got)
	}
	if got := s.List(); len(got) != 2 {
		t.Errorf("List = %d items", len(got))
	}

	paused, err := s.Toggle(ctx, sc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if paused.IsActive || !paused.NextRun.IsZero() {
		t.Errorf("paused = %+v", paused)
	}
	resumed, err := s.Toggle(ctx, sc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !resumed.IsActive || resumed.NextRun.IsZero() {
		t.Errorf("resumed = %+v", resumed)
	}

	ran := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	got, err := s.RecordRun(ctx, sc.ID, ran, errors.New("report not found"))
	if err != nil {
		t.Fatal(err)
	}
	if !got.LastRun.Equal(ran) || got.LastError != "report not found" {
		t.Errorf("got %+v", got)
	}
	if want := time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC); !got.NextRun.Equal(want) {
		t.Errorf("NextRun = %v, want %v", got.NextRun, want)
	}
	if got, err = s.RecordRun(ctx, sc.ID, ran, nil); err != nil || got.LastError != "" {
		t.Errorf("got %+v, %v", got, err)
	}

	if err := s.Delete(ctx, sc.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, sc.ID); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if _, ok := s.Get(sc.ID); ok {
		t.Error("deleted schedule still present")
	}
	if got := s.ListByReport(reportID); len(got) != 0 {
		t.Errorf("ListByReport after delete = %+v", got)
	}
	if _, err := s.Toggle(ctx, sc.ID); err == nil {
		t.Error("toggle of deleted schedule succeeded")
	}
}
