package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/reportdb/internal/jsonldb"
	"github.com/maruel/reportdb/internal/models"
)

// ScheduleService stores recurring export schedules.
type ScheduleService struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	table    *jsonldb.Table[*models.Schedule]
	byReport *jsonldb.Index[ksid.ID, *models.Schedule]
}

// NewScheduleService opens the schedule table at tablePath.
func NewScheduleService(tablePath string) (*ScheduleService, error) {
	table, err := jsonldb.NewTable[*models.Schedule](tablePath)
	if err != nil {
		return nil, err
	}
	return &ScheduleService{
		Now:      time.Now,
		table:    table,
		byReport: jsonldb.NewIndex(table, func(s *models.Schedule) ksid.ID { return s.ReportID }),
	}, nil
}

// Create validates and stores a new schedule. NextRun is computed for active
// schedules.
func (s *ScheduleService) Create(ctx context.Context, sc *models.Schedule) (*models.Schedule, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := sc.Clone()
	c.ID = ksid.NewID()
	now := s.Now()
	c.CreatedAt = now.UTC()
	c.LastRun = time.Time{}
	c.LastError = ""
	c.NextRun = time.Time{}
	if c.IsActive {
		// Clock times are in the server's local time zone.
		next, err := c.Next(now)
		if err != nil {
			return nil, err
		}
		c.NextRun = next
	}
	if err := s.table.Append(c); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}
	return c, nil
}

// Get returns the schedule with the given ID.
func (s *ScheduleService) Get(id ksid.ID) (*models.Schedule, bool) {
	sc := s.table.Get(id)
	return sc, sc != nil
}

// List returns every schedule in creation order.
func (s *ScheduleService) List() []*models.Schedule {
	return slices.Collect(s.table.All())
}

// ListByReport returns the schedules of one report.
func (s *ScheduleService) ListByReport(reportID ksid.ID) []*models.Schedule {
	return slices.Collect(s.byReport.Iter(reportID))
}

// SetActive activates or pauses a schedule.
func (s *ScheduleService) SetActive(ctx context.Context, id ksid.ID, active bool) (*models.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.table.Modify(id, func(sc *models.Schedule) error {
		sc.IsActive = active
		sc.NextRun = time.Time{}
		if active {
			next, err := sc.Next(s.Now())
			if err != nil {
				return err
			}
			sc.NextRun = next
		}
		return nil
	})
}

// Toggle flips IsActive.
func (s *ScheduleService) Toggle(ctx context.Context, id ksid.ID) (*models.Schedule, error) {
	sc, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: schedule %s", jsonldb.ErrNotFound, id)
	}
	return s.SetActive(ctx, id, !sc.IsActive)
}

// RecordRun stores the outcome of an export started at ranAt.
func (s *ScheduleService) RecordRun(ctx context.Context, id ksid.ID, ranAt time.Time, runErr error) (*models.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.table.Modify(id, func(sc *models.Schedule) error {
		sc.LastRun = ranAt.UTC()
		sc.LastError = ""
		if runErr != nil {
			sc.LastError = runErr.Error()
		}
		if sc.IsActive {
			if next, err := sc.Next(ranAt); err == nil {
				sc.NextRun = next
			}
		}
		return nil
	})
}

// Delete removes a schedule. Deleting an unknown ID is not an error.
func (s *ScheduleService) Delete(ctx context.Context, id ksid.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.table.Delete(id); err != nil && !errors.Is(err, jsonldb.ErrNotFound) {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}
