package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/ksid"
	"github.com/robfig/cron/v3"
)

// Frequency is how often a scheduled export runs.
type Frequency string

// Frequencies.
const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Custom  Frequency = "custom"
)

// Schedule is a recurring export of one report.
type Schedule struct {
	ID         ksid.ID   `json:"id"`
	ReportID   ksid.ID   `json:"reportId"`
	ReportName string    `json:"reportName"`
	ReportSlug string    `json:"reportSlug"`
	Frequency  Frequency `json:"frequency"`
	Time       string    `json:"time"`                 // "HH:MM", 24h
	Days       []string  `json:"days,omitempty"`       // weekly: lowercase weekday names
	DayOfMonth int       `json:"dayOfMonth,omitempty"` // monthly: 1-31, defaults to 1
	CustomCron string    `json:"customCron,omitempty"`
	IsActive   bool      `json:"isActive"`
	NextRun    time.Time `json:"nextRun,omitzero"`
	LastRun    time.Time `json:"lastRun,omitzero"`
	LastError  string    `json:"lastError,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Clone returns a deep copy.
func (s *Schedule) Clone() *Schedule {
	c := *s
	c.Days = slices.Clone(s.Days)
	return &c
}

// GetID returns the schedule id.
func (s *Schedule) GetID() ksid.ID {
	return s.ID
}

var weekdays = map[string]int{
	"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3, "thursday": 4, "friday": 5, "saturday": 6,
}

// CronSpec returns the standard 5-field cron expression for the schedule.
func (s *Schedule) CronSpec() (string, error) {
	if s.Frequency == Custom {
		spec := strings.TrimSpace(s.CustomCron)
		if spec == "" {
			return "", fmt.Errorf("%w: custom cron expression is required", ErrInvalidSchedule)
		}
		return spec, nil
	}
	hour, minute, err := parseClock(s.Time)
	if err != nil {
		return "", err
	}
	switch s.Frequency {
	case Daily:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case Weekly:
		if len(s.Days) == 0 {
			return "", fmt.Errorf("%w: weekly schedule needs at least one day", ErrInvalidSchedule)
		}
		var dows []int
		for _, d := range s.Days {
			n, ok := weekdays[strings.ToLower(strings.TrimSpace(d))]
			if !ok {
				return "", fmt.Errorf("%w: unknown day %q", ErrInvalidSchedule, d)
			}
			if !slices.Contains(dows, n) {
				dows = append(dows, n)
			}
		}
		slices.Sort(dows)
		parts := make([]string, len(dows))
		for i, n := range dows {
			parts[i] = strconv.Itoa(n)
		}
		return fmt.Sprintf("%d %d * * %s", minute, hour, strings.Join(parts, ",")), nil
	case Monthly:
		dom := s.DayOfMonth
		if dom == 0 {
			dom = 1
		}
		if dom < 1 || dom > 31 {
			return "", fmt.Errorf("%w: day of month %d", ErrInvalidSchedule, dom)
		}
		return fmt.Sprintf("%d %d %d * *", minute, hour, dom), nil
	case Custom:
	}
	return "", fmt.Errorf("%w: unknown frequency %q", ErrInvalidSchedule, s.Frequency)
}

// Validate checks the schedule can be registered.
func (s *Schedule) Validate() error {
	if s.ReportSlug == "" {
		return fmt.Errorf("%w: report slug is required", ErrInvalidSchedule)
	}
	spec, err := s.CronSpec()
	if err != nil {
		return err
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}
	return nil
}

// Next returns the first activation strictly after t.
func (s *Schedule) Next(t time.Time) (time.Time, error) {
	spec, err := s.CronSpec()
	if err != nil {
		return time.Time{}, err
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}
	return sched.Next(t), nil
}

func parseClock(v string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidSchedule, v)
	}
	if hour, err = strconv.Atoi(h); err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidSchedule, v)
	}
	if minute, err = strconv.Atoi(m); err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidSchedule, v)
	}
	return hour, minute, nil
}
