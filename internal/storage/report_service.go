// Package storage persists reports, schedules, uploaded assets and the server
// configuration under the data directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/reportdb/internal/jsonldb"
	"github.com/maruel/reportdb/internal/models"
	"github.com/maruel/reportdb/internal/slug"
)

// ReportService is the document store for reports.
//
// Documents are kept in a JSONL table keyed by ID with a unique secondary
// index on slug. Rows without a slug are invisible to slug lookups.
type ReportService struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	slugs  slug.Options
	mu     sync.Mutex
	table  *jsonldb.Table[*models.Report]
	bySlug *jsonldb.UniqueIndex[string, *models.Report]
}

// NewReportService opens the report table at tablePath.
func NewReportService(tablePath string, slugs slug.Options) (*ReportService, error) {
	table, err := jsonldb.NewTable[*models.Report](tablePath)
	if err != nil {
		return nil, err
	}
	return &ReportService{
		Now:    time.Now,
		slugs:  slugs,
		table:  table,
		bySlug: jsonldb.NewUniqueIndex(table, func(r *models.Report) string { return r.Slug }),
	}, nil
}

// Save stores r and returns the stored copy.
//
// A report without an ID, or with an unknown one, is created. The slug is
// recomputed from the name against every other report's slug; re-saving under
// an unchanged name keeps the current slug. CreatedAt is set once.
func (s *ReportService) Save(ctx context.Context, r *models.Report) (*models.Report, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := r.Clone()
	if doc.Elements == nil {
		doc.Elements = []models.Element{}
	}
	var prev *models.Report
	if !doc.ID.IsZero() {
		prev = s.table.Get(doc.ID)
	}
	if prev != nil && prev.Slug != "" && prev.Name == doc.Name {
		doc.Slug = prev.Slug
	} else {
		existing := s.bySlug.Keys()
		if prev != nil {
			delete(existing, prev.Slug)
		}
		doc.Slug = s.slugs.Generate(doc.Name, existing)
	}
	now := s.Now().UTC()
	doc.UpdatedAt = now
	var err error
	if prev == nil {
		if doc.ID.IsZero() {
			doc.ID = ksid.NewID()
		}
		doc.CreatedAt = now
		err = s.table.Append(doc)
	} else {
		doc.CreatedAt = prev.CreatedAt
		_, err = s.table.Update(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	return doc, nil
}

// LoadBySlug returns the report with the given slug. A miss returns false and
// no error.
func (s *ReportService) LoadBySlug(ctx context.Context, slug string) (*models.Report, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to load report: %w", err)
	}
	if slug == "" {
		return nil, false, nil
	}
	r := s.bySlug.Get(slug)
	return r, r != nil, nil
}

// LoadByID returns the report with the given ID. A miss returns false and no
// error.
func (s *ReportService) LoadByID(ctx context.Context, id ksid.ID) (*models.Report, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to load report: %w", err)
	}
	r := s.table.Get(id)
	return r, r != nil, nil
}

// ListMetadata returns the metadata of every report in ID order, which is
// creation order for generated IDs.
func (s *ReportService) ListMetadata(ctx context.Context) ([]models.ReportMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	out := make([]models.ReportMetadata, 0, s.table.Len())
	for r := range s.table.All() {
		out = append(out, r.Metadata())
	}
	return out, nil
}

// All iterates over every stored report.
func (s *ReportService) All() iter.Seq[*models.Report] {
	return s.table.All()
}

// Len returns the number of stored reports.
func (s *ReportService) Len() int {
	return s.table.Len()
}

// DeleteByID removes the report. Deleting an unknown ID is not an error.
func (s *ReportService) DeleteByID(ctx context.Context, id ksid.ID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.table.Delete(id); err != nil && !errors.Is(err, jsonldb.ErrNotFound) {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// Edit loads the report with the given slug, applies fn to a copy and saves
// it. A miss returns false and no error; an error from fn is returned as is.
func (s *ReportService) Edit(ctx context.Context, slug string, fn func(r *models.Report) error) (*models.Report, bool, error) {
	r, ok, err := s.LoadBySlug(ctx, slug)
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := fn(r); err != nil {
		return nil, true, err
	}
	saved, err := s.Save(ctx, r)
	if err != nil {
		return nil, true, err
	}
	return saved, true, nil
}
