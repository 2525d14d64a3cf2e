// Package service implements the internal notes manager. Visibility flags
// are stored and returned; the transport enforces them against the caller's
// role.
package service

import (
	"context"
	"errors"
	"sort"

	"leaselab/internal/note/models"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/idgen"
	"leaselab/pkg/requestcontext"
	"leaselab/pkg/sentinel"
)

// NoteStore is the persistence boundary for notes.
type NoteStore interface {
	Create(ctx context.Context, n *models.Note) error
	FindByID(ctx context.Context, siteID, id string) (*models.Note, error)
	Update(ctx context.Context, n *models.Note) error
	Delete(ctx context.Context, siteID, id string) error
	ListForApplication(ctx context.Context, siteID, applicationID string) ([]*models.Note, error)
}

// Service orchestrates note management.
type Service struct {
	notes NoteStore
	ids   idgen.Generator
}

// New constructs the note service.
func New(notes NoteStore, ids idgen.Generator) *Service {
	return &Service{notes: notes, ids: ids}
}

// Create stores a new note.
func (s *Service) Create(ctx context.Context, siteID string, req models.CreateNoteRequest) (*models.Note, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	n := &models.Note{
		ID:               s.ids.NewID(),
		SiteID:           siteID,
		ApplicationID:    req.ApplicationID,
		Category:         req.Category,
		Priority:         req.Priority,
		Content:          req.Content,
		IsSensitive:      req.IsSensitive,
		VisibleToRoles:   req.VisibleToRoles,
		TaggedApplicants: req.TaggedApplicants,
		Author:           req.Author,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to create note")
	}
	return n, nil
}

// Get returns a note by id, site-scoped.
func (s *Service) Get(ctx context.Context, siteID, id string) (*models.Note, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	n, err := s.notes.FindByID(ctx, siteID, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return n, nil
}

// Update applies the provided fields. Notes are mutable, unlike the
// transition log.
func (s *Service) Update(ctx context.Context, siteID, id string, req models.UpdateNoteRequest) (*models.Note, error) {
	n, err := s.Get(ctx, siteID, id)
	if err != nil {
		return nil, err
	}
	if req.Category != nil && !req.Category.Valid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown note_category %q", *req.Category)
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown priority %q", *req.Priority)
	}
	if !req.Apply(n) {
		return n, nil
	}
	n.UpdatedAt = requestcontext.Now(ctx)
	if err := s.notes.Update(ctx, n); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to update note")
	}
	return n, nil
}

// Delete removes a note.
func (s *Service) Delete(ctx context.Context, siteID, id string) error {
	if err := requireSite(siteID); err != nil {
		return err
	}
	if err := s.notes.Delete(ctx, siteID, id); err != nil {
		return translateNotFound(err)
	}
	return nil
}

// List returns an application's notes, newest first.
func (s *Service) List(ctx context.Context, siteID, applicationID string) ([]*models.Note, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	notes, err := s.notes.ListForApplication(ctx, siteID, applicationID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to list notes")
	}
	return notes, nil
}

// ListByCategory filters the application's notes to one category.
func (s *Service) ListByCategory(ctx context.Context, siteID, applicationID string, category models.Category) ([]*models.Note, error) {
	if !category.Valid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown note_category %q", category)
	}
	notes, err := s.List(ctx, siteID, applicationID)
	if err != nil {
		return nil, err
	}
	filtered := notes[:0]
	for _, n := range notes {
		if n.Category == category {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

// ListByPriority returns notes ordered urgent, high, medium, low, newest
// first within each bucket.
func (s *Service) ListByPriority(ctx context.Context, siteID, applicationID string) ([]*models.Note, error) {
	notes, err := s.List(ctx, siteID, applicationID)
	if err != nil {
		return nil, err
	}
	// List already returns newest first; a stable sort preserves recency
	// within each priority bucket.
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Priority.SortRank() < notes[j].Priority.SortRank()
	})
	return notes, nil
}

// Summary aggregates the application's notes.
func (s *Service) Summary(ctx context.Context, siteID, applicationID string) (*models.Summary, error) {
	notes, err := s.List(ctx, siteID, applicationID)
	if err != nil {
		return nil, err
	}
	summary := &models.Summary{
		ByCategory: make(map[models.Category]int),
		ByPriority: make(map[models.Priority]int),
	}
	for _, n := range notes {
		summary.Total++
		summary.ByCategory[n.Category]++
		summary.ByPriority[n.Priority]++
		if n.IsSensitive {
			summary.SensitiveCount++
		}
	}
	return summary, nil
}

func requireSite(siteID string) error {
	if siteID == "" {
		return apperrors.New(apperrors.CodeInternal, "site context not resolved")
	}
	return nil
}

func translateNotFound(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return apperrors.New(apperrors.CodeNotFound, "note not found")
	}
	return apperrors.Wrap(err, apperrors.CodeStorage, "storage failure")
}
