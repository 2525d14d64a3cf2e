// Package service implements the application lifecycle manager: creation,
// field mutation, archive/restore and listings. Every successful mutation
// appends exactly one history event carrying the changed columns.
package service

import (
	"context"
	"errors"
	"log/slog"

	"leaselab/internal/lead/models"
	"leaselab/internal/platform/metrics"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/idgen"
	"leaselab/pkg/requestcontext"
	"leaselab/pkg/sentinel"
	"leaselab/pkg/tx"
)

// LeadStore is the persistence boundary for leads.
type LeadStore interface {
	Create(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, siteID, id string) (*models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
	Delete(ctx context.Context, siteID, id string) error
	List(ctx context.Context, siteID string, filter models.ListFilter) ([]*models.Lead, error)
}

// HistoryRecorder appends to the per-application audit feed.
type HistoryRecorder interface {
	Record(ctx context.Context, siteID, applicationID, eventType string, eventData map[string]any) error
}

// Cascade removes child rows when a lead is hard-deleted. The storage
// boundary owns referential cleanup; the service just invokes it.
type Cascade interface {
	DeleteForApplication(ctx context.Context, siteID, applicationID string) error
}

// Service orchestrates the lead lifecycle.
type Service struct {
	leads    LeadStore
	history  HistoryRecorder
	cascades []Cascade
	runner   tx.Runner
	ids      idgen.Generator
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithRunner(r tx.Runner) Option {
	return func(s *Service) { s.runner = r }
}

// WithCascade registers a child-row cleaner invoked on hard delete.
func WithCascade(c Cascade) Option {
	return func(s *Service) { s.cascades = append(s.cascades, c) }
}

// New constructs the lifecycle service.
func New(leads LeadStore, history HistoryRecorder, ids idgen.Generator, opts ...Option) *Service {
	s := &Service{leads: leads, history: history, ids: ids}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = tx.NewMemoryRunner()
	}
	return s
}

// Create validates the submission, stores the lead at stage new and records
// a lead_created history event.
func (s *Service) Create(ctx context.Context, siteID string, req models.CreateLeadRequest) (*models.Lead, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	lead := &models.Lead{
		ID:          s.ids.NewID(),
		SiteID:      siteID,
		PropertyID:  req.PropertyID,
		UnitID:      req.UnitID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		InquiryType: req.InquiryType,
		Employment:  req.Employment,
		MoveInDate:  req.MoveInDate,
		MonthlyRent: req.MonthlyRent,
		Status:      models.StageNew,
		IsActive:    true,
		StaffNote:   req.StaffNote,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.leads.Create(txCtx, lead); err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorage, "failed to create lead")
		}
		return s.record(txCtx, siteID, lead.ID, "lead_created", map[string]any{
			"property_id":  lead.PropertyID,
			"unit_id":      lead.UnitID,
			"email":        lead.Email,
			"inquiry_type": string(lead.InquiryType),
			"status":       string(lead.Status),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ApplicationsCreated.Inc()
	}
	s.log(ctx, "lead created", "site_id", siteID, "lead_id", lead.ID)
	return lead, nil
}

// Get returns a lead by id, site-scoped.
func (s *Service) Get(ctx context.Context, siteID, id string) (*models.Lead, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	lead, err := s.leads.FindByID(ctx, siteID, id)
	if err != nil {
		return nil, translateNotFound(err, "lead not found")
	}
	return lead, nil
}

// Update applies the provided fields and records a lead_updated event with
// only the changed columns. Direct status writes are rejected: stage changes
// must go through the transition engine so checklist and bypass rules apply.
func (s *Service) Update(ctx context.Context, siteID, id string, req models.UpdateLeadRequest) (*models.Lead, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	if req.Status != nil {
		return nil, apperrors.New(apperrors.CodeValidation,
			"status cannot be updated directly; use a stage transition")
	}

	lead, err := s.leads.FindByID(ctx, siteID, id)
	if err != nil {
		return nil, translateNotFound(err, "lead not found")
	}

	changed := req.Apply(lead)
	if len(changed) == 0 {
		return lead, nil
	}
	lead.UpdatedAt = requestcontext.Now(ctx)

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.leads.Update(txCtx, lead); err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorage, "failed to update lead")
		}
		return s.record(txCtx, siteID, id, "lead_updated", changed)
	})
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// Archive soft-deletes a lead. Archived leads drop out of default listings
// but stay addressable by id.
func (s *Service) Archive(ctx context.Context, siteID, id string) (*models.Lead, error) {
	return s.setActive(ctx, siteID, id, false, "lead_archived")
}

// Restore reverses an archive.
func (s *Service) Restore(ctx context.Context, siteID, id string) (*models.Lead, error) {
	return s.setActive(ctx, siteID, id, true, "lead_restored")
}

func (s *Service) setActive(ctx context.Context, siteID, id string, active bool, eventType string) (*models.Lead, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	lead, err := s.leads.FindByID(ctx, siteID, id)
	if err != nil {
		return nil, translateNotFound(err, "lead not found")
	}
	if lead.IsActive == active {
		if active {
			return nil, apperrors.New(apperrors.CodeConflict, "lead is not archived")
		}
		return nil, apperrors.New(apperrors.CodeConflict, "lead is already archived")
	}

	lead.IsActive = active
	lead.UpdatedAt = requestcontext.Now(ctx)

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.leads.Update(txCtx, lead); err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorage, "failed to update lead")
		}
		return s.record(txCtx, siteID, id, eventType, map[string]any{"is_active": active})
	})
	if err != nil {
		return nil, err
	}

	if !active && s.metrics != nil {
		s.metrics.ApplicationsArchived.Inc()
	}
	return lead, nil
}

// Delete hard-deletes a lead and cascades to registered child stores.
// Reserved for data-retention tooling; staff flows archive instead.
func (s *Service) Delete(ctx context.Context, siteID, id string) error {
	if err := requireSite(siteID); err != nil {
		return err
	}
	return s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.leads.Delete(txCtx, siteID, id); err != nil {
			return translateNotFound(err, "lead not found")
		}
		for _, cascade := range s.cascades {
			if err := cascade.DeleteForApplication(txCtx, siteID, id); err != nil {
				return apperrors.Wrap(err, apperrors.CodeStorage, "failed to cascade lead delete")
			}
		}
		return nil
	})
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, siteID string, filter models.ListFilter) ([]*models.Lead, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown status %q", filter.Status)
	}
	leads, err := s.leads.List(ctx, siteID, filter)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to list leads")
	}
	return leads, nil
}

// ListGroupedByUnit returns matching leads keyed by unit id. Leads without a
// unit group under the empty key.
func (s *Service) ListGroupedByUnit(ctx context.Context, siteID string, filter models.ListFilter) (map[string][]*models.Lead, error) {
	leads, err := s.List(ctx, siteID, filter)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]*models.Lead)
	for _, lead := range leads {
		grouped[lead.UnitID] = append(grouped[lead.UnitID], lead)
	}
	return grouped, nil
}

func (s *Service) record(ctx context.Context, siteID, leadID, eventType string, data map[string]any) error {
	if err := s.history.Record(ctx, siteID, leadID, eventType, data); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorage, "failed to record history event")
	}
	return nil
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		args = append(args, "request_id", reqID)
	}
	s.logger.InfoContext(ctx, msg, args...)
}

func requireSite(siteID string) error {
	if siteID == "" {
		return apperrors.New(apperrors.CodeInternal, "site context not resolved")
	}
	return nil
}

func translateNotFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return apperrors.New(apperrors.CodeNotFound, msg)
	}
	return apperrors.Wrap(err, apperrors.CodeStorage, "storage failure")
}
