// Package service implements the applicant manager: the people attached to
// one application, the single-primary invariant and the self-service invite
// lifecycle.
package service

import (
	"context"
	"errors"
	"log/slog"

	"leaselab/internal/applicant/models"
	leadmodels "leaselab/internal/lead/models"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/idgen"
	"leaselab/pkg/requestcontext"
	"leaselab/pkg/sentinel"
)

// ApplicantStore is the persistence boundary for applicants.
type ApplicantStore interface {
	Create(ctx context.Context, a *models.Applicant) error
	FindByID(ctx context.Context, siteID, id string) (*models.Applicant, error)
	FindByInviteToken(ctx context.Context, siteID, token string) (*models.Applicant, error)
	FindPrimary(ctx context.Context, siteID, applicationID string) (*models.Applicant, error)
	ListForApplication(ctx context.Context, siteID, applicationID string) ([]*models.Applicant, error)
	CountForApplication(ctx context.Context, siteID, applicationID string) (int, error)
	Update(ctx context.Context, a *models.Applicant) error
	Delete(ctx context.Context, siteID, id string) error
}

// LeadFinder checks that the parent application exists under the same site.
type LeadFinder interface {
	FindByID(ctx context.Context, siteID, id string) (*leadmodels.Lead, error)
}

// HistoryRecorder appends to the per-application audit feed.
type HistoryRecorder interface {
	Record(ctx context.Context, siteID, applicationID, eventType string, eventData map[string]any) error
}

// Service orchestrates applicant management.
type Service struct {
	applicants ApplicantStore
	leads      LeadFinder
	history    HistoryRecorder
	ids        idgen.Generator
	logger     *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs the applicant service.
func New(applicants ApplicantStore, leads LeadFinder, history HistoryRecorder, ids idgen.Generator, opts ...Option) *Service {
	s := &Service{applicants: applicants, leads: leads, history: history, ids: ids}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create attaches an applicant to an application. A second primary for the
// same application is a conflict. An invite token is minted so the applicant
// can complete their own details.
func (s *Service) Create(ctx context.Context, siteID string, req models.CreateApplicantRequest) (*models.Applicant, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.leads.FindByID(ctx, siteID, req.ApplicationID); err != nil {
		return nil, translateNotFound(err, "application not found")
	}

	now := requestcontext.Now(ctx)
	a := &models.Applicant{
		ID:              s.ids.NewID(),
		SiteID:          siteID,
		ApplicationID:   req.ApplicationID,
		Type:            req.Type,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Employer:        req.Employer,
		EmploymentType:  req.EmploymentType,
		AnnualIncome:    req.AnnualIncome,
		BackgroundCheck: models.BackgroundNotStarted,
		InviteToken:     s.ids.NewToken(),
		InviteStatus:    models.InvitePending,
		InvitedAt:       &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.applicants.Create(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, apperrors.New(apperrors.CodeConflict, "application already has a primary applicant")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to create applicant")
	}

	if err := s.history.Record(ctx, siteID, req.ApplicationID, "applicant_added", map[string]any{
		"applicant_id":   a.ID,
		"applicant_type": string(a.Type),
	}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to record history event")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "applicant created",
			"site_id", siteID, "application_id", req.ApplicationID,
			"applicant_id", a.ID, "applicant_type", string(a.Type))
	}
	return a, nil
}

// Get returns an applicant by id, site-scoped.
func (s *Service) Get(ctx context.Context, siteID, id string) (*models.Applicant, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	a, err := s.applicants.FindByID(ctx, siteID, id)
	if err != nil {
		return nil, translateNotFound(err, "applicant not found")
	}
	return a, nil
}

// GetByInviteToken resolves a self-service applicant from their token.
func (s *Service) GetByInviteToken(ctx context.Context, siteID, token string) (*models.Applicant, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "invite token is required")
	}
	a, err := s.applicants.FindByInviteToken(ctx, siteID, token)
	if err != nil {
		return nil, translateNotFound(err, "applicant not found")
	}
	return a, nil
}

// AcceptInvite flips a pending invite to accepted.
func (s *Service) AcceptInvite(ctx context.Context, siteID, token string) (*models.Applicant, error) {
	a, err := s.GetByInviteToken(ctx, siteID, token)
	if err != nil {
		return nil, err
	}
	if a.InviteStatus != models.InvitePending {
		return nil, apperrors.Newf(apperrors.CodeConflict, "invite is %s, not pending", a.InviteStatus)
	}
	a.InviteStatus = models.InviteAccepted
	a.UpdatedAt = requestcontext.Now(ctx)
	if err := s.applicants.Update(ctx, a); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to update applicant")
	}
	return a, nil
}

// GetPrimary returns the application's primary applicant.
func (s *Service) GetPrimary(ctx context.Context, siteID, applicationID string) (*models.Applicant, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	a, err := s.applicants.FindPrimary(ctx, siteID, applicationID)
	if err != nil {
		return nil, translateNotFound(err, "primary applicant not found")
	}
	return a, nil
}

// List returns an application's applicants, primary first.
func (s *Service) List(ctx context.Context, siteID, applicationID string) ([]*models.Applicant, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	applicants, err := s.applicants.ListForApplication(ctx, siteID, applicationID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to list applicants")
	}
	return applicants, nil
}

// Count returns the number of applicants on an application.
func (s *Service) Count(ctx context.Context, siteID, applicationID string) (int, error) {
	if err := requireSite(siteID); err != nil {
		return 0, err
	}
	count, err := s.applicants.CountForApplication(ctx, siteID, applicationID)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeStorage, "failed to count applicants")
	}
	return count, nil
}

// Update applies the provided fields.
func (s *Service) Update(ctx context.Context, siteID, id string, req models.UpdateApplicantRequest) (*models.Applicant, error) {
	a, err := s.Get(ctx, siteID, id)
	if err != nil {
		return nil, err
	}
	if !req.Apply(a) {
		return a, nil
	}
	a.UpdatedAt = requestcontext.Now(ctx)
	if err := s.applicants.Update(ctx, a); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to update applicant")
	}
	return a, nil
}

// Delete removes one applicant. The application itself is untouched.
func (s *Service) Delete(ctx context.Context, siteID, id string) error {
	a, err := s.Get(ctx, siteID, id)
	if err != nil {
		return err
	}
	if err := s.applicants.Delete(ctx, siteID, id); err != nil {
		return translateNotFound(err, "applicant not found")
	}
	if err := s.history.Record(ctx, siteID, a.ApplicationID, "applicant_removed", map[string]any{
		"applicant_id":   a.ID,
		"applicant_type": string(a.Type),
	}); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorage, "failed to record history event")
	}
	return nil
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
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return err
	}
	return apperrors.Wrap(err, apperrors.CodeStorage, "storage failure")
}
