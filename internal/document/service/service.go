// Package service implements the document manager: uploads, the
// pending/verified/rejected review state machine and completeness
// aggregates.
package service

import (
	"context"
	"errors"
	"log/slog"

	"leaselab/internal/document/models"
	leadmodels "leaselab/internal/lead/models"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/idgen"
	"leaselab/pkg/requestcontext"
	"leaselab/pkg/sentinel"
)

// DocumentStore is the persistence boundary for documents.
type DocumentStore interface {
	Create(ctx context.Context, d *models.Document) error
	FindByID(ctx context.Context, siteID, id string) (*models.Document, error)
	Update(ctx context.Context, d *models.Document) error
	Delete(ctx context.Context, siteID, id string) error
	ListForApplication(ctx context.Context, siteID, applicationID string) ([]*models.Document, error)
}

// LeadFinder checks that the parent application exists under the same site.
type LeadFinder interface {
	FindByID(ctx context.Context, siteID, id string) (*leadmodels.Lead, error)
}

// HistoryRecorder appends to the per-application audit feed.
type HistoryRecorder interface {
	Record(ctx context.Context, siteID, applicationID, eventType string, eventData map[string]any) error
}

// Service orchestrates document management.
type Service struct {
	documents DocumentStore
	leads     LeadFinder
	history   HistoryRecorder
	ids       idgen.Generator
	logger    *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs the document service.
func New(documents DocumentStore, leads LeadFinder, history HistoryRecorder, ids idgen.Generator, opts ...Option) *Service {
	s := &Service{documents: documents, leads: leads, history: history, ids: ids}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers an upload. Status always starts pending.
func (s *Service) Create(ctx context.Context, siteID string, req models.CreateDocumentRequest) (*models.Document, error) {
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
	d := &models.Document{
		ID:            s.ids.NewID(),
		SiteID:        siteID,
		ApplicationID: req.ApplicationID,
		ApplicantID:   req.ApplicantID,
		Type:          req.Type,
		FileName:      req.FileName,
		StorageKey:    req.StorageKey,
		MimeType:      req.MimeType,
		SizeBytes:     req.SizeBytes,
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.documents.Create(ctx, d); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to create document")
	}
	if err := s.history.Record(ctx, siteID, req.ApplicationID, "document_uploaded", map[string]any{
		"document_id":   d.ID,
		"document_type": string(d.Type),
		"file_name":     d.FileName,
	}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to record history event")
	}
	return d, nil
}

// Get returns a document by id, site-scoped.
func (s *Service) Get(ctx context.Context, siteID, id string) (*models.Document, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	d, err := s.documents.FindByID(ctx, siteID, id)
	if err != nil {
		return nil, translateNotFound(err, "document not found")
	}
	return d, nil
}

// Update applies metadata changes. Review state is untouchable here.
func (s *Service) Update(ctx context.Context, siteID, id string, req models.UpdateDocumentRequest) (*models.Document, error) {
	d, err := s.Get(ctx, siteID, id)
	if err != nil {
		return nil, err
	}
	if req.Type != nil && !req.Type.Valid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown document_type %q", *req.Type)
	}
	if !req.Apply(d) {
		return d, nil
	}
	d.UpdatedAt = requestcontext.Now(ctx)
	if err := s.documents.Update(ctx, d); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to update document")
	}
	return d, nil
}

// Verify marks a pending document verified, stamping the reviewer.
func (s *Service) Verify(ctx context.Context, siteID, id, verifier string) (*models.Document, error) {
	if verifier == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "verifier is required")
	}
	d, err := s.Get(ctx, siteID, id)
	if err != nil {
		return nil, err
	}
	if err := d.CanReview(); err != nil {
		return nil, apperrors.Newf(apperrors.CodeConflict, "document is %s, only pending documents can be verified", d.Status)
	}
	d.ApplyVerify(verifier, requestcontext.Now(ctx))
	if err := s.documents.Update(ctx, d); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to update document")
	}
	if err := s.history.Record(ctx, siteID, d.ApplicationID, "document_verified", map[string]any{
		"document_id": d.ID,
		"verified_by": verifier,
	}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to record history event")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "document verified",
			"site_id", siteID, "document_id", d.ID, "verified_by", verifier)
	}
	return d, nil
}

// Reject marks a pending document rejected with a reason. The reviewer is
// stamped in the same slot verification uses.
func (s *Service) Reject(ctx context.Context, siteID, id, reason, verifier string) (*models.Document, error) {
	if verifier == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "verifier is required")
	}
	if reason == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "rejection reason is required")
	}
	d, err := s.Get(ctx, siteID, id)
	if err != nil {
		return nil, err
	}
	if err := d.CanReview(); err != nil {
		return nil, apperrors.Newf(apperrors.CodeConflict, "document is %s, only pending documents can be rejected", d.Status)
	}
	d.ApplyReject(reason, verifier, requestcontext.Now(ctx))
	if err := s.documents.Update(ctx, d); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to update document")
	}
	if err := s.history.Record(ctx, siteID, d.ApplicationID, "document_rejected", map[string]any{
		"document_id": d.ID,
		"reason":      reason,
		"verified_by": verifier,
	}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to record history event")
	}
	return d, nil
}

// MarkExpired flags a stale document. Unlike verify/reject it carries no
// reviewer identity; expiry is a system action.
func (s *Service) MarkExpired(ctx context.Context, siteID, id string) (*models.Document, error) {
	d, err := s.Get(ctx, siteID, id)
	if err != nil {
		return nil, err
	}
	if d.Status == models.StatusExpired {
		return d, nil
	}
	d.Status = models.StatusExpired
	d.UpdatedAt = requestcontext.Now(ctx)
	if err := s.documents.Update(ctx, d); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to update document")
	}
	return d, nil
}

// Delete removes a document.
func (s *Service) Delete(ctx context.Context, siteID, id string) error {
	if err := requireSite(siteID); err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, siteID, id); err != nil {
		return translateNotFound(err, "document not found")
	}
	return nil
}

// List returns an application's documents in upload order.
func (s *Service) List(ctx context.Context, siteID, applicationID string) ([]*models.Document, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	documents, err := s.documents.ListForApplication(ctx, siteID, applicationID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to list documents")
	}
	return documents, nil
}

// StatsForApplication aggregates review progress across an application's
// documents.
func (s *Service) StatsForApplication(ctx context.Context, siteID, applicationID string) (*models.Stats, error) {
	documents, err := s.List(ctx, siteID, applicationID)
	if err != nil {
		return nil, err
	}
	stats := &models.Stats{}
	for _, d := range documents {
		stats.Tally(d.Status)
	}
	stats.Finalize()
	return stats, nil
}

// StatsByApplicant breaks review progress out per applicant. Documents not
// attached to an applicant group under the empty key.
func (s *Service) StatsByApplicant(ctx context.Context, siteID, applicationID string) (map[string]*models.Stats, error) {
	documents, err := s.List(ctx, siteID, applicationID)
	if err != nil {
		return nil, err
	}
	byApplicant := make(map[string]*models.Stats)
	for _, d := range documents {
		stats, ok := byApplicant[d.ApplicantID]
		if !ok {
			stats = &models.Stats{}
			byApplicant[d.ApplicantID] = stats
		}
		stats.Tally(d.Status)
	}
	for _, stats := range byApplicant {
		stats.Finalize()
	}
	return byApplicant, nil
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
