// Package service orchestrates AI evaluation: it assembles the scoring
// payload from the application's applicants and documents, calls the external
// scoring service and caches exactly one result per application. Repeat
// evaluations are served from the cache unless a refresh is forced.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"leaselab/internal/aieval/models"
	applicantmodels "leaselab/internal/applicant/models"
	documentmodels "leaselab/internal/document/models"
	leadmodels "leaselab/internal/lead/models"
	"leaselab/internal/platform/metrics"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/requestcontext"
	"leaselab/pkg/sentinel"
)

// ResultStore caches evaluation results, one per application.
type ResultStore interface {
	Get(ctx context.Context, siteID, applicationID string) (*models.Result, error)
	Put(ctx context.Context, r *models.Result) error
}

// Scorer calls the external scoring service.
type Scorer interface {
	Score(ctx context.Context, req models.ScoringRequest) (*models.ScoringResponse, error)
}

// LeadStore reads the application and denormalizes the score onto it.
type LeadStore interface {
	FindByID(ctx context.Context, siteID, id string) (*leadmodels.Lead, error)
	SetScore(ctx context.Context, siteID, id string, score int, label string, now time.Time) error
}

// ApplicantLister reads the application's applicants.
type ApplicantLister interface {
	ListForApplication(ctx context.Context, siteID, applicationID string) ([]*applicantmodels.Applicant, error)
}

// DocumentLister reads the application's documents.
type DocumentLister interface {
	ListForApplication(ctx context.Context, siteID, applicationID string) ([]*documentmodels.Document, error)
}

// URLSigner resolves a storage key into an expiring download URL.
type URLSigner interface {
	SignedURL(ctx context.Context, storageKey string) (string, error)
}

// Service is the evaluation orchestrator.
type Service struct {
	results    ResultStore
	scorer     Scorer
	leads      LeadStore
	applicants ApplicantLister
	documents  DocumentLister
	signer     URLSigner
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the evaluation orchestrator.
func New(results ResultStore, scorer Scorer, leads LeadStore, applicants ApplicantLister, documents DocumentLister, signer URLSigner, opts ...Option) *Service {
	s := &Service{
		results:    results,
		scorer:     scorer,
		leads:      leads,
		applicants: applicants,
		documents:  documents,
		signer:     signer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate returns the application's evaluation result. A cached result is
// returned without touching the scoring service unless ForceRefresh is set.
// When the external call or its response validation fails, the error carries
// the external_service code and any previously cached result stays intact.
func (s *Service) Evaluate(ctx context.Context, siteID, applicationID string, opts models.EvaluateOptions) (*models.Result, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}

	lead, err := s.leads.FindByID(ctx, siteID, applicationID)
	if err != nil {
		return nil, translateNotFound(err, "application not found")
	}

	if !opts.ForceRefresh {
		cached, err := s.results.Get(ctx, siteID, applicationID)
		if err == nil {
			if s.metrics != nil {
				s.metrics.EvaluationCacheHits.Inc()
			}
			return cached, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to read cached evaluation")
		}
	}

	req, err := s.buildRequest(ctx, siteID, applicationID, lead)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.EvaluationCalls.Inc()
	}
	resp, err := s.scorer.Score(ctx, req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.EvaluationFailures.Inc()
		}
		return nil, apperrors.Wrap(err, apperrors.CodeExternalService, "scoring service call failed")
	}

	now := requestcontext.Now(ctx)
	result := &models.Result{
		ApplicationID:  applicationID,
		SiteID:         siteID,
		Score:          resp.Score,
		Label:          resp.Label,
		Summary:        resp.Summary,
		RiskFlags:      resp.RiskFlags,
		Recommendation: resp.Recommendation,
		FraudSignals:   resp.FraudSignals,
		ModelVersion:   resp.ModelVersion,
		EvaluatedAt:    now,
	}
	if err := s.results.Put(ctx, result); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to cache evaluation result")
	}
	if err := s.leads.SetScore(ctx, siteID, applicationID, result.Score, result.Label, now); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to denormalize score onto application")
	}

	s.log(ctx, "application evaluated",
		"site_id", siteID, "application_id", applicationID,
		"score", result.Score, "label", result.Label,
		"forced", opts.ForceRefresh, "reason", opts.Reason)
	return result, nil
}

// Cached returns the cached result without triggering an evaluation.
func (s *Service) Cached(ctx context.Context, siteID, applicationID string) (*models.Result, error) {
	if err := requireSite(siteID); err != nil {
		return nil, err
	}
	result, err := s.results.Get(ctx, siteID, applicationID)
	if err != nil {
		return nil, translateNotFound(err, "no evaluation result for application")
	}
	return result, nil
}

func (s *Service) buildRequest(ctx context.Context, siteID, applicationID string, lead *leadmodels.Lead) (models.ScoringRequest, error) {
	applicants, err := s.applicants.ListForApplication(ctx, siteID, applicationID)
	if err != nil {
		return models.ScoringRequest{}, apperrors.Wrap(err, apperrors.CodeStorage, "failed to list applicants")
	}
	documents, err := s.documents.ListForApplication(ctx, siteID, applicationID)
	if err != nil {
		return models.ScoringRequest{}, apperrors.Wrap(err, apperrors.CodeStorage, "failed to list documents")
	}

	refs, err := s.documentRefs(ctx, documents)
	if err != nil {
		return models.ScoringRequest{}, err
	}

	req := models.ScoringRequest{
		ApplicationID: applicationID,
		Application: models.ApplicationSnapshot{
			PropertyID:  lead.PropertyID,
			UnitID:      lead.UnitID,
			Status:      string(lead.Status),
			InquiryType: string(lead.InquiryType),
			Employment:  lead.Employment,
			MoveInDate:  lead.MoveInDate,
		},
		Documents:   refs,
		MonthlyRent: lead.MonthlyRent,
	}
	for _, a := range applicants {
		req.Applicants = append(req.Applicants, models.ApplicantSnapshot{
			Type:            string(a.Type),
			Employer:        a.Employer,
			EmploymentType:  a.EmploymentType,
			AnnualIncome:    a.AnnualIncome,
			BackgroundCheck: string(a.BackgroundCheck),
		})
	}
	return req, nil
}

// documentRefs resolves signed URLs for all documents concurrently. URL
// signing may hit the cache backend, so the fan-out is the one part of
// request assembly worth parallelizing.
func (s *Service) documentRefs(ctx context.Context, documents []*documentmodels.Document) ([]models.DocumentReference, error) {
	refs := make([]models.DocumentReference, len(documents))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range documents {
		g.Go(func() error {
			url, err := s.signer.SignedURL(gctx, d.StorageKey)
			if err != nil {
				return err
			}
			refs[i] = models.DocumentReference{
				Type:      string(d.Type),
				FileName:  d.FileName,
				MimeType:  d.MimeType,
				SizeBytes: d.SizeBytes,
				Status:    string(d.Status),
				URL:       url,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to resolve document URLs")
	}
	return refs, nil
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
