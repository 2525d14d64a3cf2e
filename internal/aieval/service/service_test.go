package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"leaselab/internal/aieval/models"
	aievalstore "leaselab/internal/aieval/store"
	applicantmodels "leaselab/internal/applicant/models"
	applicantstore "leaselab/internal/applicant/store"
	documentmodels "leaselab/internal/document/models"
	documentstore "leaselab/internal/document/store"
	leadmodels "leaselab/internal/lead/models"
	leadstore "leaselab/internal/lead/store"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/requestcontext"
)

type fakeScorer struct {
	calls    int
	response *models.ScoringResponse
	err      error
	lastReq  models.ScoringRequest
}

func (f *fakeScorer) Score(_ context.Context, req models.ScoringRequest) (*models.ScoringResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

type fakeSigner struct{}

func (fakeSigner) SignedURL(_ context.Context, storageKey string) (string, error) {
	return "https://files.test/" + storageKey, nil
}

type EvaluationSuite struct {
	suite.Suite
	service    *Service
	scorer     *fakeScorer
	results    *aievalstore.InMemory
	leads      *leadstore.InMemory
	applicants *applicantstore.InMemory
	documents  *documentstore.InMemory
	ctx        context.Context
	now        time.Time
}

func TestEvaluationSuite(t *testing.T) {
	suite.Run(t, new(EvaluationSuite))
}

func (s *EvaluationSuite) SetupTest() {
	s.scorer = &fakeScorer{response: &models.ScoringResponse{
		Score:          82,
		Label:          "B",
		Summary:        "solid income, thin credit file",
		RiskFlags:      []string{"short_employment_history"},
		Recommendation: "approve with guarantor",
		ModelVersion:   "scorer-2025-05",
	}}
	s.results = aievalstore.NewInMemory()
	s.leads = leadstore.NewInMemory()
	s.applicants = applicantstore.NewInMemory()
	s.documents = documentstore.NewInMemory()
	s.service = New(s.results, s.scorer, s.leads, s.applicants, s.documents, fakeSigner{})
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.Require().NoError(s.leads.Create(s.ctx, &leadmodels.Lead{
		ID:          "app-1",
		SiteID:      "site-1",
		PropertyID:  "prop-1",
		Status:      leadmodels.StageDocumentsReceived,
		MonthlyRent: 250000,
		IsActive:    true,
		CreatedAt:   s.now,
		UpdatedAt:   s.now,
	}))
	s.Require().NoError(s.applicants.Create(s.ctx, &applicantmodels.Applicant{
		ID:            "applicant-1",
		SiteID:        "site-1",
		ApplicationID: "app-1",
		Type:          applicantmodels.TypePrimary,
		AnnualIncome:  9000000,
		CreatedAt:     s.now,
	}))
	s.Require().NoError(s.documents.Create(s.ctx, &documentmodels.Document{
		ID:            "doc-1",
		SiteID:        "site-1",
		ApplicationID: "app-1",
		Type:          documentmodels.TypeProofOfIncome,
		FileName:      "paystub.pdf",
		StorageKey:    "site-1/app-1/paystub.pdf",
		Status:        documentmodels.StatusVerified,
		CreatedAt:     s.now,
	}))
}

func (s *EvaluationSuite) TestEvaluate() {
	s.Run("first call hits the scoring service and caches", func() {
		result, err := s.service.Evaluate(s.ctx, "site-1", "app-1", models.EvaluateOptions{})
		s.Require().NoError(err)
		s.Equal(1, s.scorer.calls)
		s.Equal(82, result.Score)
		s.Equal("B", result.Label)
		s.Equal(s.now, result.EvaluatedAt)
	})

	s.Run("second call is served from the cache", func() {
		result, err := s.service.Evaluate(s.ctx, "site-1", "app-1", models.EvaluateOptions{})
		s.Require().NoError(err)
		s.Equal(1, s.scorer.calls)
		s.Equal(82, result.Score)
	})

	s.Run("score is denormalized onto the lead", func() {
		lead, err := s.leads.FindByID(s.ctx, "site-1", "app-1")
		s.Require().NoError(err)
		s.Require().NotNil(lead.AIScore)
		s.Equal(82, *lead.AIScore)
		s.Require().NotNil(lead.AILabel)
		s.Equal("B", *lead.AILabel)
	})

	s.Run("force refresh calls the scorer again", func() {
		s.scorer.response.Score = 90
		result, err := s.service.Evaluate(s.ctx, "site-1", "app-1", models.EvaluateOptions{
			ForceRefresh: true,
			Reason:       "new paystub uploaded",
		})
		s.Require().NoError(err)
		s.Equal(2, s.scorer.calls)
		s.Equal(90, result.Score)
	})
}

func (s *EvaluationSuite) TestScoringPayload() {
	_, err := s.service.Evaluate(s.ctx, "site-1", "app-1", models.EvaluateOptions{})
	s.Require().NoError(err)

	req := s.scorer.lastReq
	s.Equal("app-1", req.ApplicationID)
	s.Equal(int64(250000), req.MonthlyRent)
	s.Require().Len(req.Applicants, 1)
	s.Equal("primary", req.Applicants[0].Type)
	s.Require().Len(req.Documents, 1)
	s.Equal("https://files.test/site-1/app-1/paystub.pdf", req.Documents[0].URL)
	s.Equal("verified", req.Documents[0].Status)
}

func (s *EvaluationSuite) TestFailureLeavesCacheIntact() {
	first, err := s.service.Evaluate(s.ctx, "site-1", "app-1", models.EvaluateOptions{})
	s.Require().NoError(err)

	s.scorer.err = errors.New("connection refused")
	_, err = s.service.Evaluate(s.ctx, "site-1", "app-1", models.EvaluateOptions{ForceRefresh: true})
	s.Require().True(apperrors.HasCode(err, apperrors.CodeExternalService))

	cached, err := s.service.Cached(s.ctx, "site-1", "app-1")
	s.Require().NoError(err)
	s.Equal(first.Score, cached.Score)
	s.Equal(first.EvaluatedAt, cached.EvaluatedAt)
}

func (s *EvaluationSuite) TestNotFound() {
	s.Run("unknown application", func() {
		_, err := s.service.Evaluate(s.ctx, "site-1", "app-404", models.EvaluateOptions{})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeNotFound))
		s.Zero(s.scorer.calls)
	})

	s.Run("cross-site application", func() {
		_, err := s.service.Evaluate(s.ctx, "site-2", "app-1", models.EvaluateOptions{})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeNotFound))
	})

	s.Run("no cached result yet", func() {
		_, err := s.service.Cached(s.ctx, "site-1", "app-1")
		s.Require().True(apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}
