package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	aievalmodels "leaselab/internal/aieval/models"
	aievalservice "leaselab/internal/aieval/service"
	aievalstore "leaselab/internal/aieval/store"
	applicantmodels "leaselab/internal/applicant/models"
	applicantservice "leaselab/internal/applicant/service"
	applicantstore "leaselab/internal/applicant/store"
	documentmodels "leaselab/internal/document/models"
	documentservice "leaselab/internal/document/service"
	documentstore "leaselab/internal/document/store"
	historyservice "leaselab/internal/history/service"
	historystore "leaselab/internal/history/store"
	leadmodels "leaselab/internal/lead/models"
	leadservice "leaselab/internal/lead/service"
	leadstore "leaselab/internal/lead/store"
	"leaselab/internal/storageref"
	"leaselab/internal/transition/models"
	transitionstore "leaselab/internal/transition/store"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/idgen"
	"leaselab/pkg/requestcontext"
)

type countingScorer struct {
	calls int
}

func (c *countingScorer) Score(_ context.Context, _ aievalmodels.ScoringRequest) (*aievalmodels.ScoringResponse, error) {
	c.calls++
	return &aievalmodels.ScoringResponse{
		Score:          82,
		Label:          "B",
		Summary:        "solid applicant",
		Recommendation: "approve",
		ModelVersion:   "scorer-2025-05",
	}, nil
}

// WorkflowSuite runs the intake pipeline end to end over in-memory stores:
// lead creation, applicant and document intake, stage transitions and the
// evaluation orchestrator, all sharing one lead store.
type WorkflowSuite struct {
	suite.Suite
	leads       *leadservice.Service
	applicants  *applicantservice.Service
	documents   *documentservice.Service
	transitions *Service
	evaluations *aievalservice.Service
	scorer      *countingScorer
	now         time.Time
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) SetupTest() {
	ids := &idgen.Sequence{}
	leadStore := leadstore.NewInMemory()
	applicantStore := applicantstore.NewInMemory()
	documentStore := documentstore.NewInMemory()
	history := historyservice.New(historystore.NewInMemory(), ids)

	s.leads = leadservice.New(leadStore, history, ids,
		leadservice.WithCascade(applicantStore),
		leadservice.WithCascade(documentStore))
	s.applicants = applicantservice.New(applicantStore, leadStore, history, ids)
	s.documents = documentservice.New(documentStore, leadStore, history, ids)
	s.transitions = New(transitionstore.NewInMemory(), leadStore, history, ids)

	s.scorer = &countingScorer{}
	signer := storageref.New("https://files.test/documents", "secret", 15*time.Minute)
	s.evaluations = aievalservice.New(aievalstore.NewInMemory(), s.scorer, leadStore, applicantStore, documentStore, signer)

	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *WorkflowSuite) ctx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	return requestcontext.WithActor(ctx, "agent-1")
}

func (s *WorkflowSuite) TestIntakeToEvaluation() {
	ctx := s.ctx()

	lead, err := s.leads.Create(ctx, "s1", leadmodels.CreateLeadRequest{
		PropertyID:  "prop-1",
		UnitID:      "unit-1",
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		InquiryType: leadmodels.InquiryRental,
		Employment:  "full_time",
		MoveInDate:  "2025-07-01",
		MonthlyRent: 250000,
	})
	s.Require().NoError(err)
	s.Equal(leadmodels.StageNew, lead.Status)

	_, err = s.applicants.Create(ctx, "s1", applicantmodels.CreateApplicantRequest{
		ApplicationID: lead.ID,
		Type:          applicantmodels.TypePrimary,
		FirstName:     "Jane",
		LastName:      "Doe",
		Email:         "jane@example.com",
		Employer:      "Acme Corp",
		AnnualIncome:  9000000,
	})
	s.Require().NoError(err)

	doc, err := s.documents.Create(ctx, "s1", documentmodels.CreateDocumentRequest{
		ApplicationID: lead.ID,
		Type:          documentmodels.TypeGovernmentID,
		FileName:      "id.pdf",
		StorageKey:    "s1/" + lead.ID + "/id.pdf",
		MimeType:      "application/pdf",
		SizeBytes:     120000,
	})
	s.Require().NoError(err)
	s.Equal(documentmodels.StatusPending, doc.Status)

	doc, err = s.documents.Verify(ctx, "s1", doc.ID, "agent-1")
	s.Require().NoError(err)
	s.Equal(documentmodels.StatusVerified, doc.Status)

	row, err := s.transitions.Transition(ctx, "s1", lead.ID, models.TransitionRequest{
		To:    leadmodels.StageDocumentsReceived,
		Type:  models.TypeManual,
		Actor: "agent-1",
	})
	s.Require().NoError(err)
	s.Equal(leadmodels.StageNew, row.FromStage)
	s.Equal(leadmodels.StageDocumentsReceived, row.ToStage)
	s.False(row.Bypassed())

	lead, err = s.leads.Get(ctx, "s1", lead.ID)
	s.Require().NoError(err)
	s.Equal(leadmodels.StageDocumentsReceived, lead.Status)

	s.Run("first evaluation calls the scoring service once", func() {
		result, err := s.evaluations.Evaluate(ctx, "s1", lead.ID, aievalmodels.EvaluateOptions{})
		s.Require().NoError(err)
		s.Equal(82, result.Score)
		s.Equal("B", result.Label)
		s.Equal(1, s.scorer.calls)
	})

	s.Run("repeat evaluation is served from the cache", func() {
		result, err := s.evaluations.Evaluate(ctx, "s1", lead.ID, aievalmodels.EvaluateOptions{})
		s.Require().NoError(err)
		s.Equal(82, result.Score)
		s.Equal(1, s.scorer.calls)
	})

	s.Run("score is denormalized onto the application", func() {
		lead, err := s.leads.Get(ctx, "s1", lead.ID)
		s.Require().NoError(err)
		s.Require().NotNil(lead.AIScore)
		s.Equal(82, *lead.AIScore)
	})
}

func (s *WorkflowSuite) TestIllegalJumpLeavesNoTrace() {
	ctx := s.ctx()

	lead, err := s.leads.Create(ctx, "s1", leadmodels.CreateLeadRequest{
		FirstName:   "John",
		LastName:    "Roe",
		Email:       "john@example.com",
		InquiryType: leadmodels.InquiryGeneral,
	})
	s.Require().NoError(err)

	_, err = s.transitions.Transition(ctx, "s1", lead.ID, models.TransitionRequest{
		To:    leadmodels.StageApproved,
		Type:  models.TypeManual,
		Actor: "agent-1",
	})
	s.Require().Error(err)
	s.True(apperrors.HasCode(err, apperrors.CodeValidation))

	rows, err := s.transitions.List(ctx, "s1", lead.ID)
	s.Require().NoError(err)
	s.Empty(rows)

	lead, err = s.leads.Get(ctx, "s1", lead.ID)
	s.Require().NoError(err)
	s.Equal(leadmodels.StageNew, lead.Status)
}

func (s *WorkflowSuite) TestCrossTenantIsolation() {
	ctx := s.ctx()

	lead, err := s.leads.Create(ctx, "s1", leadmodels.CreateLeadRequest{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		InquiryType: leadmodels.InquiryGeneral,
	})
	s.Require().NoError(err)

	_, err = s.transitions.Transition(ctx, "s2", lead.ID, models.TransitionRequest{
		To:    leadmodels.StageContacted,
		Type:  models.TypeManual,
		Actor: "agent-1",
	})
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = s.evaluations.Evaluate(ctx, "s2", lead.ID, aievalmodels.EvaluateOptions{})
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))
}
