package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"leaselab/internal/document/models"
	documentstore "leaselab/internal/document/store"
	leadmodels "leaselab/internal/lead/models"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/idgen"
	"leaselab/pkg/requestcontext"
	"leaselab/pkg/sentinel"
)

type fakeLeadFinder struct{}

func (fakeLeadFinder) FindByID(_ context.Context, siteID, id string) (*leadmodels.Lead, error) {
	if siteID == "site-1" && id == "app-1" {
		return &leadmodels.Lead{ID: id, SiteID: siteID}, nil
	}
	return nil, sentinel.ErrNotFound
}

type fakeHistory struct {
	events []string
}

func (f *fakeHistory) Record(_ context.Context, _, _, eventType string, _ map[string]any) error {
	f.events = append(f.events, eventType)
	return nil
}

type DocumentServiceSuite struct {
	suite.Suite
	service *Service
	history *fakeHistory
	ctx     context.Context
}

func TestDocumentServiceSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

func (s *DocumentServiceSuite) SetupTest() {
	s.history = &fakeHistory{}
	s.service = New(documentstore.NewInMemory(), fakeLeadFinder{}, s.history, &idgen.Sequence{})
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func (s *DocumentServiceSuite) upload(applicantID string) *models.Document {
	d, err := s.service.Create(s.ctx, "site-1", models.CreateDocumentRequest{
		ApplicationID: "app-1",
		ApplicantID:   applicantID,
		Type:          models.TypeGovernmentID,
		FileName:      "id.pdf",
		StorageKey:    "site-1/app-1/id.pdf",
	})
	s.Require().NoError(err)
	return d
}

func (s *DocumentServiceSuite) TestCreate() {
	s.Run("starts pending and records document_uploaded", func() {
		d := s.upload("")
		s.Equal(models.StatusPending, d.Status)
		s.Contains(s.history.events, "document_uploaded")
	})

	s.Run("unknown application is not found", func() {
		_, err := s.service.Create(s.ctx, "site-1", models.CreateDocumentRequest{
			ApplicationID: "app-404",
			Type:          models.TypeGovernmentID,
			StorageKey:    "k",
		})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}

func (s *DocumentServiceSuite) TestReviewStateMachine() {
	s.Run("verify stamps the reviewer", func() {
		d := s.upload("")
		verified, err := s.service.Verify(s.ctx, "site-1", d.ID, "staff@site")
		s.Require().NoError(err)
		s.Equal(models.StatusVerified, verified.Status)
		s.Equal("staff@site", verified.VerifiedBy)
		s.Require().NotNil(verified.VerifiedAt)
		s.Contains(s.history.events, "document_verified")
	})

	s.Run("verify requires a verifier", func() {
		d := s.upload("")
		_, err := s.service.Verify(s.ctx, "site-1", d.ID, "")
		s.Require().True(apperrors.HasCode(err, apperrors.CodeValidation))
	})

	s.Run("reject stamps reason and reviewer", func() {
		d := s.upload("")
		rejected, err := s.service.Reject(s.ctx, "site-1", d.ID, "blurry scan", "staff@site")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, rejected.Status)
		s.Equal("blurry scan", rejected.RejectionReason)
		s.Equal("staff@site", rejected.VerifiedBy)
		s.Contains(s.history.events, "document_rejected")
	})

	s.Run("rejected document cannot be verified", func() {
		d := s.upload("")
		_, err := s.service.Reject(s.ctx, "site-1", d.ID, "wrong document", "staff@site")
		s.Require().NoError(err)

		_, err = s.service.Verify(s.ctx, "site-1", d.ID, "staff@site")
		s.Require().True(apperrors.HasCode(err, apperrors.CodeConflict))
	})

	s.Run("verified document cannot be rejected", func() {
		d := s.upload("")
		_, err := s.service.Verify(s.ctx, "site-1", d.ID, "staff@site")
		s.Require().NoError(err)

		_, err = s.service.Reject(s.ctx, "site-1", d.ID, "too late", "staff@site")
		s.Require().True(apperrors.HasCode(err, apperrors.CodeConflict))
	})

	s.Run("mark expired is idempotent", func() {
		d := s.upload("")
		expired, err := s.service.MarkExpired(s.ctx, "site-1", d.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, expired.Status)

		again, err := s.service.MarkExpired(s.ctx, "site-1", d.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, again.Status)
	})
}

func (s *DocumentServiceSuite) TestCompleteness() {
	s.Run("no documents means zero completeness", func() {
		stats, err := s.service.StatsForApplication(s.ctx, "site-1", "app-1")
		s.Require().NoError(err)
		s.Zero(stats.Total)
		s.Zero(stats.Completeness)
	})

	s.Run("all verified means 100", func() {
		d1 := s.upload("")
		d2 := s.upload("")
		_, err := s.service.Verify(s.ctx, "site-1", d1.ID, "staff@site")
		s.Require().NoError(err)
		_, err = s.service.Verify(s.ctx, "site-1", d2.ID, "staff@site")
		s.Require().NoError(err)

		stats, err := s.service.StatsForApplication(s.ctx, "site-1", "app-1")
		s.Require().NoError(err)
		s.Equal(2, stats.Total)
		s.Equal(2, stats.Verified)
		s.Equal(100, stats.Completeness)
	})

	s.Run("mixed statuses round the ratio", func() {
		d3 := s.upload("")
		_, err := s.service.Reject(s.ctx, "site-1", d3.ID, "unreadable", "staff@site")
		s.Require().NoError(err)

		stats, err := s.service.StatsForApplication(s.ctx, "site-1", "app-1")
		s.Require().NoError(err)
		s.Equal(3, stats.Total)
		s.Equal(2, stats.Verified)
		s.Equal(1, stats.Rejected)
		s.Equal(67, stats.Completeness)
	})
}

func (s *DocumentServiceSuite) TestStatsByApplicant() {
	attached := s.upload("applicant-1")
	s.upload("")
	_, err := s.service.Verify(s.ctx, "site-1", attached.ID, "staff@site")
	s.Require().NoError(err)

	byApplicant, err := s.service.StatsByApplicant(s.ctx, "site-1", "app-1")
	s.Require().NoError(err)
	s.Require().Len(byApplicant, 2)
	s.Equal(100, byApplicant["applicant-1"].Completeness)
	s.Equal(0, byApplicant[""].Completeness)
	s.Equal(1, byApplicant[""].Pending)
}
