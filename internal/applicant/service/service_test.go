package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"leaselab/internal/applicant/models"
	applicantstore "leaselab/internal/applicant/store"
	leadmodels "leaselab/internal/lead/models"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/idgen"
	"leaselab/pkg/requestcontext"
	"leaselab/pkg/sentinel"
)

type fakeLeadFinder struct {
	leads map[string]*leadmodels.Lead // "site/id"
}

func (f *fakeLeadFinder) FindByID(_ context.Context, siteID, id string) (*leadmodels.Lead, error) {
	lead, ok := f.leads[siteID+"/"+id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return lead, nil
}

type fakeHistory struct {
	events []string
}

func (f *fakeHistory) Record(_ context.Context, _, _, eventType string, _ map[string]any) error {
	f.events = append(f.events, eventType)
	return nil
}

type ApplicantServiceSuite struct {
	suite.Suite
	service *Service
	history *fakeHistory
	ctx     context.Context
}

func TestApplicantServiceSuite(t *testing.T) {
	suite.Run(t, new(ApplicantServiceSuite))
}

func (s *ApplicantServiceSuite) SetupTest() {
	s.history = &fakeHistory{}
	leads := &fakeLeadFinder{leads: map[string]*leadmodels.Lead{
		"site-1/app-1": {ID: "app-1", SiteID: "site-1", Status: leadmodels.StageNew},
	}}
	s.service = New(applicantstore.NewInMemory(), leads, s.history, &idgen.Sequence{})
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func (s *ApplicantServiceSuite) createApplicant(t models.Type, email string) *models.Applicant {
	a, err := s.service.Create(s.ctx, "site-1", models.CreateApplicantRequest{
		ApplicationID: "app-1",
		Type:          t,
		FirstName:     "Jane",
		LastName:      "Doe",
		Email:         email,
	})
	s.Require().NoError(err)
	return a
}

func (s *ApplicantServiceSuite) TestCreate() {
	s.Run("mints an invite and records applicant_added", func() {
		a := s.createApplicant(models.TypePrimary, "jane@example.com")

		s.NotEmpty(a.InviteToken)
		s.Equal(models.InvitePending, a.InviteStatus)
		s.Require().NotNil(a.InvitedAt)
		s.Contains(s.history.events, "applicant_added")
	})

	s.Run("second primary conflicts", func() {
		_, err := s.service.Create(s.ctx, "site-1", models.CreateApplicantRequest{
			ApplicationID: "app-1",
			Type:          models.TypePrimary,
			FirstName:     "John",
			LastName:      "Roe",
			Email:         "john@example.com",
		})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeConflict))
	})

	s.Run("unknown application is not found", func() {
		_, err := s.service.Create(s.ctx, "site-1", models.CreateApplicantRequest{
			ApplicationID: "app-404",
			Type:          models.TypeCoApplicant,
			FirstName:     "John",
			LastName:      "Roe",
			Email:         "john@example.com",
		})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}

func (s *ApplicantServiceSuite) TestInviteLifecycle() {
	a := s.createApplicant(models.TypePrimary, "jane@example.com")

	s.Run("accepts a pending invite", func() {
		accepted, err := s.service.AcceptInvite(s.ctx, "site-1", a.InviteToken)
		s.Require().NoError(err)
		s.Equal(models.InviteAccepted, accepted.InviteStatus)
	})

	s.Run("double accept conflicts", func() {
		_, err := s.service.AcceptInvite(s.ctx, "site-1", a.InviteToken)
		s.Require().True(apperrors.HasCode(err, apperrors.CodeConflict))
	})

	s.Run("unknown token is not found", func() {
		_, err := s.service.AcceptInvite(s.ctx, "site-1", "bogus")
		s.Require().True(apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}

func (s *ApplicantServiceSuite) TestGetPrimary() {
	s.createApplicant(models.TypeCoApplicant, "co@example.com")
	primary := s.createApplicant(models.TypePrimary, "jane@example.com")

	found, err := s.service.GetPrimary(s.ctx, "site-1", "app-1")
	s.Require().NoError(err)
	s.Equal(primary.ID, found.ID)
}

func (s *ApplicantServiceSuite) TestUpdateAndDelete() {
	a := s.createApplicant(models.TypePrimary, "jane@example.com")

	s.Run("updates provided fields", func() {
		employer := "Acme Corp"
		updated, err := s.service.Update(s.ctx, "site-1", a.ID, models.UpdateApplicantRequest{Employer: &employer})
		s.Require().NoError(err)
		s.Equal(employer, updated.Employer)
	})

	s.Run("delete records applicant_removed", func() {
		s.Require().NoError(s.service.Delete(s.ctx, "site-1", a.ID))
		s.Contains(s.history.events, "applicant_removed")

		_, err := s.service.Get(s.ctx, "site-1", a.ID)
		s.Require().True(apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}
