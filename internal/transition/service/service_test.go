package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	leadmodels "leaselab/internal/lead/models"
	leadstore "leaselab/internal/lead/store"
	"leaselab/internal/transition/models"
	transitionstore "leaselab/internal/transition/store"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/idgen"
	"leaselab/pkg/requestcontext"
)

type recordedEvent struct {
	eventType string
	eventData map[string]any
}

type fakeHistory struct {
	events []recordedEvent
}

func (f *fakeHistory) Record(_ context.Context, _, _, eventType string, eventData map[string]any) error {
	f.events = append(f.events, recordedEvent{eventType, eventData})
	return nil
}

type TransitionEngineSuite struct {
	suite.Suite
	engine      *Service
	leads       *leadstore.InMemory
	transitions *transitionstore.InMemory
	history     *fakeHistory
	ctx         context.Context
	now         time.Time
}

func TestTransitionEngineSuite(t *testing.T) {
	suite.Run(t, new(TransitionEngineSuite))
}

func (s *TransitionEngineSuite) SetupTest() {
	s.leads = leadstore.NewInMemory()
	s.transitions = transitionstore.NewInMemory()
	s.history = &fakeHistory{}
	s.engine = New(s.transitions, s.leads, s.history, &idgen.Sequence{})
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *TransitionEngineSuite) seedLead(id string, stage leadmodels.Stage) {
	s.Require().NoError(s.leads.Create(s.ctx, &leadmodels.Lead{
		ID:        id,
		SiteID:    "site-1",
		Status:    stage,
		IsActive:  true,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}))
}

func (s *TransitionEngineSuite) leadStatus(id string) leadmodels.Stage {
	lead, err := s.leads.FindByID(s.ctx, "site-1", id)
	s.Require().NoError(err)
	return lead.Status
}

func (s *TransitionEngineSuite) TestLegalTransition() {
	s.seedLead("app-1", leadmodels.StageNew)

	t, err := s.engine.Transition(s.ctx, "site-1", "app-1", models.TransitionRequest{
		To:    leadmodels.StageContacted,
		Type:  models.TypeManual,
		Actor: "staff@site",
	})
	s.Require().NoError(err)

	s.Run("records the from and to stages", func() {
		s.Equal(leadmodels.StageNew, t.FromStage)
		s.Equal(leadmodels.StageContacted, t.ToStage)
		s.Empty(t.BypassReason)
		s.Equal("staff@site", t.TransitionedBy)
	})

	s.Run("status matches the latest transition", func() {
		s.Equal(leadmodels.StageContacted, s.leadStatus("app-1"))

		latest, err := s.engine.Latest(s.ctx, "site-1", "app-1")
		s.Require().NoError(err)
		s.Equal(latest.ToStage, s.leadStatus("app-1"))
	})

	s.Run("records a stage_changed event", func() {
		s.Require().Len(s.history.events, 1)
		s.Equal("stage_changed", s.history.events[0].eventType)
		s.Equal("new", s.history.events[0].eventData["from_stage"])
		s.Equal("contacted", s.history.events[0].eventData["to_stage"])
	})

	s.Run("next transition reads current from the log", func() {
		t2, err := s.engine.Transition(s.ctx, "site-1", "app-1", models.TransitionRequest{
			To:    leadmodels.StageDocumentsPending,
			Type:  models.TypeManual,
			Actor: "staff@site",
		})
		s.Require().NoError(err)
		s.Equal(leadmodels.StageContacted, t2.FromStage)
	})
}

func (s *TransitionEngineSuite) TestIllegalTarget() {
	s.seedLead("app-1", leadmodels.StageNew)

	_, err := s.engine.Transition(s.ctx, "site-1", "app-1", models.TransitionRequest{
		To:    leadmodels.StageApproved,
		Type:  models.TypeManual,
		Actor: "staff@site",
	})

	s.Run("is rejected with expected and actual stages", func() {
		s.Require().True(apperrors.HasCode(err, apperrors.CodeValidation))
		s.Contains(err.Error(), `"approved"`)
		s.Contains(err.Error(), `"new"`)
	})

	s.Run("writes no transition row", func() {
		log, err := s.engine.List(s.ctx, "site-1", "app-1")
		s.Require().NoError(err)
		s.Empty(log)
	})

	s.Run("leaves the status unchanged", func() {
		s.Equal(leadmodels.StageNew, s.leadStatus("app-1"))
	})
}

func (s *TransitionEngineSuite) TestChecklistEnforcement() {
	s.seedLead("app-1", leadmodels.StageScreening)

	s.Run("incomplete checklist without bypass conflicts", func() {
		_, err := s.engine.Transition(s.ctx, "site-1", "app-1", models.TransitionRequest{
			To:        leadmodels.StageApproved,
			Type:      models.TypeManual,
			Actor:     "staff@site",
			Checklist: map[string]bool{"background_check_clear": true},
		})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeConflict))
		s.Contains(err.Error(), "income_verified")
		s.Equal(leadmodels.StageScreening, s.leadStatus("app-1"))
	})

	s.Run("complete checklist passes without bypass", func() {
		t, err := s.engine.Transition(s.ctx, "site-1", "app-1", models.TransitionRequest{
			To:    leadmodels.StageApproved,
			Type:  models.TypeManual,
			Actor: "staff@site",
			Checklist: map[string]bool{
				"background_check_clear": true,
				"income_verified":        true,
			},
		})
		s.Require().NoError(err)
		s.False(t.Bypassed())
		s.True(t.ChecklistSnapshot["income_verified"])
	})
}

func (s *TransitionEngineSuite) TestBypass() {
	s.seedLead("app-1", leadmodels.StageScreening)

	s.Run("bypass fields allow an incomplete checklist through", func() {
		t, err := s.engine.Transition(s.ctx, "site-1", "app-1", models.TransitionRequest{
			To:             leadmodels.StageApproved,
			Type:           models.TypeManual,
			Actor:          "manager@site",
			BypassReason:   "screening provider outage, manual review done",
			BypassCategory: models.BypassManualOverride,
		})
		s.Require().NoError(err)
		s.True(t.Bypassed())
		s.Equal(models.BypassManualOverride, t.BypassCategory)
		s.Equal(leadmodels.StageApproved, s.leadStatus("app-1"))
	})

	s.Run("bypassed transitions are queryable", func() {
		bypassed, err := s.engine.ListBypassed(s.ctx, "site-1", "app-1")
		s.Require().NoError(err)
		s.Require().Len(bypassed, 1)
		s.Equal(leadmodels.StageApproved, bypassed[0].ToStage)
	})

	s.Run("bypass event data carries the reason", func() {
		s.Require().Len(s.history.events, 1)
		s.Equal("screening provider outage, manual review done", s.history.events[0].eventData["bypass_reason"])
	})

	s.Run("unknown bypass category is rejected", func() {
		s.seedLead("app-2", leadmodels.StageScreening)
		_, err := s.engine.Transition(s.ctx, "site-1", "app-2", models.TransitionRequest{
			To:             leadmodels.StageApproved,
			Type:           models.TypeManual,
			Actor:          "manager@site",
			BypassReason:   "because",
			BypassCategory: "whim",
		})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeValidation))
	})

	s.Run("bypass reason without category is rejected", func() {
		s.seedLead("app-3", leadmodels.StageScreening)
		_, err := s.engine.Transition(s.ctx, "site-1", "app-3", models.TransitionRequest{
			To:           leadmodels.StageApproved,
			Type:         models.TypeManual,
			Actor:        "manager@site",
			BypassReason: "because",
		})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeValidation))
	})
}

func (s *TransitionEngineSuite) TestRevive() {
	s.seedLead("app-1", leadmodels.StageScreening)

	_, err := s.engine.Transition(s.ctx, "site-1", "app-1", models.TransitionRequest{
		To:    leadmodels.StageRejected,
		Type:  models.TypeManual,
		Actor: "staff@site",
	})
	s.Require().NoError(err)

	revived, err := s.engine.Transition(s.ctx, "site-1", "app-1", models.TransitionRequest{
		To:           leadmodels.StageScreening,
		Type:         models.TypeManual,
		Actor:        "manager@site",
		InternalNote: "applicant disputed the rejection, re-screening",
	})
	s.Require().NoError(err)
	s.Equal(leadmodels.StageRejected, revived.FromStage)
	s.Equal(leadmodels.StageScreening, revived.ToStage)
	s.Equal(leadmodels.StageScreening, s.leadStatus("app-1"))

	log, err := s.engine.List(s.ctx, "site-1", "app-1")
	s.Require().NoError(err)
	s.Len(log, 2)
}

func (s *TransitionEngineSuite) TestValidation() {
	s.seedLead("app-1", leadmodels.StageNew)

	s.Run("unknown target stage", func() {
		_, err := s.engine.Transition(s.ctx, "site-1", "app-1", models.TransitionRequest{
			To: "limbo", Type: models.TypeManual, Actor: "staff@site",
		})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeValidation))
	})

	s.Run("unknown transition type", func() {
		_, err := s.engine.Transition(s.ctx, "site-1", "app-1", models.TransitionRequest{
			To: leadmodels.StageContacted, Type: "psychic", Actor: "staff@site",
		})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeValidation))
	})

	s.Run("actor is required", func() {
		_, err := s.engine.Transition(s.ctx, "site-1", "app-1", models.TransitionRequest{
			To: leadmodels.StageContacted, Type: models.TypeManual,
		})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeValidation))
	})

	s.Run("unknown application", func() {
		_, err := s.engine.Transition(s.ctx, "site-1", "app-404", models.TransitionRequest{
			To: leadmodels.StageContacted, Type: models.TypeManual, Actor: "staff@site",
		})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeNotFound))
	})

	s.Run("cross-site application is not found", func() {
		_, err := s.engine.Transition(s.ctx, "site-2", "app-1", models.TransitionRequest{
			To: leadmodels.StageContacted, Type: models.TypeManual, Actor: "staff@site",
		})
		s.Require().True(apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}

func (s *TransitionEngineSuite) TestQueriesAndStats() {
	s.seedLead("app-1", leadmodels.StageNew)

	step := func(to leadmodels.Stage, transitionType models.Type, checklist map[string]bool, bypass bool) {
		req := models.TransitionRequest{To: to, Type: transitionType, Actor: "staff@site", Checklist: checklist}
		if bypass {
			req.BypassReason = "documents reviewed out of band"
			req.BypassCategory = models.BypassOther
		}
		_, err := s.engine.Transition(s.ctx, "site-1", "app-1", req)
		s.Require().NoError(err)
	}

	step(leadmodels.StageDocumentsPending, models.TypeManual, nil, false)
	step(leadmodels.StageDocumentsReceived, models.TypeAutomatic, nil, false)
	step(leadmodels.StageAIEvaluated, models.TypeSystem, nil, true) // checklist bypassed
	step(leadmodels.StageScreening, models.TypeManual, map[string]bool{"ai_evaluation_reviewed": true}, false)

	s.Run("list is newest first", func() {
		log, err := s.engine.List(s.ctx, "site-1", "app-1")
		s.Require().NoError(err)
		s.Require().Len(log, 4)
		s.Equal(leadmodels.StageScreening, log[0].ToStage)
		s.Equal(leadmodels.StageDocumentsPending, log[3].ToStage)
	})

	s.Run("filters by stage pair", func() {
		pair, err := s.engine.ListByStagePair(s.ctx, "site-1", "app-1",
			leadmodels.StageDocumentsReceived, leadmodels.StageAIEvaluated)
		s.Require().NoError(err)
		s.Require().Len(pair, 1)
		s.True(pair[0].Bypassed())
	})

	s.Run("aggregates stats by type and bypass", func() {
		stats, err := s.engine.Stats(s.ctx, "site-1", "app-1")
		s.Require().NoError(err)
		s.Equal(4, stats.Total)
		s.Equal(2, stats.Manual)
		s.Equal(1, stats.Automatic)
		s.Equal(1, stats.System)
		s.Equal(1, stats.Bypassed)
	})

	s.Run("latest for an application with no transitions is not found", func() {
		s.seedLead("app-2", leadmodels.StageNew)
		_, err := s.engine.Latest(s.ctx, "site-1", "app-2")
		s.Require().True(apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}
