package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	leadmodels "leaselab/internal/lead/models"
	"leaselab/internal/transition/models"
	"leaselab/pkg/sentinel"
)

type TransitionStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestTransitionStoreSuite(t *testing.T) {
	suite.Run(t, new(TransitionStoreSuite))
}

func (s *TransitionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *TransitionStoreSuite) appendStep(id string, from, to leadmodels.Stage, bypassReason string) {
	s.Require().NoError(s.store.Append(s.ctx, &models.StageTransition{
		ID:             id,
		SiteID:         "site-1",
		ApplicationID:  "app-1",
		FromStage:      from,
		ToStage:        to,
		TransitionType: models.TypeManual,
		BypassReason:   bypassReason,
		TransitionedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}))
}

func (s *TransitionStoreSuite) TestLatest() {
	s.Run("empty log is not found", func() {
		_, err := s.store.Latest(s.ctx, "site-1", "app-1")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.appendStep("t-1", leadmodels.StageNew, leadmodels.StageContacted, "")
	s.appendStep("t-2", leadmodels.StageContacted, leadmodels.StageTourScheduled, "")

	s.Run("returns the last appended row", func() {
		latest, err := s.store.Latest(s.ctx, "site-1", "app-1")
		s.Require().NoError(err)
		s.Equal("t-2", latest.ID)
		s.Equal(leadmodels.StageTourScheduled, latest.ToStage)
	})

	s.Run("other site is not found", func() {
		_, err := s.store.Latest(s.ctx, "site-2", "app-1")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *TransitionStoreSuite) TestListForApplication() {
	s.appendStep("t-1", leadmodels.StageNew, leadmodels.StageContacted, "")
	s.appendStep("t-2", leadmodels.StageContacted, leadmodels.StageTourScheduled, "")
	s.appendStep("t-3", leadmodels.StageTourScheduled, leadmodels.StageContacted, "")

	log, err := s.store.ListForApplication(s.ctx, "site-1", "app-1")
	s.Require().NoError(err)
	s.Require().Len(log, 3)
	s.Equal("t-3", log[0].ID)
	s.Equal("t-1", log[2].ID)
}

func (s *TransitionStoreSuite) TestListByStagePair() {
	s.appendStep("t-1", leadmodels.StageNew, leadmodels.StageContacted, "")
	s.appendStep("t-2", leadmodels.StageContacted, leadmodels.StageTourScheduled, "")
	s.appendStep("t-3", leadmodels.StageTourScheduled, leadmodels.StageContacted, "")
	s.appendStep("t-4", leadmodels.StageContacted, leadmodels.StageTourScheduled, "")

	matches, err := s.store.ListByStagePair(s.ctx, "site-1", "app-1",
		leadmodels.StageContacted, leadmodels.StageTourScheduled)
	s.Require().NoError(err)
	s.Require().Len(matches, 2)
	s.Equal("t-4", matches[0].ID)
	s.Equal("t-2", matches[1].ID)
}

func (s *TransitionStoreSuite) TestListBypassed() {
	s.appendStep("t-1", leadmodels.StageNew, leadmodels.StageContacted, "")
	s.appendStep("t-2", leadmodels.StageContacted, leadmodels.StageDocumentsPending, "scoring offline")

	bypassed, err := s.store.ListBypassed(s.ctx, "site-1", "app-1")
	s.Require().NoError(err)
	s.Require().Len(bypassed, 1)
	s.Equal("t-2", bypassed[0].ID)
}

func (s *TransitionStoreSuite) TestCopySemantics() {
	s.Require().NoError(s.store.Append(s.ctx, &models.StageTransition{
		ID:                "t-1",
		SiteID:            "site-1",
		ApplicationID:     "app-1",
		FromStage:         leadmodels.StageScreening,
		ToStage:           leadmodels.StageApproved,
		TransitionType:    models.TypeManual,
		ChecklistSnapshot: map[string]bool{"background_check_clear": true},
	}))

	latest, err := s.store.Latest(s.ctx, "site-1", "app-1")
	s.Require().NoError(err)
	latest.ChecklistSnapshot["background_check_clear"] = false

	again, err := s.store.Latest(s.ctx, "site-1", "app-1")
	s.Require().NoError(err)
	s.True(again.ChecklistSnapshot["background_check_clear"])
}
