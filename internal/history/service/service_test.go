package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"leaselab/internal/history"
	historystore "leaselab/internal/history/store"
	"leaselab/pkg/idgen"
	"leaselab/pkg/requestcontext"
)

type flakyPublisher struct {
	published []history.Event
	err       error
}

func (f *flakyPublisher) Publish(_ context.Context, event history.Event) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

type HistoryServiceSuite struct {
	suite.Suite
	service   *Service
	publisher *flakyPublisher
	now       time.Time
}

func TestHistoryServiceSuite(t *testing.T) {
	suite.Run(t, new(HistoryServiceSuite))
}

func (s *HistoryServiceSuite) SetupTest() {
	s.publisher = &flakyPublisher{}
	s.service = New(historystore.NewInMemory(), &idgen.Sequence{}, WithPublisher(s.publisher))
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *HistoryServiceSuite) ctxAt(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(offset))
}

func (s *HistoryServiceSuite) TestRecordAndList() {
	s.Require().NoError(s.service.Record(s.ctxAt(0), "site-1", "app-1", "lead_created", map[string]any{"status": "new"}))
	s.Require().NoError(s.service.Record(s.ctxAt(time.Minute), "site-1", "app-1", "lead_updated", map[string]any{"phone": "555-0100"}))

	s.Run("lists newest first", func() {
		events, err := s.service.ListForApplication(s.ctxAt(0), "site-1", "app-1")
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal("lead_updated", events[0].EventType)
		s.Equal("lead_created", events[1].EventType)
	})

	s.Run("events carry minted ids and timestamps", func() {
		events, err := s.service.ListForApplication(s.ctxAt(0), "site-1", "app-1")
		s.Require().NoError(err)
		s.NotEmpty(events[0].ID)
		s.Equal(s.now.Add(time.Minute), events[0].CreatedAt)
	})

	s.Run("other site sees nothing", func() {
		events, err := s.service.ListForApplication(s.ctxAt(0), "site-2", "app-1")
		s.Require().NoError(err)
		s.Empty(events)
	})
}

func (s *HistoryServiceSuite) TestPublisherFanOut() {
	s.Run("events reach the publisher", func() {
		s.Require().NoError(s.service.Record(s.ctxAt(0), "site-1", "app-1", "lead_created", nil))
		s.Require().Len(s.publisher.published, 1)
		s.Equal("lead_created", s.publisher.published[0].EventType)
	})

	s.Run("publish failure does not fail the record", func() {
		s.publisher.err = errors.New("broker unavailable")
		s.Require().NoError(s.service.Record(s.ctxAt(time.Minute), "site-1", "app-1", "lead_updated", nil))

		events, err := s.service.ListForApplication(s.ctxAt(0), "site-1", "app-1")
		s.Require().NoError(err)
		s.Len(events, 2)
	})
}

func (s *HistoryServiceSuite) TestRecordForUnit() {
	s.Require().NoError(s.service.RecordFor(s.ctxAt(0), history.EntityUnit, "site-1", "unit-7", "unit_status_changed", nil))

	events, err := s.service.ListForApplication(s.ctxAt(0), "site-1", "unit-7")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(history.EntityUnit, events[0].EntityType)
}
