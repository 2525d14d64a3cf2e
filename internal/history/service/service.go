package service

import (
	"context"
	"log/slog"

	"leaselab/internal/history"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/idgen"
	"leaselab/pkg/requestcontext"
)

// Store is the persistence boundary for history events.
type Store interface {
	Append(ctx context.Context, event history.Event) error
	ListForApplication(ctx context.Context, siteID, applicationID string) ([]history.Event, error)
}

// Publisher fans events out to an external feed. Publish failures are logged,
// never propagated: the audit feed must not fail the mutation it describes.
type Publisher interface {
	Publish(ctx context.Context, event history.Event) error
}

// Service records and reads the append-only history trail.
type Service struct {
	store     Store
	publisher Publisher
	ids       idgen.Generator
	logger    *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs the history service.
func New(store Store, ids idgen.Generator, opts ...Option) *Service {
	s := &Service{store: store, ids: ids}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends one event for a lead. Satisfies the HistoryRecorder
// interface the lifecycle and transition services depend on.
func (s *Service) Record(ctx context.Context, siteID, applicationID, eventType string, eventData map[string]any) error {
	return s.RecordFor(ctx, history.EntityLead, siteID, applicationID, eventType, eventData)
}

// RecordFor appends one event for an arbitrary entity type. Unit history
// shares the table and shape with lead history.
func (s *Service) RecordFor(ctx context.Context, entity history.EntityType, siteID, entityID, eventType string, eventData map[string]any) error {
	if siteID == "" {
		return apperrors.New(apperrors.CodeInternal, "site context not resolved")
	}
	if eventData == nil {
		eventData = map[string]any{}
	}
	event := history.Event{
		ID:            s.ids.NewID(),
		SiteID:        siteID,
		EntityType:    entity,
		ApplicationID: entityID,
		EventType:     eventType,
		EventData:     eventData,
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := s.store.Append(ctx, event); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorage, "failed to append history event")
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "history publish failed",
				"event_type", eventType, "application_id", entityID, "error", err)
		}
	}
	return nil
}

// ListForApplication returns a lead's history, newest first.
func (s *Service) ListForApplication(ctx context.Context, siteID, applicationID string) ([]history.Event, error) {
	if siteID == "" {
		return nil, apperrors.New(apperrors.CodeInternal, "site context not resolved")
	}
	events, err := s.store.ListForApplication(ctx, siteID, applicationID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to list history events")
	}
	return events, nil
}
