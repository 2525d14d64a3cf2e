package store

import (
	"context"
	"sync"

	"leaselab/internal/history"
)

type siteEntityKey struct {
	site   string
	entity string
}

// InMemory keeps history events per (site, entity id), newest last.
type InMemory struct {
	mu     sync.RWMutex
	events map[siteEntityKey][]history.Event
}

// NewInMemory constructs an empty in-memory history store.
func NewInMemory() *InMemory {
	return &InMemory{events: make(map[siteEntityKey][]history.Event)}
}

func (s *InMemory) Append(_ context.Context, event history.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := siteEntityKey{site: event.SiteID, entity: event.ApplicationID}
	s.events[key] = append(s.events[key], event)
	return nil
}

// ListForApplication returns events newest first.
func (s *InMemory) ListForApplication(_ context.Context, siteID, applicationID string) ([]history.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.events[siteEntityKey{site: siteID, entity: applicationID}]
	out := make([]history.Event, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}
