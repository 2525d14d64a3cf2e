package store

import (
	"context"
	"sync"

	leadmodels "leaselab/internal/lead/models"
	"leaselab/internal/transition/models"
	"leaselab/pkg/sentinel"
)

// InMemory keeps transition logs per site and application. The log is
// append-only; there is no update or delete.
type InMemory struct {
	mu   sync.RWMutex
	logs map[string]map[string][]*models.StageTransition // site -> application -> log in append order
}

// NewInMemory constructs an empty in-memory transition store.
func NewInMemory() *InMemory {
	return &InMemory{logs: make(map[string]map[string][]*models.StageTransition)}
}

func (s *InMemory) Append(_ context.Context, t *models.StageTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.logs[t.SiteID]
	if !ok {
		site = make(map[string][]*models.StageTransition)
		s.logs[t.SiteID] = site
	}
	site[t.ApplicationID] = append(site[t.ApplicationID], cloneTransition(t))
	return nil
}

// Latest returns the most recent transition for the application, or
// sentinel.ErrNotFound when none has been recorded.
func (s *InMemory) Latest(_ context.Context, siteID, applicationID string) (*models.StageTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.logs[siteID][applicationID]
	if len(log) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return cloneTransition(log[len(log)-1]), nil
}

// ListForApplication returns the application's transitions newest first.
func (s *InMemory) ListForApplication(_ context.Context, siteID, applicationID string) ([]*models.StageTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.logs[siteID][applicationID]
	out := make([]*models.StageTransition, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		out = append(out, cloneTransition(log[i]))
	}
	return out, nil
}

// ListByStagePair returns the application's transitions matching the exact
// from/to pair, newest first.
func (s *InMemory) ListByStagePair(_ context.Context, siteID, applicationID string, from, to leadmodels.Stage) ([]*models.StageTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.StageTransition
	log := s.logs[siteID][applicationID]
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].FromStage == from && log[i].ToStage == to {
			out = append(out, cloneTransition(log[i]))
		}
	}
	return out, nil
}

// ListBypassed returns the application's bypassed transitions, newest first.
func (s *InMemory) ListBypassed(_ context.Context, siteID, applicationID string) ([]*models.StageTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.StageTransition
	log := s.logs[siteID][applicationID]
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Bypassed() {
			out = append(out, cloneTransition(log[i]))
		}
	}
	return out, nil
}

func cloneTransition(t *models.StageTransition) *models.StageTransition {
	clone := *t
	if t.ChecklistSnapshot != nil {
		clone.ChecklistSnapshot = make(map[string]bool, len(t.ChecklistSnapshot))
		for k, v := range t.ChecklistSnapshot {
			clone.ChecklistSnapshot[k] = v
		}
	}
	return &clone
}
