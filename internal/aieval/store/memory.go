package store

import (
	"context"
	"sync"

	"leaselab/internal/aieval/models"
	"leaselab/pkg/sentinel"
)

// InMemory caches one evaluation result per site and application.
type InMemory struct {
	mu      sync.RWMutex
	results map[string]map[string]*models.Result // site -> application -> result
}

// NewInMemory constructs an empty in-memory result store.
func NewInMemory() *InMemory {
	return &InMemory{results: make(map[string]map[string]*models.Result)}
}

// Get returns the cached result for the application.
func (s *InMemory) Get(_ context.Context, siteID, applicationID string) (*models.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[siteID][applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneResult(r), nil
}

// Put stores the result, replacing any previous one for the application.
func (s *InMemory) Put(_ context.Context, r *models.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.results[r.SiteID]
	if !ok {
		site = make(map[string]*models.Result)
		s.results[r.SiteID] = site
	}
	site[r.ApplicationID] = cloneResult(r)
	return nil
}

// Delete drops the cached result, if any.
func (s *InMemory) Delete(_ context.Context, siteID, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results[siteID], applicationID)
	return nil
}

func cloneResult(r *models.Result) *models.Result {
	clone := *r
	clone.RiskFlags = append([]string(nil), r.RiskFlags...)
	clone.FraudSignals = append([]string(nil), r.FraudSignals...)
	return &clone
}
