package store

import (
	"context"
	"sort"
	"sync"

	"leaselab/internal/document/models"
	"leaselab/pkg/sentinel"
)

// InMemory is a site-partitioned in-memory document store.
type InMemory struct {
	mu        sync.RWMutex
	documents map[string]map[string]*models.Document // site -> id -> document
}

// NewInMemory constructs an empty in-memory document store.
func NewInMemory() *InMemory {
	return &InMemory{documents: make(map[string]map[string]*models.Document)}
}

func (s *InMemory) Create(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.documents[d.SiteID]
	if !ok {
		site = make(map[string]*models.Document)
		s.documents[d.SiteID] = site
	}
	clone := *d
	site[d.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, siteID, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[siteID][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (s *InMemory) Update(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[d.SiteID][d.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *d
	s.documents[d.SiteID][d.ID] = &clone
	return nil
}

func (s *InMemory) Delete(_ context.Context, siteID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[siteID][id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.documents[siteID], id)
	return nil
}

// ListForApplication returns documents ordered by upload time.
func (s *InMemory) ListForApplication(_ context.Context, siteID, applicationID string) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, d := range s.documents[siteID] {
		if d.ApplicationID == applicationID {
			clone := *d
			out = append(out, &clone)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteForApplication removes all documents of one application.
func (s *InMemory) DeleteForApplication(_ context.Context, siteID, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.documents[siteID] {
		if d.ApplicationID == applicationID {
			delete(s.documents[siteID], id)
		}
	}
	return nil
}
