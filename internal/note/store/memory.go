package store

import (
	"context"
	"sort"
	"sync"

	"leaselab/internal/note/models"
	"leaselab/pkg/sentinel"
)

// InMemory is a site-partitioned in-memory note store.
type InMemory struct {
	mu    sync.RWMutex
	notes map[string]map[string]*models.Note // site -> id -> note
}

// NewInMemory constructs an empty in-memory note store.
func NewInMemory() *InMemory {
	return &InMemory{notes: make(map[string]map[string]*models.Note)}
}

func (s *InMemory) Create(_ context.Context, n *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.notes[n.SiteID]
	if !ok {
		site = make(map[string]*models.Note)
		s.notes[n.SiteID] = site
	}
	clone := cloneNote(n)
	site[n.ID] = clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, siteID, id string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[siteID][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneNote(n), nil
}

func (s *InMemory) Update(_ context.Context, n *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[n.SiteID][n.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.notes[n.SiteID][n.ID] = cloneNote(n)
	return nil
}

func (s *InMemory) Delete(_ context.Context, siteID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[siteID][id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.notes[siteID], id)
	return nil
}

// ListForApplication returns notes newest first.
func (s *InMemory) ListForApplication(_ context.Context, siteID, applicationID string) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Note
	for _, n := range s.notes[siteID] {
		if n.ApplicationID == applicationID {
			out = append(out, cloneNote(n))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteForApplication removes all of an application's notes. Used by the
// lead hard-delete cascade.
func (s *InMemory) DeleteForApplication(_ context.Context, siteID, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.notes[siteID] {
		if n.ApplicationID == applicationID {
			delete(s.notes[siteID], id)
		}
	}
	return nil
}

func cloneNote(n *models.Note) *models.Note {
	clone := *n
	clone.VisibleToRoles = append([]string(nil), n.VisibleToRoles...)
	clone.TaggedApplicants = append([]string(nil), n.TaggedApplicants...)
	return &clone
}
