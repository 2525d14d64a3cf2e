package store

import (
	"context"
	"sort"
	"sync"

	"leaselab/internal/applicant/models"
	"leaselab/pkg/sentinel"
)

// InMemory is a site-partitioned in-memory applicant store. It enforces the
// single-primary invariant at insert time, the same contract the Postgres
// store provides with a conditional insert.
type InMemory struct {
	mu         sync.RWMutex
	applicants map[string]map[string]*models.Applicant // site -> id -> applicant
}

// NewInMemory constructs an empty in-memory applicant store.
func NewInMemory() *InMemory {
	return &InMemory{applicants: make(map[string]map[string]*models.Applicant)}
}

func (s *InMemory) Create(_ context.Context, a *models.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.applicants[a.SiteID]
	if !ok {
		site = make(map[string]*models.Applicant)
		s.applicants[a.SiteID] = site
	}
	if a.Type == models.TypePrimary {
		for _, existing := range site {
			if existing.ApplicationID == a.ApplicationID && existing.Type == models.TypePrimary {
				return sentinel.ErrConflict
			}
		}
	}
	clone := *a
	site[a.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, siteID, id string) (*models.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applicants[siteID][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *InMemory) FindByInviteToken(_ context.Context, siteID, token string) (*models.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if token == "" {
		return nil, sentinel.ErrNotFound
	}
	for _, a := range s.applicants[siteID] {
		if a.InviteToken == token {
			clone := *a
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindPrimary(_ context.Context, siteID, applicationID string) (*models.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.applicants[siteID] {
		if a.ApplicationID == applicationID && a.Type == models.TypePrimary {
			clone := *a
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListForApplication returns applicants ordered primary, co_applicant,
// guarantor, by creation time within each group.
func (s *InMemory) ListForApplication(_ context.Context, siteID, applicationID string) ([]*models.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Applicant
	for _, a := range s.applicants[siteID] {
		if a.ApplicationID == applicationID {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type.SortRank() != out[j].Type.SortRank() {
			return out[i].Type.SortRank() < out[j].Type.SortRank()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) CountForApplication(_ context.Context, siteID, applicationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, a := range s.applicants[siteID] {
		if a.ApplicationID == applicationID {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) Update(_ context.Context, a *models.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applicants[a.SiteID][a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *a
	s.applicants[a.SiteID][a.ID] = &clone
	return nil
}

func (s *InMemory) Delete(_ context.Context, siteID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applicants[siteID][id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.applicants[siteID], id)
	return nil
}

// DeleteForApplication removes all applicants of one application. The
// cascade hook invoked by lead hard-delete.
func (s *InMemory) DeleteForApplication(_ context.Context, siteID, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.applicants[siteID] {
		if a.ApplicationID == applicationID {
			delete(s.applicants[siteID], id)
		}
	}
	return nil
}
