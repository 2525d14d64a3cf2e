package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"leaselab/internal/lead/models"
	"leaselab/pkg/sentinel"
)

// InMemory is a site-partitioned in-memory lead store. It doubles as the
// unit-test fake for services that depend on LeadStore.
type InMemory struct {
	mu    sync.RWMutex
	leads map[string]map[string]*models.Lead // site -> id -> lead
}

// NewInMemory constructs an empty in-memory lead store.
func NewInMemory() *InMemory {
	return &InMemory{leads: make(map[string]map[string]*models.Lead)}
}

func (s *InMemory) Create(_ context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.leads[lead.SiteID]
	if !ok {
		site = make(map[string]*models.Lead)
		s.leads[lead.SiteID] = site
	}
	if _, exists := site[lead.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *lead
	site[lead.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, siteID, id string) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.leads[siteID][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *lead
	return &clone, nil
}

func (s *InMemory) Update(_ context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[lead.SiteID][lead.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *lead
	s.leads[lead.SiteID][lead.ID] = &clone
	return nil
}

func (s *InMemory) UpdateStatus(_ context.Context, siteID, id string, stage models.Stage, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[siteID][id]
	if !ok {
		return sentinel.ErrNotFound
	}
	lead.Status = stage
	lead.UpdatedAt = now
	return nil
}

func (s *InMemory) SetScore(_ context.Context, siteID, id string, score int, label string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[siteID][id]
	if !ok {
		return sentinel.ErrNotFound
	}
	lead.AIScore = &score
	lead.AILabel = &label
	lead.UpdatedAt = now
	return nil
}

func (s *InMemory) Delete(_ context.Context, siteID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[siteID][id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.leads[siteID], id)
	return nil
}

func (s *InMemory) List(_ context.Context, siteID string, filter models.ListFilter) ([]*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Lead
	for _, lead := range s.leads[siteID] {
		if !matches(lead, filter) {
			continue
		}
		clone := *lead
		out = append(out, &clone)
	}
	sortLeads(out, filter)
	return paginate(out, filter), nil
}

func matches(lead *models.Lead, filter models.ListFilter) bool {
	if !filter.IncludeArchived && !lead.IsActive {
		return false
	}
	if filter.Status != "" && lead.Status != filter.Status {
		return false
	}
	if filter.PropertyID != "" && lead.PropertyID != filter.PropertyID {
		return false
	}
	return true
}

func sortLeads(leads []*models.Lead, filter models.ListFilter) {
	key := func(l *models.Lead) time.Time {
		if filter.SortBy == models.SortUpdatedAt {
			return l.UpdatedAt
		}
		return l.CreatedAt
	}
	sort.SliceStable(leads, func(i, j int) bool {
		if filter.SortDesc {
			return key(leads[i]).After(key(leads[j]))
		}
		return key(leads[i]).Before(key(leads[j]))
	})
}

func paginate(leads []*models.Lead, filter models.ListFilter) []*models.Lead {
	if filter.Offset > 0 {
		if filter.Offset >= len(leads) {
			return nil
		}
		leads = leads[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(leads) {
		leads = leads[:filter.Limit]
	}
	return leads
}
