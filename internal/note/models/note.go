package models

import (
	"time"

	"leaselab/pkg/apperrors"
)

// Category classifies staff notes.
type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryScreening     Category = "screening"
	CategoryDocuments     Category = "documents"
	CategoryCommunication Category = "communication"
	CategoryDecision      Category = "decision"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryScreening, CategoryDocuments, CategoryCommunication, CategoryDecision:
		return true
	}
	return false
}

// Priority orders notes for triage.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh || p == PriorityUrgent
}

// SortRank orders urgent before high before medium before low.
func (p Priority) SortRank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Note is a staff annotation on an application. Unlike stage transitions,
// notes are mutable. Visibility flags are stored and returned here; callers
// enforce them against the requesting user's role.
type Note struct {
	ID               string    `json:"id"`
	SiteID           string    `json:"site_id"`
	ApplicationID    string    `json:"application_id"`
	Category         Category  `json:"note_category"`
	Priority         Priority  `json:"priority"`
	Content          string    `json:"content"`
	IsSensitive      bool      `json:"is_sensitive"`
	VisibleToRoles   []string  `json:"visible_to_roles,omitempty"`
	TaggedApplicants []string  `json:"tagged_applicants,omitempty"`
	Author           string    `json:"author"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// VisibleTo reports whether a caller with the given role may see the note.
// An empty allowlist means visible to all staff.
func (n *Note) VisibleTo(role string) bool {
	if len(n.VisibleToRoles) == 0 {
		return true
	}
	for _, allowed := range n.VisibleToRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// CreateNoteRequest carries a new note.
type CreateNoteRequest struct {
	ApplicationID    string   `json:"application_id"`
	Category         Category `json:"note_category"`
	Priority         Priority `json:"priority"`
	Content          string   `json:"content"`
	IsSensitive      bool     `json:"is_sensitive"`
	VisibleToRoles   []string `json:"visible_to_roles,omitempty"`
	TaggedApplicants []string `json:"tagged_applicants,omitempty"`
	Author           string   `json:"author"`
}

// Validate enforces required fields and defaults category/priority.
func (r *CreateNoteRequest) Validate() error {
	if r.ApplicationID == "" {
		return apperrors.New(apperrors.CodeValidation, "application_id is required")
	}
	if r.Content == "" {
		return apperrors.New(apperrors.CodeValidation, "content is required")
	}
	if r.Category == "" {
		r.Category = CategoryGeneral
	}
	if !r.Category.Valid() {
		return apperrors.Newf(apperrors.CodeValidation, "unknown note_category %q", r.Category)
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if !r.Priority.Valid() {
		return apperrors.Newf(apperrors.CodeValidation, "unknown priority %q", r.Priority)
	}
	return nil
}

// UpdateNoteRequest applies only the provided fields.
type UpdateNoteRequest struct {
	Category         *Category `json:"note_category,omitempty"`
	Priority         *Priority `json:"priority,omitempty"`
	Content          *string   `json:"content,omitempty"`
	IsSensitive      *bool     `json:"is_sensitive,omitempty"`
	VisibleToRoles   *[]string `json:"visible_to_roles,omitempty"`
	TaggedApplicants *[]string `json:"tagged_applicants,omitempty"`
}

// Apply mutates the note, reporting whether anything changed.
func (r *UpdateNoteRequest) Apply(n *Note) bool {
	changed := false
	if r.Category != nil && *r.Category != n.Category {
		n.Category = *r.Category
		changed = true
	}
	if r.Priority != nil && *r.Priority != n.Priority {
		n.Priority = *r.Priority
		changed = true
	}
	if r.Content != nil && *r.Content != n.Content {
		n.Content = *r.Content
		changed = true
	}
	if r.IsSensitive != nil && *r.IsSensitive != n.IsSensitive {
		n.IsSensitive = *r.IsSensitive
		changed = true
	}
	if r.VisibleToRoles != nil {
		n.VisibleToRoles = *r.VisibleToRoles
		changed = true
	}
	if r.TaggedApplicants != nil {
		n.TaggedApplicants = *r.TaggedApplicants
		changed = true
	}
	return changed
}

// Summary aggregates an application's notes.
type Summary struct {
	Total          int              `json:"total"`
	ByCategory     map[Category]int `json:"by_category"`
	ByPriority     map[Priority]int `json:"by_priority"`
	SensitiveCount int              `json:"sensitive_count"`
}
