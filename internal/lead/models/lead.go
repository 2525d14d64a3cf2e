package models

import (
	"time"

	"leaselab/pkg/apperrors"
)

// Stage is the application's position in the fixed lifecycle enum. The legal
// successor graph lives in the transition engine's rules; this package only
// knows the vocabulary.
type Stage string

const (
	StageNew               Stage = "new"
	StageContacted         Stage = "contacted"
	StageTourScheduled     Stage = "tour_scheduled"
	StageDocumentsPending  Stage = "documents_pending"
	StageDocumentsReceived Stage = "documents_received"
	StageAIEvaluated       Stage = "ai_evaluated"
	StageScreening         Stage = "screening"
	StageApproved          Stage = "approved"
	StageRejected          Stage = "rejected"
	StageLeaseSent         Stage = "lease_sent"
	StageLeaseSigned       Stage = "lease_signed"
)

// AllStages lists every lifecycle stage in pipeline order.
var AllStages = []Stage{
	StageNew, StageContacted, StageTourScheduled, StageDocumentsPending,
	StageDocumentsReceived, StageAIEvaluated, StageScreening,
	StageApproved, StageRejected, StageLeaseSent, StageLeaseSigned,
}

// Valid reports whether s is a known lifecycle stage.
func (s Stage) Valid() bool {
	for _, known := range AllStages {
		if s == known {
			return true
		}
	}
	return false
}

// InquiryType distinguishes full rental applications from general inquiries,
// which waive the employment and move-in requirements.
type InquiryType string

const (
	InquiryRental  InquiryType = "rental_application"
	InquiryGeneral InquiryType = "general_inquiry"
)

// Lead is the aggregate root for one prospective tenant's submission,
// tracked through the staged decision pipeline.
//
// Invariants:
//   - Status always equals the ToStage of the most recent stage transition
//     (or StageNew when none exists). Status is only written by the
//     transition engine; Update rejects direct status changes.
//   - Leads are archived, never destroyed: IsActive toggles visibility.
type Lead struct {
	ID          string      `json:"id"`
	SiteID      string      `json:"site_id"`
	PropertyID  string      `json:"property_id"`
	UnitID      string      `json:"unit_id"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	InquiryType InquiryType `json:"inquiry_type"`
	Employment  string      `json:"employment_type"`
	MoveInDate  string      `json:"move_in_date"`
	MonthlyRent int64       `json:"monthly_rent_cents"`
	Status      Stage       `json:"status"`
	IsActive    bool        `json:"is_active"`
	AIScore     *int        `json:"ai_score,omitempty"`
	AILabel     *string     `json:"ai_label,omitempty"`
	StaffNote   string      `json:"staff_note"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CreateLeadRequest carries a new submission.
type CreateLeadRequest struct {
	PropertyID  string      `json:"property_id"`
	UnitID      string      `json:"unit_id"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	InquiryType InquiryType `json:"inquiry_type"`
	Employment  string      `json:"employment_type"`
	MoveInDate  string      `json:"move_in_date"`
	MonthlyRent int64       `json:"monthly_rent_cents"`
	StaffNote   string      `json:"staff_note"`
}

// Validate enforces required fields. General inquiries waive the employment
// and move-in requirements.
func (r *CreateLeadRequest) Validate() error {
	if r.FirstName == "" || r.LastName == "" {
		return apperrors.New(apperrors.CodeValidation, "first_name and last_name are required")
	}
	if r.Email == "" {
		return apperrors.New(apperrors.CodeValidation, "email is required")
	}
	if r.InquiryType == "" {
		r.InquiryType = InquiryRental
	}
	if r.InquiryType != InquiryRental && r.InquiryType != InquiryGeneral {
		return apperrors.Newf(apperrors.CodeValidation, "unknown inquiry_type %q", r.InquiryType)
	}
	if r.InquiryType == InquiryRental {
		if r.Employment == "" {
			return apperrors.New(apperrors.CodeValidation, "employment_type is required for rental applications")
		}
		if r.MoveInDate == "" {
			return apperrors.New(apperrors.CodeValidation, "move_in_date is required for rental applications")
		}
	}
	return nil
}

// UpdateLeadRequest applies only the provided fields. Stage changes go
// through the transition engine, never through Update.
type UpdateLeadRequest struct {
	PropertyID  *string `json:"property_id,omitempty"`
	UnitID      *string `json:"unit_id,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Employment  *string `json:"employment_type,omitempty"`
	MoveInDate  *string `json:"move_in_date,omitempty"`
	MonthlyRent *int64  `json:"monthly_rent_cents,omitempty"`
	StaffNote   *string `json:"staff_note,omitempty"`

	// Status is decoded so the transport can reject it explicitly rather
	// than silently dropping an attempted direct status write.
	Status *string `json:"status,omitempty"`
}

// Apply mutates lead with the provided fields and returns the changed
// columns, keyed by column name with the new value. An empty map means the
// update was a no-op.
func (r *UpdateLeadRequest) Apply(lead *Lead) map[string]any {
	changed := map[string]any{}
	setString := func(col string, dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			changed[col] = *src
		}
	}
	setString("property_id", &lead.PropertyID, r.PropertyID)
	setString("unit_id", &lead.UnitID, r.UnitID)
	setString("first_name", &lead.FirstName, r.FirstName)
	setString("last_name", &lead.LastName, r.LastName)
	setString("email", &lead.Email, r.Email)
	setString("phone", &lead.Phone, r.Phone)
	setString("employment_type", &lead.Employment, r.Employment)
	setString("move_in_date", &lead.MoveInDate, r.MoveInDate)
	setString("staff_note", &lead.StaffNote, r.StaffNote)
	if r.MonthlyRent != nil && *r.MonthlyRent != lead.MonthlyRent {
		lead.MonthlyRent = *r.MonthlyRent
		changed["monthly_rent"] = *r.MonthlyRent
	}
	return changed
}

// SortField selects the ordering column for listings.
type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
)

// ListFilter narrows and orders lead listings. Archived rows are excluded
// unless IncludeArchived is set.
type ListFilter struct {
	Status          Stage
	PropertyID      string
	IncludeArchived bool
	SortBy          SortField
	SortDesc        bool
	Limit           int
	Offset          int
}
