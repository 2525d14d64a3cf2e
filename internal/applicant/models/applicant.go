package models

import (
	"time"

	"leaselab/pkg/apperrors"
)

// Type classifies a person attached to an application. Exactly one primary
// exists per application; the store enforces it at insert time.
type Type string

const (
	TypePrimary     Type = "primary"
	TypeCoApplicant Type = "co_applicant"
	TypeGuarantor   Type = "guarantor"
)

// Valid reports whether t is a known applicant type.
func (t Type) Valid() bool {
	return t == TypePrimary || t == TypeCoApplicant || t == TypeGuarantor
}

// SortRank orders listings primary first, then co-applicants, then
// guarantors.
func (t Type) SortRank() int {
	switch t {
	case TypePrimary:
		return 0
	case TypeCoApplicant:
		return 1
	default:
		return 2
	}
}

// BackgroundCheckStatus tracks the external screening provider's progress.
type BackgroundCheckStatus string

const (
	BackgroundNotStarted BackgroundCheckStatus = "not_started"
	BackgroundPending    BackgroundCheckStatus = "pending"
	BackgroundClear      BackgroundCheckStatus = "clear"
	BackgroundFlagged    BackgroundCheckStatus = "flagged"
)

// InviteStatus tracks the self-service onboarding lifecycle.
type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteAccepted  InviteStatus = "accepted"
	InviteCompleted InviteStatus = "completed"
)

// Applicant is one person attached to an application.
type Applicant struct {
	ID              string                `json:"id"`
	SiteID          string                `json:"site_id"`
	ApplicationID   string                `json:"application_id"`
	Type            Type                  `json:"applicant_type"`
	FirstName       string                `json:"first_name"`
	LastName        string                `json:"last_name"`
	Email           string                `json:"email"`
	Phone           string                `json:"phone"`
	Employer        string                `json:"employer"`
	EmploymentType  string                `json:"employment_type"`
	AnnualIncome    int64                 `json:"annual_income_cents"`
	AIScore         *int                  `json:"ai_score,omitempty"`
	AILabel         *string               `json:"ai_label,omitempty"`
	BackgroundCheck BackgroundCheckStatus `json:"background_check_status"`
	InviteToken     string                `json:"invite_token,omitempty"`
	InviteStatus    InviteStatus          `json:"invite_status"`
	InvitedAt       *time.Time            `json:"invited_at,omitempty"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// CreateApplicantRequest carries a new applicant, staff- or self-submitted.
type CreateApplicantRequest struct {
	ApplicationID  string `json:"application_id"`
	Type           Type   `json:"applicant_type"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Employer       string `json:"employer"`
	EmploymentType string `json:"employment_type"`
	AnnualIncome   int64  `json:"annual_income_cents"`
}

// Validate enforces required fields.
func (r *CreateApplicantRequest) Validate() error {
	if r.ApplicationID == "" {
		return apperrors.New(apperrors.CodeValidation, "application_id is required")
	}
	if !r.Type.Valid() {
		return apperrors.Newf(apperrors.CodeValidation, "unknown applicant_type %q", r.Type)
	}
	if r.FirstName == "" || r.LastName == "" {
		return apperrors.New(apperrors.CodeValidation, "first_name and last_name are required")
	}
	if r.Email == "" {
		return apperrors.New(apperrors.CodeValidation, "email is required")
	}
	return nil
}

// UpdateApplicantRequest applies only the provided fields. The applicant
// type is immutable after creation; re-create to change roles.
type UpdateApplicantRequest struct {
	FirstName       *string                `json:"first_name,omitempty"`
	LastName        *string                `json:"last_name,omitempty"`
	Email           *string                `json:"email,omitempty"`
	Phone           *string                `json:"phone,omitempty"`
	Employer        *string                `json:"employer,omitempty"`
	EmploymentType  *string                `json:"employment_type,omitempty"`
	AnnualIncome    *int64                 `json:"annual_income_cents,omitempty"`
	AIScore         *int                   `json:"ai_score,omitempty"`
	AILabel         *string                `json:"ai_label,omitempty"`
	BackgroundCheck *BackgroundCheckStatus `json:"background_check_status,omitempty"`
}

// Apply mutates the applicant with the provided fields, reporting whether
// anything changed.
func (r *UpdateApplicantRequest) Apply(a *Applicant) bool {
	changed := false
	setString := func(dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			changed = true
		}
	}
	setString(&a.FirstName, r.FirstName)
	setString(&a.LastName, r.LastName)
	setString(&a.Email, r.Email)
	setString(&a.Phone, r.Phone)
	setString(&a.Employer, r.Employer)
	setString(&a.EmploymentType, r.EmploymentType)
	if r.AnnualIncome != nil && *r.AnnualIncome != a.AnnualIncome {
		a.AnnualIncome = *r.AnnualIncome
		changed = true
	}
	if r.AIScore != nil {
		a.AIScore = r.AIScore
		changed = true
	}
	if r.AILabel != nil {
		a.AILabel = r.AILabel
		changed = true
	}
	if r.BackgroundCheck != nil && *r.BackgroundCheck != a.BackgroundCheck {
		a.BackgroundCheck = *r.BackgroundCheck
		changed = true
	}
	return changed
}
