// Package models defines the AI evaluation result and the scoring service
// wire types.
package models

import "time"

// Result is the cached outcome of one external scoring call. At most one
// result exists per application; re-evaluation overwrites it.
type Result struct {
	ApplicationID  string    `json:"application_id"`
	SiteID         string    `json:"site_id"`
	Score          int       `json:"score"`
	Label          string    `json:"label"`
	Summary        string    `json:"summary"`
	RiskFlags      []string  `json:"risk_flags"`
	Recommendation string    `json:"recommendation"`
	FraudSignals   []string  `json:"fraud_signals"`
	ModelVersion   string    `json:"model_version"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
}

// EvaluateOptions tunes an evaluation request.
type EvaluateOptions struct {
	// ForceRefresh bypasses the cached result and calls the scoring
	// service again.
	ForceRefresh bool `json:"force_refresh"`
	// Reason is recorded in logs when a refresh is forced.
	Reason string `json:"reason,omitempty"`
}

// ScoringRequest is the payload sent to the external scoring service. It
// snapshots everything the scorer needs so the call is self-contained.
type ScoringRequest struct {
	ApplicationID string              `json:"application_id"`
	Application   ApplicationSnapshot `json:"application"`
	Applicants    []ApplicantSnapshot `json:"applicants"`
	Documents     []DocumentReference `json:"documents"`
	MonthlyRent   int64               `json:"monthly_rent_cents"`
}

// ApplicationSnapshot carries the application fields relevant to scoring.
type ApplicationSnapshot struct {
	PropertyID  string `json:"property_id"`
	UnitID      string `json:"unit_id,omitempty"`
	Status      string `json:"status"`
	InquiryType string `json:"inquiry_type"`
	Employment  string `json:"employment_type"`
	MoveInDate  string `json:"move_in_date,omitempty"`
}

// ApplicantSnapshot carries one applicant's scoring-relevant fields.
type ApplicantSnapshot struct {
	Type            string `json:"applicant_type"`
	Employer        string `json:"employer,omitempty"`
	EmploymentType  string `json:"employment_type,omitempty"`
	AnnualIncome    int64  `json:"annual_income_cents"`
	BackgroundCheck string `json:"background_check_status"`
}

// DocumentReference points the scorer at one uploaded document through an
// expiring signed URL.
type DocumentReference struct {
	Type      string `json:"document_type"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Status    string `json:"verification_status"`
	URL       string `json:"url"`
}

// ScoringResponse is the scoring service's reply, schema-validated before
// use.
type ScoringResponse struct {
	Score          int      `json:"score"`
	Label          string   `json:"label"`
	Summary        string   `json:"summary"`
	RiskFlags      []string `json:"risk_flags"`
	Recommendation string   `json:"recommendation"`
	FraudSignals   []string `json:"fraud_signals"`
	ModelVersion   string   `json:"model_version"`
}
