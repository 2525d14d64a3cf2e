package models

import (
	"time"

	"leaselab/pkg/apperrors"
)

// DocumentType enumerates the supporting documents collected during intake.
type DocumentType string

const (
	TypeGovernmentID     DocumentType = "government_id"
	TypeProofOfIncome    DocumentType = "proof_of_income"
	TypeBankStatement    DocumentType = "bank_statement"
	TypeEmploymentLetter DocumentType = "employment_letter"
	TypeTaxReturn        DocumentType = "tax_return"
	TypeReferenceLetter  DocumentType = "reference_letter"
	TypePetRecord        DocumentType = "pet_record"
	TypeOther            DocumentType = "other"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case TypeGovernmentID, TypeProofOfIncome, TypeBankStatement, TypeEmploymentLetter,
		TypeTaxReturn, TypeReferenceLetter, TypePetRecord, TypeOther:
		return true
	}
	return false
}

// VerificationStatus is the document review state machine:
// pending -> verified (terminal success) or pending -> rejected (terminal
// failure unless a new document is uploaded). Expired marks stale documents.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusVerified VerificationStatus = "verified"
	StatusRejected VerificationStatus = "rejected"
	StatusExpired  VerificationStatus = "expired"
)

// Document is one uploaded supporting file. The storage key is opaque to
// this core; the signed-URL resolver turns it into an access URL.
type Document struct {
	ID              string             `json:"id"`
	SiteID          string             `json:"site_id"`
	ApplicationID   string             `json:"application_id"`
	ApplicantID     string             `json:"applicant_id,omitempty"`
	Type            DocumentType       `json:"document_type"`
	FileName        string             `json:"file_name"`
	StorageKey      string             `json:"storage_key"`
	MimeType        string             `json:"mime_type"`
	SizeBytes       int64              `json:"size_bytes"`
	Status          VerificationStatus `json:"verification_status"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	VerifiedBy      string             `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time         `json:"verified_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// CanReview checks that the document is still awaiting review. Verify and
// reject both require pending; a rejected document is revived only by a
// fresh upload.
func (d *Document) CanReview() error {
	if d.Status != StatusPending {
		return apperrors.Newf(apperrors.CodeInvariantViolation,
			"document is %s, expected pending", d.Status)
	}
	return nil
}

// ApplyVerify marks the document verified, stamping the reviewer.
func (d *Document) ApplyVerify(verifier string, now time.Time) {
	d.Status = StatusVerified
	d.VerifiedBy = verifier
	d.VerifiedAt = &now
	d.UpdatedAt = now
}

// ApplyReject marks the document rejected. Rejection stamps the reviewer in
// the same verified-by/at slot that verification uses.
func (d *Document) ApplyReject(reason, verifier string, now time.Time) {
	d.Status = StatusRejected
	d.RejectionReason = reason
	d.VerifiedBy = verifier
	d.VerifiedAt = &now
	d.UpdatedAt = now
}

// CreateDocumentRequest carries a new upload. Status always starts pending.
type CreateDocumentRequest struct {
	ApplicationID string       `json:"application_id"`
	ApplicantID   string       `json:"applicant_id,omitempty"`
	Type          DocumentType `json:"document_type"`
	FileName      string       `json:"file_name"`
	StorageKey    string       `json:"storage_key"`
	MimeType      string       `json:"mime_type"`
	SizeBytes     int64        `json:"size_bytes"`
}

// Validate enforces required fields.
func (r *CreateDocumentRequest) Validate() error {
	if r.ApplicationID == "" {
		return apperrors.New(apperrors.CodeValidation, "application_id is required")
	}
	if !r.Type.Valid() {
		return apperrors.Newf(apperrors.CodeValidation, "unknown document_type %q", r.Type)
	}
	if r.StorageKey == "" {
		return apperrors.New(apperrors.CodeValidation, "storage_key is required")
	}
	return nil
}

// UpdateDocumentRequest applies only the provided metadata fields. Review
// state changes go through Verify/Reject, not here.
type UpdateDocumentRequest struct {
	ApplicantID *string       `json:"applicant_id,omitempty"`
	Type        *DocumentType `json:"document_type,omitempty"`
	FileName    *string       `json:"file_name,omitempty"`
	MimeType    *string       `json:"mime_type,omitempty"`
	SizeBytes   *int64        `json:"size_bytes,omitempty"`
}

// Apply mutates the document, reporting whether anything changed.
func (r *UpdateDocumentRequest) Apply(d *Document) bool {
	changed := false
	if r.ApplicantID != nil && *r.ApplicantID != d.ApplicantID {
		d.ApplicantID = *r.ApplicantID
		changed = true
	}
	if r.Type != nil && *r.Type != d.Type {
		d.Type = *r.Type
		changed = true
	}
	if r.FileName != nil && *r.FileName != d.FileName {
		d.FileName = *r.FileName
		changed = true
	}
	if r.MimeType != nil && *r.MimeType != d.MimeType {
		d.MimeType = *r.MimeType
		changed = true
	}
	if r.SizeBytes != nil && *r.SizeBytes != d.SizeBytes {
		d.SizeBytes = *r.SizeBytes
		changed = true
	}
	return changed
}

// Stats aggregates review progress for an application or one applicant.
// Completeness is round(100 * verified / total), 0 when there are no
// documents.
type Stats struct {
	Total        int `json:"total"`
	Verified     int `json:"verified"`
	Pending      int `json:"pending"`
	Rejected     int `json:"rejected"`
	Completeness int `json:"completeness"`
}

// Tally folds one document into the stats.
func (s *Stats) Tally(status VerificationStatus) {
	s.Total++
	switch status {
	case StatusVerified:
		s.Verified++
	case StatusPending:
		s.Pending++
	case StatusRejected:
		s.Rejected++
	}
}

// Finalize computes the completeness percentage.
func (s *Stats) Finalize() {
	if s.Total == 0 {
		s.Completeness = 0
		return
	}
	s.Completeness = int(float64(s.Verified)/float64(s.Total)*100 + 0.5)
}
