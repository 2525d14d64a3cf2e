package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"leaselab/internal/document/models"
	"leaselab/pkg/sentinel"
	txcontext "leaselab/pkg/tx"
)

// Postgres persists documents in the application_documents table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed document store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const documentColumns = `id, site_id, application_id, applicant_id, document_type, file_name,
	storage_key, mime_type, size_bytes, verification_status, rejection_reason,
	verified_by, verified_at, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, d *models.Document) error {
	query := `
		INSERT INTO application_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		d.ID, d.SiteID, d.ApplicationID, d.ApplicantID, string(d.Type), d.FileName,
		d.StorageKey, d.MimeType, d.SizeBytes, string(d.Status), d.RejectionReason,
		d.VerifiedBy, nullTime(d.VerifiedAt), d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, siteID, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM application_documents WHERE site_id = $1 AND id = $2`
	row := s.execer(ctx).QueryRowContext(ctx, query, siteID, id)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return d, nil
}

func (s *Postgres) Update(ctx context.Context, d *models.Document) error {
	query := `
		UPDATE application_documents SET
			applicant_id = $3, document_type = $4, file_name = $5, mime_type = $6,
			size_bytes = $7, verification_status = $8, rejection_reason = $9,
			verified_by = $10, verified_at = $11, updated_at = $12
		WHERE site_id = $1 AND id = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		d.SiteID, d.ID,
		d.ApplicantID, string(d.Type), d.FileName, d.MimeType,
		d.SizeBytes, string(d.Status), d.RejectionReason,
		d.VerifiedBy, nullTime(d.VerifiedAt), d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) Delete(ctx context.Context, siteID, id string) error {
	query := `DELETE FROM application_documents WHERE site_id = $1 AND id = $2`
	res, err := s.execer(ctx).ExecContext(ctx, query, siteID, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(res)
}

// ListForApplication returns documents ordered by upload time.
func (s *Postgres) ListForApplication(ctx context.Context, siteID, applicationID string) ([]*models.Document, error) {
	query := `
		SELECT ` + documentColumns + ` FROM application_documents
		WHERE site_id = $1 AND application_id = $2
		ORDER BY created_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, siteID, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var documents []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return documents, nil
}

// DeleteForApplication removes all documents of one application.
func (s *Postgres) DeleteForApplication(ctx context.Context, siteID, applicationID string) error {
	query := `DELETE FROM application_documents WHERE site_id = $1 AND application_id = $2`
	if _, err := s.execer(ctx).ExecContext(ctx, query, siteID, applicationID); err != nil {
		return fmt.Errorf("delete documents for application: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d          models.Document
		docType    string
		status     string
		verifiedAt sql.NullTime
	)
	err := row.Scan(
		&d.ID, &d.SiteID, &d.ApplicationID, &d.ApplicantID, &docType, &d.FileName,
		&d.StorageKey, &d.MimeType, &d.SizeBytes, &status, &d.RejectionReason,
		&d.VerifiedBy, &verifiedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Type = models.DocumentType(docType)
	d.Status = models.VerificationStatus(status)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		d.VerifiedAt = &t
	}
	return &d, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
