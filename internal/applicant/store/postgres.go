package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"leaselab/internal/applicant/models"
	"leaselab/pkg/sentinel"
	txcontext "leaselab/pkg/tx"
)

// Postgres persists applicants in the application_applicants table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed applicant store.
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

const applicantColumns = `id, site_id, application_id, applicant_type, first_name, last_name,
	email, phone, employer, employment_type, annual_income, ai_score, ai_label,
	background_check_status, invite_token, invite_status, invited_at, completed_at,
	created_at, updated_at`

// Create inserts an applicant. For primaries the insert is conditional on no
// existing primary for the application, keeping the single-primary invariant
// within one statement.
func (s *Postgres) Create(ctx context.Context, a *models.Applicant) error {
	query := `
		INSERT INTO application_applicants (` + applicantColumns + `)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		WHERE $4 <> 'primary' OR NOT EXISTS (
			SELECT 1 FROM application_applicants
			WHERE site_id = $2 AND application_id = $3 AND applicant_type = 'primary'
		)
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		a.ID, a.SiteID, a.ApplicationID, string(a.Type),
		a.FirstName, a.LastName, a.Email, a.Phone,
		a.Employer, a.EmploymentType, a.AnnualIncome,
		nullInt(a.AIScore), nullString(a.AILabel),
		string(a.BackgroundCheck), a.InviteToken, string(a.InviteStatus),
		nullTime(a.InvitedAt), nullTime(a.CompletedAt),
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert applicant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, siteID, id string) (*models.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM application_applicants WHERE site_id = $1 AND id = $2`
	return s.findOne(ctx, query, siteID, id)
}

func (s *Postgres) FindByInviteToken(ctx context.Context, siteID, token string) (*models.Applicant, error) {
	if token == "" {
		return nil, sentinel.ErrNotFound
	}
	query := `SELECT ` + applicantColumns + ` FROM application_applicants WHERE site_id = $1 AND invite_token = $2`
	return s.findOne(ctx, query, siteID, token)
}

func (s *Postgres) FindPrimary(ctx context.Context, siteID, applicationID string) (*models.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM application_applicants
		WHERE site_id = $1 AND application_id = $2 AND applicant_type = 'primary'`
	return s.findOne(ctx, query, siteID, applicationID)
}

func (s *Postgres) findOne(ctx context.Context, query string, args ...any) (*models.Applicant, error) {
	row := s.execer(ctx).QueryRowContext(ctx, query, args...)
	a, err := scanApplicant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find applicant: %w", err)
	}
	return a, nil
}

// ListForApplication returns applicants ordered primary, co_applicant,
// guarantor, by creation time within each group.
func (s *Postgres) ListForApplication(ctx context.Context, siteID, applicationID string) ([]*models.Applicant, error) {
	query := `
		SELECT ` + applicantColumns + ` FROM application_applicants
		WHERE site_id = $1 AND application_id = $2
		ORDER BY CASE applicant_type
			WHEN 'primary' THEN 0
			WHEN 'co_applicant' THEN 1
			ELSE 2
		END, created_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, siteID, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	defer rows.Close()

	var applicants []*models.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan applicant: %w", err)
		}
		applicants = append(applicants, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applicants: %w", err)
	}
	return applicants, nil
}

func (s *Postgres) CountForApplication(ctx context.Context, siteID, applicationID string) (int, error) {
	query := `SELECT COUNT(*) FROM application_applicants WHERE site_id = $1 AND application_id = $2`
	var count int
	if err := s.execer(ctx).QueryRowContext(ctx, query, siteID, applicationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count applicants: %w", err)
	}
	return count, nil
}

func (s *Postgres) Update(ctx context.Context, a *models.Applicant) error {
	query := `
		UPDATE application_applicants SET
			first_name = $3, last_name = $4, email = $5, phone = $6,
			employer = $7, employment_type = $8, annual_income = $9,
			ai_score = $10, ai_label = $11, background_check_status = $12,
			invite_status = $13, invited_at = $14, completed_at = $15, updated_at = $16
		WHERE site_id = $1 AND id = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		a.SiteID, a.ID,
		a.FirstName, a.LastName, a.Email, a.Phone,
		a.Employer, a.EmploymentType, a.AnnualIncome,
		nullInt(a.AIScore), nullString(a.AILabel), string(a.BackgroundCheck),
		string(a.InviteStatus), nullTime(a.InvitedAt), nullTime(a.CompletedAt), a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update applicant: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) Delete(ctx context.Context, siteID, id string) error {
	query := `DELETE FROM application_applicants WHERE site_id = $1 AND id = $2`
	res, err := s.execer(ctx).ExecContext(ctx, query, siteID, id)
	if err != nil {
		return fmt.Errorf("delete applicant: %w", err)
	}
	return requireRow(res)
}

// DeleteForApplication removes all applicants of one application.
func (s *Postgres) DeleteForApplication(ctx context.Context, siteID, applicationID string) error {
	query := `DELETE FROM application_applicants WHERE site_id = $1 AND application_id = $2`
	if _, err := s.execer(ctx).ExecContext(ctx, query, siteID, applicationID); err != nil {
		return fmt.Errorf("delete applicants for application: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplicant(row rowScanner) (*models.Applicant, error) {
	var (
		a                models.Applicant
		applicantType    string
		backgroundStatus string
		inviteStatus     string
		aiScore          sql.NullInt64
		aiLabel          sql.NullString
		invitedAt        sql.NullTime
		completedAt      sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.SiteID, &a.ApplicationID, &applicantType,
		&a.FirstName, &a.LastName, &a.Email, &a.Phone,
		&a.Employer, &a.EmploymentType, &a.AnnualIncome,
		&aiScore, &aiLabel, &backgroundStatus,
		&a.InviteToken, &inviteStatus, &invitedAt, &completedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Type = models.Type(applicantType)
	a.BackgroundCheck = models.BackgroundCheckStatus(backgroundStatus)
	a.InviteStatus = models.InviteStatus(inviteStatus)
	if aiScore.Valid {
		score := int(aiScore.Int64)
		a.AIScore = &score
	}
	if aiLabel.Valid {
		label := aiLabel.String
		a.AILabel = &label
	}
	if invitedAt.Valid {
		t := invitedAt.Time
		a.InvitedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	return &a, nil
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

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
