package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"leaselab/internal/lead/models"
	"leaselab/pkg/sentinel"
	txcontext "leaselab/pkg/tx"
)

// Postgres persists leads in the applications table. Every statement is
// scoped by site_id; a row under another site is indistinguishable from a
// missing row.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed lead store.
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

const leadColumns = `id, site_id, property_id, unit_id, first_name, last_name, email, phone,
	inquiry_type, employment_type, move_in_date, monthly_rent, status, is_active,
	ai_score, ai_label, staff_note, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, lead *models.Lead) error {
	query := `
		INSERT INTO applications (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		lead.ID, lead.SiteID, lead.PropertyID, lead.UnitID,
		lead.FirstName, lead.LastName, lead.Email, lead.Phone,
		string(lead.InquiryType), lead.Employment, lead.MoveInDate, lead.MonthlyRent,
		string(lead.Status), lead.IsActive,
		nullInt(lead.AIScore), nullString(lead.AILabel), lead.StaffNote,
		lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, siteID, id string) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM applications WHERE site_id = $1 AND id = $2`
	row := s.execer(ctx).QueryRowContext(ctx, query, siteID, id)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return lead, nil
}

func (s *Postgres) Update(ctx context.Context, lead *models.Lead) error {
	query := `
		UPDATE applications SET
			property_id = $3, unit_id = $4, first_name = $5, last_name = $6,
			email = $7, phone = $8, inquiry_type = $9, employment_type = $10,
			move_in_date = $11, monthly_rent = $12, status = $13, is_active = $14,
			ai_score = $15, ai_label = $16, staff_note = $17, updated_at = $18
		WHERE site_id = $1 AND id = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		lead.SiteID, lead.ID,
		lead.PropertyID, lead.UnitID, lead.FirstName, lead.LastName,
		lead.Email, lead.Phone, string(lead.InquiryType), lead.Employment,
		lead.MoveInDate, lead.MonthlyRent, string(lead.Status), lead.IsActive,
		nullInt(lead.AIScore), nullString(lead.AILabel), lead.StaffNote, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) UpdateStatus(ctx context.Context, siteID, id string, stage models.Stage, now time.Time) error {
	query := `UPDATE applications SET status = $3, updated_at = $4 WHERE site_id = $1 AND id = $2`
	res, err := s.execer(ctx).ExecContext(ctx, query, siteID, id, string(stage), now)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) SetScore(ctx context.Context, siteID, id string, score int, label string, now time.Time) error {
	query := `UPDATE applications SET ai_score = $3, ai_label = $4, updated_at = $5 WHERE site_id = $1 AND id = $2`
	res, err := s.execer(ctx).ExecContext(ctx, query, siteID, id, score, label, now)
	if err != nil {
		return fmt.Errorf("set lead score: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) Delete(ctx context.Context, siteID, id string) error {
	query := `DELETE FROM applications WHERE site_id = $1 AND id = $2`
	res, err := s.execer(ctx).ExecContext(ctx, query, siteID, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) List(ctx context.Context, siteID string, filter models.ListFilter) ([]*models.Lead, error) {
	var conditions []string
	args := []any{siteID}
	conditions = append(conditions, "site_id = $1")
	if !filter.IncludeArchived {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PropertyID != "" {
		args = append(args, filter.PropertyID)
		conditions = append(conditions, fmt.Sprintf("property_id = $%d", len(args)))
	}

	sortCol := "created_at"
	if filter.SortBy == models.SortUpdatedAt {
		sortCol = "updated_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	query := `SELECT ` + leadColumns + ` FROM applications WHERE ` +
		strings.Join(conditions, " AND ") +
		fmt.Sprintf(" ORDER BY %s %s", sortCol, direction)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var (
		lead        models.Lead
		inquiryType string
		status      string
		aiScore     sql.NullInt64
		aiLabel     sql.NullString
	)
	err := row.Scan(
		&lead.ID, &lead.SiteID, &lead.PropertyID, &lead.UnitID,
		&lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&inquiryType, &lead.Employment, &lead.MoveInDate, &lead.MonthlyRent,
		&status, &lead.IsActive, &aiScore, &aiLabel, &lead.StaffNote,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	lead.InquiryType = models.InquiryType(inquiryType)
	lead.Status = models.Stage(status)
	if aiScore.Valid {
		score := int(aiScore.Int64)
		lead.AIScore = &score
	}
	if aiLabel.Valid {
		label := aiLabel.String
		lead.AILabel = &label
	}
	return &lead, nil
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
