package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"leaselab/internal/note/models"
	"leaselab/pkg/sentinel"
	txcontext "leaselab/pkg/tx"
)

// Postgres persists notes in the application_internal_notes table. Role
// allowlists and applicant tags are stored as JSON arrays.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed note store.
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

const noteColumns = `id, site_id, application_id, note_category, priority, content,
	is_sensitive, visible_to_roles, tagged_applicants, author, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, n *models.Note) error {
	roles, tags, err := marshalLists(n)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO application_internal_notes (` + noteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		n.ID, n.SiteID, n.ApplicationID, string(n.Category), string(n.Priority), n.Content,
		n.IsSensitive, roles, tags, n.Author, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, siteID, id string) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM application_internal_notes WHERE site_id = $1 AND id = $2`
	row := s.execer(ctx).QueryRowContext(ctx, query, siteID, id)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find note: %w", err)
	}
	return n, nil
}

func (s *Postgres) Update(ctx context.Context, n *models.Note) error {
	roles, tags, err := marshalLists(n)
	if err != nil {
		return err
	}
	query := `
		UPDATE application_internal_notes SET
			note_category = $3, priority = $4, content = $5, is_sensitive = $6,
			visible_to_roles = $7, tagged_applicants = $8, updated_at = $9
		WHERE site_id = $1 AND id = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		n.SiteID, n.ID,
		string(n.Category), string(n.Priority), n.Content, n.IsSensitive,
		roles, tags, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) Delete(ctx context.Context, siteID, id string) error {
	query := `DELETE FROM application_internal_notes WHERE site_id = $1 AND id = $2`
	res, err := s.execer(ctx).ExecContext(ctx, query, siteID, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return requireRow(res)
}

// DeleteForApplication removes all of an application's notes. Used by the
// lead hard-delete cascade.
func (s *Postgres) DeleteForApplication(ctx context.Context, siteID, applicationID string) error {
	query := `DELETE FROM application_internal_notes WHERE site_id = $1 AND application_id = $2`
	if _, err := s.execer(ctx).ExecContext(ctx, query, siteID, applicationID); err != nil {
		return fmt.Errorf("delete notes for application: %w", err)
	}
	return nil
}

// ListForApplication returns notes newest first.
func (s *Postgres) ListForApplication(ctx context.Context, siteID, applicationID string) ([]*models.Note, error) {
	query := `
		SELECT ` + noteColumns + ` FROM application_internal_notes
		WHERE site_id = $1 AND application_id = $2
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, siteID, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*models.Note, error) {
	var (
		n        models.Note
		category string
		priority string
		roles    []byte
		tags     []byte
	)
	err := row.Scan(
		&n.ID, &n.SiteID, &n.ApplicationID, &category, &priority, &n.Content,
		&n.IsSensitive, &roles, &tags, &n.Author, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.Category = models.Category(category)
	n.Priority = models.Priority(priority)
	if err := json.Unmarshal(roles, &n.VisibleToRoles); err != nil {
		return nil, fmt.Errorf("unmarshal visible_to_roles: %w", err)
	}
	if err := json.Unmarshal(tags, &n.TaggedApplicants); err != nil {
		return nil, fmt.Errorf("unmarshal tagged_applicants: %w", err)
	}
	return &n, nil
}

func marshalLists(n *models.Note) ([]byte, []byte, error) {
	roles, err := json.Marshal(emptyIfNil(n.VisibleToRoles))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal visible_to_roles: %w", err)
	}
	tags, err := json.Marshal(emptyIfNil(n.TaggedApplicants))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tagged_applicants: %w", err)
	}
	return roles, tags, nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
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
