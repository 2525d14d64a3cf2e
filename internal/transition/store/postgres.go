package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	leadmodels "leaselab/internal/lead/models"
	"leaselab/internal/transition/models"
	"leaselab/pkg/sentinel"
	txcontext "leaselab/pkg/tx"
)

// Postgres persists the transition log in application_stage_transitions.
// Only inserts and reads exist; the table is an audit log.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed transition store.
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

const transitionColumns = `id, site_id, application_id, from_stage, to_stage, transition_type,
	bypass_reason, bypass_category, checklist_snapshot, internal_note, transitioned_by, transitioned_at`

func (s *Postgres) Append(ctx context.Context, t *models.StageTransition) error {
	snapshot := t.ChecklistSnapshot
	if snapshot == nil {
		snapshot = map[string]bool{}
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal checklist snapshot: %w", err)
	}
	query := `
		INSERT INTO application_stage_transitions (` + transitionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		t.ID, t.SiteID, t.ApplicationID, string(t.FromStage), string(t.ToStage), string(t.TransitionType),
		t.BypassReason, string(t.BypassCategory), raw, t.InternalNote, t.TransitionedBy, t.TransitionedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// Latest returns the most recent transition for the application.
func (s *Postgres) Latest(ctx context.Context, siteID, applicationID string) (*models.StageTransition, error) {
	query := `
		SELECT ` + transitionColumns + ` FROM application_stage_transitions
		WHERE site_id = $1 AND application_id = $2
		ORDER BY transitioned_at DESC, id DESC
		LIMIT 1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, siteID, applicationID)
	t, err := scanTransition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("latest transition: %w", err)
	}
	return t, nil
}

// ListForApplication returns the application's transitions newest first.
func (s *Postgres) ListForApplication(ctx context.Context, siteID, applicationID string) ([]*models.StageTransition, error) {
	query := `
		SELECT ` + transitionColumns + ` FROM application_stage_transitions
		WHERE site_id = $1 AND application_id = $2
		ORDER BY transitioned_at DESC, id DESC
	`
	return s.list(ctx, query, siteID, applicationID)
}

// ListByStagePair filters to the exact from/to pair, newest first.
func (s *Postgres) ListByStagePair(ctx context.Context, siteID, applicationID string, from, to leadmodels.Stage) ([]*models.StageTransition, error) {
	query := `
		SELECT ` + transitionColumns + ` FROM application_stage_transitions
		WHERE site_id = $1 AND application_id = $2 AND from_stage = $3 AND to_stage = $4
		ORDER BY transitioned_at DESC, id DESC
	`
	return s.list(ctx, query, siteID, applicationID, string(from), string(to))
}

// ListBypassed returns transitions that recorded a bypass, newest first.
func (s *Postgres) ListBypassed(ctx context.Context, siteID, applicationID string) ([]*models.StageTransition, error) {
	query := `
		SELECT ` + transitionColumns + ` FROM application_stage_transitions
		WHERE site_id = $1 AND application_id = $2 AND bypass_reason <> ''
		ORDER BY transitioned_at DESC, id DESC
	`
	return s.list(ctx, query, siteID, applicationID)
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.StageTransition, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var transitions []*models.StageTransition
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		transitions = append(transitions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return transitions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransition(row rowScanner) (*models.StageTransition, error) {
	var (
		t              models.StageTransition
		fromStage      string
		toStage        string
		transitionType string
		bypassCategory string
		snapshot       []byte
	)
	err := row.Scan(
		&t.ID, &t.SiteID, &t.ApplicationID, &fromStage, &toStage, &transitionType,
		&t.BypassReason, &bypassCategory, &snapshot, &t.InternalNote, &t.TransitionedBy, &t.TransitionedAt,
	)
	if err != nil {
		return nil, err
	}
	t.FromStage = leadmodels.Stage(fromStage)
	t.ToStage = leadmodels.Stage(toStage)
	t.TransitionType = models.Type(transitionType)
	t.BypassCategory = models.BypassCategory(bypassCategory)
	if err := json.Unmarshal(snapshot, &t.ChecklistSnapshot); err != nil {
		return nil, fmt.Errorf("unmarshal checklist snapshot: %w", err)
	}
	return &t, nil
}
