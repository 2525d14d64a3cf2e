package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"leaselab/internal/history"
	txcontext "leaselab/pkg/tx"
)

// Postgres persists history events in the application_history table.
// Insert-only: there is no update or delete path.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed history store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Append(ctx context.Context, event history.Event) error {
	payload, err := json.Marshal(event.EventData)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	query := `
		INSERT INTO application_history (id, site_id, entity_type, application_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		event.ID, event.SiteID, string(event.EntityType), event.ApplicationID,
		event.EventType, payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history event: %w", err)
	}
	return nil
}

// ListForApplication returns events newest first.
func (s *Postgres) ListForApplication(ctx context.Context, siteID, applicationID string) ([]history.Event, error) {
	query := `
		SELECT id, site_id, entity_type, application_id, event_type, event_data, created_at
		FROM application_history
		WHERE site_id = $1 AND application_id = $2
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, siteID, applicationID)
	if err != nil {
		return nil, fmt.Errorf("query history events: %w", err)
	}
	defer rows.Close()

	var events []history.Event
	for rows.Next() {
		var (
			event      history.Event
			entityType string
			payload    []byte
		)
		if err := rows.Scan(&event.ID, &event.SiteID, &entityType, &event.ApplicationID,
			&event.EventType, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history event: %w", err)
		}
		event.EntityType = history.EntityType(entityType)
		if err := json.Unmarshal(payload, &event.EventData); err != nil {
			return nil, fmt.Errorf("unmarshal event data: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history events: %w", err)
	}
	return events, nil
}
