package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"leaselab/internal/aieval/models"
	"leaselab/pkg/sentinel"
	txcontext "leaselab/pkg/tx"
)

// Postgres caches evaluation results in application_ai_evaluations. The
// table's primary key is (site_id, application_id) so Put is an upsert.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed result store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Get returns the cached result for the application.
func (s *Postgres) Get(ctx context.Context, siteID, applicationID string) (*models.Result, error) {
	query := `
		SELECT application_id, site_id, score, label, summary, risk_flags,
			recommendation, fraud_signals, model_version, evaluated_at
		FROM application_ai_evaluations
		WHERE site_id = $1 AND application_id = $2
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, siteID, applicationID)

	var (
		r            models.Result
		riskFlags    []byte
		fraudSignals []byte
	)
	err := row.Scan(
		&r.ApplicationID, &r.SiteID, &r.Score, &r.Label, &r.Summary, &riskFlags,
		&r.Recommendation, &fraudSignals, &r.ModelVersion, &r.EvaluatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evaluation: %w", err)
	}
	if err := json.Unmarshal(riskFlags, &r.RiskFlags); err != nil {
		return nil, fmt.Errorf("unmarshal risk_flags: %w", err)
	}
	if err := json.Unmarshal(fraudSignals, &r.FraudSignals); err != nil {
		return nil, fmt.Errorf("unmarshal fraud_signals: %w", err)
	}
	return &r, nil
}

// Put upserts the result for the application.
func (s *Postgres) Put(ctx context.Context, r *models.Result) error {
	riskFlags, err := json.Marshal(emptyIfNil(r.RiskFlags))
	if err != nil {
		return fmt.Errorf("marshal risk_flags: %w", err)
	}
	fraudSignals, err := json.Marshal(emptyIfNil(r.FraudSignals))
	if err != nil {
		return fmt.Errorf("marshal fraud_signals: %w", err)
	}
	query := `
		INSERT INTO application_ai_evaluations (
			application_id, site_id, score, label, summary, risk_flags,
			recommendation, fraud_signals, model_version, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (site_id, application_id) DO UPDATE SET
			score = EXCLUDED.score,
			label = EXCLUDED.label,
			summary = EXCLUDED.summary,
			risk_flags = EXCLUDED.risk_flags,
			recommendation = EXCLUDED.recommendation,
			fraud_signals = EXCLUDED.fraud_signals,
			model_version = EXCLUDED.model_version,
			evaluated_at = EXCLUDED.evaluated_at
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		r.ApplicationID, r.SiteID, r.Score, r.Label, r.Summary, riskFlags,
		r.Recommendation, fraudSignals, r.ModelVersion, r.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert evaluation: %w", err)
	}
	return nil
}

// Delete drops the cached result, if any.
func (s *Postgres) Delete(ctx context.Context, siteID, applicationID string) error {
	query := `DELETE FROM application_ai_evaluations WHERE site_id = $1 AND application_id = $2`
	if _, err := s.execer(ctx).ExecContext(ctx, query, siteID, applicationID); err != nil {
		return fmt.Errorf("delete evaluation: %w", err)
	}
	return nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
