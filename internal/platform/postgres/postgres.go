// Package postgres opens the shared database handle and applies goose
// migrations from db/migrations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"leaselab/db"
)

// Connect opens a Postgres handle, verifies connectivity and applies pending
// migrations.
func Connect(ctx context.Context, url string) (*sql.DB, error) {
	handle, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	handle.SetMaxOpenConns(10)
	handle.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := handle.PingContext(pingCtx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := Migrate(handle); err != nil {
		handle.Close()
		return nil, err
	}
	return handle, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(handle *sql.DB) error {
	goose.SetBaseFS(db.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(handle, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
