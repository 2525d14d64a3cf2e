package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"leaselab/internal/lead/models"
	"leaselab/pkg/sentinel"
)

var leadColumnNames = []string{
	"id", "site_id", "property_id", "unit_id", "first_name", "last_name", "email", "phone",
	"inquiry_type", "employment_type", "move_in_date", "monthly_rent", "status", "is_active",
	"ai_score", "ai_label", "staff_note", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func leadRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(leadColumnNames).AddRow(
		"lead-1", "site-1", "prop-1", "unit-1", "Jane", "Doe", "jane@example.com", "555-0100",
		"rental_application", "full_time", "2025-07-01", int64(250000), "new", true,
		nil, nil, "", now, now,
	)
}

func TestPostgresCreate(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO applications").
		WithArgs(
			"lead-1", "site-1", "prop-1", "unit-1", "Jane", "Doe", "jane@example.com", "555-0100",
			"rental_application", "full_time", "2025-07-01", int64(250000), "new", true,
			sqlmock.AnyArg(), sqlmock.AnyArg(), "", now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Create(context.Background(), &models.Lead{
		ID: "lead-1", SiteID: "site-1", PropertyID: "prop-1", UnitID: "unit-1",
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Phone: "555-0100",
		InquiryType: models.InquiryRental, Employment: "full_time", MoveInDate: "2025-07-01",
		MonthlyRent: 250000, Status: models.StageNew, IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store, mock := newMockStore(t)
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`FROM applications WHERE site_id = \$1 AND id = \$2`).
			WithArgs("site-1", "lead-1").
			WillReturnRows(leadRow(now))

		lead, err := store.FindByID(context.Background(), "site-1", "lead-1")
		require.NoError(t, err)
		require.Equal(t, "lead-1", lead.ID)
		require.Equal(t, models.StageNew, lead.Status)
		require.Equal(t, models.InquiryRental, lead.InquiryType)
		require.Nil(t, lead.AIScore)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`FROM applications WHERE site_id = \$1 AND id = \$2`).
			WithArgs("site-2", "lead-1").
			WillReturnRows(sqlmock.NewRows(leadColumnNames))

		_, err := store.FindByID(context.Background(), "site-2", "lead-1")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUpdateStatus(t *testing.T) {
	t.Run("updates the row", func(t *testing.T) {
		store, mock := newMockStore(t)
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		mock.ExpectExec(`UPDATE applications SET status = \$3, updated_at = \$4`).
			WithArgs("site-1", "lead-1", "contacted", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.UpdateStatus(context.Background(), "site-1", "lead-1", models.StageContacted, now)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows maps to not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		mock.ExpectExec(`UPDATE applications SET status = \$3, updated_at = \$4`).
			WithArgs("site-1", "ghost", "contacted", now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.UpdateStatus(context.Background(), "site-1", "ghost", models.StageContacted, now)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresList(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM applications WHERE site_id = \$1 AND is_active = TRUE AND status = \$2 ORDER BY created_at DESC LIMIT \$3`).
		WithArgs("site-1", "new", 10).
		WillReturnRows(leadRow(now))

	leads, err := store.List(context.Background(), "site-1", models.ListFilter{
		Status:   models.StageNew,
		SortDesc: true,
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	require.Equal(t, "lead-1", leads[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
