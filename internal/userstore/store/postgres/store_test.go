package postgres

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userdir/internal/userstore/models"
	"userdir/pkg/platform/sentinel"
)

var columns = []string{
	"id", "full_name", "mobile_number", "email_address", "date_of_birth",
	"address_line1", "address_line2", "city", "pin_code", "created_at", "updated_at",
}

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgres(db), mock
}

func sampleUser() *models.User {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.User{
		ID:           "u1",
		FullName:     "Jane Smith",
		MobileNumber: "1234567890",
		EmailAddress: "Jane@Example.com",
		DateOfBirth:  "1990-06-15",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		PinCode:      "123456",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS directory_users")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
}

func TestPostgresStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts with a normalized email key", func(t *testing.T) {
		store, mock := newMock(t)
		u := sampleUser()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO directory_users")).
			WithArgs(u.ID, u.FullName, u.MobileNumber, u.EmailAddress, "jane@example.com", u.DateOfBirth,
				u.AddressLine1, u.AddressLine2, u.City, u.PinCode, u.CreatedAt, u.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, store.Create(ctx, u))
	})

	t.Run("unique violation is a conflict", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO directory_users")).
			WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "directory_users_email_key_key"})

		err := store.Create(ctx, sampleUser())
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})
}

func TestPostgresStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("update of a missing row is not found", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE directory_users SET")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, store.Update(ctx, sampleUser()), sentinel.ErrNotFound)
	})

	t.Run("update hitting another user's email is a conflict", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE directory_users SET")).
			WillReturnError(&pq.Error{Code: uniqueViolation})

		assert.ErrorIs(t, store.Update(ctx, sampleUser()), sentinel.ErrConflict)
	})

	t.Run("delete removes one row", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM directory_users WHERE id = $1")).
			WithArgs("u1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.Delete(ctx, "u1"))
	})

	t.Run("delete of a missing row is not found", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM directory_users WHERE id = $1")).
			WithArgs("nope").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, store.Delete(ctx, "nope"), sentinel.ErrNotFound)
	})
}

func TestPostgresStore_Reads(t *testing.T) {
	ctx := context.Background()
	u := sampleUser()

	t.Run("find by id", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM directory_users WHERE id = $1")).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				u.ID, u.FullName, u.MobileNumber, u.EmailAddress, u.DateOfBirth,
				u.AddressLine1, u.AddressLine2, u.City, u.PinCode, u.CreatedAt, u.UpdatedAt))

		found, err := store.FindByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, u, found)
	})

	t.Run("find by id without a row is not found", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM directory_users WHERE id = $1")).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := store.FindByID(ctx, "ghost")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list in creation order", func(t *testing.T) {
		store, mock := newMock(t)
		later := u.CreatedAt.Add(time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta("FROM directory_users ORDER BY created_at, id")).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("u1", "A", "1", "a@x.io", "1990-01-01", "l1", "", "c", "123456", u.CreatedAt, u.CreatedAt).
				AddRow("u2", "B", "2", "b@x.io", "1991-01-01", "l1", "l2", "c", "123456", later, later))

		users, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "u1", users[0].ID)
		assert.Equal(t, "l2", users[1].AddressLine2)
	})

	t.Run("empty table lists nothing", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM directory_users ORDER BY")).
			WillReturnRows(sqlmock.NewRows(columns))

		users, err := store.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, users)
		assert.Empty(t, users)
	})
}

func TestPostgresStore_Unavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("ping failure is unavailable", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing().WillReturnError(errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"))

		err = NewPostgres(db).Ping(ctx)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("healthy ping", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing()

		assert.NoError(t, NewPostgres(db).Ping(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("network failure on list is unavailable", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM directory_users ORDER BY")).
			WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})

		_, err := store.List(ctx)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("other query errors stay opaque", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM directory_users WHERE id = $1")).
			WithArgs("u1").
			WillReturnError(errors.New("syntax error"))

		_, err := store.FindByID(ctx, "u1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrUnavailable)
		assert.NotErrorIs(t, err, sentinel.ErrNotFound)
	})
}
