// Package postgres keeps user records in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"userdir/internal/userstore/models"
	"userdir/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

const schema = `CREATE TABLE IF NOT EXISTS directory_users (
	id            TEXT PRIMARY KEY,
	full_name     TEXT NOT NULL,
	mobile_number TEXT NOT NULL,
	email_address TEXT NOT NULL,
	email_key     TEXT NOT NULL UNIQUE,
	date_of_birth TEXT NOT NULL,
	address_line1 TEXT NOT NULL,
	address_line2 TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL,
	pin_code      TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
)`

const userColumns = `id, full_name, mobile_number, email_address, date_of_birth,
	address_line1, address_line2, city, pin_code, created_at, updated_at`

// PostgresStore persists users in the directory_users table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO directory_users (
		id, full_name, mobile_number, email_address, email_key, date_of_birth,
		address_line1, address_line2, city, pin_code, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.FullName, u.MobileNumber, u.EmailAddress, u.EmailKey(), u.DateOfBirth,
		u.AddressLine1, u.AddressLine2, u.City, u.PinCode, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE directory_users SET
		full_name = $2, mobile_number = $3, email_address = $4, email_key = $5,
		date_of_birth = $6, address_line1 = $7, address_line2 = $8, city = $9,
		pin_code = $10, updated_at = $11
	WHERE id = $1`,
		u.ID, u.FullName, u.MobileNumber, u.EmailAddress, u.EmailKey(),
		u.DateOfBirth, u.AddressLine1, u.AddressLine2, u.City, u.PinCode, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", translate(err))
	}
	return expectOneRow(res, u.ID)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM directory_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", translate(err))
	}
	return expectOneRow(res, id)
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM directory_users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", translate(err))
	}
	return u, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM directory_users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", translate(err))
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Ping reports an unreachable database as sentinel.ErrUnavailable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FullName, &u.MobileNumber, &u.EmailAddress, &u.DateOfBirth,
		&u.AddressLine1, &u.AddressLine2, &u.City, &u.PinCode, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pqErr.Constraint, sentinel.ErrConflict)
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}
