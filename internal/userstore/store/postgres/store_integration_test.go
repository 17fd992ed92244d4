//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"userdir/internal/userstore/models"
	"userdir/internal/userstore/store/postgres"
	"userdir/pkg/platform/sentinel"
	"userdir/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "directory_users"))
}

func makeUser(email string, created time.Time) *models.User {
	return &models.User{
		ID:           uuid.NewString(),
		FullName:     "Jane Smith",
		MobileNumber: "1234567890",
		EmailAddress: email,
		DateOfBirth:  "1990-06-15",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		PinCode:      "123456",
		CreatedAt:    created.UTC().Truncate(time.Microsecond),
		UpdatedAt:    created.UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	u := makeUser("jane@example.com", time.Now())
	s.Require().NoError(s.store.Create(ctx, u))

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u, found)

	u.City = "Shelbyville"
	u.UpdatedAt = u.UpdatedAt.Add(time.Minute)
	s.Require().NoError(s.store.Update(ctx, u))
	found, err = s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("Shelbyville", found.City)

	s.Require().NoError(s.store.Delete(ctx, u.ID))
	_, err = s.store.FindByID(ctx, u.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestEmailKeyIsUnique() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, makeUser("dup@example.com", time.Now())))

	err := s.store.Create(ctx, makeUser("DUP@example.com", time.Now()))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestListOrdersByCreation() {
	ctx := context.Background()
	base := time.Now()
	second := makeUser("b@example.com", base.Add(time.Second))
	first := makeUser("a@example.com", base)
	s.Require().NoError(s.store.Create(ctx, second))
	s.Require().NoError(s.store.Create(ctx, first))

	users, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal(first.ID, users[0].ID)
	s.Equal(second.ID, users[1].ID)
}
