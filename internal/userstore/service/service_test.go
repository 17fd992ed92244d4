package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"userdir/internal/directory/dateformat"
	"userdir/internal/directory/validation"
	"userdir/internal/userstore/metrics"
	"userdir/internal/userstore/models"
	"userdir/internal/userstore/store/memory"
	"userdir/pkg/contracts/userapi"
	dErrors "userdir/pkg/domain-errors"
	"userdir/pkg/platform/sentinel"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.InMemory
	metrics *metrics.Metrics
	service *Service
	now     time.Time
	seq     int
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.seq = 0

	svc, err := New(s.store, dateformat.New(dateformat.WireISO),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.now }),
		WithIDGenerator(func() string {
			s.seq++
			return fmt.Sprintf("id-%d", s.seq)
		}),
	)
	s.Require().NoError(err)
	s.service = svc
}

func validInput() userapi.UserInput {
	return userapi.UserInput{
		FullName:     "Jane Smith",
		MobileNumber: "1234567890",
		EmailAddress: "jane@example.com",
		DateOfBirth:  "1990-06-15",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		PinCode:      "123456",
	}
}

func ptr(s string) *string { return &s }

func (s *ServiceSuite) TestNew() {
	_, err := New(nil, dateformat.New(dateformat.WireISO))
	s.EqualError(err, "store is required")
	_, err = New(memory.New(), nil)
	s.EqualError(err, "date formatter is required")
}

func (s *ServiceSuite) TestRegister() {
	s.Run("assigns id and timestamps", func() {
		u, err := s.service.Register(s.ctx, validInput())
		s.Require().NoError(err)
		s.Equal("id-1", u.ID)
		s.Equal(s.now, u.CreatedAt)
		s.Equal(s.now, u.UpdatedAt)
		s.Equal("1990-06-15", u.DateOfBirth)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.UsersRegistered))
	})

	s.Run("duplicate email is a conflict", func() {
		in := validInput()
		in.EmailAddress = "JANE@example.com"
		_, err := s.service.Register(s.ctx, in)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(MsgEmailTaken, err.(*dErrors.Error).Message)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Rejections.WithLabelValues("conflict")))
	})

	s.Run("invalid fields are reported in form order", func() {
		in := validInput()
		in.FullName = "J"
		in.PinCode = "12"
		in.City = ""
		_, err := s.service.Register(s.ctx, in)

		var de *dErrors.Error
		s.Require().ErrorAs(err, &de)
		s.Equal(dErrors.CodeValidation, de.Code)
		s.Equal(MsgValidationFailed, de.Message)
		s.Equal([]dErrors.FieldDetail{
			{Field: "fullName", Message: validation.MsgFullNameTooShort},
			{Field: "city", Message: validation.MsgCityRequired},
			{Field: "pinCode", Message: validation.MsgPinDigits},
		}, de.Details)
	})

	s.Run("missing date is a validation error", func() {
		in := validInput()
		in.EmailAddress = "nodate@example.com"
		in.DateOfBirth = ""
		_, err := s.service.Register(s.ctx, in)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unparsable date is unprocessable", func() {
		in := validInput()
		in.EmailAddress = "baddate@example.com"
		in.DateOfBirth = "1990-02-30"
		_, err := s.service.Register(s.ctx, in)
		s.True(dErrors.HasCode(err, dErrors.CodeUnprocessable))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Rejections.WithLabelValues("date")))
	})
}

func (s *ServiceSuite) TestUpdate() {
	created, err := s.service.Register(s.ctx, validInput())
	s.Require().NoError(err)
	s.now = s.now.Add(time.Hour)

	s.Run("applies only the patched fields", func() {
		u, err := s.service.Update(s.ctx, created.ID, userapi.UserPatch{City: ptr("Shelbyville")})
		s.Require().NoError(err)
		s.Equal("Shelbyville", u.City)
		s.Equal(created.FullName, u.FullName)
		s.Equal(created.CreatedAt, u.CreatedAt)
		s.Equal(s.now, u.UpdatedAt)
	})

	s.Run("merged record must stay valid", func() {
		_, err := s.service.Update(s.ctx, created.ID, userapi.UserPatch{MobileNumber: ptr("123")})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		stored, err := s.service.Get(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Equal("1234567890", stored.MobileNumber)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.service.Update(s.ctx, "ghost", userapi.UserPatch{City: ptr("x")})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestDelete() {
	created, err := s.service.Register(s.ctx, validInput())
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.ctx, created.ID))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.UsersDeleted))

	err = s.service.Delete(s.ctx, created.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	users, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(users)
}

func TestService_USLayout(t *testing.T) {
	svc, err := New(memory.New(), dateformat.New(dateformat.WireUS))
	if err != nil {
		t.Fatal(err)
	}
	in := validInput()
	in.DateOfBirth = "06/15/1990"

	u, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.DateOfBirth != "06/15/1990" {
		t.Fatalf("expected US wire date, got %q", u.DateOfBirth)
	}
}

type failingStore struct {
	*memory.InMemory
}

func (failingStore) List(context.Context) ([]*models.User, error) {
	return nil, errors.New("connection reset")
}

func TestService_StoreFailureIsInternal(t *testing.T) {
	svc, err := New(failingStore{memory.New()}, dateformat.New(dateformat.WireISO))
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.List(context.Background())
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

type unreachableStore struct {
	*memory.InMemory
}

func (unreachableStore) List(context.Context) ([]*models.User, error) {
	return nil, fmt.Errorf("list users: %w", sentinel.ErrUnavailable)
}

func (unreachableStore) Ping(context.Context) error {
	return fmt.Errorf("ping: %w: %w", sentinel.ErrUnavailable, errors.New("dial tcp: connection refused"))
}

func TestService_UnavailableStore(t *testing.T) {
	svc, err := New(unreachableStore{memory.New()}, dateformat.New(dateformat.WireISO))
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.List(context.Background())
	if dErrors.CodeOf(err) != dErrors.CodeUnavailable {
		t.Fatalf("expected unavailable from list, got %v", err)
	}

	err = svc.Ping(context.Background())
	if dErrors.CodeOf(err) != dErrors.CodeUnavailable {
		t.Fatalf("expected unavailable from ping, got %v", err)
	}
	if !errors.Is(err, sentinel.ErrUnavailable) {
		t.Fatalf("expected the sentinel to stay in the chain, got %v", err)
	}
}

func TestService_PingHealthyStore(t *testing.T) {
	svc, err := New(memory.New(), dateformat.New(dateformat.WireISO))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Ping(context.Background()); err != nil {
		t.Fatalf("expected healthy store, got %v", err)
	}
}
