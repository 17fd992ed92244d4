package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"userdir/internal/directory/dateformat"
	dirmodels "userdir/internal/directory/models"
	"userdir/internal/directory/validation"
	"userdir/internal/userstore/metrics"
	"userdir/internal/userstore/models"
	"userdir/pkg/contracts/userapi"
	dErrors "userdir/pkg/domain-errors"
	"userdir/pkg/platform/sentinel"
)

const (
	MsgValidationFailed = "Validation failed"
	MsgInvalidDate      = "Invalid date of birth"
	MsgEmailTaken       = "User with this email already exists"
	MsgUserNotFound     = "User not found"
	MsgStoreUnavailable = "User store unavailable"
)

type Store interface {
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Ping(ctx context.Context) error
}

// Service validates and persists user records.
type Service struct {
	store   Store
	dates   *dateformat.Formatter
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the random UUID source.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func New(store Store, dates *dateformat.Formatter, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if dates == nil {
		return nil, errors.New("date formatter is required")
	}
	s := &Service{
		store:  store,
		dates:  dates,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	defer s.observe("list", time.Now())
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	defer s.observe("get", time.Now())
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load user")
	}
	return u, nil
}

// Register validates in, assigns an id and timestamps, and stores the record.
func (s *Service) Register(ctx context.Context, in userapi.UserInput) (*models.User, error) {
	defer s.observe("register", time.Now())
	u := models.FromInput(in)
	if err := s.prepare(&u); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u.ID = s.newID()
	u.CreatedAt, u.UpdatedAt = now, now

	if err := s.store.Create(ctx, &u); err != nil {
		s.reject(err)
		return nil, translate(err, "failed to register user")
	}
	if s.metrics != nil {
		s.metrics.IncrementRegistered()
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return &u, nil
}

// Update applies patch to the stored record. The merged record must still be valid.
func (s *Service) Update(ctx context.Context, id string, patch userapi.UserPatch) (*models.User, error) {
	defer s.observe("update", time.Now())
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load user")
	}
	u.Apply(patch)
	if err := s.prepare(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, u); err != nil {
		s.reject(err)
		return nil, translate(err, "failed to update user")
	}
	s.logger.InfoContext(ctx, "user updated", "user_id", u.ID)
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	defer s.observe("delete", time.Now())
	if err := s.store.Delete(ctx, id); err != nil {
		return translate(err, "failed to delete user")
	}
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return translate(err, MsgStoreUnavailable)
	}
	return nil
}

// prepare checks u with the form rules and rewrites its date in the wire layout.
func (s *Service) prepare(u *models.User) error {
	draft := dirmodels.Draft{
		FullName:     u.FullName,
		MobileNumber: u.MobileNumber,
		EmailAddress: u.EmailAddress,
		AddressLine1: u.AddressLine1,
		AddressLine2: u.AddressLine2,
		City:         u.City,
		PinCode:      u.PinCode,
	}
	if u.DateOfBirth != "" {
		display, err := s.dates.ToDisplay(u.DateOfBirth)
		if err != nil {
			s.rejected("date")
			return dErrors.Wrap(err, dErrors.CodeUnprocessable, MsgInvalidDate)
		}
		draft.DateOfBirth = string(display)
	}

	if verrs := validation.Validate(draft); !verrs.Empty() {
		s.rejected("validation")
		details := make([]dErrors.FieldDetail, 0, len(verrs))
		for _, f := range dirmodels.Fields {
			if msg, ok := verrs.Get(f); ok {
				details = append(details, dErrors.FieldDetail{Field: string(f), Message: msg})
			}
		}
		return dErrors.New(dErrors.CodeValidation, MsgValidationFailed).WithDetails(details...)
	}

	wire, err := s.dates.ToWire(dateformat.DisplayDate(draft.DateOfBirth))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnprocessable, MsgInvalidDate)
	}
	u.DateOfBirth = string(wire)
	return nil
}

func (s *Service) reject(err error) {
	if errors.Is(err, sentinel.ErrConflict) {
		s.rejected("conflict")
	}
}

func (s *Service) rejected(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementRejected(reason)
	}
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, start)
	}
}

func translate(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, MsgUserNotFound)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, MsgEmailTaken)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, MsgStoreUnavailable)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
