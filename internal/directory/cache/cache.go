// Package cache mirrors the remote user set for the session.
//
// State changes only through dispatch, which applies a pure reducer under a
// mutex. Remote calls run outside the lock, so concurrent operations are
// neither queued nor deduplicated: whichever response completes last decides
// the final state.
package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"userdir/internal/directory/dateformat"
	"userdir/internal/directory/metrics"
	"userdir/internal/directory/models"
	"userdir/internal/directory/remote"
	"userdir/pkg/contracts/userapi"
	dErrors "userdir/pkg/domain-errors"
)

// Store is the remote user store.
type Store interface {
	List(ctx context.Context) ([]userapi.User, error)
	Create(ctx context.Context, in userapi.UserInput) (*userapi.User, error)
	Update(ctx context.Context, id string, in userapi.UserInput) (*userapi.User, error)
	Delete(ctx context.Context, id string) error
}

const (
	opLoad   = "load"
	opInsert = "insert"
	opUpdate = "update"
	opRemove = "remove"
)

// Cache is the in-memory copy of the remote record set.
type Cache struct {
	mu      sync.Mutex
	state   State
	store   Store
	dates   *dateformat.Formatter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates an empty cache backed by store.
func New(store Store, dates *dateformat.Formatter, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if dates == nil {
		return nil, errors.New("date formatter is required")
	}
	c := &Cache{
		store:  store,
		dates:  dates,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Snapshot returns a deep copy of the current state.
func (c *Cache) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// dispatch applies a to the state.
func (c *Cache) dispatch(a Action) {
	c.mu.Lock()
	prev := len(c.state.Users)
	c.state = reduce(c.state, a)
	size, busy := len(c.state.Users), c.state.Busy
	c.mu.Unlock()

	c.logger.Debug("cache dispatch", "action", a.Name(), "users", size, "busy", busy)
	if c.metrics != nil && size != prev {
		c.metrics.SetCacheSize(size)
	}
}

// Load replaces the local set with the store's set.
func (c *Cache) Load(ctx context.Context) ([]models.User, error) {
	c.dispatch(opStarted{op: opLoad})
	records, err := c.store.List(ctx)
	if err != nil {
		c.fail(ctx, opLoad, err)
		return nil, err
	}
	users := make([]models.User, 0, len(records))
	for _, r := range records {
		users = append(users, c.toModel(ctx, r))
	}
	c.dispatch(usersLoaded{users: users})
	return users, nil
}

// Insert creates a record from d and appends the stored version. Nothing is
// appended before the store has answered.
func (c *Cache) Insert(ctx context.Context, d models.Draft) (models.User, error) {
	in, err := c.toInput(d)
	if err != nil {
		return models.User{}, err
	}
	c.dispatch(opStarted{op: opInsert})
	rec, err := c.store.Create(ctx, in)
	if err != nil {
		c.fail(ctx, opInsert, err)
		return models.User{}, err
	}
	u := c.toModel(ctx, *rec)
	c.dispatch(userAdded{user: u})
	return u, nil
}

// Update writes d to the record with id and replaces the first local record
// with that id by the stored version. An id missing locally leaves the set
// unchanged; the store is still called.
func (c *Cache) Update(ctx context.Context, id models.UserID, d models.Draft) (models.User, error) {
	in, err := c.toInput(d)
	if err != nil {
		return models.User{}, err
	}
	c.dispatch(opStarted{op: opUpdate})
	rec, err := c.store.Update(ctx, string(id), in)
	if err != nil {
		c.fail(ctx, opUpdate, err)
		return models.User{}, err
	}
	u := c.toModel(ctx, *rec)
	if u.ID != id {
		c.logger.WarnContext(ctx, "store answered update with another identifier, keeping the requested one",
			"requested", id,
			"returned", u.ID,
		)
		u.ID = id
	}
	c.dispatch(userUpdated{user: u})
	return u, nil
}

// Remove deletes the record with id and drops every local record with that id.
func (c *Cache) Remove(ctx context.Context, id models.UserID) error {
	c.dispatch(opStarted{op: opRemove})
	if err := c.store.Delete(ctx, string(id)); err != nil {
		c.fail(ctx, opRemove, err)
		return err
	}
	c.dispatch(userRemoved{id: id})
	return nil
}

// SetEditing marks u as the record being edited.
func (c *Cache) SetEditing(u models.User) {
	c.dispatch(editingSet{user: u})
}

func (c *Cache) ClearEditing() {
	c.dispatch(editingCleared{})
}

// Editing returns a copy of the record being edited, if any.
func (c *Cache) Editing() (models.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Editing == nil {
		return models.User{}, false
	}
	return *c.state.Editing, true
}

func (c *Cache) ClearError() {
	c.dispatch(errorCleared{})
}

func (c *Cache) fail(ctx context.Context, op string, err error) {
	msg := remote.Message(err)
	c.logger.WarnContext(ctx, "cache operation failed", "op", op, "error", err)
	c.dispatch(opFailed{op: op, message: msg})
}

func (c *Cache) toInput(d models.Draft) (userapi.UserInput, error) {
	dob, err := c.dates.ToWire(dateformat.DisplayDate(d.DateOfBirth))
	if err != nil {
		return userapi.UserInput{}, dErrors.Wrap(err, dErrors.CodeInvalidFormat, "invalid date of birth")
	}
	return userapi.UserInput{
		FullName:     d.FullName,
		MobileNumber: d.MobileNumber,
		EmailAddress: d.EmailAddress,
		DateOfBirth:  string(dob),
		AddressLine1: d.AddressLine1,
		AddressLine2: d.AddressLine2,
		City:         d.City,
		PinCode:      d.PinCode,
	}, nil
}

// toModel converts a stored record to display form. A date the formatter cannot
// read is kept as sent so a successful write is never reported as a failure.
func (c *Cache) toModel(ctx context.Context, r userapi.User) models.User {
	dob, err := c.dates.ToDisplay(r.DateOfBirth)
	if err != nil {
		c.logger.WarnContext(ctx, "keeping unconvertible date from store",
			"user_id", r.ID,
			"date", r.DateOfBirth,
			"error", err,
		)
		dob = dateformat.DisplayDate(r.DateOfBirth)
	}
	return models.User{
		ID:           models.UserID(r.ID),
		FullName:     r.FullName,
		MobileNumber: r.MobileNumber,
		EmailAddress: r.EmailAddress,
		DateOfBirth:  dob,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		PinCode:      r.PinCode,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
