// Package list drives the user list: loading, searching, editing and two-step deletion.
package list

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"userdir/internal/directory/cache"
	"userdir/internal/directory/models"
	"userdir/internal/directory/navigation"
	"userdir/internal/directory/notify"
)

const (
	MsgDeleted       = "User deleted successfully!"
	MsgNoMatches     = "No users found"
	MsgNoUsers       = "No users available"
	MsgConfirmDelete = "Are you sure you want to delete this user? This action cannot be undone."
)

// ErrNoPendingDelete is returned by ConfirmDelete when nothing awaits confirmation.
var ErrNoPendingDelete = errors.New("no delete awaiting confirmation")

// Cache is the part of the record cache the list uses.
type Cache interface {
	Load(ctx context.Context) ([]models.User, error)
	Remove(ctx context.Context, id models.UserID) error
	SetEditing(u models.User)
	Snapshot() cache.State
}

// Notifier shows a toast.
type Notifier interface {
	Show(message string, kind notify.Kind) notify.Toast
}

// View is everything a front end needs to render the list.
type View struct {
	SearchTerm    string
	Users         []models.User
	Total         int
	Showing       int
	Empty         string
	PendingDelete models.UserID
	Busy          bool
	Error         string
}

// Summary is the "Showing X of Y users" line.
func (v View) Summary() string {
	return fmt.Sprintf("Showing %d of %d users", v.Showing, v.Total)
}

// Controller is safe for concurrent use.
type Controller struct {
	cache    Cache
	notifier Notifier
	nav      navigation.Navigator
	logger   *slog.Logger

	mu      sync.Mutex
	term    string
	pending models.UserID
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(c Cache, n Notifier, nav navigation.Navigator, opts ...Option) (*Controller, error) {
	if c == nil {
		return nil, errors.New("cache is required")
	}
	if n == nil {
		return nil, errors.New("notifier is required")
	}
	if nav == nil {
		return nil, errors.New("navigator is required")
	}
	ctrl := &Controller{
		cache:    c,
		notifier: n,
		nav:      nav,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl, nil
}

// Mount loads the record set from the store.
func (c *Controller) Mount(ctx context.Context) error {
	_, err := c.cache.Load(ctx)
	return err
}

func (c *Controller) SetSearchTerm(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.term = term
}

// Filter returns the users whose name or email contains term ignoring case, or
// whose mobile number contains term literally. An empty term keeps everyone.
// users is not modified.
func Filter(users []models.User, term string) []models.User {
	out := make([]models.User, 0, len(users))
	lower := strings.ToLower(term)
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.FullName), lower) ||
			strings.Contains(strings.ToLower(u.EmailAddress), lower) ||
			strings.Contains(u.MobileNumber, term) {
			out = append(out, u)
		}
	}
	return out
}

// Edit selects u for editing and opens the form.
func (c *Controller) Edit(u models.User) {
	c.cache.SetEditing(u)
	c.nav.Navigate(navigation.RouteForm)
}

// RequestDelete marks id as awaiting confirmation, replacing any earlier mark.
func (c *Controller) RequestDelete(id models.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = id
}

func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = ""
}

// ConfirmDelete removes the marked record. On failure the mark stays so the
// user can retry.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	id := c.pending
	c.mu.Unlock()
	if id == "" {
		return ErrNoPendingDelete
	}

	if err := c.cache.Remove(ctx, id); err != nil {
		c.logger.WarnContext(ctx, "delete failed", "user_id", id, "error", err)
		return err
	}

	c.mu.Lock()
	if c.pending == id {
		c.pending = ""
	}
	c.mu.Unlock()
	c.logger.InfoContext(ctx, "user deleted", "user_id", id)
	c.notifier.Show(MsgDeleted, notify.KindSuccess)
	return nil
}

// View returns the render state. Filtering runs on every call.
func (c *Controller) View() View {
	st := c.cache.Snapshot()

	c.mu.Lock()
	term, pending := c.term, c.pending
	c.mu.Unlock()

	users := Filter(st.Users, term)
	v := View{
		SearchTerm:    term,
		Users:         users,
		Total:         len(st.Users),
		Showing:       len(users),
		PendingDelete: pending,
		Busy:          st.Busy,
		Error:         st.Err,
	}
	if len(users) == 0 {
		v.Empty = MsgNoUsers
		if term != "" {
			v.Empty = MsgNoMatches
		}
	}
	return v
}
