// Package form drives the create and edit workflow for a single user record.
package form

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"userdir/internal/directory/cache"
	"userdir/internal/directory/dateformat"
	"userdir/internal/directory/models"
	"userdir/internal/directory/navigation"
	"userdir/internal/directory/notify"
	"userdir/internal/directory/remote"
	"userdir/internal/directory/validation"
)

const (
	TitleCreate = "User Registration Form"
	TitleEdit   = "Edit User"

	LabelSubmit = "Submit"
	LabelUpdate = "Update"
	LabelSaving = "Saving..."

	MsgFixErrors = "Please fix the errors above before submitting."
	MsgCreated   = "User created successfully!"
	MsgUpdated   = "User updated successfully!"
)

// Phase is the position of the form in its workflow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseEditing
	PhaseSubmitting
	PhaseSubmittedOK
	PhaseSubmittedError
)

func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSubmittedOK:
		return "submitted_ok"
	case PhaseSubmittedError:
		return "submitted_error"
	}
	return "idle"
}

// Cache is the part of the record cache the form uses.
type Cache interface {
	Insert(ctx context.Context, d models.Draft) (models.User, error)
	Update(ctx context.Context, id models.UserID, d models.Draft) (models.User, error)
	Editing() (models.User, bool)
	ClearEditing()
	ClearError()
	Snapshot() cache.State
}

// Notifier shows a toast.
type Notifier interface {
	Show(message string, kind notify.Kind) notify.Toast
}

// Outcome reports the result of one submit.
type Outcome struct {
	Phase  Phase
	User   models.User
	Errors models.ValidationErrors
	Err    error
}

// View is everything a front end needs to render the form.
type View struct {
	Phase       Phase
	Title       string
	Editing     bool
	Fields      models.Draft
	Errors      models.ValidationErrors
	Error       string
	Summary     string
	Busy        bool
	SubmitLabel string
}

// Controller is safe for concurrent use.
type Controller struct {
	cache    Cache
	notifier Notifier
	nav      navigation.Navigator
	logger   *slog.Logger

	mu        sync.Mutex
	phase     Phase
	fields    models.Draft
	errs      models.ValidationErrors
	editingID models.UserID
	submitted bool
	submitErr string
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a controller.
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
		errs:     models.ValidationErrors{},
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl, nil
}

// Open prepares the form: fields come from the editing selection when there is
// one and are empty otherwise.
func (c *Controller) Open() {
	u, editing := c.cache.Editing()

	c.mu.Lock()
	if editing {
		c.fields = u.Draft()
		c.editingID = u.ID
	} else {
		c.fields = models.Draft{}
		c.editingID = ""
	}
	c.errs = models.ValidationErrors{}
	c.submitted = false
	c.submitErr = ""
	c.phase = PhaseEditing
	c.mu.Unlock()

	c.cache.ClearError()
}

// SetField stores value for f. Date of birth input is masked to DD/MM/YYYY.
func (c *Controller) SetField(f models.Field, value string) {
	if f == models.FieldDateOfBirth {
		value = dateformat.MaskInput(value)
	}

	c.mu.Lock()
	c.fields.Set(f, value)
	delete(c.errs, f)
	hadErr := c.submitErr != ""
	c.submitErr = ""
	if c.phase != PhaseSubmitting {
		c.phase = PhaseEditing
	}
	c.mu.Unlock()

	if hadErr || c.cache.Snapshot().Err != "" {
		c.cache.ClearError()
	}
}

// Fields returns the current input.
func (c *Controller) Fields() models.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

// Submit validates the input and, when it is valid, creates or updates the
// record. Invalid input never reaches the store. On failure the input is kept.
func (c *Controller) Submit(ctx context.Context) Outcome {
	c.cache.ClearError()

	c.mu.Lock()
	c.submitted = true
	c.submitErr = ""
	errs := validation.Validate(c.fields)
	if !errs.Empty() {
		c.errs = errs
		c.phase = PhaseSubmittedError
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "form rejected", "fields", errs.Fields())
		return Outcome{Phase: PhaseSubmittedError, Errors: errs}
	}
	c.errs = models.ValidationErrors{}
	c.phase = PhaseSubmitting
	d := c.fields
	id := c.editingID
	c.mu.Unlock()

	var (
		u   models.User
		err error
		msg string
	)
	if id != "" {
		u, err = c.cache.Update(ctx, id, d)
		msg = MsgUpdated
	} else {
		u, err = c.cache.Insert(ctx, d)
		msg = MsgCreated
	}

	if err != nil {
		c.mu.Lock()
		c.phase = PhaseSubmittedError
		c.submitErr = remote.Message(err)
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "form submit failed", "user_id", id, "error", err)
		return Outcome{Phase: PhaseSubmittedError, Err: err}
	}

	c.mu.Lock()
	c.clearLocked()
	c.phase = PhaseSubmittedOK
	c.mu.Unlock()
	c.cache.ClearEditing()
	c.cache.ClearError()

	c.logger.InfoContext(ctx, "form submitted", "user_id", u.ID, "update", id != "")
	c.notifier.Show(msg, notify.KindSuccess)
	c.nav.Navigate(navigation.RouteList)
	return Outcome{Phase: PhaseSubmittedOK, User: u}
}

// Reset empties the form and drops the editing selection without calling the store.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.clearLocked()
	c.phase = PhaseEditing
	c.mu.Unlock()
	c.cache.ClearEditing()
	c.cache.ClearError()
}

// Cancel abandons the edit and returns to the list without calling the store.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.clearLocked()
	c.phase = PhaseIdle
	c.mu.Unlock()
	c.cache.ClearEditing()
	c.cache.ClearError()
	c.nav.Navigate(navigation.RouteList)
}

// Close is called when the user leaves the form.
func (c *Controller) Close() {
	c.mu.Lock()
	c.phase = PhaseIdle
	c.mu.Unlock()
	c.cache.ClearEditing()
	c.cache.ClearError()
}

// View returns the render state.
func (c *Controller) View() View {
	st := c.cache.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Phase:   c.phase,
		Editing: c.editingID != "",
		Fields:  c.fields,
		Errors:  make(models.ValidationErrors, len(c.errs)),
		Error:   c.submitErr,
		Busy:    st.Busy || c.phase == PhaseSubmitting,
	}
	for f, msg := range c.errs {
		v.Errors[f] = msg
	}
	if v.Error == "" {
		v.Error = st.Err
	}

	v.Title = TitleCreate
	v.SubmitLabel = LabelSubmit
	if v.Editing {
		v.Title = TitleEdit
		v.SubmitLabel = LabelUpdate
	}
	if v.Busy {
		v.SubmitLabel = LabelSaving
	}
	if c.submitted && !v.Errors.Empty() {
		v.Summary = MsgFixErrors
	}
	return v
}

func (c *Controller) clearLocked() {
	c.fields = models.Draft{}
	c.errs = models.ValidationErrors{}
	c.editingID = ""
	c.submitted = false
	c.submitErr = ""
}
