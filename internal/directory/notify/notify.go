// Package notify shows short-lived messages (toasts) after directory operations.
package notify

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultAutoHide is how long a toast stays visible.
const DefaultAutoHide = 3 * time.Second

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Toast is one shown message.
type Toast struct {
	ID      uint64
	Message string
	Kind    Kind
	ShownAt time.Time
}

// Sink receives every toast when it is shown.
type Sink interface {
	Notify(t Toast)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Toast)

func (f SinkFunc) Notify(t Toast) { f(t) }

// Center holds at most one visible toast. Showing a new one replaces the old.
type Center struct {
	mu       sync.Mutex
	current  *Toast
	timer    *time.Timer
	seq      uint64
	autoHide time.Duration
	sinks    []Sink
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Center)

// WithAutoHide sets the visible duration. Zero or less keeps toasts until Hide.
func WithAutoHide(d time.Duration) Option {
	return func(c *Center) {
		c.autoHide = d
	}
}

func WithSink(s Sink) Option {
	return func(c *Center) {
		if s != nil {
			c.sinks = append(c.sinks, s)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Center) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(opts ...Option) *Center {
	c := &Center{
		autoHide: DefaultAutoHide,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Show makes message the visible toast and hands it to every sink.
func (c *Center) Show(message string, kind Kind) Toast {
	c.mu.Lock()
	c.seq++
	t := Toast{ID: c.seq, Message: message, Kind: kind, ShownAt: c.now()}
	c.current = &t
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.autoHide > 0 {
		id := t.ID
		c.timer = time.AfterFunc(c.autoHide, func() { c.expire(id) })
	}
	sinks := append([]Sink(nil), c.sinks...)
	c.mu.Unlock()

	c.logger.Debug("toast shown", "kind", string(kind), "message", message)
	for _, s := range sinks {
		s.Notify(t)
	}
	return t
}

// Hide removes the visible toast, if any.
func (c *Center) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Current returns the visible toast.
func (c *Center) Current() (Toast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Toast{}, false
	}
	return *c.current, true
}

// expire hides toast id unless a newer one has replaced it.
func (c *Center) expire(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.ID == id {
		c.current = nil
		c.timer = nil
	}
}
