package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"userdir/internal/platform/metrics"
	"userdir/internal/platform/middleware"
	"userdir/internal/userstore/models"
	"userdir/pkg/contracts/userapi"
	dErrors "userdir/pkg/domain-errors"
	"userdir/pkg/platform/httputil"
)

const (
	MsgListed     = "Users retrieved successfully"
	MsgFetched    = "User retrieved successfully"
	MsgRegistered = "User registered successfully"
	MsgUpdated    = "User updated successfully"
	MsgDeleted    = "User deleted successfully"
)

const requestTimeout = 30 * time.Second

// Service is the user store as seen by HTTP.
type Service interface {
	List(ctx context.Context) ([]*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Register(ctx context.Context, in userapi.UserInput) (*models.User, error)
	Update(ctx context.Context, id string, patch userapi.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves the user store API.
type Handler struct {
	users   Service
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Handler)

// WithTracer records a server span per request.
func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) {
		h.tracer = t
	}
}

func New(users Service, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Handler {
	h := &Handler{users: users, logger: logger, metrics: m}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the user routes on r.
func (h *Handler) Register(r chi.Router) {
	users := chi.NewRouter()
	users.Use(middleware.Tracing(h.tracer))
	users.Use(middleware.Recovery(h.logger, h.metrics))
	users.Use(middleware.RequestID)
	users.Use(middleware.RequestTime)
	users.Use(middleware.ClientMetadata)
	users.Use(middleware.Logger(h.logger))
	users.Use(middleware.Timeout(requestTimeout))
	users.Use(middleware.ContentTypeJSON)
	users.Use(middleware.Latency(h.metrics))
	users.Get(userapi.PathUsers, h.handleList)
	users.Post(userapi.PathRegister, h.handleRegister)
	users.Get(userapi.PathUsers+"/{id}", h.handleGet)
	users.Put(userapi.PathUsers+"/{id}", h.handleUpdate)
	users.Delete(userapi.PathUsers+"/{id}", h.handleDelete)

	r.Mount("/", users)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.users.List(ctx)
	if err != nil {
		h.fail(ctx, w, "list users", err)
		return
	}
	out := make([]userapi.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToAPI())
	}
	httputil.WriteSuccess(w, http.StatusOK, MsgListed, userapi.ListData{
		Users:   out,
		Total:   len(out),
		Showing: len(out),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.users.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "get user", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, MsgFetched, u.ToAPI())
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	u, err := h.users.Register(ctx, req.UserInput)
	if err != nil {
		h.fail(ctx, w, "register user", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, MsgRegistered, u.ToAPI())
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	u, err := h.users.Update(ctx, chi.URLParam(r, "id"), req.UserPatch)
	if err != nil {
		h.fail(ctx, w, "update user", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, MsgUpdated, u.ToAPI())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.users.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.fail(ctx, w, "delete user", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, MsgDeleted, nil)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	attrs := []any{"request_id", middleware.GetRequestID(ctx), "op", op, "error", err}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
