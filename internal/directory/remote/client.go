// Package remote is a typed client for the remote user store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"userdir/internal/directory/metrics"
	"userdir/pkg/contracts/userapi"
	"userdir/pkg/platform/circuit"
)

const (
	// DefaultTimeout bounds every request unless overridden.
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 64 << 10
)

const (
	opList   = "list"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// Client talks to the user store over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	breaker    *circuit.Breaker
	tracer     trace.Tracer
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBreaker tracks consecutive failures. The breaker never short-circuits calls.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New creates a client for the store at baseURL (scheme, host and optional path prefix).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		breaker:    circuit.New("user-store"),
		tracer:     otel.Tracer("userdir/remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the store address the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Breaker exposes the failure tracker.
func (c *Client) Breaker() *circuit.Breaker {
	return c.breaker
}

// List calls GET /users.
func (c *Client) List(ctx context.Context) ([]userapi.User, error) {
	var data userapi.ListData
	if err := c.do(ctx, opList, http.MethodGet, userapi.PathUsers, nil, &data); err != nil {
		return nil, err
	}
	if data.Users == nil {
		data.Users = []userapi.User{}
	}
	c.logger.DebugContext(ctx, "listed users", "count", len(data.Users), "total", data.Total)
	return data.Users, nil
}

// Create calls POST /users/register and returns the stored record.
func (c *Client) Create(ctx context.Context, in userapi.UserInput) (*userapi.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, opCreate, http.MethodPost, userapi.PathRegister, in, &raw); err != nil {
		return nil, err
	}
	return c.decodeUser(opCreate, raw)
}

// Update calls PUT /users/{id} with every editable field set.
func (c *Client) Update(ctx context.Context, id string, in userapi.UserInput) (*userapi.User, error) {
	var raw json.RawMessage
	path := userapi.UserPath(url.PathEscape(id))
	if err := c.do(ctx, opUpdate, http.MethodPut, path, userapi.PatchFrom(in), &raw); err != nil {
		return nil, err
	}
	return c.decodeUser(opUpdate, raw)
}

// Delete calls DELETE /users/{id}. The response body is discarded.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, opDelete, http.MethodDelete, userapi.UserPath(url.PathEscape(id)), nil, nil)
}

// decodeUser accepts data as a bare record, {"user": record} or {"users": [record, ...]}.
func (c *Client) decodeUser(op string, raw json.RawMessage) (*userapi.User, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, &APIError{Op: op, Status: http.StatusOK, Kind: KindUnexpected, Message: "response carried no user"}
	}

	var wrapped struct {
		User  *userapi.User  `json:"user"`
		Users []userapi.User `json:"users"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if wrapped.User != nil && wrapped.User.ID != "" {
			return wrapped.User, nil
		}
		if len(wrapped.Users) > 0 {
			if len(wrapped.Users) > 1 {
				c.logger.Warn("store returned several users for a single write, using the first",
					"op", op,
					"count", len(wrapped.Users),
				)
			}
			u := wrapped.Users[0]
			if u.ID == "" {
				return nil, &APIError{Op: op, Status: http.StatusOK, Kind: KindUnexpected, Message: "response user has no identifier"}
			}
			return &u, nil
		}
	}

	var u userapi.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, &APIError{Op: op, Status: http.StatusOK, Kind: KindUnexpected, Message: "malformed user in response"}
	}
	if u.ID == "" {
		return nil, &APIError{Op: op, Status: http.StatusOK, Kind: KindUnexpected, Message: "response user has no identifier"}
	}
	return &u, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "userstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer func() {
		c.finish(ctx, op, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		b, merr := json.Marshal(body)
		if merr != nil {
			return fmt.Errorf("encode %s request: %w", op, merr)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var env userapi.Envelope
	if derr := json.NewDecoder(resp.Body).Decode(&env); derr != nil {
		if isTimeout(derr) {
			return &NetworkError{Op: op, Timeout: true, Err: derr}
		}
		return &APIError{Op: op, Status: resp.StatusCode, Kind: KindUnexpected, Message: "malformed response from user store"}
	}
	if !env.Success {
		return &APIError{
			Op:      op,
			Status:  resp.StatusCode,
			Kind:    KindUnexpected,
			Message: env.Message,
			Details: decodeDetails(env.Errors),
		}
	}
	if len(env.Data) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = env.Data
		return nil
	}
	if uerr := json.Unmarshal(env.Data, out); uerr != nil {
		return &APIError{Op: op, Status: resp.StatusCode, Kind: KindUnexpected, Message: "malformed data in response"}
	}
	return nil
}

func (c *Client) apiError(op string, resp *http.Response) error {
	apiErr := &APIError{Op: op, Status: resp.StatusCode, Kind: kindFor(resp.StatusCode)}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(b)) == 0 {
		return apiErr
	}
	var env userapi.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		c.logger.Debug("non-json error body from user store", "op", op, "status", resp.StatusCode)
		return apiErr
	}
	apiErr.Message = env.Message
	apiErr.Details = decodeDetails(env.Errors)
	return apiErr
}

// finish records metrics and feeds the breaker. Only transport failures and 5xx
// answers count against the store's health.
func (c *Client) finish(ctx context.Context, op string, start time.Time, err error) {
	outcome := "ok"
	unhealthy := false
	if err != nil {
		outcome = "error"
		var netErr *NetworkError
		var apiErr *APIError
		switch {
		case errors.As(err, &netErr):
			outcome = "network"
			unhealthy = true
		case errors.As(err, &apiErr):
			outcome = string(apiErr.Kind)
			unhealthy = apiErr.Kind == KindServer
		}
	}

	if c.metrics != nil {
		c.metrics.ObserveRequest(op, outcome, start)
	}

	if unhealthy {
		_, change := c.breaker.RecordFailure()
		if change.Opened {
			c.logger.WarnContext(ctx, "user store circuit opened", "breaker", c.breaker.Name(), "op", op)
		}
	} else {
		_, change := c.breaker.RecordSuccess()
		if change.Closed {
			c.logger.InfoContext(ctx, "user store circuit closed", "breaker", c.breaker.Name())
		}
	}
	if c.metrics != nil {
		c.metrics.SetCircuitOpen(c.breaker.IsOpen())
	}

	if err != nil {
		c.logger.WarnContext(ctx, "user store request failed",
			"op", op,
			"outcome", outcome,
			"duration", time.Since(start),
			"error", err,
		)
		return
	}
	c.logger.DebugContext(ctx, "user store request", "op", op, "duration", time.Since(start))
}
