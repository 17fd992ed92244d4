package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"userdir/internal/directory/dateformat"
	"userdir/internal/userstore/service"
	"userdir/internal/userstore/store/memory"
	"userdir/pkg/contracts/userapi"
	"userdir/pkg/testutil"
)

type downStore struct {
	*memory.InMemory
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func newTestRouter(t *testing.T, store service.Store) (http.Handler, *tracetest.SpanRecorder) {
	t.Helper()
	svc, err := service.New(store, dateformat.New(dateformat.WireISO))
	require.NoError(t, err)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return newRouter(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry(), tp.Tracer("test")), recorder
}

func TestRouter(t *testing.T) {
	router, recorder := newTestRouter(t, memory.New())

	t.Run("users are served under the api prefix", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, APIPrefix+userapi.PathUsers, nil))
		testutil.AssertStatus(t, rr, http.StatusOK)
		data := testutil.DecodeData[userapi.ListData](t, rr)
		assert.Empty(t, data.Users)
	})

	t.Run("api requests are traced by route", func(t *testing.T) {
		var names []string
		for _, span := range recorder.Ended() {
			names = append(names, span.Name())
		}
		assert.Contains(t, names, "GET "+APIPrefix+userapi.PathUsers)
	})

	t.Run("healthz", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("metrics exposes request counters", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Contains(t, rr.Body.String(), "userstore_http_requests_total")
	})
}

func TestHealthz_StoreDown(t *testing.T) {
	router, _ := newTestRouter(t, downStore{memory.New()})
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
}
