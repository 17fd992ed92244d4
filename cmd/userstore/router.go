package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	platformmetrics "userdir/internal/platform/metrics"
	"userdir/internal/userstore/handler"
	"userdir/pkg/platform/httputil"
)

// APIPrefix is where the user routes are mounted.
const APIPrefix = "/api/v1"

type pinger interface {
	Ping(ctx context.Context) error
}

type userService interface {
	handler.Service
	pinger
}

func newRouter(svc userService, log *slog.Logger, reg *prometheus.Registry, tracer trace.Tracer) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", healthz(svc, log))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Route(APIPrefix, func(api chi.Router) {
		handler.New(svc, log, platformmetrics.New(reg), handler.WithTracer(tracer)).Register(api)
	})
	return r
}

func healthz(p pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.WarnContext(ctx, "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
