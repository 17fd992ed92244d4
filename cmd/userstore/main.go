package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"userdir/internal/directory/dateformat"
	"userdir/internal/platform/config"
	"userdir/internal/platform/httpserver"
	"userdir/internal/platform/logger"
	"userdir/internal/platform/tracing"
	platformredis "userdir/internal/platform/redis"
	"userdir/internal/userstore/metrics"
	"userdir/internal/userstore/service"
	"userdir/internal/userstore/store/memory"
	"userdir/internal/userstore/store/postgres"
	userredis "userdir/internal/userstore/store/redis"
)

// main wires the reference user store and runs it until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("userstore stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	layout, err := dateformat.ParseWireLayout(cfg.Store.DateLayout)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	tp, err := tracing.New(ctx, "userstore", cfg.Tracing, tracing.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc, err := service.New(store, dateformat.New(layout, dateformat.WithLogger(log)),
		service.WithLogger(log),
		service.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server.Addr, newRouter(svc, log, reg, tp.Tracer("userdir/userstore")), httpserver.Timeouts{Write: cfg.Server.WriteTimeout})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting userstore",
			"addr", cfg.Server.Addr,
			"backend", cfg.Store.Backend,
			"date_layout", layout.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down userstore")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openStore returns the configured backend and a func releasing its connections.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (service.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return userredis.NewRedis(client.Client), func() {
			if err := client.Close(); err != nil {
				log.Warn("close redis", "error", err)
			}
		}, nil

	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		store := postgres.NewPostgres(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, func() {
			if err := db.Close(); err != nil {
				log.Warn("close postgres", "error", err)
			}
		}, nil

	default:
		return memory.New(), func() {}, nil
	}
}
