// Command auditlog runs the multi-tenant audit log HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/auditlog/internal/api"
	"github.com/persistorai/auditlog/internal/config"
	"github.com/persistorai/auditlog/internal/db"
	"github.com/persistorai/auditlog/internal/db/migrations"
	"github.com/persistorai/auditlog/internal/dbpool"
	"github.com/persistorai/auditlog/internal/metrics"
	"github.com/persistorai/auditlog/internal/security"
	"github.com/persistorai/auditlog/internal/service"
	"github.com/persistorai/auditlog/internal/store"
	"github.com/persistorai/auditlog/internal/tenancy"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "auditlog:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	sentryEnabled := initSentry(cfg, log)
	if sentryEnabled {
		defer sentry.Flush(5 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), dbpool.Options{
		MaxConns: int32(cfg.DBMaxConns), //nolint:gosec // bounded by config validation.
		MinConns: int32(cfg.DBMinConns), //nolint:gosec // bounded by config validation.
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	prometheus.MustRegister(metrics.NewPoolCollector(pool))

	base := store.Base{Log: log}
	svc := service.NewAuditLogService(
		tenancy.NewManager(pool, log, cfg.DBAcquireTimeout),
		store.NewBatchStore(base),
		store.NewQueryStore(base),
		log,
		cfg.RequestTimeout,
	)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:           log,
		Pool:          pool,
		Logs:          svc,
		Keys:          security.NewKeyRing(cfg.TenantAPIKeys),
		CORSOrigins:   cfg.CORSOrigins,
		Version:       config.Version,
		SchemaVersion: db.SchemaVersion(),
		DebugErrors:   cfg.DebugErrors,
		Sentry:        sentryEnabled,
	})

	apiServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"addr":           cfg.Addr(),
		"metrics_addr":   cfg.MetricsAddr(),
		"version":        config.Version,
		"schema_version": db.SchemaVersion(),
		"tenants":        len(cfg.TenantAPIKeys),
		"max_conns":      cfg.DBMaxConns,
	}).Info("audit log service starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(apiServer) })
	g.Go(func() error { return serve(metricsServer) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(apiServer.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("audit log service stopped")

	return nil
}

// serve runs srv until it is shut down. A clean shutdown is not an error.
func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving %s: %w", srv.Addr, err)
	}

	return nil
}

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)

	return log, nil
}

// initSentry enables error reporting when SENTRY_DSN is set. Failures are
// logged and leave reporting disabled.
func initSentry(cfg *config.Config, log *logrus.Logger) bool {
	if cfg.SentryDSN.Value() == "" {
		return false
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN.Value(),
		Environment:      cfg.Environment,
		Release:          "auditlog@" + config.Version,
		TracesSampleRate: 0.2,
	}); err != nil {
		log.WithError(err).Error("sentry initialization failed")

		return false
	}

	log.Info("sentry initialized")

	return true
}
