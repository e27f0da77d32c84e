// Package main is the entrypoint for the DispatchIQ decision engine.
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

	"github.com/joho/godotenv"
	"github.com/kiranshivaraju/dispatchiq/internal/alerts"
	"github.com/kiranshivaraju/dispatchiq/internal/api"
	"github.com/kiranshivaraju/dispatchiq/internal/api/handler"
	mw "github.com/kiranshivaraju/dispatchiq/internal/api/middleware"
	"github.com/kiranshivaraju/dispatchiq/internal/audit"
	"github.com/kiranshivaraju/dispatchiq/internal/cache"
	"github.com/kiranshivaraju/dispatchiq/internal/config"
	"github.com/kiranshivaraju/dispatchiq/internal/deadline"
	"github.com/kiranshivaraju/dispatchiq/internal/engine"
	"github.com/kiranshivaraju/dispatchiq/internal/gate"
	"github.com/kiranshivaraju/dispatchiq/internal/jobs"
	"github.com/kiranshivaraju/dispatchiq/internal/metrics"
	"github.com/kiranshivaraju/dispatchiq/internal/platform"
	"github.com/kiranshivaraju/dispatchiq/internal/settings"
	"github.com/kiranshivaraju/dispatchiq/internal/store"
	"github.com/kiranshivaraju/dispatchiq/internal/tracing"
	"github.com/kiranshivaraju/dispatchiq/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	serviceName     = "dispatchiq"
	shutdownTimeout = 30 * time.Second
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.Log.Level),
		Format:      cfg.Log.Format,
	})
	log.Info().Str("env", cfg.Server.Env).Msg("config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, shutdownTracing, err := tracing.Setup(ctx, tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: serviceName,
		Environment: cfg.Server.Env,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info().Msg("database migrations applied")

	c, closeCache, err := openCache(ctx, cfg.Redis.URL, log)
	if err != nil {
		return err
	}
	defer closeCache()

	plat := platform.NewHTTPClient(cfg.Platform.BaseURL, cfg.Platform.Timeout)
	if err := plat.Ready(ctx); err != nil {
		// predictions degrade to fallbacks until the platform answers
		log.Warn().Err(err).Msg("platform API not ready at startup")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(cfg, store.NewPostgresStore(pool), c, plat, reg, log)
	if err != nil {
		return err
	}
	a.jobs.Start()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := a.close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("background work did not finish cleanly")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown failed")
	}

	log.Info().Msg("server stopped gracefully")
	return nil
}

// openCache connects to Redis when configured and falls back to an
// in-process cache otherwise.
func openCache(ctx context.Context, redisURL string, log zerolog.Logger) (cache.Cache, func(), error) {
	if redisURL == "" {
		log.Warn().Msg("REDIS_URL not set, using in-process cache")
		return cache.NewMemoryCache(), func() {}, nil
	}

	rc, err := cache.NewRedisCache(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info().Msg("redis connected")
	return rc, func() { _ = rc.Close() }, nil
}

// app is the wired engine with its HTTP surface and background workers.
type app struct {
	handler http.Handler
	engine  *engine.Engine
	writer  *audit.Writer
	jobs    *jobs.JobManager
}

// newApp wires every component. It does not start the job scheduler.
func newApp(cfg *config.Config, st store.Store, c cache.Cache, plat *platform.HTTPClient, reg *prometheus.Registry, log zerolog.Logger) (*app, error) {
	engineMetrics := metrics.NewEngineMetrics(reg)
	jobMetrics := metrics.NewJobMetrics(reg)

	writer := audit.NewWriter(st, cfg.Engine.AuditQueue, log, engineMetrics)
	auditLog := audit.NewLog(st, writer)

	eng := engine.New(engine.Dependencies{
		Store:       st,
		Settings:    settings.NewService(st),
		Alerts:      alerts.NewService(st, plat, log),
		Audit:       auditLog,
		Gate:        gate.New(plat, c, cfg.Engine.PlanCacheTTL, log, engineMetrics),
		History:     plat,
		Conditions:  plat,
		Dataset:     platform.NewHistoryDatasetValidator(plat),
		Routes:      plat,
		DriverStats: platform.NewHistoryDriverStats(plat),
		Executor:    deadline.NewExecutor(log, engineMetrics),
		Metrics:     engineMetrics,
		Logger:      log,
		Deadline:    cfg.Engine.Deadline,
	})

	jm := jobs.NewJobManager(log, jobMetrics)
	if err := jm.Schedule(cfg.Jobs.RetentionSchedule, jobs.NewRetentionJob(st, auditLog, cfg.Jobs.AuditRetentionDays)); err != nil {
		return nil, err
	}
	if err := jm.Schedule(cfg.Jobs.SuggestionSweepSchedule, jobs.NewSuggestionExpiryJob(st)); err != nil {
		return nil, err
	}

	router := api.NewRouter(api.Dependencies{
		Logger:    log,
		RateLimit: mw.NewRateLimit(c, cfg.RateLimit.PerMinute, log),
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),

		HealthHandler: handler.NewHealthHandler(st, c),

		PredictHandler:       handler.NewPredictHandler(eng),
		OptimizeRouteHandler: handler.NewOptimizeRouteHandler(eng),
		ValidateRouteHandler: handler.NewValidateRouteHandler(eng),

		GenerateSuggestionsHandler: handler.NewGenerateSuggestionsHandler(eng),
		ListSuggestionsHandler:     handler.NewListSuggestionsHandler(eng),
		ApproveSuggestionHandler:   handler.NewApproveSuggestionHandler(eng),
		RejectSuggestionHandler:    handler.NewRejectSuggestionHandler(eng),

		GetSettingsHandler:    handler.NewGetSettingsHandler(eng),
		UpdateSettingsHandler: handler.NewUpdateSettingsHandler(eng),

		QueryDecisionsHandler: handler.NewQueryDecisionsHandler(eng),
		DecisionStatsHandler:  handler.NewDecisionStatsHandler(eng),

		ListAlertsHandler:    handler.NewListAlertsHandler(eng),
		CreateAlertHandler:   handler.NewCreateAlertHandler(eng),
		MarkAlertReadHandler: handler.NewMarkAlertReadHandler(eng),
	})

	return &app{handler: router, engine: eng, writer: writer, jobs: jm}, nil
}

// close stops the scheduler and drains queued audit records.
func (a *app) close(ctx context.Context) error {
	return errors.Join(a.jobs.Stop(ctx), a.writer.Close(ctx))
}
