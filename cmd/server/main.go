// Package main is the entrypoint for the Faultline alerting server.
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
	"time"

	"github.com/kiranshivaraju/faultline/internal/alerting"
	"github.com/kiranshivaraju/faultline/internal/api"
	"github.com/kiranshivaraju/faultline/internal/api/handler"
	mw "github.com/kiranshivaraju/faultline/internal/api/middleware"
	"github.com/kiranshivaraju/faultline/internal/api/response"
	"github.com/kiranshivaraju/faultline/internal/cache"
	"github.com/kiranshivaraju/faultline/internal/config"
	"github.com/kiranshivaraju/faultline/internal/ingest"
	"github.com/kiranshivaraju/faultline/internal/notify"
	"github.com/kiranshivaraju/faultline/internal/store"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "eval_interval", cfg.Alerting.EvalInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store and services
	pgStore := store.NewPostgresStore(pool)
	ingestSvc := ingest.NewService(pgStore, cfg.Alerting.ReopenResolved)

	channels := func(rule *models.AlertRule) (notify.Channel, error) {
		return notify.NewChannel(rule, cfg.SMTP, cfg.Alerting.DispatchTimeout)
	}
	evaluator := alerting.NewEvaluator(pgStore, cfg.Alerting.CriticalLookback)
	guard := alerting.NewGuard(pgStore, cfg.Alerting.Cooldown)
	dispatcher := alerting.NewDispatcher(pgStore, channels, cfg.Alerting.DispatchTimeout, cfg.Server.BaseURL)
	pipeline := alerting.NewPipeline(pgStore, evaluator, guard, dispatcher, redisCache)

	// 6. Start the evaluation scheduler
	scheduler := alerting.NewScheduler(cfg.Alerting.EvalInterval, func(ctx context.Context) error {
		stats, err := pipeline.Run(ctx)
		if errors.Is(err, alerting.ErrRunInProgress) {
			// A manually triggered run is active; this tick skips like any
			// other overlap.
			slog.Warn("evaluation run already active, skipping tick")
			return nil
		}
		if err != nil {
			return err
		}
		if stats.Violations > 0 {
			slog.Info("evaluation pass complete",
				"violations", stats.Violations,
				"notified", stats.Notified,
				"suppressed", stats.Suppressed)
		}
		return nil
	})
	scheduler.Start(ctx)

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, cfg.Alerting.RateLimitPerMin)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, redisCache),

		IngestEvent: handler.NewEventsHandler(ingestSvc),

		ListGroups:        handler.NewListGroupsHandler(pgStore),
		GetGroup:          handler.NewGetGroupHandler(pgStore),
		UpdateGroupStatus: handler.NewUpdateGroupStatusHandler(pgStore),

		ListRules:  handler.NewListRulesHandler(pgStore),
		CreateRule: handler.NewCreateRuleHandler(pgStore),
		GetRule:    handler.NewGetRuleHandler(pgStore),
		UpdateRule: handler.NewUpdateRuleHandler(pgStore),
		DeleteRule: handler.NewDeleteRuleHandler(pgStore),

		ListAlerts: handler.NewListAlertsHandler(pgStore),
		Evaluate:   handler.NewEvaluateHandler(pipeline),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
