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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garrettladley/whoopsync/internal/bootstrap"
	"github.com/garrettladley/whoopsync/internal/config"
	"github.com/garrettladley/whoopsync/internal/server"
	"github.com/garrettladley/whoopsync/internal/server/handler"
	servermw "github.com/garrettladley/whoopsync/internal/server/middleware"
	"github.com/garrettladley/whoopsync/internal/xhttp/middleware"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

const (
	keyPort        = "port"
	keyGracePeriod = "grace_period"

	// a historical run can take many minutes at the default request pacing
	runShutdownGracePeriod = 10 * time.Minute
)

func main() {
	_ = godotenv.Load()

	logger := xslog.NewFromEnv(os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", xslog.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.ReadServer()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	logger = xslog.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.Env.IsProduction() && cfg.RedisURL == "" {
		logger.WarnContext(ctx, "REDIS_URL not set, the daily request budget is not shared with the CLI")
	}

	store, err := bootstrap.OpenStore(ctx, cfg.DatabaseURL, "", logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	syncer, closeSyncer, err := bootstrap.NewSyncer(ctx, cfg.Config, store, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize sync service: %w", err)
	}
	defer closeSyncer()

	shutdownCoordinator := server.NewShutdownCoordinator(runShutdownGracePeriod)
	syncHandler := handler.NewSync(syncer, store.Repo.SyncRuns, shutdownCoordinator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /api/sync/cron", middleware.Chain(
		http.HandlerFunc(syncHandler.HandleCron),
		servermw.CronAuth(cfg.CronSecret),
	))

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/sync", syncHandler.HandleSync)
	apiMux.HandleFunc("GET /api/sync/last", syncHandler.HandleLast)
	apiWrapped := middleware.Chain(apiMux, servermw.APIKeyAuth(cfg.APIKey))
	mux.Handle("/api/sync", apiWrapped)
	mux.Handle("/api/sync/last", apiWrapped)

	wrapped := middleware.Chain(mux,
		middleware.RequestID(middleware.TrustIncomingID()),
		middleware.Logger(logger),
		middleware.Logging,
		middleware.Recovery,
		middleware.SecurityHeaders,
		middleware.Gzip,
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // sync responses are written when the run finishes
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.InfoContext(ctx, "starting server",
			xslog.Version(),
			slog.String(keyPort, cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "server error", xslog.Error(err))
		}
	}()

	<-done
	logger.InfoContext(ctx, "shutdown signal received, waiting for in-flight sync runs",
		slog.Duration(keyGracePeriod, runShutdownGracePeriod))

	if !shutdownCoordinator.Wait() {
		logger.WarnContext(ctx, "grace period elapsed with sync runs still in flight")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.InfoContext(ctx, "server stopped")
	return nil
}
