// Command server serves the admin analytics API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/peternagy/consultadmin/internal/analytics"
	"github.com/peternagy/consultadmin/internal/api"
	"github.com/peternagy/consultadmin/internal/api/middleware"
	"github.com/peternagy/consultadmin/internal/config"
	"github.com/peternagy/consultadmin/internal/connection"
	"github.com/peternagy/consultadmin/internal/core"
	"github.com/peternagy/consultadmin/internal/debug"
	"github.com/peternagy/consultadmin/internal/operation"
	"github.com/peternagy/consultadmin/internal/telemetry"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	log := debug.New(debug.Options{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		Service: cfg.Telemetry.ServiceName,
		Version: Version,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}

	manager := connection.NewManager(connection.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	}, debug.For(log, debug.CategoryConnection))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := manager.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("failed to close store connection")
		}
	}()

	// Warm the connection in the background; requests fall back until it is up.
	go func() {
		if err := manager.Initialize(ctx); err != nil {
			log.Warn().Err(err).Msg("store not reachable at startup, serving fallback data")
		}
	}()

	runner := operation.NewRunner(manager, debug.For(log, debug.CategoryOperation), cfg.Mongo.OperationTimeout)
	engine := analytics.NewEngine(
		analytics.NewMongoStore(manager, runner),
		core.NewGate(),
		debug.For(log, debug.CategoryAnalytics),
		analytics.Options{RequestTimeout: cfg.Mongo.RequestTimeout},
	)

	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		Logger:             debug.For(log, debug.CategoryHTTP),
		Metrics:            metrics,
		Snapshots:          engine,
		Readiness:          manager,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped gracefully")
	return nil
}
