// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/essqueue/broker/internal/broker"
	"github.com/essqueue/broker/internal/clock"
	"github.com/essqueue/broker/internal/config"
	"github.com/essqueue/broker/internal/snapshot"
	"github.com/essqueue/broker/internal/sqsproto"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	log.Logger = logger

	manager := broker.NewQueueManager(clock.System{})

	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
		cfg = loaded
		if err := config.Bootstrap(manager, cfg); err != nil {
			logger.Fatal().Err(err).Msg("failed to bootstrap queues")
		}
		logger.Info().Int("queues", len(cfg.Queues)).Str("path", *configPath).Msg("loaded configuration")
	}

	if cfg.Snapshot.Path != "" {
		if err := snapshot.Load(manager, cfg.Snapshot.Path); err != nil {
			logger.Error().Err(err).Str("path", cfg.Snapshot.Path).Msg("failed to load snapshot")
		} else {
			logger.Info().Str("path", cfg.Snapshot.Path).Msg("restored snapshot")
		}
	}

	port := os.Getenv("PORT")
	if port == "" && cfg.Server.Port != 0 {
		port = strconv.Itoa(cfg.Server.Port)
	}
	if port == "" {
		port = "9324"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := broker.NewDelayDispatcher(manager, 100*time.Millisecond)
	go dispatcher.Run(ctx)

	if cfg.Snapshot.Path != "" {
		go runSnapshotLoop(ctx, manager, cfg.Snapshot.Path, time.Duration(cfg.Snapshot.IntervalSeconds)*time.Second, logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	handler := sqsproto.NewHandler(manager, logger)
	r.Get("/health", healthHandler)
	r.Post("/", handler.ServeHTTP)
	r.Post("/{queueName}", handler.ServeHTTP)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("port", port).Msg("essqueue listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server failed")
	}

	if cfg.Snapshot.Path != "" {
		if err := snapshot.Save(manager, cfg.Snapshot.Path); err != nil {
			logger.Error().Err(err).Msg("failed to save final snapshot")
		}
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// requestLogger mirrors chi/middleware.Logger's shape but writes
// through zerolog instead of the standard logger, matching the rest of
// the service's structured logging.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

// runSnapshotLoop periodically persists manager's state until ctx is
// cancelled, per spec §6's optional persisted state.
func runSnapshotLoop(ctx context.Context, manager *broker.QueueManager, path string, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := snapshot.Save(manager, path); err != nil {
				logger.Error().Err(err).Msg("failed to save snapshot")
			}
		}
	}
}
