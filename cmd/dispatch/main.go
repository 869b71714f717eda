package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-alert-pipeline/internal/adapter/directory"
	"github.com/couchcryptid/weather-alert-pipeline/internal/adapter/httpserver"
	kafkaadapter "github.com/couchcryptid/weather-alert-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/weather-alert-pipeline/internal/adapter/telegram"
	"github.com/couchcryptid/weather-alert-pipeline/internal/config"
	"github.com/couchcryptid/weather-alert-pipeline/internal/dispatch"
	"github.com/couchcryptid/weather-alert-pipeline/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateDispatch(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	reader := kafkaadapter.NewReader(cfg, logger)
	subscribers := directory.NewClient(cfg.DirectoryBaseURL, cfg.DirectoryTimeout, logger)

	messenger, err := telegram.New(cfg.TelegramToken, logger)
	if err != nil {
		logger.Error("telegram setup failed", "error", err)
		os.Exit(1)
	}

	dispatcher := dispatch.New(reader, subscribers, messenger, cfg.DispatchWorkers, logger, metrics)

	srv := httpserver.NewServer(cfg.HTTPAddr, "dispatch", dispatcher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := dispatcher.Run(ctx); err != nil {
			logger.Error("dispatch error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}

	logger.Info("shutdown complete")
}
