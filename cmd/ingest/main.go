package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-alert-pipeline/internal/adapter/dataplatform"
	"github.com/couchcryptid/weather-alert-pipeline/internal/adapter/httpserver"
	kafkaadapter "github.com/couchcryptid/weather-alert-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/weather-alert-pipeline/internal/adapter/mqttbroker"
	"github.com/couchcryptid/weather-alert-pipeline/internal/config"
	"github.com/couchcryptid/weather-alert-pipeline/internal/ingest"
	"github.com/couchcryptid/weather-alert-pipeline/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateIngest(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	subscription := mqttbroker.New(cfg.BrokerURL, cfg.BrokerClientID, cfg.NotificationToken, cfg.BrokerTopic, logger)
	platform := dataplatform.NewClient(cfg.APIToken, cfg.ResolveTimeout, cfg.DownloadTimeout, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	controller := ingest.New(subscription, platform, platform, writer, logger, metrics)

	srv := httpserver.NewServer(cfg.HTTPAddr, "ingest", controller, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := subscription.Connect(); err != nil {
		logger.Error("broker connection failed", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := controller.Run(ctx); err != nil {
			logger.Error("ingest error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	subscription.Close()
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
