package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/trafficlens/congestion-predictor/internal/adapter/http"
	kafkaadapter "github.com/trafficlens/congestion-predictor/internal/adapter/kafka"
	"github.com/trafficlens/congestion-predictor/internal/adapter/postgres"
	"github.com/trafficlens/congestion-predictor/internal/config"
	"github.com/trafficlens/congestion-predictor/internal/domain"
	"github.com/trafficlens/congestion-predictor/internal/observability"
	"github.com/trafficlens/congestion-predictor/internal/predict"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, closeLog := observability.NewLogger(observability.LogOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	defer closeLog() //nolint:errcheck // best-effort on exit
	metrics := observability.NewMetrics()

	encoder, err := domain.LoadWeatherEncoder(cfg.EncoderPath)
	if err != nil {
		if errors.Is(err, domain.ErrMissingArtifact) {
			logger.Error("weather encoder not found, run extract first", "path", cfg.EncoderPath)
		} else {
			logger.Error("failed to load weather encoder", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("weather encoder loaded", "path", cfg.EncoderPath, "classes", encoder.Len())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []predict.Option{predict.WithHistorySize(cfg.HistorySize)}

	// Prediction recorders are optional and never block serving.
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, predict.WithRecorder("kafka", kafkaWriter))
		logger.Info("kafka prediction recorder enabled", "topic", cfg.KafkaPredictionTopic)
	}

	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("postgres prediction recorder disabled", "error", err)
		} else {
			defer pool.Close()
			rec := postgres.NewRecorder(pool)
			if err := rec.EnsureSchema(ctx); err != nil {
				logger.Warn("postgres schema setup failed", "error", err)
			}
			opts = append(opts, predict.WithRecorder("postgres", rec))
			logger.Info("postgres prediction recorder enabled")
		}
	}

	svc := predict.NewService(encoder, logger, metrics, opts...)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc, cfg.CORSAllowedOrigins, logger, metrics)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
