package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"facestream/internal/config"
	"facestream/internal/logging"
	"facestream/internal/metrics"
	"facestream/internal/worker"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logging.Setup(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	log.Info().
		Str("instance_id", cfg.InstanceID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Str("source", cfg.SourceDevice).
		Str("stream_addr", cfg.StreamAddr).
		Str("format", cfg.ImageFormat).
		Msg("Starting facestream")

	w, err := worker.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	// Wait for interrupt signal or a fatal component error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-done:
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Worker stopped unexpectedly")
		}
		log.Info().Msg("Worker stopped")
		return
	}

	// Graceful shutdown
	cancel()
	select {
	case err := <-done:
		if err != nil {
			log.Error().Err(err).Msg("Worker shutdown with error")
			os.Exit(1)
		}
		log.Info().Msg("Shutdown complete")
	case <-time.After(cfg.ShutdownTimeout):
		log.Error().Dur("timeout", cfg.ShutdownTimeout).Msg("Shutdown timed out, forcing exit")
		os.Exit(1)
	}
}
