package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"health-risk/internal/api"
	"health-risk/internal/assess"
	"health-risk/internal/cfg"
	"health-risk/internal/common"
	"health-risk/internal/events"
	"health-risk/internal/features"
	"health-risk/internal/metrics"
	"health-risk/internal/ml"
	"health-risk/internal/schema"
	"health-risk/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schemas := schema.Default()
	if err := schemas.Validate(); err != nil {
		log.Fatal().Err(err).Msg("feature schema is inconsistent")
	}

	// Initialize components
	m := metrics.New()
	mw := metrics.NewWrapper(m)

	registry := ml.NewRegistry(schemas, ml.NewFileLoader(c.ModelsDir, c.ONNXRuntimeLib), c.ModelLoadTimeout, mw)
	defer func() {
		if err := registry.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to release models")
		}
	}()
	if c.EagerLoad {
		registry.LoadAll(ctx)
	}

	deps := api.Deps{
		Assessor: assess.NewService(features.NewBuilder(schemas), registry, mw),
		Schemas:  schemas,
		Models:   registry,
		Metrics:  mw,
		Gatherer: prometheus.DefaultGatherer,
	}

	if store := initializeStorage(c); store != nil {
		defer store.Close()
		deps.Store = store
	}
	if publisher := initializePublisher(c); publisher != nil {
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to flush events")
			}
		}()
		deps.Publisher = publisher
	}

	server := api.NewServer(api.Config{
		Port:           c.Port,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		MaxRequestBody: c.MaxRequestBody,
	}, deps)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("risk API server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, server)
}

func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.LogFormat == common.LogFormatConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// initializeStorage opens assessment history if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if !c.HistoryEnabled() {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without history")
		return nil
	}
	log.Info().Str("path", c.DataPath).Msg("assessment history enabled")
	return store
}

// initializePublisher creates the Kafka publisher if KAFKA_BROKERS is configured
func initializePublisher(c cfg.Settings) *events.Publisher {
	if !c.EventsEnabled() {
		return nil
	}
	log.Info().Strs("brokers", c.KafkaBrokers).Str("topic", c.KafkaTopic).Msg("assessment events enabled")
	return events.NewPublisher(c.KafkaBrokers, c.KafkaTopic)
}

// waitForShutdown waits for shutdown signals and stops the server gracefully
func waitForShutdown(ctx context.Context, server *api.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
		return
	}
	log.Info().Msg("server stopped")
}
