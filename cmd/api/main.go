package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"example.com/processmap/internal/api"
	"example.com/processmap/internal/app"
	"example.com/processmap/internal/auth"
	"example.com/processmap/internal/config"
	"example.com/processmap/internal/outbox"
	httptransport "example.com/processmap/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("configure logging")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise service")
	}
	defer rt.Close()

	var dispatcher *outbox.Dispatcher
	if cfg.PublishesEvents() && rt.Pool != nil {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, outbox.WithProducerLogger(logger))
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(rt.Pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithLogger(logger.With().Str("component", "outbox").Logger()))
		go dispatcher.Start(ctx)
	} else {
		logger.Info().Msg("event publishing disabled (needs POSTGRES_URL and KAFKA_BROKERS)")
	}

	handler := api.NewHandler(rt.Service, api.WithLogger(logger))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, cfg.DefaultActor)
	root := httptransport.RequestLogger(logger)(httptransport.CORS(cfg.CORSOrigin)(authMiddleware.Wrap(mux)))
	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), root)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress).Msg("processmap api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}
