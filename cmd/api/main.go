package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/config"
	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/domain"
	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/logging"
	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/outbox"
	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/persistence/memory"
	httptransport "github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, "signup-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := memory.NewSeededRepository()

	opts := []domain.Option{domain.WithLogger(logger)}

	var (
		queue      *outbox.Queue
		dispatcher *outbox.Dispatcher
		producer   *outbox.KafkaProducer
	)
	if cfg.EventsEnabled() {
		queue = outbox.NewQueue(cfg.OutboxMaxAttempts, outbox.WithDeadLetterLimit(cfg.DeadLetterLimit))
		producer = outbox.NewKafkaProducer(outbox.ProducerConfig{Brokers: cfg.KafkaBrokers})

		var registry outbox.SchemaRegistrar = outbox.NoopRegistry{}
		if cfg.SchemaRegistryURL != "" {
			registry = outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		}
		dispatcher = outbox.NewDispatcher(queue, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger)
		go dispatcher.Start(ctx)

		deadLetters := outbox.NewDeadLetterManager(queue, cfg.DeadLetterMaxReplays, cfg.DeadLetterBaseDelay, logger)
		go deadLetters.Start(ctx, cfg.DeadLetterPollInterval)

		opts = append(opts, domain.WithPublisher(queue))
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Msg("roster events enabled")
	} else {
		logger.Info().Msg("KAFKA_BROKERS not set, roster events disabled")
	}

	service := domain.NewService(repo, opts...)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, newRouter(cfg, service, logger))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress).Msg("signup-api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	cancel()
	if dispatcher != nil {
		dispatcher.Wait()
		// No more signups can arrive; flush what the last poll left behind.
		if err := dispatcher.Drain(shutdownCtx); err != nil {
			logger.Warn().Err(err).Int("pending", queue.Pending()).Msg("outbox not drained before exit")
		}
		if err := producer.Close(); err != nil {
			logger.Error().Err(err).Msg("closing kafka producer")
		}
	}
}
