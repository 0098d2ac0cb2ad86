package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/agents"
	"github.com/snappy-loop/podcasts/internal/config"
	"github.com/snappy-loop/podcasts/internal/database"
	"github.com/snappy-loop/podcasts/internal/kafka"
	"github.com/snappy-loop/podcasts/internal/llm"
	"github.com/snappy-loop/podcasts/internal/memory"
	"github.com/snappy-loop/podcasts/internal/processor"
	"github.com/snappy-loop/podcasts/internal/storage"
	"github.com/snappy-loop/podcasts/internal/webhook"
	"github.com/snappy-loop/podcasts/migrations"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting Podcasts Worker")

	if cfg.DatabaseURL == "" || !cfg.KafkaEnabled() {
		log.Fatal().Msg("Worker requires DATABASE_URL and KAFKA_BROKERS")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := migrations.Run(ctx, db.DB); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	audioStore, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("Failed to initialize audio storage")
	}
	defer audioStore.Close()

	text, speech, err := llm.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("LLM providers not configured")
	}

	// preference memory is per process
	prefs := memory.NewStore(cfg.MemoryMaxEntries, cfg.MemoryTTL)
	orch := processor.NewOrchestrator(
		prefs,
		agents.NewScriptAgent(text, cfg.ScriptTemperature, cfg.ScriptTopP),
		agents.NewSpeechAgent(speech),
		audioStore,
		cfg.AudioFormat,
	)

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicJobs, cfg.KafkaTopicEvents)
	defer producer.Close()

	publishers := processor.Publishers{producer}
	if cfg.WebhookURL != "" {
		publishers = append(publishers, webhook.NewNotifier(cfg.WebhookURL, cfg.WebhookSecret))
	}

	jobProcessor := processor.NewJobProcessor(orch, database.NewGenerationRepository(db), publishers)
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopicJobs, cfg.KafkaConsumerGroup, jobProcessor)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	log.Info().Msg("Worker started, consuming messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")
	cancel()
	<-done

	if err := consumer.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close consumer")
	}
	log.Info().Msg("Worker exited")
}
