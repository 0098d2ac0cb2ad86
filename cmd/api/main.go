package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/agents"
	"github.com/snappy-loop/podcasts/internal/auth"
	"github.com/snappy-loop/podcasts/internal/config"
	"github.com/snappy-loop/podcasts/internal/database"
	"github.com/snappy-loop/podcasts/internal/grpcserver"
	"github.com/snappy-loop/podcasts/internal/handlers"
	"github.com/snappy-loop/podcasts/internal/kafka"
	"github.com/snappy-loop/podcasts/internal/llm"
	"github.com/snappy-loop/podcasts/internal/mcpserver"
	"github.com/snappy-loop/podcasts/internal/memory"
	"github.com/snappy-loop/podcasts/internal/processor"
	"github.com/snappy-loop/podcasts/internal/services"
	"github.com/snappy-loop/podcasts/internal/storage"
	"github.com/snappy-loop/podcasts/internal/webhook"
	"github.com/snappy-loop/podcasts/migrations"
	"google.golang.org/grpc"
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

	log.Info().Msg("Starting Podcasts API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	audioStore, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("Failed to initialize audio storage")
	}
	defer audioStore.Close()

	prefs := memory.NewStore(cfg.MemoryMaxEntries, cfg.MemoryTTL)

	text, speech, llmErr := llm.NewFromConfig(ctx, cfg)
	if llmErr != nil {
		log.Warn().Err(llmErr).Msg("LLM providers not configured; generation requests will be refused")
	}

	orch := processor.NewOrchestrator(
		prefs,
		agents.NewScriptAgent(text, cfg.ScriptTemperature, cfg.ScriptTopP),
		agents.NewSpeechAgent(speech),
		audioStore,
		cfg.AudioFormat,
	)

	httpChecks := map[string]handlers.HealthCheck{"storage": audioStore.Ping}
	grpcChecks := map[string]grpcserver.Check{"storage": audioStore.Ping}

	var (
		svcOpts []services.Option
		history processor.GenerationRepository
		events  processor.EventPublisher
	)
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := migrations.Run(ctx, db.DB); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		repo := database.NewGenerationRepository(db)
		history = repo
		svcOpts = append(svcOpts, services.WithHistory(repo))
		httpChecks["database"] = db.Health
		grpcChecks["database"] = db.Health
	} else {
		log.Warn().Msg("DATABASE_URL not set, generation history disabled")
	}

	var publishers processor.Publishers
	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicJobs, cfg.KafkaTopicEvents)
		defer producer.Close()
		publishers = append(publishers, producer)
		svcOpts = append(svcOpts, services.WithQueue(producer))
	}
	if cfg.WebhookURL != "" {
		publishers = append(publishers, webhook.NewNotifier(cfg.WebhookURL, cfg.WebhookSecret))
	}
	if len(publishers) > 0 {
		events = publishers
	}
	if llmErr != nil {
		svcOpts = append(svcOpts, services.WithConfigError(llmErr))
	}

	runner := processor.NewJobProcessor(orch, history, events)
	svc := services.NewPodcastService(runner, prefs, audioStore, cfg.AudioMaxAge, svcOpts...)

	authService := auth.NewService(cfg.APITokenHash)
	r := handlers.NewHandler(svc, httpChecks).Router(authService.Middleware)
	r.Handle("/mcp", mcpserver.AuthMiddleware(authService)(mcpserver.NewServer(svc).Handler())).Methods("POST")

	srv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// synchronous generation holds the response open
		WriteTimeout: 10 * time.Minute,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	grpcSrv := grpc.NewServer()
	healthSrv := grpcserver.NewHealthServer(grpcChecks, 15*time.Second)
	healthSrv.Register(grpcSrv)
	go healthSrv.Run(ctx)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("Failed to listen for gRPC")
	}
	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC health server listening")
		if err := grpcSrv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			log.Error().Err(err).Msg("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API...")
	cancel()
	grpcSrv.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("API exited")
}
