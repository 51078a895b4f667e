package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-extractor/internal/api/handlers"
	"github.com/dvloznov/statement-extractor/internal/api/middleware"
	"github.com/dvloznov/statement-extractor/internal/artifacts"
	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/gcsstore"
	infraBQ "github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/dvloznov/statement-extractor/internal/ingest"
	"github.com/dvloznov/statement-extractor/internal/jobs/inmemory"
	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	var (
		port      = flag.String("port", "8080", "HTTP server port")
		bucket    = flag.String("bucket", cfg.GCP.Bucket, "GCS bucket for uploaded statements (or set GCS_BUCKET)")
		queueSize = flag.Int("queue-size", 100, "Number of jobs that can wait before submissions block")
	)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	// Object storage is optional: without it uploads are not archived and
	// gs:// sources cannot be read.
	var (
		fetcher         ingest.Fetcher
		uploads         handlers.ObjectWriter
		artifactStorage artifacts.ObjectWriter
	)
	store, err := gcsstore.NewStore(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("GCS unavailable - uploads will not be archived")
	} else {
		defer store.Close()
		fetcher, uploads, artifactStorage = store, store, store
	}
	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - uploads will not be archived")
	}

	providers := llm.NewFactory(cfg.LLM, log)
	p := pipeline.New(providers, artifacts.FromConfig(cfg.Pipeline, artifactStorage), cfg.Pipeline, log)

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(*queueSize, jobStore)
	jobQueue.Workers = cfg.Pipeline.Concurrency

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, ingest.NewJobHandler(fetcher, p)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}
	log.Info().Int("workers", jobQueue.Workers).Msg("Job workers started")

	var transactions *handlers.TransactionsHandler
	if cfg.GCP.ProjectID != "" {
		repo, err := infraBQ.NewRepository(ctx, cfg.GCP.ProjectID, cfg.GCP.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		transactions = handlers.NewTransactionsHandler(repo, log)
	} else {
		log.Warn().Msg("GCP_PROJECT not set - /api/transactions is disabled")
	}

	mux := handlers.Routes(
		handlers.NewStatementsHandler(jobQueue, uploads, *bucket, log),
		handlers.NewJobsHandler(jobStore, log),
		transactions,
	)

	handler := middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
		middleware.Auth(os.Getenv("API_TOKEN")),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Str("provider", providers.DefaultProvider()).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// In-flight extractions get the shutdown window to finish.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
