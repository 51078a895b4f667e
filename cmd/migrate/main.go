package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/statement-extractor/internal/config"
	infraBQ "github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/dvloznov/statement-extractor/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	projectID := flag.String("project", cfg.GCP.ProjectID, "GCP project ID (defaults to GCP_PROJECT)")
	datasetID := flag.String("dataset", cfg.GCP.Dataset, "BigQuery dataset ID")
	appliedBy := flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	dryRun := flag.Bool("dry-run", false, "List pending migrations without applying them")
	flag.Parse()

	if *projectID == "" {
		log.Fatal().Msg("Error: -project is required (or set GCP_PROJECT)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	if *dryRun {
		pending, err := repo.PendingMigrations(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list pending migrations")
		}
		for _, m := range pending {
			fmt.Printf("  [PENDING] %s\n", m.Filename)
		}
		fmt.Printf("%d pending migration(s)\n", len(pending))
		return
	}

	applied, err := repo.Migrate(ctx, *appliedBy)
	for _, m := range applied {
		fmt.Printf("  [OK]   %s\n", m.Filename)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if len(applied) == 0 {
		fmt.Println("No new migrations to apply. Dataset is up to date.")
	} else {
		fmt.Printf("Successfully applied %d migration(s)\n", len(applied))
	}
}
