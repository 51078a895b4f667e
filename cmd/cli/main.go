package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/statement-extractor/internal/artifacts"
	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/gcsstore"
	infraBQ "github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/dvloznov/statement-extractor/internal/ingest"
	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "extract":
		runExtract(cfg, log)
	case "ingest":
		runIngest(cfg, log)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Extractor CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  extract   Extract transactions from statements and print them as JSON")
	fmt.Println("  ingest    Extract transactions and store them in BigQuery")
	fmt.Println("  upload    Upload a statement file to GCS")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nSources are local paths (.txt or .pdf) or gs:// URIs.")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

// newPipeline builds the extraction pipeline. store may be nil, in which
// case debug artifacts go to the local directory.
func newPipeline(cfg *config.Config, log zerolog.Logger, store *gcsstore.Store) *pipeline.Pipeline {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	var artifactStorage artifacts.ObjectWriter
	if store != nil {
		artifactStorage = store
	}
	return pipeline.New(llm.NewFactory(cfg.LLM, log), artifacts.FromConfig(cfg.Pipeline, artifactStorage), cfg.Pipeline, log)
}

// openStore connects to GCS only when a source or the artifact location
// needs it.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger, sources []string) *gcsstore.Store {
	needed := cfg.Pipeline.ArtifactBucket != ""
	for _, s := range sources {
		needed = needed || gcsstore.IsURI(s)
	}
	if !needed {
		return nil
	}
	store, err := gcsstore.NewStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	return store
}

func runExtract(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	provider := fs.String("provider", "", "LLM provider (gemini or openai, defaults to LLM_PROVIDER)")
	outDir := fs.String("out", "", "Directory for one <name>.json per statement (default: stdout)")
	timeout := fs.Duration("timeout", 15*time.Minute, "Overall timeout")
	fs.Parse(os.Args[2:])

	sources := fs.Args()
	if len(sources) == 0 {
		log.Fatal().Msg("Usage: cli extract [-provider NAME] [-out DIR] SOURCE...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := openStore(ctx, cfg, log, sources)
	var fetcher ingest.Fetcher
	if store != nil {
		defer store.Close()
		fetcher = store
	}
	p := newPipeline(cfg, log, store)

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create output directory")
		}
	}

	outputs := make([][]byte, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Pipeline.Concurrency)
	for i, source := range sources {
		g.Go(func() error {
			text, err := ingest.LoadText(gctx, fetcher, source)
			if err != nil {
				return fmt.Errorf("%s: %w", source, err)
			}
			candidates := p.Run(gctx, text, *provider)
			log.Info().Str("source", source).Int("transactions", len(candidates)).Msg("Statement extracted")

			data, err := json.MarshalIndent(candidates, "", "  ")
			if err != nil {
				return fmt.Errorf("%s: encoding transactions: %w", source, err)
			}
			if *outDir == "" {
				outputs[i] = data
				return nil
			}
			name := strings.TrimSuffix(filepath.Base(gcsstore.FilenameFromURI(source)), filepath.Ext(source)) + ".json"
			return os.WriteFile(filepath.Join(*outDir, name), append(data, '\n'), 0o644)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	for _, data := range outputs {
		if data != nil {
			fmt.Println(string(data))
		}
	}
}

func runIngest(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	provider := fs.String("provider", "", "LLM provider (gemini or openai, defaults to LLM_PROVIDER)")
	projectID := fs.String("project", cfg.GCP.ProjectID, "GCP project ID (defaults to GCP_PROJECT)")
	dataset := fs.String("dataset", cfg.GCP.Dataset, "BigQuery dataset ID")
	timeout := fs.Duration("timeout", 15*time.Minute, "Overall timeout")
	fs.Parse(os.Args[2:])

	sources := fs.Args()
	if len(sources) == 0 || *projectID == "" {
		log.Fatal().Msg("Usage: cli ingest -project ID [-dataset NAME] [-provider NAME] SOURCE...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, *projectID, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	store := openStore(ctx, cfg, log, sources)
	var fetcher ingest.Fetcher
	if store != nil {
		defer store.Close()
		fetcher = store
	}
	ingester := ingest.NewIngester(repo, fetcher, newPipeline(cfg, log, store), log)

	// Each document is its own run; one failing does not stop the others.
	results := make([]*ingest.State, len(sources))
	errs := make([]error, len(sources))
	var g errgroup.Group
	g.SetLimit(cfg.Pipeline.Concurrency)
	for i, source := range sources {
		g.Go(func() error {
			results[i], errs[i] = ingester.Ingest(ctx, source, *provider)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, source := range sources {
		if errs[i] != nil {
			failed++
			fmt.Printf("  [FAILED] %s: %v\n", source, errs[i])
			continue
		}
		st := results[i]
		fmt.Printf("  [OK]     %s run=%s inserted=%d skipped=%d\n", source, st.RunID, st.Result.Inserted, st.Result.Skipped)
	}
	if failed > 0 {
		log.Fatal().Int("failed", failed).Int("total", len(sources)).Msg("Ingestion failed")
	}
	fmt.Println("Ingestion completed successfully.")
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name (or set GCS_BUCKET)")
	prefix := fs.String("prefix", "statements", "Object name prefix")
	objectName := fs.String("object", "", "GCS object name (defaults to <prefix>/<filename>)")
	filePath := fs.String("file", "", "Path to local statement file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}
	if *objectName == "" {
		*objectName = gcsstore.ObjectName(*prefix, filepath.Base(*filePath))
	}

	ctx := logger.WithContext(context.Background(), log)

	store, err := gcsstore.NewStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	defer store.Close()

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	if err := store.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, gcsstore.URI(*bucketName, *objectName))
}
