// Package ingest runs a statement document end to end: it records an
// extraction run, reads the document, extracts its transactions and
// persists the ones that pass validation.
package ingest

import (
	"context"
	"fmt"

	infraBQ "github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository is the persistence an ingestion needs.
type Repository interface {
	infraBQ.RunRepository
	infraBQ.TransactionInserter
}

// Ingester executes the ingestion steps in order.
type Ingester struct {
	runs  infraBQ.RunRepository
	steps []Step
	log   zerolog.Logger
}

// NewIngester wires the standard steps:
// start run, fetch, extract text, extract transactions, archive stage
// outputs, persist, mark success.
func NewIngester(repo Repository, storage Fetcher, extractor Extractor, log zerolog.Logger) *Ingester {
	return NewIngesterWithSteps(repo, log,
		&StartRunStep{Runs: repo},
		&FetchStep{Storage: storage},
		&ExtractTextStep{},
		&ExtractTransactionsStep{Pipeline: extractor},
		&ArchiveStageOutputsStep{Runs: repo},
		&PersistStep{Inserter: repo},
		&MarkSuccessStep{Runs: repo},
	)
}

// NewIngesterWithSteps builds an Ingester from explicit steps.
func NewIngesterWithSteps(runs infraBQ.RunRepository, log zerolog.Logger, steps ...Step) *Ingester {
	return &Ingester{runs: runs, steps: steps, log: log}
}

// Ingest processes one document. Once a run has been recorded, any step
// failure marks it FAILED before the error is returned.
func (in *Ingester) Ingest(ctx context.Context, source, provider string) (*State, error) {
	state := &State{
		Source:     source,
		Provider:   provider,
		DocumentID: uuid.NewString(),
	}
	log := in.log.With().Str("document_id", state.DocumentID).Str("source", source).Logger()

	log.Info().Str("provider", provider).Msg("Starting ingestion")
	for i, step := range in.steps {
		if err := step.Execute(ctx, state); err != nil {
			err = fmt.Errorf("ingest step %d failed: %w", i+1, err)
			if state.RunID != "" {
				in.runs.MarkExtractionRunFailed(ctx, state.RunID, err)
			}
			log.Error().Err(err).Str("run_id", state.RunID).Msg("Ingestion failed")
			return state, err
		}
	}

	log.Info().
		Str("run_id", state.RunID).
		Int("inserted", state.Result.Inserted).
		Int("skipped", state.Result.Skipped).
		Msg("Ingestion finished")
	return state, nil
}
