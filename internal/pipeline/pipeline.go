// Package pipeline turns raw statement text into validated transactions in
// three stages: cleaning, structuring into blocks, and JSON extraction.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-extractor/internal/artifacts"
	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RunState carries each stage's output to the next.
type RunState struct {
	DocumentID string
	Provider   string

	Raw     string
	Cleaned string
	Blocks  string

	Chunks       []ChunkResult
	Groups       []GroupResult
	Transactions []domain.Transaction
}

// Step is one stage of a run.
type Step interface {
	Execute(ctx context.Context, state *RunState) error
}

// CleanStep runs the Cleaner over state.Raw.
type CleanStep struct {
	Cleaner *Cleaner
}

func (s *CleanStep) Execute(ctx context.Context, state *RunState) error {
	state.Cleaned = s.Cleaner.Clean(ctx, state.Raw)
	return nil
}

// StructureStep runs the Structurer over state.Cleaned.
type StructureStep struct {
	Structurer *Structurer
}

func (s *StructureStep) Execute(ctx context.Context, state *RunState) error {
	state.Chunks = s.Structurer.StructureDetailed(ctx, state.Cleaned)
	state.Blocks = JoinChunks(state.Chunks)
	return nil
}

// ExtractStep runs the Extractor over state.Blocks.
type ExtractStep struct {
	Extractor *Extractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *RunState) error {
	state.Groups = s.Extractor.ExtractDetailed(ctx, state.Blocks)
	state.Transactions = CollectTransactions(state.Groups)
	return nil
}

// Pipeline runs the three stages for one document per call. It holds no
// per-run state and may be shared between goroutines.
type Pipeline struct {
	Providers llm.Source
	Artifacts artifacts.Sink
	Config    config.PipelineConfig
	Log       zerolog.Logger
}

// New creates a pipeline.
func New(providers llm.Source, sink artifacts.Sink, cfg config.PipelineConfig, log zerolog.Logger) *Pipeline {
	if sink == nil {
		sink = artifacts.Nop{}
	}
	return &Pipeline{Providers: providers, Artifacts: sink, Config: cfg, Log: log}
}

// Run extracts candidate transactions from raw text using provider ("" for
// the configured default). It never fails: any error, including a missing
// provider credential, yields an empty list.
func (p *Pipeline) Run(ctx context.Context, raw, provider string) []domain.CandidateTransaction {
	state, err := p.RunDetailed(ctx, raw, provider)
	if err != nil {
		p.Log.Error().Err(err).Str("provider", provider).Msg("Pipeline run failed, returning no transactions")
		return []domain.CandidateTransaction{}
	}
	return domain.Candidates(state.Transactions)
}

// RunDetailed runs every stage under a fresh document ID and returns the
// full state. The error is set when the provider cannot be constructed or a
// stage panics.
func (p *Pipeline) RunDetailed(ctx context.Context, raw, provider string) (*RunState, error) {
	return p.RunDocument(ctx, uuid.NewString(), raw, provider)
}

// RunDocument is RunDetailed for a caller that already owns the document ID.
func (p *Pipeline) RunDocument(ctx context.Context, documentID, raw, provider string) (state *RunState, err error) {
	state = &RunState{DocumentID: documentID, Provider: provider, Raw: raw}
	log := p.Log.With().Str("document_id", state.DocumentID).Logger()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("RunDocument: panic: %v", r)
		}
	}()

	steps, err := p.steps(ctx, state, log)
	if err != nil {
		return state, err
	}

	log.Info().Str("provider", provider).Int("raw_chars", len(raw)).Msg("Starting extraction")
	for i, step := range steps {
		if err := step.Execute(ctx, state); err != nil {
			return state, fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	log.Info().Int("transactions", len(state.Transactions)).Msg("Extraction finished")

	return state, nil
}

func (p *Pipeline) steps(ctx context.Context, state *RunState, log zerolog.Logger) ([]Step, error) {
	if p.Providers == nil {
		return nil, errors.New("pipeline: no transformer source configured")
	}
	fast, err := p.Providers.New(ctx, state.Provider, llm.TierFast)
	if err != nil {
		return nil, err
	}
	def, err := p.Providers.New(ctx, state.Provider, llm.TierDefault)
	if err != nil {
		return nil, err
	}

	return []Step{
		&CleanStep{Cleaner: &Cleaner{
			Transformer: fast,
			Log:         log.With().Str("stage", StageClean).Logger(),
		}},
		&StructureStep{Structurer: &Structurer{
			Transformer:  fast,
			MaxChunkSize: p.Config.StructureChunkSize,
			Log:          log.With().Str("stage", StageStructure).Logger(),
		}},
		&ExtractStep{Extractor: &Extractor{
			Transformer: def,
			GroupSize:   p.Config.ExtractGroupSize,
			Artifacts:   p.Artifacts,
			DocumentID:  state.DocumentID,
			Log:         log.With().Str("stage", StageExtract).Logger(),
		}},
	}, nil
}
