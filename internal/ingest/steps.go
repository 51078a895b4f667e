package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/statement-extractor/internal/domain"
	infraBQ "github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
)

// Step is a single step of document ingestion.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is shared by the steps of one ingestion.
type State struct {
	Source     string
	Provider   string
	DocumentID string
	RunID      string

	Content []byte
	Text    string
	Pages   int

	Run    *pipeline.RunState
	Result infraBQ.PersistResult
}

// Candidates returns the extracted transactions in mapping form.
func (s *State) Candidates() []domain.CandidateTransaction {
	if s.Run == nil {
		return []domain.CandidateTransaction{}
	}
	return domain.Candidates(s.Run.Transactions)
}

// Extractor runs the three-stage pipeline. *pipeline.Pipeline satisfies it.
type Extractor interface {
	RunDocument(ctx context.Context, documentID, raw, provider string) (*pipeline.RunState, error)
}

// StartRunStep records a RUNNING extraction run.
type StartRunStep struct {
	Runs infraBQ.RunRepository
}

func (s *StartRunStep) Execute(ctx context.Context, state *State) error {
	runID, err := s.Runs.StartExtractionRun(ctx, state.DocumentID, state.Source, state.Provider)
	if err != nil {
		return err
	}
	state.RunID = runID
	return nil
}

// FetchStep reads the statement from disk or object storage.
type FetchStep struct {
	Storage Fetcher
}

func (s *FetchStep) Execute(ctx context.Context, state *State) error {
	content, err := ReadSource(ctx, s.Storage, state.Source)
	if err != nil {
		return err
	}
	state.Content = content
	return nil
}

// ExtractTextStep converts the fetched bytes to statement text.
type ExtractTextStep struct{}

func (s *ExtractTextStep) Execute(ctx context.Context, state *State) error {
	text, pages, err := DocumentText(state.Content)
	if err != nil {
		return err
	}
	state.Text, state.Pages = text, pages
	return nil
}

// ExtractTransactionsStep runs the LLM pipeline over the text.
type ExtractTransactionsStep struct {
	Pipeline Extractor
}

func (s *ExtractTransactionsStep) Execute(ctx context.Context, state *State) error {
	run, err := s.Pipeline.RunDocument(ctx, state.DocumentID, state.Text, state.Provider)
	if err != nil {
		return err
	}
	state.Run = run
	return nil
}

// ArchiveStageOutputsStep stores each stage's output against the run.
type ArchiveStageOutputsStep struct {
	Runs infraBQ.RunRepository
}

func (s *ArchiveStageOutputsStep) Execute(ctx context.Context, state *State) error {
	for _, row := range StageOutputs(state) {
		if err := s.Runs.InsertStageOutput(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// StageOutputs builds one archive row per stage from a finished run.
func StageOutputs(state *State) []*infraBQ.StageOutputRow {
	if state.Run == nil {
		return nil
	}
	run := state.Run

	failedChunks := 0
	for _, c := range run.Chunks {
		if c.Err != nil {
			failedChunks++
		}
	}

	var responses []string
	failedGroups, rejected := 0, 0
	for _, g := range run.Groups {
		if g.Err != nil {
			failedGroups++
		}
		rejected += len(g.Rejected)
		if g.Raw != "" {
			responses = append(responses, g.Raw)
		}
	}

	clean := infraBQ.NewStageOutputRow(state.RunID, state.DocumentID, pipeline.StageClean, run.Cleaned)
	clean.Notes = fmt.Sprintf("raw_chars=%d pages=%d", len(run.Raw), state.Pages)

	structure := infraBQ.NewStageOutputRow(state.RunID, state.DocumentID, pipeline.StageStructure, run.Blocks)
	structure.Notes = fmt.Sprintf("chunks=%d failed=%d", len(run.Chunks), failedChunks)

	extract := infraBQ.NewStageOutputRow(state.RunID, state.DocumentID, pipeline.StageExtract, strings.Join(responses, "\n\n"))
	extract.Notes = fmt.Sprintf("groups=%d failed=%d rejected=%d transactions=%d",
		len(run.Groups), failedGroups, rejected, len(run.Transactions))

	return []*infraBQ.StageOutputRow{clean, structure, extract}
}

// PersistStep re-validates the candidates and inserts the valid ones.
type PersistStep struct {
	Inserter infraBQ.TransactionInserter
	Now      func() time.Time
}

func (s *PersistStep) Execute(ctx context.Context, state *State) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	result, err := infraBQ.PersistCandidates(ctx, s.Inserter, state.Candidates(), state.DocumentID, state.RunID, now())
	if err != nil {
		return err
	}
	state.Result = result
	return nil
}

// MarkSuccessStep marks the run SUCCESS with its counts.
type MarkSuccessStep struct {
	Runs infraBQ.RunRepository
}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *State) error {
	return s.Runs.MarkExtractionRunSucceeded(ctx, state.RunID, state.Result)
}
