package pipeline

import (
	"context"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/artifacts"
	"github.com/dvloznov/statement-extractor/internal/chunker"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/rs/zerolog"
)

const (
	// DefaultExtractGroupSize is the maximum number of blocks per extraction call.
	DefaultExtractGroupSize = 25

	// DebugArtifactName receives unparseable responses when no document ID is set.
	DebugArtifactName = "debug_stage2_response.txt"
)

// DebugArtifactNameFor returns the artifact name for a document.
func DebugArtifactNameFor(documentID string) string {
	if documentID == "" {
		return DebugArtifactName
	}
	return "debug_stage2_" + documentID + ".txt"
}

// GroupResult is the outcome of extracting one group of blocks. Err is a
// *TransformError or *ParseError when the whole group was lost; Rejected
// lists records dropped individually.
type GroupResult struct {
	Index        int
	Blocks       int
	Raw          string
	Transactions []domain.Transaction
	Rejected     []*ValidationError
	Err          error
}

// Extractor parses block text into validated transactions.
type Extractor struct {
	Transformer llm.TextTransformer
	GroupSize   int
	Artifacts   artifacts.Sink
	DocumentID  string
	Log         zerolog.Logger
}

// Extract returns the valid transactions of every group, in order.
func (e *Extractor) Extract(ctx context.Context, blockText string) []domain.Transaction {
	return CollectTransactions(e.ExtractDetailed(ctx, blockText))
}

// ExtractDetailed processes each group in order. Failures are contained in
// the group or record they occur in.
func (e *Extractor) ExtractDetailed(ctx context.Context, blockText string) []GroupResult {
	size := e.GroupSize
	if size <= 0 {
		size = DefaultExtractGroupSize
	}

	groups := chunker.GroupRecords(blockText, domain.BlockStart, size)
	e.Log.Info().
		Int("groups", len(groups)).
		Int("blocks", strings.Count(blockText, domain.BlockStart)).
		Int("group_size", size).
		Msg("Extracting transactions")

	results := make([]GroupResult, 0, len(groups))
	for i, group := range groups {
		results = append(results, e.extractGroup(ctx, i, group))
	}
	return results
}

func (e *Extractor) extractGroup(ctx context.Context, index int, group string) GroupResult {
	res := GroupResult{Index: index, Blocks: strings.Count(group, domain.BlockStart)}
	log := e.Log.With().Int("group", index).Logger()

	resp, err := e.Transformer.Invoke(ctx, ExtractPrompt, map[string]string{inputText: group})
	if err != nil {
		res.Err = &TransformError{Stage: StageExtract, Index: index, Err: err}
		log.Error().Err(res.Err).Msg("Extraction call failed, skipping group")
		return res
	}
	res.Raw = resp.Content

	records, err := RecoverJSONArray(resp.Content)
	if err != nil {
		res.Err = &ParseError{Group: index, Preview: logger.Preview(resp.Content, 200), Err: err}
		log.Error().Err(res.Err).Msg("No JSON array in extraction response, skipping group")
		e.archive(ctx, log, resp.Content)
		return res
	}

	for j, rec := range records {
		tx, err := validateRecord(rec)
		if err != nil {
			verr := &ValidationError{Group: index, Record: j, Err: err}
			res.Rejected = append(res.Rejected, verr)
			log.Warn().Err(verr).Msg("Dropping invalid record")
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}

	log.Debug().
		Int("blocks", res.Blocks).
		Int("records", len(records)).
		Int("valid", len(res.Transactions)).
		Msg("Extracted group")
	return res
}

func (e *Extractor) archive(ctx context.Context, log zerolog.Logger, raw string) {
	if e.Artifacts == nil {
		return
	}
	name := DebugArtifactNameFor(e.DocumentID)
	if err := e.Artifacts.Write(ctx, name, raw); err != nil {
		log.Warn().Err(err).Str("artifact", name).Msg("Failed to write debug artifact")
		return
	}
	log.Info().Str("artifact", name).Msg("Saved unparseable response")
}

// CollectTransactions flattens group results in group order.
func CollectTransactions(results []GroupResult) []domain.Transaction {
	var out []domain.Transaction
	for _, r := range results {
		out = append(out, r.Transactions...)
	}
	if out == nil {
		return []domain.Transaction{}
	}
	return out
}
