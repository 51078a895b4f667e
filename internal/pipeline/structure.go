package pipeline

import (
	"context"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/chunker"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/rs/zerolog"
)

// DefaultStructureChunkSize keeps each structuring call well under the
// model's output limit, since every input line grows into a block.
const DefaultStructureChunkSize = 3000

// accountSep separates the prepended account type line from a chunk.
const accountSep = "\n\n"

// ChunkResult is the outcome of structuring one chunk. When Err is set,
// Output holds the original chunk text. Skipped chunks carry nothing but
// the account type line and are not sent to the transformer.
type ChunkResult struct {
	Index   int
	Input   string
	Output  string
	Err     error
	Skipped bool
}

// Structurer rewrites cleaned text as transaction blocks chunk by chunk.
type Structurer struct {
	Transformer  llm.TextTransformer
	MaxChunkSize int
	Log          zerolog.Logger
}

// Structure returns the block text for cleaned.
func (s *Structurer) Structure(ctx context.Context, cleaned string) string {
	return JoinChunks(s.StructureDetailed(ctx, cleaned))
}

// StructureDetailed structures each chunk in order. A chunk whose call
// fails is passed through untransformed.
func (s *Structurer) StructureDetailed(ctx context.Context, cleaned string) []ChunkResult {
	size := s.MaxChunkSize
	if size <= 0 {
		size = DefaultStructureChunkSize
	}

	_, accountLine, hasAccount := domain.DetectAccountType(cleaned)

	// Later chunks get the account line prepended, so leave room for it.
	splitSize := size
	if hasAccount {
		if reduced := size - chunker.Size(accountLine) - chunker.Size(accountSep); reduced > 0 {
			splitSize = reduced
		}
	}
	chunks := chunker.Split(cleaned, splitSize)

	s.Log.Info().
		Int("chunks", len(chunks)).
		Int("max_chunk_size", size).
		Bool("account_type_found", hasAccount).
		Msg("Structuring statement text")

	results := make([]ChunkResult, 0, len(chunks))
	for i, chunk := range chunks {
		if hasAccount && strings.TrimSpace(chunk) == accountLine {
			results = append(results, ChunkResult{Index: i, Input: chunk, Skipped: true})
			s.Log.Debug().Int("chunk", i).Msg("Skipping chunk with only the account type line")
			continue
		}

		input := chunk
		if i > 0 && hasAccount {
			if _, _, ok := domain.DetectAccountType(chunk); !ok {
				input = accountLine + accountSep + chunk
			}
		}

		res := ChunkResult{Index: i, Input: input}
		resp, err := s.Transformer.Invoke(ctx, StructurePrompt, map[string]string{inputText: input})
		if err != nil {
			res.Err = &TransformError{Stage: StageStructure, Index: i, Err: err}
			res.Output = chunk
			s.Log.Warn().Err(res.Err).Int("chunk", i).Msg("Structuring chunk failed, keeping original text")
		} else {
			res.Output = resp.Content
			s.Log.Debug().
				Int("chunk", i).
				Int("input_chars", chunker.Size(input)).
				Int("blocks", strings.Count(resp.Content, domain.BlockStart)).
				Msg("Structured chunk")
		}
		results = append(results, res)
	}
	return results
}

// JoinChunks concatenates chunk outputs in order, separated by blank lines.
func JoinChunks(results []ChunkResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if out := strings.TrimSpace(r.Output); out != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, "\n\n")
}
