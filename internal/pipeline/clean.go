package pipeline

import (
	"context"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/rs/zerolog"
)

// Cleaner removes boilerplate from raw statement text in a single call.
type Cleaner struct {
	Transformer llm.TextTransformer
	Log         zerolog.Logger
}

// Clean returns the cleaned text, or raw unchanged when the call fails or
// comes back empty.
func (c *Cleaner) Clean(ctx context.Context, raw string) string {
	if strings.TrimSpace(raw) == "" {
		return raw
	}

	resp, err := c.Transformer.Invoke(ctx, CleanPrompt, map[string]string{inputText: raw})
	if err != nil {
		c.Log.Warn().
			Err(&TransformError{Stage: StageClean, Err: err}).
			Msg("Cleaning failed, continuing with raw text")
		return raw
	}

	cleaned := strings.TrimSpace(resp.Content)
	if cleaned == "" {
		c.Log.Warn().Msg("Cleaning returned no text, continuing with raw text")
		return raw
	}

	c.Log.Info().
		Int("raw_chars", len(raw)).
		Int("cleaned_chars", len(cleaned)).
		Msg("Cleaned statement text")
	return cleaned
}
