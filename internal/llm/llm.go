// Package llm wraps hosted language models behind a single text-in,
// text-out capability used by every pipeline stage.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Tier selects a model class. Fast models handle the cleaning and
// structuring stages; default models handle JSON extraction.
type Tier string

const (
	TierFast    Tier = "fast"
	TierDefault Tier = "default"
)

// Prompt is a named template with {placeholder} fields.
type Prompt struct {
	Name     string
	Template string
}

var placeholderRe = regexp.MustCompile(`\{([a-z_][a-z0-9_]*)\}`)

// Render substitutes every placeholder. A placeholder with no matching input
// is an error; unused inputs are ignored.
func (p Prompt) Render(inputs map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(p.Template, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := inputs[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("Render %s: missing inputs %s", p.Name, strings.Join(missing, ", "))
	}
	return out, nil
}

// Response is the transformer output.
type Response struct {
	Content string
	Model   string
}

// TextTransformer renders a prompt with inputs and returns the model's text.
// Implementations may fail for any reason; callers decide how to recover.
type TextTransformer interface {
	Invoke(ctx context.Context, prompt Prompt, inputs map[string]string) (Response, error)
}

// Backend sends a fully rendered prompt to a model.
type Backend interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// ConfigError reports a provider that cannot be used: unknown name or
// missing credentials. It is raised when a transformer is constructed.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("llm provider %q: %s", e.Provider, e.Reason)
}

// Transformer binds a backend to one model.
type Transformer struct {
	backend Backend
	model   string
	log     zerolog.Logger
}

// NewTransformer creates a transformer for model on backend.
func NewTransformer(backend Backend, model string, log zerolog.Logger) *Transformer {
	return &Transformer{backend: backend, model: model, log: log}
}

// Model returns the model name requests are sent to.
func (t *Transformer) Model() string {
	return t.model
}

// Invoke implements TextTransformer.
func (t *Transformer) Invoke(ctx context.Context, prompt Prompt, inputs map[string]string) (Response, error) {
	rendered, err := prompt.Render(inputs)
	if err != nil {
		return Response{}, err
	}

	start := time.Now()
	content, err := t.backend.Complete(ctx, t.model, rendered)
	if err != nil {
		t.log.Debug().
			Err(err).
			Str("prompt", prompt.Name).
			Str("model", t.model).
			Dur("elapsed", time.Since(start)).
			Msg("Model call failed")
		return Response{}, fmt.Errorf("Invoke %s: %w", prompt.Name, err)
	}

	t.log.Debug().
		Str("prompt", prompt.Name).
		Str("model", t.model).
		Int("prompt_chars", len(rendered)).
		Int("response_chars", len(content)).
		Dur("elapsed", time.Since(start)).
		Msg("Model call completed")

	return Response{Content: content, Model: t.model}, nil
}

var _ TextTransformer = (*Transformer)(nil)
