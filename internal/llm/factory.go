package llm

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/rs/zerolog"
)

// Source hands out transformers by provider and tier.
type Source interface {
	New(ctx context.Context, provider string, tier Tier) (TextTransformer, error)
}

// Factory builds transformers from configuration. Backends are created once
// per provider and shared, so a Factory is safe for concurrent use.
type Factory struct {
	cfg        config.LLMConfig
	log        zerolog.Logger
	httpClient *http.Client

	mu       sync.Mutex
	backends map[string]Backend
}

// NewFactory creates a factory for cfg.
func NewFactory(cfg config.LLMConfig, log zerolog.Logger) *Factory {
	return &Factory{
		cfg:        cfg,
		log:        log,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		backends:   make(map[string]Backend),
	}
}

// DefaultProvider returns the provider used when callers pass "".
func (f *Factory) DefaultProvider() string {
	return f.cfg.Provider
}

// New returns a transformer for provider and tier. An empty provider selects
// the configured default. Unknown providers and missing credentials yield a
// *ConfigError.
func (f *Factory) New(ctx context.Context, provider string, tier Tier) (TextTransformer, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = f.cfg.Provider
	}

	models, ok := f.cfg.Models[provider]
	if !ok {
		return nil, &ConfigError{Provider: provider, Reason: "unsupported provider"}
	}
	model := models.Default
	if tier == TierFast {
		model = models.Fast
	}
	if model == "" {
		return nil, &ConfigError{Provider: provider, Reason: "no model configured for tier " + string(tier)}
	}

	backend, err := f.backend(ctx, provider)
	if err != nil {
		return nil, err
	}

	log := f.log.With().Str("provider", provider).Str("tier", string(tier)).Logger()
	return NewTransformer(backend, model, log), nil
}

func (f *Factory) backend(ctx context.Context, provider string) (Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if b, ok := f.backends[provider]; ok {
		return b, nil
	}

	var b Backend
	switch provider {
	case config.ProviderGemini:
		if f.cfg.GeminiAPIKey == "" {
			return nil, &ConfigError{Provider: provider, Reason: "GEMINI_API_KEY is not set"}
		}
		gb, err := NewGeminiBackend(ctx, f.cfg.GeminiAPIKey, f.cfg.Temperature, f.cfg.MaxOutputTokens)
		if err != nil {
			return nil, &ConfigError{Provider: provider, Reason: err.Error()}
		}
		b = gb
	case config.ProviderOpenAI:
		if f.cfg.OpenAIAPIKey == "" {
			return nil, &ConfigError{Provider: provider, Reason: "OPENAI_API_KEY is not set"}
		}
		b = NewOpenAIBackend(f.cfg.OpenAIAPIKey, f.cfg.OpenAIBaseURL, f.cfg.Temperature, f.cfg.MaxOutputTokens, f.httpClient)
	default:
		return nil, &ConfigError{Provider: provider, Reason: "unsupported provider"}
	}

	f.backends[provider] = b
	return b, nil
}

var _ Source = (*Factory)(nil)
