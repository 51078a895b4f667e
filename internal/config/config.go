package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider identifiers accepted by LLM_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds all process-wide configuration. It is loaded once at startup
// and passed explicitly to the components that need it.
type Config struct {
	LLM      LLMConfig
	Pipeline PipelineConfig
	GCP      GCPConfig
	Log      LogConfig
}

// LLMConfig holds provider credentials and model selection.
type LLMConfig struct {
	Provider        string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	Models          map[string]TierModels
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
}

// TierModels names the model used for each capability tier of a provider.
type TierModels struct {
	Fast    string
	Default string
}

// PipelineConfig holds the chunking parameters and debug artifact location.
type PipelineConfig struct {
	StructureChunkSize int
	ExtractGroupSize   int
	ArtifactDir        string
	ArtifactBucket     string
	ArtifactPrefix     string
	Concurrency        int
}

// GCPConfig holds Google Cloud resource names.
type GCPConfig struct {
	ProjectID string
	Dataset   string
	Bucket    string
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then builds the configuration from
// the environment. Variables already set in the environment win over .env.
func Load(dotenvPaths ...string) *Config {
	if len(dotenvPaths) == 0 {
		dotenvPaths = []string{".env"}
	}
	for _, p := range dotenvPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() *Config {
	geminiKey := getEnv("GEMINI_API_KEY", "")
	if geminiKey == "" {
		geminiKey = getEnv("GOOGLE_API_KEY", "")
	}

	return &Config{
		LLM: LLMConfig{
			Provider:      strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
			GeminiAPIKey:  geminiKey,
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Models: map[string]TierModels{
				ProviderGemini: {
					Fast:    getEnv("GEMINI_FAST_MODEL", "gemini-2.5-flash-lite"),
					Default: getEnv("GEMINI_DEFAULT_MODEL", "gemini-2.5-flash"),
				},
				ProviderOpenAI: {
					Fast:    getEnv("OPENAI_FAST_MODEL", "gpt-4o-mini"),
					Default: getEnv("OPENAI_DEFAULT_MODEL", "gpt-4o"),
				},
			},
			Temperature:     getEnvAsFloat32("LLM_TEMPERATURE", 0),
			MaxOutputTokens: int32(getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 4096)),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
		},
		Pipeline: PipelineConfig{
			StructureChunkSize: getEnvAsInt("STAGE1_CHUNK_SIZE", 3000),
			ExtractGroupSize:   getEnvAsInt("STAGE2_GROUP_SIZE", 25),
			ArtifactDir:        getEnv("DEBUG_ARTIFACT_DIR", "."),
			ArtifactBucket:     getEnv("DEBUG_ARTIFACT_BUCKET", ""),
			ArtifactPrefix:     getEnv("DEBUG_ARTIFACT_PREFIX", "debug"),
			Concurrency:        getEnvAsInt("PIPELINE_CONCURRENCY", 4),
		},
		GCP: GCPConfig{
			ProjectID: getEnv("GCP_PROJECT", ""),
			Dataset:   getEnv("BQ_DATASET", "finance"),
			Bucket:    getEnv("GCS_BUCKET", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}
}

// Validate checks values that would otherwise fail deep inside a run.
// Missing provider credentials are not checked here; they are reported when
// a transformer for that provider is constructed.
func (c *Config) Validate() error {
	var errs []error
	if c.Pipeline.StructureChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("STAGE1_CHUNK_SIZE must be positive, got %d", c.Pipeline.StructureChunkSize))
	}
	if c.Pipeline.ExtractGroupSize <= 0 {
		errs = append(errs, fmt.Errorf("STAGE2_GROUP_SIZE must be positive, got %d", c.Pipeline.ExtractGroupSize))
	}
	if c.Pipeline.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("PIPELINE_CONCURRENCY must be positive, got %d", c.Pipeline.Concurrency))
	}
	if c.LLM.MaxOutputTokens <= 0 {
		errs = append(errs, fmt.Errorf("LLM_MAX_OUTPUT_TOKENS must be positive, got %d", c.LLM.MaxOutputTokens))
	}
	if _, ok := c.LLM.Models[c.LLM.Provider]; !ok {
		errs = append(errs, fmt.Errorf("LLM_PROVIDER %q is not supported", c.LLM.Provider))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(strings.TrimSpace(value), 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return duration
		}
	}
	return defaultValue
}
