package common

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment" validate:"omitempty,oneof=development production"`
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Claude      ClaudeConfig    `toml:"claude"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Retry       RetryConfig     `toml:"retry"`
	Chunking    ChunkingConfig  `toml:"chunking"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	Prompts     PromptsConfig   `toml:"prompts"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"omitempty,oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Output []string `toml:"output"`                                                 // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// ClaudeConfig contains Anthropic Claude API configuration for completions.
// Per-stage models are optional overrides; an empty value falls back to
// Model.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`                              // Anthropic API key (COLLIGO_ANTHROPIC_API_KEY overrides)
	Model       string  `toml:"model"`                                // Default completion model (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens" validate:"omitempty,gt=0"` // Maximum tokens in response (default: 1024)
	Timeout     string  `toml:"timeout"`                              // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`                           // Minimum interval between requests (default: "1s")
	Temperature float32 `toml:"temperature" validate:"gte=0,lte=1"`   // Default completion temperature

	ClassificationModel  string `toml:"classification_model"`   // Model for document classification
	ExtractionModel      string `toml:"extraction_model"`       // Model for document-level metadata extraction
	ChunkExtractionModel string `toml:"chunk_extraction_model"` // Model for chunk-level metadata extraction
	QueryModel           string `toml:"query_model"`            // Model for query understanding
	GenerationModel      string `toml:"generation_model"`       // Model for answer generation
}

// GeminiConfig contains Google Gemini API configuration for embeddings
type GeminiConfig struct {
	APIKey         string `toml:"api_key"`                                   // Google API key (COLLIGO_GOOGLE_API_KEY overrides)
	EmbedModel     string `toml:"embed_model"`                               // Embedding model (default: "gemini-embedding-001")
	EmbedDimension int    `toml:"embed_dimension" validate:"omitempty,gt=0"` // Output dimensionality (default: 768)
	BatchSize      int    `toml:"batch_size" validate:"omitempty,gt=0"`      // Texts per embedding request (default: 32)
}

// RetryConfig defines retry behavior for gateway API calls
type RetryConfig struct {
	MaxRetries        int     `toml:"max_retries" validate:"omitempty,gte=0"`
	InitialBackoff    string  `toml:"initial_backoff"`    // e.g., "1s"
	MaxBackoff        string  `toml:"max_backoff"`        // e.g., "30s"
	BackoffMultiplier float64 `toml:"backoff_multiplier"` // applied per attempt (default: 2.0)
}

// ChunkingConfig controls token-window chunking
type ChunkingConfig struct {
	Size    int `toml:"size" validate:"gt=0"`     // Chunk size in tokens
	Overlap int `toml:"overlap" validate:"gte=0"` // Overlap between consecutive chunks in tokens
}

// RetrievalConfig controls search behavior
type RetrievalConfig struct {
	TopK int `toml:"top_k" validate:"omitempty,gt=0"` // Number of chunks to retrieve (default: 5)
}

// PromptsConfig controls prompt template loading
type PromptsConfig struct {
	Dir string `toml:"dir"` // Directory of prompt templates; empty uses the embedded set
}

// ConfigurationError indicates an invalid configuration value that must be
// corrected before the application can start.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// DefaultConfig returns the configuration defaults applied before any file
// or environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/colligo",
			},
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   1024,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.1,
		},
		Gemini: GeminiConfig{
			EmbedModel:     "gemini-embedding-001",
			EmbedDimension: 768,
			BatchSize:      32,
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			InitialBackoff:    "1s",
			MaxBackoff:        "30s",
			BackoffMultiplier: 2.0,
		},
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 50,
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
	}
}

// LoadFromFile loads configuration with precedence:
// defaults -> file -> environment variables. The path may be empty, in
// which case only defaults and environment apply.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides for secrets.
func applyEnvOverrides(config *Config) {
	if key := os.Getenv("COLLIGO_ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("COLLIGO_GOOGLE_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
}

// Validate checks struct-level constraints and the chunking precondition.
// Overlap must be strictly less than size or every chunk window would
// re-emit the previous chunk's content.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Chunking.Overlap >= c.Chunking.Size {
		return &ConfigurationError{
			Field:   "chunking.overlap",
			Message: fmt.Sprintf("overlap (%d) must be less than chunk size (%d)", c.Chunking.Overlap, c.Chunking.Size),
		}
	}

	return nil
}
