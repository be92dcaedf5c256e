// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Embedding provider names
const (
	EmbeddingHashing = "hashing"
	EmbeddingGemini  = "gemini"
	EmbeddingOpenAI  = "openai"
	EmbeddingNone    = "none"
)

// LLM provider names
const (
	LLMGemini = "gemini"
	LLMNone   = "none"
)

// Config represents the service configuration that can be loaded from a JSON file.
// All fields are optional; missing values are filled by MergeWithDefaults.
type Config struct {
	// Providers
	EmbeddingProvider string `json:"embedding_provider,omitempty"` // hashing, gemini, openai or none
	EmbeddingModel    string `json:"embedding_model,omitempty"`    // Remote embedding model name
	LLMProvider       string `json:"llm_provider,omitempty"`       // gemini or none
	LLMModel          string `json:"llm_model,omitempty"`          // Overrides the keyword extraction model
	GeminiAPIKey      string `json:"gemini_api_key,omitempty"`     // Gemini API key
	OpenAIAPIKey      string `json:"openai_api_key,omitempty"`     // OpenAI API key
	OpenAIBaseURL     string `json:"openai_base_url,omitempty"`    // Optional OpenAI-compatible endpoint

	// Extraction and mapping
	TopK                   int     `json:"top_k,omitempty"`                    // Ranked keywords kept per job
	MatchThreshold         float64 `json:"match_threshold,omitempty"`          // Similarity for a full match
	PartialThreshold       float64 `json:"partial_threshold,omitempty"`        // Similarity for a partial match
	LLMTimeoutSeconds      int     `json:"llm_timeout_seconds,omitempty"`      // Budget for one LLM call
	MaxOptimizerIterations int     `json:"max_optimizer_iterations,omitempty"` // Optimizer round limit
	TargetScore            float64 `json:"target_score,omitempty"`             // Optimizer stops at or above this score
	MaxRenderAttempts      int     `json:"max_render_attempts,omitempty"`      // Compile attempts before giving up
	LineBudget             int     `json:"line_budget,omitempty"`              // Assembler line limit
	CompileTimeoutSeconds  int     `json:"compile_timeout_seconds,omitempty"`  // pdflatex process timeout
	LaTeXCompiler          string  `json:"latex_compiler,omitempty"`           // Compiler binary

	// Storage
	ArtifactDir string `json:"artifact_dir,omitempty"` // Local artifact root
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL; enables the SQL artifact store
	RedisURL    string `json:"redis_url,omitempty"`    // Redis URL; enables the embedding cache

	// Server and logging
	Port     int    `json:"port,omitempty"`
	LogLevel string `json:"log_level,omitempty"`
	LogJSON  bool   `json:"log_json,omitempty"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		EmbeddingProvider:      EmbeddingHashing,
		LLMProvider:            LLMNone,
		TopK:                   32,
		MatchThreshold:         0.8,
		PartialThreshold:       0.65,
		LLMTimeoutSeconds:      10,
		MaxOptimizerIterations: 5,
		TargetScore:            8.5,
		MaxRenderAttempts:      3,
		LineBudget:             55,
		CompileTimeoutSeconds:  30,
		LaTeXCompiler:          "pdflatex",
		ArtifactDir:            "artifacts",
		Port:                   8080,
		LogLevel:               "info",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load resolves the effective configuration: the optional JSON file, then
// defaults for anything unset, then environment overrides, then validation.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = *loaded
	}
	cfg = cfg.MergeWithDefaults(Default())
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	switch c.EmbeddingProvider {
	case "", EmbeddingHashing, EmbeddingGemini, EmbeddingOpenAI, EmbeddingNone:
	default:
		return fmt.Errorf("config error: unknown embedding_provider %q", c.EmbeddingProvider)
	}
	switch c.LLMProvider {
	case "", LLMGemini, LLMNone:
	default:
		return fmt.Errorf("config error: unknown llm_provider %q", c.LLMProvider)
	}

	// Validate numeric ranges
	if c.PartialThreshold < 0 || c.MatchThreshold > 1 || c.PartialThreshold > c.MatchThreshold {
		return fmt.Errorf("config error: thresholds must satisfy 0 <= partial (%.2f) <= match (%.2f) <= 1",
			c.PartialThreshold, c.MatchThreshold)
	}
	if c.TopK < 0 {
		return fmt.Errorf("config error: 'top_k' must be non-negative")
	}
	if c.MaxOptimizerIterations < 0 {
		return fmt.Errorf("config error: 'max_optimizer_iterations' must be non-negative")
	}
	if c.MaxRenderAttempts < 0 {
		return fmt.Errorf("config error: 'max_render_attempts' must be non-negative")
	}
	if c.LineBudget < 0 {
		return fmt.Errorf("config error: 'line_budget' must be non-negative")
	}
	if c.LLMTimeoutSeconds < 0 || c.CompileTimeoutSeconds < 0 {
		return fmt.Errorf("config error: timeouts must be non-negative")
	}
	if c.TargetScore < 0 || c.TargetScore > 10 {
		return fmt.Errorf("config error: 'target_score' must be within [0, 10]")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.EmbeddingProvider == "" {
		result.EmbeddingProvider = defaults.EmbeddingProvider
	}
	if result.EmbeddingModel == "" {
		result.EmbeddingModel = defaults.EmbeddingModel
	}
	if result.LLMProvider == "" {
		result.LLMProvider = defaults.LLMProvider
	}
	if result.LLMModel == "" {
		result.LLMModel = defaults.LLMModel
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.OpenAIAPIKey == "" {
		result.OpenAIAPIKey = defaults.OpenAIAPIKey
	}
	if result.OpenAIBaseURL == "" {
		result.OpenAIBaseURL = defaults.OpenAIBaseURL
	}
	if result.LaTeXCompiler == "" {
		result.LaTeXCompiler = defaults.LaTeXCompiler
	}
	if result.ArtifactDir == "" {
		result.ArtifactDir = defaults.ArtifactDir
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	// Int fields: use default if zero
	if result.TopK == 0 {
		result.TopK = defaults.TopK
	}
	if result.LLMTimeoutSeconds == 0 {
		result.LLMTimeoutSeconds = defaults.LLMTimeoutSeconds
	}
	if result.MaxOptimizerIterations == 0 {
		result.MaxOptimizerIterations = defaults.MaxOptimizerIterations
	}
	if result.MaxRenderAttempts == 0 {
		result.MaxRenderAttempts = defaults.MaxRenderAttempts
	}
	if result.LineBudget == 0 {
		result.LineBudget = defaults.LineBudget
	}
	if result.CompileTimeoutSeconds == 0 {
		result.CompileTimeoutSeconds = defaults.CompileTimeoutSeconds
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Float fields
	if result.MatchThreshold == 0 {
		result.MatchThreshold = defaults.MatchThreshold
	}
	if result.PartialThreshold == 0 {
		result.PartialThreshold = defaults.PartialThreshold
	}
	if result.TargetScore == 0 {
		result.TargetScore = defaults.TargetScore
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// ApplyEnv overrides fields from environment variables read through getenv.
// Unset variables leave the field untouched; malformed numbers are errors.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	strVars := map[string]*string{
		"EMBEDDING_PROVIDER": &c.EmbeddingProvider,
		"EMBEDDING_MODEL":    &c.EmbeddingModel,
		"LLM_PROVIDER":       &c.LLMProvider,
		"LLM_MODEL":          &c.LLMModel,
		"GEMINI_API_KEY":     &c.GeminiAPIKey,
		"OPENAI_API_KEY":     &c.OpenAIAPIKey,
		"OPENAI_BASE_URL":    &c.OpenAIBaseURL,
		"DATABASE_URL":       &c.DatabaseURL,
		"REDIS_URL":          &c.RedisURL,
		"ARTIFACT_DIR":       &c.ArtifactDir,
		"LOG_LEVEL":          &c.LogLevel,
	}
	for name, field := range strVars {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*field = v
		}
	}
	c.EmbeddingProvider = strings.ToLower(c.EmbeddingProvider)
	c.LLMProvider = strings.ToLower(c.LLMProvider)

	floatVars := map[string]*float64{
		"MAPPING_MATCH_THRESHOLD":   &c.MatchThreshold,
		"MAPPING_PARTIAL_THRESHOLD": &c.PartialThreshold,
	}
	for name, field := range floatVars {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config error: %s: %w", name, err)
		}
		*field = f
	}

	intVars := map[string]*int{
		"MAX_OPTIMIZER_ITERATIONS": &c.MaxOptimizerIterations,
		"MAX_RENDER_ATTEMPTS":      &c.MaxRenderAttempts,
		"LLM_TIMEOUT_SECONDS":      &c.LLMTimeoutSeconds,
		"PORT":                     &c.Port,
	}
	for name, field := range intVars {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s: %w", name, err)
		}
		*field = n
	}
	return nil
}
