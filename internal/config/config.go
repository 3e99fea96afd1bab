// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	DBPath    string
	LogLevel  string
	LogFormat string

	EmbeddingBackend    string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingBatchSize  int
	QueryCacheSize      int
	OpenAIAPIKey        string
	OpenAIBaseURL       string

	AnthropicAPIKey string
	AnalyzeModel    string

	// KeywordsFile is a YAML dictionary; empty selects the built-in one.
	KeywordsFile string
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// DefaultDBPath returns ~/.subchurn/subchurn.db, or a relative path when the
// home directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "subchurn.db"
	}
	return filepath.Join(home, ".subchurn", "subchurn.db")
}

// Load reads configuration from environment variables and returns a Config struct.
// It automatically loads .env file if it exists.
// API keys are not required here; the commands that need them check.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg := &Config{
		DBPath:    getEnv("SUBCHURN_DB", DefaultDBPath()),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		EmbeddingBackend:    getEnv("EMBEDDING_BACKEND", "hash"),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 384),
		EmbeddingBatchSize:  getEnvAsInt("EMBEDDING_BATCH_SIZE", 256),
		QueryCacheSize:      getEnvAsInt("QUERY_CACHE_SIZE", 256),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnalyzeModel:    getEnv("ANALYZE_MODEL", "claude-sonnet-4-5"),

		KeywordsFile: os.Getenv("KEYWORDS_FILE"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and the backend name. Credentials are checked
// by the commands that use them so unrelated commands still run.
func (c *Config) Validate() error {
	if c.EmbeddingDimensions <= 0 {
		return errors.New("EMBEDDING_DIMENSIONS must be a positive integer")
	}
	if c.EmbeddingBatchSize <= 0 {
		return errors.New("EMBEDDING_BATCH_SIZE must be a positive integer")
	}
	if c.QueryCacheSize < 0 {
		return errors.New("QUERY_CACHE_SIZE must not be negative")
	}
	switch c.EmbeddingBackend {
	case "hash", "openai":
	default:
		return fmt.Errorf("EMBEDDING_BACKEND must be hash or openai, got %q", c.EmbeddingBackend)
	}
	return nil
}
