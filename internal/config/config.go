// Package config holds the memory store's configuration tree, loaded from a
// YAML file with environment-variable overrides, mirroring the shape the
// storage/query/rank/embedding subsystems expect.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"agentmemory/internal/logging"

	"gopkg.in/yaml.v3"
)

// Config holds all memory store configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Storage   StorageConfig   `yaml:"storage"`
	Query     QueryConfig     `yaml:"query"`
	Rank      RankConfig      `yaml:"rank"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Admin     AdminConfig     `yaml:"admin"`

	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Extraction ExtractionConfig `yaml:"extraction"`

	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "agentmemory",
		Version: "0.1.0",

		Storage: StorageConfig{
			DatabasePath:  filepath.Join(".memory", "memory.db"),
			BusyTimeout:   "5s",
			CacheMemoryMB: 64,
			RequireVecExt: false,
		},

		Query: QueryConfig{
			CacheTTL:             "60s",
			CacheMaxEntries:      512,
			SemanticThreshold:    0.35,
			DefaultLimit:         20,
			MaxLimit:             200,
			SuggestionMinResults: 3,
			SuggestionMaxResults: 10,
		},

		Rank: RankConfig{
			CriticalPriorityThreshold: 0.85,
			PriorityCacheTTL:          "5m",
			RecencyHalfLifeDays:       30,
		},

		RateLimit: RateLimitConfig{
			WritesPerMinute:  120,
			QueriesPerMinute: 600,
		},

		Admin: AdminConfig{
			PermissionMode: "scoped",
		},

		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "SEMANTIC_SIMILARITY",
		},

		Extraction: ExtractionConfig{
			Provider: "heuristic",
			Model:    "",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "memory.log",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults if the
// file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("Loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("Config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("Failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("Config loaded: db=%s embedding_provider=%s", cfg.Storage.DatabasePath, cfg.Embedding.Provider)

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides, matching the
// variables the embedding backends and CLI already document.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("AGENTMEMORY_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if key := os.Getenv("GENAI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
		if c.Embedding.Provider == "" || c.Embedding.Provider == "ollama" {
			c.Embedding.Provider = "genai"
		}
	}
	if endpoint := os.Getenv("OLLAMA_ENDPOINT"); endpoint != "" {
		c.Embedding.OllamaEndpoint = endpoint
	}
	if model := os.Getenv("OLLAMA_EMBEDDING_MODEL"); model != "" {
		c.Embedding.OllamaModel = model
	}
	if key := os.Getenv("AGENTMEMORY_ADMIN_KEY"); key != "" {
		c.Admin.AdminKey = key
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validModes := map[string]bool{"open": true, "scoped": true, "locked": true}
	if !validModes[c.Admin.PermissionMode] {
		return fmt.Errorf("invalid admin permission mode: %s (valid: open, scoped, locked)", c.Admin.PermissionMode)
	}
	if c.Query.MaxLimit < c.Query.DefaultLimit {
		return fmt.Errorf("query.max_limit (%d) must be >= query.default_limit (%d)", c.Query.MaxLimit, c.Query.DefaultLimit)
	}
	if c.Embedding.Provider != "ollama" && c.Embedding.Provider != "genai" {
		return fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'genai')", c.Embedding.Provider)
	}
	return nil
}
