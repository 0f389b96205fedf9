package config

import "time"

// StorageConfig configures the SQLite-backed storage engine.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BusyTimeout    string `yaml:"busy_timeout"`    // e.g. "5s"
	CacheMemoryMB  int    `yaml:"cache_memory_mb"` // SQLite page cache budget
	RequireVecExt  bool   `yaml:"require_vec_ext"` // fail init() if sqlite-vec unavailable
}

// QueryConfig configures the query pipeline and its result cache.
type QueryConfig struct {
	CacheTTL             string  `yaml:"cache_ttl"`               // e.g. "60s"
	CacheMaxEntries      int     `yaml:"cache_max_entries"`
	SemanticThreshold    float64 `yaml:"semantic_threshold"`      // min cosine similarity to keep a candidate
	DefaultLimit         int     `yaml:"default_limit"`
	MaxLimit             int     `yaml:"max_limit"`
	SuggestionMinResults int     `yaml:"suggestion_min_results"`
	SuggestionMaxResults int     `yaml:"suggestion_max_results"`
}

// RankConfig configures the composite ranking/feedback signals.
type RankConfig struct {
	CriticalPriorityThreshold float64 `yaml:"critical_priority_threshold"`
	PriorityCacheTTL          string  `yaml:"priority_cache_ttl"`
	RecencyHalfLifeDays       float64 `yaml:"recency_half_life_days"`
}

// RateLimitConfig configures per-operation rate limiting.
type RateLimitConfig struct {
	WritesPerMinute  int `yaml:"writes_per_minute"`
	QueriesPerMinute int `yaml:"queries_per_minute"`
}

// AdminConfig configures administrative/destructive operations.
type AdminConfig struct {
	AdminKey       string `yaml:"admin_key" json:"-"`
	PermissionMode string `yaml:"permission_mode"` // "open", "scoped", "locked"
}

// EmbeddingConfig configures the vector embedding engine.
// Supports Ollama (local) and GenAI (cloud) backends.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider" json:"provider"`

	OllamaEndpoint string `yaml:"ollama_endpoint" json:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model" json:"ollama_model"`

	GenAIAPIKey string `yaml:"genai_api_key" json:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model" json:"genai_model"`

	// TaskType for GenAI embeddings, e.g. SEMANTIC_SIMILARITY, RETRIEVAL_QUERY,
	// RETRIEVAL_DOCUMENT.
	TaskType string `yaml:"task_type" json:"task_type"`
}

// ExtractionConfig holds an entity-extraction provider/model pair (a
// second, usually cheaper, pair than the embedding engine, since
// extraction is a symbol/keyword task rather than a similarity task). The
// entity index does not read it: it extracts symbols locally with
// go-tree-sitter and a word regex.
type ExtractionConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

func (c StorageConfig) GetBusyTimeout() time.Duration {
	d, err := time.ParseDuration(c.BusyTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

func (c QueryConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

func (c RankConfig) GetPriorityCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.PriorityCacheTTL)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}
