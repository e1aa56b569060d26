package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vector store backends.
const (
	BackendQdrant   = "qdrant"
	BackendPgVector = "pgvector"
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig
	OpenAI      OpenAIConfig
	VectorStore VectorStoreConfig
	Retrieval   RetrievalConfig
	Retry       RetryConfig
	Metrics     MetricsConfig
	Catalog     CatalogConfig

	// AbbreviationsFile optionally replaces the built-in abbreviation table.
	AbbreviationsFile string

	LogLevel  slog.Level
	LogFormat string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        string
	APIPrefix   string
	CORSOrigins []string
}

// OpenAIConfig holds settings for the embedding and chat completion endpoints.
type OpenAIConfig struct {
	BaseURL             string
	APIKey              string
	Model               string
	EmbeddingModel      string
	EmbeddingDimensions int
	Temperature         float32
	MaxTokens           int
}

// VectorStoreConfig selects and addresses the vector index.
type VectorStoreConfig struct {
	Backend      string
	QdrantURL    string
	QdrantAPIKey string
	Collection   string
	PostgresDSN  string
}

// TierConfig is one retrieval pass: how many chunks and the minimum similarity.
type TierConfig struct {
	TopK     int
	MinScore float64
}

// RetrievalConfig holds the tiered retrieval, context budget and scoring parameters.
type RetrievalConfig struct {
	Strict           TierConfig
	Relaxed          TierConfig
	MinStrictResults int
	MaxContextChars  int
	TargetChunkCount int
	IncompleteFactor float64
}

// RetryConfig controls retries and timeouts of external calls.
type RetryConfig struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	CallTimeout  time.Duration
	QueryTimeout time.Duration
}

// MetricsConfig sizes the in-memory metrics collector.
type MetricsConfig struct {
	RecentFailures int
}

// CatalogConfig locates the SQLite catalog used when seeding the knowledge base.
type CatalogConfig struct {
	DBPath string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	p := &parser{}
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("API_PORT", "8000"),
			APIPrefix:   getEnv("API_PREFIX", "/api/v1"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		OpenAI: OpenAIConfig{
			BaseURL:             getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			Model:               getEnv("OPENAI_MODEL", "gpt-4o"),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-large"),
			EmbeddingDimensions: p.int("EMBEDDING_DIMENSIONS", 1536),
			Temperature:         float32(p.float("OPENAI_TEMPERATURE", 0.3)),
			MaxTokens:           p.int("OPENAI_MAX_TOKENS", 1500),
		},
		VectorStore: VectorStoreConfig{
			Backend:      strings.ToLower(getEnv("VECTOR_BACKEND", BackendQdrant)),
			QdrantURL:    getEnv("QDRANT_URL", "http://localhost:6333"),
			QdrantAPIKey: getEnv("QDRANT_API_KEY", ""),
			Collection:   getEnv("VECTOR_COLLECTION", "polish-legal-docs"),
			PostgresDSN:  getEnv("PGVECTOR_DSN", ""),
		},
		Retrieval: RetrievalConfig{
			Strict: TierConfig{
				TopK:     p.int("RAG_TIER1_TOP_K", 5),
				MinScore: p.float("RAG_TIER1_THRESHOLD", 0.65),
			},
			Relaxed: TierConfig{
				TopK:     p.int("RAG_TIER2_TOP_K", 15),
				MinScore: p.float("RAG_TIER2_THRESHOLD", 0.50),
			},
			MinStrictResults: p.int("RAG_MIN_TIER1_RESULTS", 2),
			MaxContextChars:  p.int("RAG_MAX_CONTEXT_CHARS", 6000),
			TargetChunkCount: p.int("RAG_TARGET_CHUNK_COUNT", 5),
			IncompleteFactor: p.float("RAG_INCOMPLETE_FACTOR", 0.8),
		},
		Retry: RetryConfig{
			MaxAttempts:  p.int("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:    p.duration("RETRY_BASE_DELAY", 500*time.Millisecond),
			Multiplier:   p.float("RETRY_MULTIPLIER", 2),
			MaxDelay:     p.duration("RETRY_MAX_DELAY", 10*time.Second),
			CallTimeout:  p.duration("CALL_TIMEOUT", 20*time.Second),
			QueryTimeout: p.duration("QUERY_TIMEOUT", 60*time.Second),
		},
		Metrics: MetricsConfig{
			RecentFailures: p.int("METRICS_RECENT_FAILURES", 10),
		},
		Catalog: CatalogConfig{
			DBPath: getEnv("CATALOG_DB_PATH", "./data/catalog.db"),
		},
		AbbreviationsFile: getEnv("ABBREVIATIONS_FILE", ""),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
	if p.err != nil {
		return nil, p.err
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.OpenAI.EmbeddingDimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be greater than 0")
	}
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be greater than 0")
	}

	switch c.VectorStore.Backend {
	case BackendQdrant:
		if c.VectorStore.QdrantURL == "" {
			return fmt.Errorf("QDRANT_URL is required for the qdrant backend")
		}
	case BackendPgVector:
		if c.VectorStore.PostgresDSN == "" {
			return fmt.Errorf("PGVECTOR_DSN is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendQdrant, BackendPgVector, c.VectorStore.Backend)
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("VECTOR_COLLECTION is required")
	}

	r := c.Retrieval
	for name, tier := range map[string]TierConfig{"RAG_TIER1": r.Strict, "RAG_TIER2": r.Relaxed} {
		if tier.TopK <= 0 {
			return fmt.Errorf("%s_TOP_K must be greater than 0", name)
		}
		if tier.MinScore < 0 || tier.MinScore > 1 {
			return fmt.Errorf("%s_THRESHOLD must be between 0 and 1", name)
		}
	}
	if r.Relaxed.MinScore > r.Strict.MinScore {
		return fmt.Errorf("RAG_TIER2_THRESHOLD must not exceed RAG_TIER1_THRESHOLD")
	}
	if r.Relaxed.TopK < r.Strict.TopK {
		return fmt.Errorf("RAG_TIER2_TOP_K must be at least RAG_TIER1_TOP_K")
	}
	if r.MinStrictResults <= 0 {
		return fmt.Errorf("RAG_MIN_TIER1_RESULTS must be greater than 0")
	}
	if r.MaxContextChars <= 0 {
		return fmt.Errorf("RAG_MAX_CONTEXT_CHARS must be greater than 0")
	}
	if r.TargetChunkCount <= 0 {
		return fmt.Errorf("RAG_TARGET_CHUNK_COUNT must be greater than 0")
	}
	if r.IncompleteFactor < 0 || r.IncompleteFactor > 1 {
		return fmt.Errorf("RAG_INCOMPLETE_FACTOR must be between 0 and 1")
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("RETRY_MULTIPLIER must be at least 1")
	}
	if c.Metrics.RecentFailures <= 0 {
		return fmt.Errorf("METRICS_RECENT_FAILURES must be greater than 0")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// EnsureCatalogDir creates the directory holding the catalog database.
func (c *Config) EnsureCatalogDir() error {
	dataDir := filepath.Dir(c.Catalog.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser reads typed environment variables and keeps the first error.
type parser struct {
	err error
}

func (p *parser) int(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" || p.err != nil {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.err = fmt.Errorf("%s must be a valid integer: %w", key, err)
		return def
	}
	return v
}

func (p *parser) float(key string, def float64) float64 {
	raw := getEnv(key, "")
	if raw == "" || p.err != nil {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.err = fmt.Errorf("%s must be a valid number: %w", key, err)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" || p.err != nil {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.err = fmt.Errorf("%s must be a valid duration: %w", key, err)
		return def
	}
	if v < 0 {
		p.err = fmt.Errorf("%s must not be negative", key)
		return def
	}
	return v
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
