package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

var envVars = []string{
	"API_PORT", "API_PREFIX", "CORS_ORIGINS",
	"OPENAI_BASE_URL", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_EMBEDDING_MODEL",
	"EMBEDDING_DIMENSIONS", "OPENAI_TEMPERATURE", "OPENAI_MAX_TOKENS",
	"VECTOR_BACKEND", "QDRANT_URL", "QDRANT_API_KEY", "VECTOR_COLLECTION", "PGVECTOR_DSN",
	"RAG_TIER1_TOP_K", "RAG_TIER1_THRESHOLD", "RAG_TIER2_TOP_K", "RAG_TIER2_THRESHOLD",
	"RAG_MIN_TIER1_RESULTS", "RAG_MAX_CONTEXT_CHARS", "RAG_TARGET_CHUNK_COUNT", "RAG_INCOMPLETE_FACTOR",
	"RETRY_MAX_ATTEMPTS", "RETRY_BASE_DELAY", "RETRY_MULTIPLIER", "RETRY_MAX_DELAY",
	"CALL_TIMEOUT", "QUERY_TIMEOUT", "METRICS_RECENT_FAILURES", "CATALOG_DB_PATH",
	"ABBREVIATIONS_FILE", "LOG_LEVEL", "LOG_FORMAT",
}

func TestLoad(t *testing.T) {
	originalEnv := make(map[string]string)
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
		unsetEnv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	}()

	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name: "defaults with api key",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
			},
			checkConfig: func(cfg *Config) bool {
				r := cfg.Retrieval
				return cfg.Server.Port == "8000" &&
					cfg.Server.APIPrefix == "/api/v1" &&
					cfg.OpenAI.Model == "gpt-4o" &&
					cfg.OpenAI.EmbeddingModel == "text-embedding-3-large" &&
					cfg.OpenAI.EmbeddingDimensions == 1536 &&
					cfg.VectorStore.Backend == BackendQdrant &&
					cfg.VectorStore.Collection == "polish-legal-docs" &&
					r.Strict.TopK == 5 && r.Strict.MinScore == 0.65 &&
					r.Relaxed.TopK == 15 && r.Relaxed.MinScore == 0.50 &&
					r.MinStrictResults == 2 &&
					r.MaxContextChars == 6000 &&
					r.TargetChunkCount == 5 &&
					r.IncompleteFactor == 0.8 &&
					cfg.Retry.MaxAttempts == 3 &&
					cfg.Metrics.RecentFailures == 10 &&
					cfg.LogLevel == slog.LevelInfo &&
					cfg.LogFormat == "text"
			},
		},
		{
			name:     "missing OPENAI_API_KEY",
			setupEnv: func(t *testing.T) {},
			wantErr:  true,
		},
		{
			name: "custom retrieval values",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
				setEnv("RAG_TIER1_THRESHOLD", "0.7")
				setEnv("RAG_TIER2_TOP_K", "20")
				setEnv("RETRY_BASE_DELAY", "250ms")
				setEnv("CORS_ORIGINS", "http://a.test, http://b.test")
				setEnv("LOG_LEVEL", "debug")
				setEnv("LOG_FORMAT", "JSON")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.Retrieval.Strict.MinScore == 0.7 &&
					cfg.Retrieval.Relaxed.TopK == 20 &&
					cfg.Retry.BaseDelay == 250*time.Millisecond &&
					len(cfg.Server.CORSOrigins) == 2 &&
					cfg.Server.CORSOrigins[1] == "http://b.test" &&
					cfg.LogLevel == slog.LevelDebug &&
					cfg.LogFormat == "json"
			},
		},
		{
			name: "invalid integer",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
				setEnv("RAG_TIER1_TOP_K", "five")
			},
			wantErr: true,
		},
		{
			name: "invalid duration",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
				setEnv("CALL_TIMEOUT", "soon")
			},
			wantErr: true,
		},
		{
			name: "threshold out of range",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
				setEnv("RAG_TIER1_THRESHOLD", "1.5")
			},
			wantErr: true,
		},
		{
			name: "relaxed threshold above strict",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
				setEnv("RAG_TIER2_THRESHOLD", "0.9")
			},
			wantErr: true,
		},
		{
			name: "relaxed top k below strict",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
				setEnv("RAG_TIER2_TOP_K", "3")
			},
			wantErr: true,
		},
		{
			name: "zero retry attempts",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
				setEnv("RETRY_MAX_ATTEMPTS", "0")
			},
			wantErr: true,
		},
		{
			name: "pgvector backend requires dsn",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
				setEnv("VECTOR_BACKEND", "pgvector")
			},
			wantErr: true,
		},
		{
			name: "pgvector backend with dsn",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
				setEnv("VECTOR_BACKEND", "pgvector")
				setEnv("PGVECTOR_DSN", "postgres://localhost/legal?sslmode=disable")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.VectorStore.Backend == BackendPgVector
			},
		},
		{
			name: "unknown backend",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
				setEnv("VECTOR_BACKEND", "pinecone")
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			setupEnv: func(t *testing.T) {
				setEnv("OPENAI_API_KEY", "sk-test")
				setEnv("LOG_LEVEL", "verbose")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Change to a temp directory without .env file to avoid loading it
			tmpDir := t.TempDir()
			originalWd, _ := os.Getwd()
			_ = os.Chdir(tmpDir)
			defer func() {
				_ = os.Chdir(originalWd)
			}()

			for _, key := range envVars {
				unsetEnv(key)
			}
			defer func() {
				for _, key := range envVars {
					unsetEnv(key)
				}
			}()

			tt.setupEnv(t)

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if cfg == nil {
				t.Fatal("Load() returned nil config")
			}

			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config validation failed: %+v", cfg)
			}
		})
	}
}

func TestEnsureCatalogDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test", "catalog.db")
	cfg := &Config{Catalog: CatalogConfig{DBPath: dbPath}}

	if err := cfg.EnsureCatalogDir(); err != nil {
		t.Fatalf("EnsureCatalogDir() error = %v", err)
	}

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Errorf("EnsureCatalogDir() should create data directory: %v", err)
	}
}

func TestGetEnv(t *testing.T) {
	originalValue := os.Getenv("TEST_ENV_VAR")
	defer func() {
		if originalValue != "" {
			setEnv("TEST_ENV_VAR", originalValue)
		} else {
			unsetEnv("TEST_ENV_VAR")
		}
	}()

	tests := []struct {
		name         string
		setupEnv     func()
		key          string
		defaultValue string
		want         string
	}{
		{
			name: "env var set",
			setupEnv: func() {
				setEnv("TEST_ENV_VAR", "set-value")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "set-value",
		},
		{
			name: "env var not set",
			setupEnv: func() {
				unsetEnv("TEST_ENV_VAR")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "default",
		},
		{
			name: "empty env var uses default",
			setupEnv: func() {
				setEnv("TEST_ENV_VAR", "")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupEnv()
			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: "", want: 0},
		{raw: "a", want: 1},
		{raw: "a, b ,,c", want: 3},
	}
	for _, tt := range tests {
		if got := splitList(tt.raw); len(got) != tt.want {
			t.Errorf("splitList(%q) = %v, want %d entries", tt.raw, got, tt.want)
		}
	}
}
