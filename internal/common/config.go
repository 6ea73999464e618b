package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ternarybob/vestigo/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Pinecone    PineconeConfig  `toml:"pinecone"`
	Landmarks   LandmarksConfig `toml:"landmarks"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Chat        ChatConfig      `toml:"chat"`
	Ingest      IngestConfig    `toml:"ingest"`
	Audit       AuditConfig     `toml:"audit"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// PineconeConfig contains the hosted vector index connection settings
type PineconeConfig struct {
	APIKey         string        `toml:"api_key"`                          // Pinecone API key (env/KV override preferred)
	IndexHost      string        `toml:"index_host" validate:"required"`   // Index data-plane host URL
	Namespace      string        `toml:"namespace"`                        // Index namespace ("" = default)
	Dimension      int           `toml:"dimension" validate:"gt=0"`        // Index dimension (default: 1536)
	RequestTimeout time.Duration `toml:"request_timeout"`                  // HTTP request timeout
	UpsertBatch    int           `toml:"upsert_batch" validate:"lte=100"`  // Records per upsert call (provider ceiling: 100)
	MaxRetries     int           `toml:"max_retries" validate:"lte=10"`    // Attempts per transient-failure batch
	ListPageSize   int           `toml:"list_page_size" validate:"gt=0"`   // IDs per list page
}

// LandmarksConfig contains the NYC landmark reporting API client settings
type LandmarksConfig struct {
	BaseURL        string        `toml:"base_url" validate:"required"` // Open data API base URL
	AppToken       string        `toml:"app_token"`                    // Optional app token for higher rate limits
	RateLimit      time.Duration `toml:"rate_limit"`                   // Minimum time between API requests
	RequestTimeout time.Duration `toml:"request_timeout"`              // HTTP request timeout
	CacheTTL       time.Duration `toml:"cache_ttl"`                    // Badger cache TTL for landmark payloads
	MaxRetries     int           `toml:"max_retries"`                  // Bounded retry for transient failures
}

// GeminiConfig contains Google Gemini API configuration for chat and embeddings
type GeminiConfig struct {
	APIKey             string  `toml:"api_key"`             // Google Gemini API key
	Model              string  `toml:"model"`               // Chat model (default: "gemini-2.5-flash")
	EmbeddingModel     string  `toml:"embedding_model"`     // Embedding model (default: "gemini-embedding-001")
	EmbeddingDimension int     `toml:"embedding_dimension"` // Output dimensionality, must match the index (default: 1536)
	Timeout            string  `toml:"timeout"`             // Operation timeout as duration string (default: "5m")
	RateLimit          string  `toml:"rate_limit"`          // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature        float32 `toml:"temperature"`         // Chat completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration for chat
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Chat model (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"` // "gemini" or "claude"
}

// ChatConfig controls conversation memory and retrieval
type ChatConfig struct {
	ConversationTTL time.Duration `toml:"conversation_ttl"` // Idle conversations expire after this (default: 30m)
	MaxHistory      int           `toml:"max_history"`      // Turns kept per conversation (default: 20)
	TopK            int           `toml:"top_k"`            // Retrieved chunks per question (default: 5)
}

// IngestConfig controls chunking and source fetching
type IngestConfig struct {
	ChunkSize      int           `toml:"chunk_size" validate:"gt=0"` // Target characters per chunk (default: 1500)
	ChunkOverlap   int           `toml:"chunk_overlap"`              // Overlap characters between chunks (default: 200)
	UserAgent      string        `toml:"user_agent"`                 // HTTP user agent for Wikipedia fetches
	RequestTimeout time.Duration `toml:"request_timeout"`            // HTTP request timeout
	RequestDelay   time.Duration `toml:"request_delay"`              // Minimum delay between fetches to same host
}

// AuditConfig controls scheduled index scans
type AuditConfig struct {
	Enabled         bool    `toml:"enabled"`          // Run background scans on a schedule
	Schedule        string  `toml:"schedule"`         // Cron schedule (default: hourly)
	ScanLimit       int     `toml:"scan_limit"`       // Max records per scheduled scan
	PassThreshold   float64 `toml:"pass_threshold"`   // Pass-rate needed for a clean exit (default: 0.95)
	CheckEmbeddings bool    `toml:"check_embeddings"` // Fetch values and run the embedding check during scans
	HistoryLimit    int     `toml:"history_limit"`    // Audit runs retained in Badger
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in vestigo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Pinecone: PineconeConfig{
			APIKey:         "", // User must provide API key (VESTIGO_PINECONE_API_KEY or config)
			IndexHost:      "https://landmarks-index.svc.pinecone.io",
			Namespace:      "",
			Dimension:      1536,
			RequestTimeout: 30 * time.Second,
			UpsertBatch:    100, // Provider ceiling per network call
			MaxRetries:     3,
			ListPageSize:   100,
		},
		Landmarks: LandmarksConfig{
			BaseURL:        "https://data.cityofnewyork.us/resource/buis-pvji.json",
			RateLimit:      1 * time.Second,
			RequestTimeout: 30 * time.Second,
			CacheTTL:       24 * time.Hour,
			MaxRetries:     3,
		},
		Gemini: GeminiConfig{
			APIKey:             "",
			Model:              "gemini-2.5-flash",
			EmbeddingModel:     "gemini-embedding-001",
			EmbeddingDimension: 1536, // Must match the index dimension
			Timeout:            "5m",
			RateLimit:          "4s", // 15 RPM free tier
			Temperature:        0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Chat: ChatConfig{
			ConversationTTL: 30 * time.Minute,
			MaxHistory:      20,
			TopK:            5,
		},
		Ingest: IngestConfig{
			ChunkSize:      1500,
			ChunkOverlap:   200,
			UserAgent:      "vestigo/1.0 (landmark data ingestion)",
			RequestTimeout: 30 * time.Second,
			RequestDelay:   1 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:         false, // Disabled by default - user must explicitly opt-in
			Schedule:        "0 0 * * * *",
			ScanLimit:       1000,
			PassThreshold:   0.95,
			CheckEmbeddings: false,
			HistoryLimit:    100,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier files, environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints and the audit cron expression.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Audit.Enabled {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(c.Audit.Schedule); err != nil {
			return fmt.Errorf("invalid audit schedule %q: %w", c.Audit.Schedule, err)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VESTIGO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("VESTIGO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("VESTIGO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("VESTIGO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("VESTIGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Vector index configuration
	if key := os.Getenv("VESTIGO_PINECONE_API_KEY"); key != "" {
		config.Pinecone.APIKey = key
	}
	if host := os.Getenv("VESTIGO_PINECONE_INDEX_HOST"); host != "" {
		config.Pinecone.IndexHost = host
	}
	if ns := os.Getenv("VESTIGO_PINECONE_NAMESPACE"); ns != "" {
		config.Pinecone.Namespace = ns
	}

	// Landmark API configuration
	if url := os.Getenv("VESTIGO_LANDMARKS_BASE_URL"); url != "" {
		config.Landmarks.BaseURL = url
	}
	if token := os.Getenv("VESTIGO_LANDMARKS_APP_TOKEN"); token != "" {
		config.Landmarks.AppToken = token
	}

	// LLM provider configuration
	if key := os.Getenv("VESTIGO_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("VESTIGO_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if provider := os.Getenv("VESTIGO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}

// ApplyFlagOverrides applies command-line flag values over the loaded config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority
// Resolution order: environment variables → KV store → config fallback → error
// This ensures VESTIGO_* environment variables always take precedence
func ResolveAPIKey(kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"VESTIGO_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"claude_api_key":    {"VESTIGO_CLAUDE_API_KEY"},
		"anthropic_api_key": {"VESTIGO_CLAUDE_API_KEY"},
		"pinecone_api_key":  {"VESTIGO_PINECONE_API_KEY", "PINECONE_API_KEY"},
	}

	// For Claude, also check the standard ANTHROPIC_API_KEY env var
	if name == "anthropic_api_key" || name == "claude_api_key" {
		if envValue := os.Getenv("ANTHROPIC_API_KEY"); envValue != "" {
			return envValue, nil
		}
	}

	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// IsProduction reports whether the environment is configured as production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
