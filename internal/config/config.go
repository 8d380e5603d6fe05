// Package config provides configuration management for Chronolex.
// Settings load from environment variables with the CHRONOLEX_ prefix and
// sensible defaults. The legal keyword tables that drive classification
// and filtering can additionally be overridden from a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/chronolex/internal/timeline"
)

// Config holds all settings for the Chronolex service.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Delegate DelegateConfig
	Builder  BuilderConfig
	Security SecurityConfig
	Intake   IntakeConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    // server port (default: 6480)
	Host string // bind address (default: 127.0.0.1)
}

// StorageConfig selects and parameterizes the document/timeline stores.
type StorageConfig struct {
	Engine      string // storage engine: sqlite, postgres (default: sqlite)
	DataPath    string // sqlite data directory (default: ./data)
	PostgresDSN string // postgres connection string (required for engine=postgres)
}

// DelegateConfig contains reasoning-delegate provider settings.
type DelegateConfig struct {
	Enabled        bool   // run agents with a delegate (default: false, heuristics only)
	Provider       string // delegate provider: ollama, openai, anthropic (default: ollama)
	OllamaURL      string // Ollama API URL (default: http://localhost:11434)
	Model          string // model name override (empty uses the provider default)
	EmbeddingModel string // embedding model for similarity search
	OpenAIKey      string // OpenAI API key
	AnthropicKey   string // Anthropic API key
}

// BuilderConfig tunes the timeline builder.
type BuilderConfig struct {
	NumWorkers  int           // concurrent extraction units (default: 4)
	UnitTimeout time.Duration // per-unit timeout (default: 30s)
	DelegateRPS float64       // delegate calls per second (default: 2)
	CacheSize   int           // completed builds kept in the LRU cache (default: 32)

	// KeywordFile points to an optional YAML overlay for the legal
	// keyword tables
	KeywordFile string
}

// SecurityConfig contains authentication settings.
type SecurityConfig struct {
	Mode     string // security mode: development, production (default: development)
	APIToken string // bearer token for the REST API
}

// IntakeConfig configures the document intake watcher.
type IntakeConfig struct {
	Enabled bool   // watch a directory for dropped documents (default: false)
	Dir     string // directory to watch (default: ./intake)
}

// LoadConfig reads configuration from the environment. All variables use
// the CHRONOLEX_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("CHRONOLEX_PORT", 6480),
			Host: getEnv("CHRONOLEX_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			Engine:      getEnv("CHRONOLEX_STORAGE_ENGINE", "sqlite"),
			DataPath:    getEnv("CHRONOLEX_DATA_PATH", "./data"),
			PostgresDSN: getEnv("CHRONOLEX_POSTGRES_DSN", ""),
		},
		Delegate: DelegateConfig{
			Enabled:        getEnvBool("CHRONOLEX_DELEGATE_ENABLED", false),
			Provider:       getEnv("CHRONOLEX_DELEGATE_PROVIDER", "ollama"),
			OllamaURL:      getEnv("CHRONOLEX_OLLAMA_URL", "http://localhost:11434"),
			Model:          getEnv("CHRONOLEX_DELEGATE_MODEL", ""),
			EmbeddingModel: getEnv("CHRONOLEX_EMBEDDING_MODEL", ""),
			OpenAIKey:      getEnv("CHRONOLEX_OPENAI_API_KEY", ""),
			AnthropicKey:   getEnv("CHRONOLEX_ANTHROPIC_API_KEY", ""),
		},
		Builder: BuilderConfig{
			NumWorkers:  getEnvInt("CHRONOLEX_NUM_WORKERS", 4),
			UnitTimeout: getEnvDuration("CHRONOLEX_UNIT_TIMEOUT", 30*time.Second),
			DelegateRPS: getEnvFloat("CHRONOLEX_DELEGATE_RPS", 2),
			CacheSize:   getEnvInt("CHRONOLEX_CACHE_SIZE", 32),
			KeywordFile: getEnv("CHRONOLEX_KEYWORD_FILE", ""),
		},
		Security: SecurityConfig{
			Mode:     getEnv("CHRONOLEX_SECURITY_MODE", "development"),
			APIToken: getEnv("CHRONOLEX_API_TOKEN", ""),
		},
		Intake: IntakeConfig{
			Enabled: getEnvBool("CHRONOLEX_INTAKE_ENABLED", false),
			Dir:     getEnv("CHRONOLEX_INTAKE_DIR", "./intake"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	switch c.Storage.Engine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: postgres engine requires CHRONOLEX_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.Engine)
	}
	if c.Security.Mode == "production" && c.Security.APIToken == "" {
		return fmt.Errorf("config: production mode requires CHRONOLEX_API_TOKEN")
	}
	return nil
}

// LoadKeywordOverrides reads the YAML keyword overlay and installs it into
// the timeline tables. A missing KeywordFile setting is not an error; a
// configured file that fails to load is.
func (c *Config) LoadKeywordOverrides() error {
	if c.Builder.KeywordFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.Builder.KeywordFile)
	if err != nil {
		return fmt.Errorf("config: reading keyword file: %w", err)
	}
	var overrides timeline.KeywordOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("config: parsing keyword file %s: %w", c.Builder.KeywordFile, err)
	}
	timeline.ApplyOverrides(overrides)
	return nil
}

// getEnv retrieves a string environment variable or returns a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a
// default. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable ("30s", "2m")
// or returns a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a
// default. Recognizes true/1/yes and false/0/no, case-insensitive.
func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
		return true
	case "false", "0", "no", "False", "FALSE", "No", "NO":
		return false
	}
	return defaultValue
}
