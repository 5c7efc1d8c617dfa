package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Highlight scorers.
const (
	ScorerKeyword  = "keyword"
	ScorerSemantic = "semantic"
)

// Config holds the citeflow API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Answer    AnswerConfig    `yaml:"answer"`
	Highlight HighlightConfig `yaml:"highlight"`
	Documents DocumentsConfig `yaml:"documents"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
// Streaming responses are exempt from the write timeout.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix  string `yaml:"key_prefix"`
	TreeTTLSec int    `yaml:"tree_ttl_sec"` // 0 = keep forever
}

// EmbeddingConfig holds the embedding provider used by the semantic scorer.
type EmbeddingConfig struct {
	Provider    string      `yaml:"provider"`
	APIKey      string      `yaml:"api_key"`
	BaseURL     string      `yaml:"base_url"`
	Model       string      `yaml:"model"`
	Dimensions  int         `yaml:"dimensions"`
	User        string      `yaml:"user"`
	Instruction string      `yaml:"instruction"` // prepended to every embedded text
	Cache       CacheConfig `yaml:"cache"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// AnswerConfig holds the chat completion provider settings.
type AnswerConfig struct {
	Provider        string  `yaml:"provider"`
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	Model           string  `yaml:"model"`
	MaxContextChars int     `yaml:"max_context_chars"`
	Temperature     float32 `yaml:"temperature"`
}

// HighlightConfig holds highlight extraction settings.
type HighlightConfig struct {
	Scorer            string   `yaml:"scorer"` // keyword (default), semantic
	MaxHighlights     int      `yaml:"max_highlights"`
	MinSentenceLength int      `yaml:"min_sentence_length"`
	ScoreThreshold    *float64 `yaml:"score_threshold"` // nil = scorer default
	// FallbackToKeyword switches to the keyword scorer when the embedding provider is unhealthy at startup.
	FallbackToKeyword bool `yaml:"fallback_to_keyword"`
}

// DocumentsConfig holds document listing and upload settings.
type DocumentsConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
	MaxUploadMB     int `yaml:"max_upload_mb"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "citeflow:"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Answer.Provider == "" {
		c.Answer.Provider = "openai"
	}
	if c.Answer.MaxContextChars <= 0 {
		c.Answer.MaxContextChars = 60000
	}
	if c.Highlight.Scorer == "" {
		c.Highlight.Scorer = ScorerKeyword
	}
	if c.Highlight.MaxHighlights <= 0 {
		c.Highlight.MaxHighlights = 3
	}
	if c.Highlight.MinSentenceLength <= 0 {
		c.Highlight.MinSentenceLength = 20
	}
	if c.Documents.DefaultPageSize <= 0 {
		c.Documents.DefaultPageSize = 20
	}
	if c.Documents.MaxPageSize <= 0 {
		c.Documents.MaxPageSize = 100
	}
	if c.Documents.MaxUploadMB <= 0 {
		c.Documents.MaxUploadMB = 32
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be \"valkey\", \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Answer.Model == "" {
		return fmt.Errorf("answer.model is required")
	}
	switch c.Highlight.Scorer {
	case ScorerKeyword:
	case ScorerSemantic:
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for the semantic scorer")
		}
	default:
		return fmt.Errorf("highlight.scorer must be \"keyword\" or \"semantic\", got %q", c.Highlight.Scorer)
	}
	if c.Storage.TreeTTLSec < 0 {
		return fmt.Errorf("storage.tree_ttl_sec must not be negative")
	}
	if c.Documents.DefaultPageSize > c.Documents.MaxPageSize {
		return fmt.Errorf("documents.default_page_size %d exceeds max_page_size %d",
			c.Documents.DefaultPageSize, c.Documents.MaxPageSize)
	}
	return nil
}

// UsesDatabase reports whether the configured driver needs a network store.
func (c *Config) UsesDatabase() bool {
	return c.Database.Driver != DriverMemory
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
