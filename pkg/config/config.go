package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
)

// Config holds the application configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Cache   CacheConfig   `yaml:"cache"`
	Library LibraryConfig `yaml:"library"`
	Batch   BatchConfig   `yaml:"batch"`
	Request RequestConfig `yaml:"request"`
	DB      DBConfig      `yaml:"db"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// LLMConfig holds settings for the vision model provider.
type LLMConfig struct {
	Provider          string  `yaml:"provider"` // "anthropic", "gemini", "openai"
	Model             string  `yaml:"model"`
	Key               string  `yaml:"key"`      // API Key, falls back to the provider's environment variable
	BaseURL           string  `yaml:"base_url"` // Optional endpoint override
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float64 `yaml:"temperature"`
	MaxImageDimension int     `yaml:"max_image_dimension"` // 0 sends images unscaled
	PromptDir         string  `yaml:"prompt_dir"`          // Optional template overrides
}

// CacheConfig holds journey cache settings.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// LibraryConfig holds settings for the saved journey library.
type LibraryConfig struct {
	Dir string `yaml:"dir"`
}

// BatchConfig holds gallery processing settings.
type BatchConfig struct {
	Delay     Duration `yaml:"delay"`
	OutputDir string   `yaml:"output_dir"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path      string   `yaml:"path"`
	Retention Duration `yaml:"retention"` // Ledger rows older than this are pruned, 0 keeps all
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server  LogSettings `yaml:"server"`
	History LogSettings `yaml:"history"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

var defaultModels = map[string]string{
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderGemini:    "gemini-2.5-flash",
	ProviderOpenAI:    "gpt-4o",
}

var keyEnvVars = map[string]string{
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderGemini:    "GEMINI_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// KeyEnvVar returns the environment variable consulted for the provider's API key.
func KeyEnvVar(provider string) string {
	return keyEnvVars[provider]
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          ProviderAnthropic,
			Model:             defaultModels[ProviderAnthropic],
			MaxTokens:         8192,
			Temperature:       0.7,
			MaxImageDimension: 0,
		},
		Cache: CacheConfig{
			Dir: "journeys_cache",
		},
		Library: LibraryConfig{
			Dir: "user_library",
		},
		Batch: BatchConfig{
			Delay:     Duration(2 * time.Second),
			OutputDir: "gallery_journeys",
		},
		Request: RequestConfig{
			Timeout: Duration(300 * time.Second),
		},
		DB: DBConfig{
			Path:      "data/slowlooking.db",
			Retention: Duration(90 * Day),
		},
		Server: ServerConfig{
			Address: "localhost:8080",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "logs/server.log",
				Level: "INFO",
			},
			History: LogSettings{
				Path:  "logs/history.log",
				Level: "INFO",
			},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
// A .env file next to the working directory is loaded first; variables already set in the environment win.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	_ = godotenv.Load()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty values from the environment without saving them back to disk.
func (c *Config) applyEnv() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModels[c.LLM.Provider]
	}
	if c.LLM.Key == "" {
		if env := keyEnvVars[c.LLM.Provider]; env != "" {
			c.LLM.Key = os.Getenv(env)
		}
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, ok := keyEnvVars[c.LLM.Provider]; !ok {
		return fmt.Errorf("unsupported llm provider %q: must be one of anthropic, gemini, openai", c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.MaxImageDimension < 0 {
		return fmt.Errorf("llm.max_image_dimension must not be negative")
	}
	if c.Batch.Delay < 0 {
		return fmt.Errorf("batch.delay must not be negative")
	}
	return nil
}

// RequireKey returns a ConfigurationError when no API key is available for the configured provider.
func (c *Config) RequireKey() error {
	if c.LLM.Key != "" {
		return nil
	}
	return &ConfigurationError{Provider: c.LLM.Provider, EnvVar: keyEnvVars[c.LLM.Provider]}
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Slow Looking Configuration
# ------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# API keys left empty are read from ANTHROPIC_API_KEY, GEMINI_API_KEY or OPENAI_API_KEY.

`)
	data = append(header, data...)

	// Inject comments for enum fields
	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: anthropic, gemini, openai\n${1}provider:"))

	reDim := regexp.MustCompile(`(?m)^(\s+)max_image_dimension:`)
	data = reDim.ReplaceAll(data, []byte("${1}# Longest side in pixels sent to the model, 0 disables scaling\n${1}max_image_dimension:"))

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
