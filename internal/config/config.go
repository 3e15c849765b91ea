// Package config provides configuration loading and validation for the server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment names. Only EnvDevelopment enables verbose error messages and
// relaxed CORS; EnvProduction is assumed when nothing is set.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultAllowedOrigins are the local web/Flutter dev servers allowed by CORS.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
	"http://127.0.0.1:8080",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:52531",
	"http://localhost:61238",
}

// Config is the server configuration. Values come from the environment and
// may be defaulted from a JSON file.
type Config struct {
	Port           int           `json:"port,omitempty"`
	Environment    string        `json:"environment,omitempty"`
	GeminiAPIKey   string        `json:"gemini_api_key,omitempty"`
	GeminiModel    string        `json:"gemini_model,omitempty"`
	LLMTimeout     time.Duration `json:"llm_timeout,omitempty"`
	DatabaseURL    string        `json:"database_url,omitempty"`
	AllowedOrigins []string      `json:"allowed_origins,omitempty"`
	BodyLimitBytes int64         `json:"body_limit_bytes,omitempty"`
}

// Load reads the server configuration from environment variables.
func Load() (*Config, error) {
	port, err := envInt("PORT", 3000)
	if err != nil {
		return nil, err
	}
	timeout, err := envDuration("LLM_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = os.Getenv("NODE_ENV")
	}
	if environment == "" {
		environment = EnvProduction
	}

	cfg := &Config{
		Port:           port,
		Environment:    environment,
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		LLMTimeout:     timeout,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AllowedOrigins: parseList(os.Getenv("ALLOWED_ORIGINS")),
		BodyLimitBytes: 10 << 20,
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads configuration from a JSON file.
// Durations are given in the file as strings such as "30s".
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

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

	var file struct {
		Config
		LLMTimeout string `json:"llm_timeout,omitempty"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := file.Config
	if file.LLMTimeout != "" {
		cfg.LLMTimeout, err = time.ParseDuration(file.LLMTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: llm_timeout: %w", err)
		}
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// The Gemini key is not required here; the serve command checks it.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535, got %d", c.Port)
	}
	if c.LLMTimeout < 0 {
		return fmt.Errorf("config error: 'llm_timeout' must be non-negative")
	}
	if c.BodyLimitBytes < 0 {
		return fmt.Errorf("config error: 'body_limit_bytes' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values beneath the environment.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Environment == "" {
		result.Environment = defaults.Environment
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.GeminiModel == "" {
		result.GeminiModel = defaults.GeminiModel
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if len(result.AllowedOrigins) == 0 {
		result.AllowedOrigins = defaults.AllowedOrigins
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.LLMTimeout == 0 {
		result.LLMTimeout = defaults.LLMTimeout
	}
	if result.BodyLimitBytes == 0 {
		result.BodyLimitBytes = defaults.BodyLimitBytes
	}

	return result
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, EnvDevelopment)
}

// PersistenceEnabled reports whether a session store is configured.
func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

func envDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return d, nil
}

func parseList(list string) []string {
	var result []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
