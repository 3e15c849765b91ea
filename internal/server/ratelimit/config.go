package ratelimit

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one endpoint. Burst defaults to Limit when zero.
type Rule struct {
	Method string
	Path   string
	Limit  int
	Window time.Duration
	Burst  int
}

func (r *Rule) capacity() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	Rules           []Rule
}

// DefaultConfig returns the built-in limits without reading the environment.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    300,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
		Rules:           DefaultRules(30, 5),
	}
}

// DefaultRules returns the per-endpoint limits. Analysis calls a paid model
// API and gets the tightest bucket.
func DefaultRules(analyzeLimit, analyzeBurst int) []Rule {
	return []Rule{
		{Method: http.MethodPost, Path: "/api/analyze-response", Limit: analyzeLimit, Window: time.Minute, Burst: analyzeBurst},
		{Method: http.MethodPost, Path: "/api/save-result", Limit: 60, Window: time.Minute, Burst: 10},
		{Method: http.MethodGet, Path: "/api/history", Limit: 120, Window: time.Minute, Burst: 20},

		// Probes and scrapes are never limited.
		{Method: http.MethodGet, Path: "/api/health"},
		{Method: http.MethodGet, Path: "/metrics"},
		{Method: http.MethodGet, Path: "/"},
	}
}

// LoadConfig reads RATE_LIMIT_* variables over DefaultConfig.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	cfg.Enabled = getEnvBool("RATE_LIMIT_ENABLED", true)
	if !cfg.Enabled {
		return cfg
	}

	cfg.DefaultLimit = getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.CleanupInterval = getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.Whitelist = parseIPList(os.Getenv("RATE_LIMIT_WHITELIST"))
	cfg.Blacklist = parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST"))
	cfg.Rules = DefaultRules(
		getEnvInt("RATE_LIMIT_ANALYZE_LIMIT", 30),
		getEnvInt("RATE_LIMIT_ANALYZE_BURST", 5),
	)
	return cfg
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
