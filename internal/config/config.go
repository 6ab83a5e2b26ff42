// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database. Empty means in-memory repositories (development/testing).
	DatabaseURL string `koanf:"database_url"`

	// Redis. Empty means in-memory rate limiting.
	RedisURL string `koanf:"redis_url"`

	// JWT Authentication. The previous secret is only set during rotation.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// Rate limiting (requests per minute per client)
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`

	// Feed tuning
	FeedDefaultLimit int `koanf:"feed_default_limit"`

	// Search tuning
	SearchDefaultLimit int `koanf:"search_default_limit"`

	// CORS. Empty list disables CORS handling entirely.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Profiling exposes /debug/pprof endpoints. Never enabled in production.
	ProfilingEnabled bool `koanf:"profiling_enabled"`

	// Tracing
	TracingEnabled  bool   `koanf:"tracing_enabled"`
	TracingEndpoint string `koanf:"tracing_endpoint"`
}

// Configuration validation errors.
var (
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
	ErrInvalidRateLimit   = errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	ErrInvalidFeedLimit   = errors.New("FEED_DEFAULT_LIMIT must be between 1 and 100")
	ErrInvalidSearchLimit = errors.New("SEARCH_DEFAULT_LIMIT must be between 1 and 100")
)

// Default values for non-secret configuration.
const (
	DefaultPort               = 8080
	DefaultEnv                = "development"
	DefaultRateLimitPerMinute = 120
	DefaultFeedLimit          = 20
	DefaultSearchLimit        = 100
)

// loader resolves one key at a time, env vars over file values over defaults,
// and accumulates parse errors instead of failing on the first one.
type loader struct {
	k    *koanf.Koanf
	errs []error
}

// str returns the first set env var from keys, falling back to the file value
// under fileKey, then to fallback.
func (l *loader) str(keys []string, fileKey, fallback string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	if v := l.k.String(fileKey); v != "" {
		return v
	}
	return fallback
}

// num is str for integers. A set-but-unparsable env var records an error
// wrapping sentinel, or the parse error itself when sentinel is nil. A zero
// file value falls through to the fallback, so 0 cannot be configured via
// YAML.
func (l *loader) num(keys []string, fileKey string, fallback int, sentinel error) int {
	for _, key := range keys {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			if sentinel != nil {
				err = sentinel
			}
			l.errs = append(l.errs, fmt.Errorf("%s must be a valid integer: %w", key, err))
			return fallback
		}
		return i
	}
	if v := l.k.Int(fileKey); v != 0 {
		return v
	}
	return fallback
}

// flag accepts true/1/yes/on and false/0/no/off from the environment; anything
// else keeps the file value.
func (l *loader) flag(key, fileKey string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return l.k.Bool(fileKey)
}

// list returns a comma-separated env list if set, else the YAML list.
func (l *loader) list(key, fileKey string) []string {
	v := os.Getenv(key)
	if v == "" {
		return l.k.Strings(fileKey)
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load reads configuration from environment variables and an optional YAML
// file, env vars taking precedence. It returns the config and every
// validation error found, so boot can report them all at once.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}
	l := &loader{k: k}

	cfg := &Config{
		Port:               l.num([]string{"WHISPR_PORT", "PORT"}, "port", DefaultPort, ErrInvalidPort),
		Env:                l.str([]string{"WHISPR_ENV", "ENV", "GO_ENV"}, "env", DefaultEnv),
		DatabaseURL:        l.str([]string{"DATABASE_URL"}, "database_url", ""),
		RedisURL:           l.str([]string{"REDIS_URL"}, "redis_url", ""),
		JWTSecret:          l.str([]string{"JWT_SECRET"}, "jwt_secret", ""),
		JWTPreviousSecret:  l.str([]string{"JWT_PREVIOUS_SECRET"}, "jwt_previous_secret", ""),
		RateLimitPerMinute: l.num([]string{"RATE_LIMIT_PER_MINUTE"}, "rate_limit_per_minute", DefaultRateLimitPerMinute, nil),
		FeedDefaultLimit:   l.num([]string{"FEED_DEFAULT_LIMIT"}, "feed_default_limit", DefaultFeedLimit, nil),
		SearchDefaultLimit: l.num([]string{"SEARCH_DEFAULT_LIMIT"}, "search_default_limit", DefaultSearchLimit, nil),
		CORSAllowedOrigins: l.list("CORS_ALLOWED_ORIGINS", "cors_allowed_origins"),
		ProfilingEnabled:   l.flag("PROFILING_ENABLED", "profiling_enabled"),
		TracingEnabled:     l.flag("TRACING_ENABLED", "tracing_enabled"),
		TracingEndpoint:    l.str([]string{"TRACING_ENDPOINT"}, "tracing_endpoint", ""),
	}

	return cfg, append(l.errs, cfg.Validate()...)
}

// Validate checks that all required configuration values are present and sane.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}
	if c.FeedDefaultLimit < 1 || c.FeedDefaultLimit > 100 {
		errs = append(errs, ErrInvalidFeedLimit)
	}
	if c.SearchDefaultLimit < 1 || c.SearchDefaultLimit > 100 {
		errs = append(errs, ErrInvalidSearchLimit)
	}
	return errs
}

// LogSummary returns the configuration for boot logging, with every secret
// masked.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  strconv.Itoa(c.Port),
		"env":                   c.Env,
		"database_url":          maskURL(c.DatabaseURL),
		"redis_url":             maskURL(c.RedisURL),
		"jwt_secret":            maskSecret(c.JWTSecret),
		"jwt_previous_secret":   maskSecret(c.JWTPreviousSecret),
		"rate_limit_per_minute": strconv.Itoa(c.RateLimitPerMinute),
		"feed_default_limit":    strconv.Itoa(c.FeedDefaultLimit),
		"search_default_limit":  strconv.Itoa(c.SearchDefaultLimit),
		"cors_allowed_origins":  strings.Join(c.CORSAllowedOrigins, ","),
		"profiling_enabled":     strconv.FormatBool(c.ProfilingEnabled),
		"tracing_enabled":       strconv.FormatBool(c.TracingEnabled),
		"tracing_endpoint":      c.TracingEndpoint,
	}
}

// maskSecret keeps the first 4 characters of long secrets so rotations are
// recognizable in logs. Short secrets are masked entirely.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskURL hides the password in a user:password@host connection URL.
func maskURL(s string) string {
	if s == "" {
		return "<not set>"
	}
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return maskSecret(s)
	}
	creds, hostAndPath, ok := strings.Cut(rest, "@")
	if !ok {
		return s
	}
	user, _, ok := strings.Cut(creds, ":")
	if !ok {
		return s
	}
	return scheme + "://" + user + ":****@" + hostAndPath
}
