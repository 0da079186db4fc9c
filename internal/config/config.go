// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	DBURL            string        `mapstructure:"DB_URL"`
	HTTPAddr         string        `mapstructure:"HTTP_ADDR"`
	CacheMaxAge      time.Duration `mapstructure:"CACHE_MAX_AGE"`
	GithubAPIURL     string        `mapstructure:"GITHUB_API_URL"`
	GithubMaxRetries int           `mapstructure:"GITHUB_MAX_RETRIES"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	StaticTokensRaw  []string      `mapstructure:"STATIC_TOKENS"`
	RefreshInterval  time.Duration `mapstructure:"REFRESH_INTERVAL"`

	// StaticTokens maps user ids to GitHub tokens, parsed from STATIC_TOKENS.
	StaticTokens map[string]string `mapstructure:"-"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_URL", "")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("CACHE_MAX_AGE", "15m")
	v.SetDefault("GITHUB_API_URL", "")
	v.SetDefault("GITHUB_MAX_RETRIES", 3)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("STATIC_TOKENS", []string{})
	v.SetDefault("REFRESH_INTERVAL", "0s")

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	tokens, err := parseStaticTokens(cfg.StaticTokensRaw)
	if err != nil {
		return nil, err
	}
	cfg.StaticTokens = tokens

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.CacheMaxAge <= 0 {
		return nil, errors.New("CACHE_MAX_AGE must be a positive duration (e.g. 15m)")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("REQUEST_TIMEOUT must be a positive duration (e.g. 60s)")
	}
	if cfg.RefreshInterval < 0 {
		return nil, errors.New("REFRESH_INTERVAL must not be negative (0 disables refreshing)")
	}
	if cfg.GithubMaxRetries < 1 {
		return nil, errors.New("GITHUB_MAX_RETRIES must be at least 1")
	}

	return &cfg, nil
}

// parseStaticTokens parses "user=token" entries. Entries may also be
// comma-separated within a single value.
func parseStaticTokens(entries []string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, entry := range entries {
		for _, pair := range strings.Split(entry, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			user, token, ok := strings.Cut(pair, "=")
			user, token = strings.TrimSpace(user), strings.TrimSpace(token)
			if !ok || user == "" || token == "" {
				return nil, fmt.Errorf("STATIC_TOKENS entry %q must be in user=token format", pair)
			}
			tokens[user] = token
		}
	}
	return tokens, nil
}
