package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
	LogLevel          string `json:"log_level" yaml:"log_level"`
}

type Stocks struct {
	APIKey                string `json:"api_key" yaml:"api_key"`
	BaseURL               string `json:"base_url" yaml:"base_url"`
	Interval              string `json:"interval" yaml:"interval"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	CacheMaxItems         int    `json:"cache_max_items" yaml:"cache_max_items"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	Burst                 int    `json:"burst" yaml:"burst"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec"`
}

type Feed struct {
	Enabled           bool `json:"enabled" yaml:"enabled"`
	UpdateIntervalSec int  `json:"update_interval_sec" yaml:"update_interval_sec"`
	MaxConcurrency    int  `json:"max_concurrency" yaml:"max_concurrency"`
}

type Config struct {
	Server Server `json:"server" yaml:"server"`
	Stocks Stocks `json:"stocks" yaml:"stocks"`
	Feed   Feed   `json:"feed" yaml:"feed"`

	// guards Stocks.APIKey, which may be rotated while lookups run
	mu sync.RWMutex
}

func Default() *Config {
	return &Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10, LogLevel: "info"},
		Stocks: Stocks{
			BaseURL:              "https://www.alphavantage.co/query",
			Interval:             "15min",
			CacheTTLSeconds:      300,
			CacheMaxItems:        10000,
			MaxRequestsPerMinute: 5,
			Burst:                1,
		},
		Feed: Feed{
			Enabled:           true,
			UpdateIntervalSec: 60,
			MaxConcurrency:    2,
		},
	}
}

// Load reads the config file at path, JSON unless it ends in .yaml or .yml.
// If path is empty or the file does not exist, it returns defaults.
// Environment variables override select fields for secrecy.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := unmarshal(path, b, cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func unmarshal(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %q (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.RequestTimeoutSec <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Stocks.BaseURL == "" {
		return fmt.Errorf("stocks base url cannot be empty")
	}
	if c.Stocks.Interval == "" {
		return fmt.Errorf("stocks interval cannot be empty")
	}
	if c.Stocks.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}
	if c.Stocks.CacheMaxItems < 0 {
		return fmt.Errorf("cache max items cannot be negative")
	}
	if c.Stocks.MaxRequestsPerMinute < 0 {
		return fmt.Errorf("max requests per minute cannot be negative")
	}
	if c.Stocks.MinRequestIntervalSec < 0 {
		return fmt.Errorf("min request interval cannot be negative")
	}
	if c.Feed.Enabled {
		if c.Feed.UpdateIntervalSec <= 0 {
			return fmt.Errorf("feed update interval must be greater than 0")
		}
		if c.Feed.MaxConcurrency <= 0 {
			return fmt.Errorf("feed max concurrency must be greater than 0")
		}
	}
	return nil
}

// Lookup returns a setting by its dotted name, e.g. "stocks.api_key".
// The bool reports whether the setting is known and non-empty.
func (c *Config) Lookup(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var v string
	switch key {
	case "stocks.api_key":
		v = c.Stocks.APIKey
	case "stocks.base_url":
		v = c.Stocks.BaseURL
	case "stocks.interval":
		v = c.Stocks.Interval
	case "server.log_level":
		v = c.Server.LogLevel
	default:
		return "", false
	}
	return v, v != ""
}

// APIKey reads the current stocks API key. It is re-read on every call.
func (c *Config) APIKey() string {
	v, _ := c.Lookup("stocks.api_key")
	return v
}

// SetAPIKey replaces the stocks API key for subsequent lookups.
func (c *Config) SetAPIKey(key string) {
	c.mu.Lock()
	c.Stocks.APIKey = key
	c.mu.Unlock()
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	envInt("REQUEST_TIMEOUT_SEC", 1, &cfg.Server.RequestTimeoutSec)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}

	if v := os.Getenv("STOCKS_API_KEY"); v != "" {
		cfg.Stocks.APIKey = v
	}
	if v := os.Getenv("STOCKS_BASE_URL"); v != "" {
		cfg.Stocks.BaseURL = v
	}
	if v := os.Getenv("STOCKS_INTERVAL"); v != "" {
		cfg.Stocks.Interval = v
	}
	envInt("STOCKS_CACHE_TTL_SEC", 0, &cfg.Stocks.CacheTTLSeconds)
	envInt("STOCKS_CACHE_MAX_ITEMS", 1, &cfg.Stocks.CacheMaxItems)
	envInt("STOCKS_MAX_RPM", 0, &cfg.Stocks.MaxRequestsPerMinute)
	envInt("STOCKS_BURST", 1, &cfg.Stocks.Burst)
	envInt("STOCKS_MIN_INTERVAL_SEC", 0, &cfg.Stocks.MinRequestIntervalSec)

	envBool("FEED_ENABLED", &cfg.Feed.Enabled)
	envInt("FEED_INTERVAL_SEC", 1, &cfg.Feed.UpdateIntervalSec)
	envInt("FEED_MAX_CONCURRENCY", 1, &cfg.Feed.MaxConcurrency)
}

// envInt sets *dst from the named variable when it parses to at least min.
func envInt(name string, min int, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	x, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || x < min {
		return
	}
	*dst = x
}

func envBool(name string, dst *bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}

// SplitCSV splits a comma separated list, dropping blanks.
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
