package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the service. Zero values are filled in by
// Default before validation, so a partial YAML file or a bare environment
// is enough to start.
type Config struct {
	AppPort int `yaml:"app_port"`

	// Search defaults.
	DefaultCount    int           `yaml:"default_count"`
	MaxCount        int           `yaml:"max_count"`
	DomainThreshold int           `yaml:"domain_threshold"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	MaxQueryLength  int           `yaml:"max_query_length"`

	// Browser session pool.
	MaxSessions int    `yaml:"max_sessions"`
	ProxyURL    string `yaml:"proxy_url"`
	UserAgent   string `yaml:"user_agent"`

	// Content extraction.
	ExtractWorkers int           `yaml:"extract_workers"`
	ExtractTimeout time.Duration `yaml:"extract_timeout"`
	PreviewLength  int           `yaml:"preview_length"`
	MaxPageBytes   int           `yaml:"max_page_bytes"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func Default() *Config {
	return &Config{
		AppPort:         8080,
		DefaultCount:    5,
		MaxCount:        10,
		DomainThreshold: 10,
		ProviderTimeout: 30 * time.Second,
		MaxQueryLength:  1000,
		MaxSessions:     5,
		UserAgent:       defaultUserAgent,
		ExtractWorkers:  3,
		ExtractTimeout:  20 * time.Second,
		PreviewLength:   200,
		MaxPageBytes:    10 << 20,
	}
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), applies environment overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("APP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.AppPort = port
		}
	}
	if v := os.Getenv("PROXY_URL"); v != "" {
		cfg.ProxyURL = v
	}
	if v := os.Getenv("MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxSessions = n
		}
	}
	if v := os.Getenv("EXTRACT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ExtractWorkers = n
		}
	}
}

func (c *Config) Validate() error {
	if c.AppPort <= 0 || c.AppPort > 65535 {
		return fmt.Errorf("invalid app_port %d", c.AppPort)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive, got %d", c.MaxSessions)
	}
	if c.ExtractWorkers <= 0 {
		return fmt.Errorf("extract_workers must be positive, got %d", c.ExtractWorkers)
	}
	if c.ExtractWorkers > c.MaxSessions {
		return fmt.Errorf("extract_workers (%d) cannot exceed max_sessions (%d)", c.ExtractWorkers, c.MaxSessions)
	}
	if c.DefaultCount < 1 || c.DefaultCount > c.MaxCount {
		return fmt.Errorf("default_count %d outside [1,%d]", c.DefaultCount, c.MaxCount)
	}
	if c.DomainThreshold < 1 {
		return fmt.Errorf("domain_threshold must be positive, got %d", c.DomainThreshold)
	}
	if c.ProviderTimeout <= 0 || c.ExtractTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
