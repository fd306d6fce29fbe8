package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Cache struct {
		Dir     string `yaml:"dir"`
		TTLDays int    `yaml:"ttl_days"`
	} `yaml:"cache"`
	Fetcher struct {
		MaxAttempts    int           `yaml:"max_attempts"`
		InitialBackoff time.Duration `yaml:"initial_backoff"`
		BackoffFactor  float64       `yaml:"backoff_factor"`
		ChunkSize      int           `yaml:"chunk_size"`
	} `yaml:"fetcher"`
	Universe struct {
		Name        string `yaml:"name"`
		RefreshDays int    `yaml:"refresh_days"`
		MaxTickers  int    `yaml:"max_tickers"`
	} `yaml:"universe"`
	Scan struct {
		Workers  int    `yaml:"workers"`
		Strategy string `yaml:"strategy"`
		Period   string `yaml:"period"`
		Profile  string `yaml:"profile"`
		Schedule string `yaml:"schedule"` // cron expression, empty means one-shot
	} `yaml:"scan"`
	Provider struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"provider"`
	Fundamentals struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"fundamentals"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("RECTIFEX_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("RECTIFEX_UNIVERSE"); v != "" {
		c.Universe.Name = v
	}
	if v := os.Getenv("RECTIFEX_STRATEGY"); v != "" {
		c.Scan.Strategy = v
	}
	if v := os.Getenv("RECTIFEX_MAX_TICKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Universe.MaxTickers = n
		}
	}
	if v := os.Getenv("MARKETSTACK_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Host = host
				c.Redis.Port = p
			}
		}
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "cache"
	}
	if c.Cache.TTLDays == 0 {
		c.Cache.TTLDays = 7
	}
	if c.Fetcher.MaxAttempts == 0 {
		c.Fetcher.MaxAttempts = 3
	}
	if c.Fetcher.InitialBackoff == 0 {
		c.Fetcher.InitialBackoff = time.Second
	}
	if c.Fetcher.BackoffFactor == 0 {
		c.Fetcher.BackoffFactor = 2.0
	}
	if c.Fetcher.ChunkSize == 0 {
		c.Fetcher.ChunkSize = 60
	}
	if c.Universe.Name == "" {
		c.Universe.Name = "us-all"
	}
	if c.Universe.RefreshDays == 0 {
		c.Universe.RefreshDays = 7
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = 4
	}
	if c.Scan.Strategy == "" {
		c.Scan.Strategy = "golden_cross"
	}
	if c.Scan.Period == "" {
		c.Scan.Period = "1y"
	}
	if c.Scan.Profile == "" {
		c.Scan.Profile = "balanced"
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://api.marketstack.com/v1"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.Fundamentals.BaseURL == "" {
		c.Fundamentals.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Fundamentals.Timeout == 0 {
		c.Fundamentals.Timeout = 30 * time.Second
	}
	if c.Fundamentals.TTL == 0 {
		c.Fundamentals.TTL = 24 * time.Hour
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Fetcher.MaxAttempts < 1 {
		return fmt.Errorf("fetcher.max_attempts must be at least 1")
	}
	if c.Fetcher.BackoffFactor < 1 {
		return fmt.Errorf("fetcher.backoff_factor must be at least 1")
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1")
	}
	if c.Universe.MaxTickers < 0 {
		return fmt.Errorf("universe.max_tickers cannot be negative")
	}
	return nil
}
