package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names an optional YAML file applied between the
// built-in defaults and the environment overrides.
const ConfigFileEnv = "BOOKSCRAPER_CONFIG"

type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type CatalogConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Pages   int    `yaml:"pages"`
}

type ScraperConfig struct {
	MinDelay      time.Duration `yaml:"minDelay"`
	MaxRetries    int           `yaml:"maxRetries"`
	Timeout       time.Duration `yaml:"timeout"`
	DetailWorkers int           `yaml:"detailWorkers"`
	Strict        bool          `yaml:"strict"`
	UserAgent     string        `yaml:"userAgent"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DatabaseConfig describes the optional Postgres sink. An empty DSN
// disables persistence.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig describes the optional crawl-result cache. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL: "http://books.toscrape.com/",
			Pages:   2,
		},
		Scraper: ScraperConfig{
			MinDelay:      500 * time.Millisecond,
			MaxRetries:    3,
			Timeout:       20 * time.Second,
			DetailWorkers: 2,
			UserAgent:     "bookscraper/1.0",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			TTL: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the optional YAML file,
// then environment overrides.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Catalog.BaseURL = getEnvOrDefault("CATALOG_BASE_URL", cfg.Catalog.BaseURL)
	cfg.Catalog.Pages = getIntOrDefault("CATALOG_PAGES", cfg.Catalog.Pages)

	cfg.Scraper.MinDelay = getDurationOrDefault("SCRAPER_MIN_DELAY", cfg.Scraper.MinDelay)
	cfg.Scraper.MaxRetries = getIntOrDefault("SCRAPER_MAX_RETRIES", cfg.Scraper.MaxRetries)
	cfg.Scraper.Timeout = getDurationOrDefault("SCRAPER_TIMEOUT", cfg.Scraper.Timeout)
	cfg.Scraper.DetailWorkers = getIntOrDefault("SCRAPER_DETAIL_WORKERS", cfg.Scraper.DetailWorkers)
	cfg.Scraper.Strict = getBoolOrDefault("SCRAPER_STRICT", cfg.Scraper.Strict)
	cfg.Scraper.UserAgent = getEnvOrDefault("SCRAPER_USER_AGENT", cfg.Scraper.UserAgent)

	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvOrDefault("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getDurationOrDefault("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getDurationOrDefault("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Database.DSN = getEnvOrDefault("DATABASE_DSN", cfg.Database.DSN)

	cfg.Redis.Addr = getEnvOrDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getIntOrDefault("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.TTL = getDurationOrDefault("REDIS_TTL", cfg.Redis.TTL)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault("LOG_FORMAT", cfg.Logging.Format)
}

func (c *Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("CATALOG_BASE_URL must not be empty")
	}
	if c.Catalog.Pages < 1 {
		return fmt.Errorf("CATALOG_PAGES must be at least 1")
	}
	if c.Scraper.MinDelay < 0 {
		return fmt.Errorf("SCRAPER_MIN_DELAY must not be negative")
	}
	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}
	if c.Scraper.DetailWorkers < 1 {
		return fmt.Errorf("SCRAPER_DETAIL_WORKERS must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
