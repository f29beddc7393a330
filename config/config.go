package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pevans/authorsync/scraper"
)

// Browser modes
const (
	BrowserChrome = "chrome"
	BrowserHTTP   = "http"
)

// Custom errors for configuration
var (
	ErrMissingDSN     = errors.New("POSTGRES_CONNECTION_STRING is not set")
	ErrInvalidBrowser = errors.New("browser mode must be chrome or http")
	ErrInvalidList    = errors.New("listing mode must be html or feed")
)

// BrowserConfig controls how pages are loaded.
type BrowserConfig struct {
	Mode        string        `yaml:"mode"`
	Headless    bool          `yaml:"headless"`
	UserAgent   string        `yaml:"user_agent"`
	ExecPath    string        `yaml:"exec_path"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// SnapshotConfig controls where the run's JSON snapshot goes.
type SnapshotConfig struct {
	Path     string `yaml:"path"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Key    string `yaml:"s3_key"`
	S3Region string `yaml:"s3_region"`
}

// Config is the full run configuration.
type Config struct {
	DSN         string                `yaml:"dsn"`
	ListingURL  string                `yaml:"listing_url"`
	Resource    string                `yaml:"resource"`
	Author      string                `yaml:"author"`
	PageTimeout time.Duration         `yaml:"page_timeout"`
	MaxAttempts int                   `yaml:"max_attempts"`
	Scraper     scraper.ScraperConfig `yaml:"scraper"`
	Browser     BrowserConfig         `yaml:"browser"`
	Snapshot    SnapshotConfig        `yaml:"snapshot"`
}

// Default returns the configuration for William Savinar's Court House News
// listing. DSN is left empty; it has to come from the environment.
func Default() *Config {
	return &Config{
		ListingURL:  "https://www.courthousenews.com/author/william-savinar/",
		Resource:    "Court House News",
		Author:      "William Savinar",
		PageTimeout: 6 * time.Second,
		MaxAttempts: 3,
		Scraper:     scraper.DefaultScraperConfig(),
		Browser: BrowserConfig{
			Mode:        BrowserChrome,
			Headless:    true,
			SettleDelay: time.Second,
		},
		Snapshot: SnapshotConfig{
			Path: "court-house-news-articles.json",
		},
	}
}

// Load builds the configuration: .env, then defaults, then the YAML file
// named by AUTHORSYNC_CONFIG, then environment variables. The result is
// validated.
func Load() (*Config, error) {
	// A missing .env is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: Failed to load .env: %v", err)
	}

	cfg := Default()

	if path := os.Getenv("AUTHORSYNC_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides cfg with any environment variables that are set.
func applyEnv(cfg *Config) error {
	cfg.DSN = getEnv("POSTGRES_CONNECTION_STRING", cfg.DSN)
	cfg.Snapshot.Path = getEnv("AUTHORSYNC_SNAPSHOT_PATH", cfg.Snapshot.Path)
	cfg.Browser.Mode = getEnv("AUTHORSYNC_BROWSER_MODE", cfg.Browser.Mode)
	cfg.Snapshot.S3Bucket = getEnv("AUTHORSYNC_S3_BUCKET", cfg.Snapshot.S3Bucket)
	cfg.Snapshot.S3Key = getEnv("AUTHORSYNC_S3_KEY", cfg.Snapshot.S3Key)
	cfg.Snapshot.S3Region = getEnv("AUTHORSYNC_S3_REGION", cfg.Snapshot.S3Region)

	headless, err := getEnvBool("AUTHORSYNC_HEADLESS", cfg.Browser.Headless)
	if err != nil {
		return err
	}
	cfg.Browser.Headless = headless

	timeout, err := getEnvDuration("AUTHORSYNC_PAGE_TIMEOUT", cfg.PageTimeout)
	if err != nil {
		return err
	}
	cfg.PageTimeout = timeout

	return nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return ErrMissingDSN
	}
	if strings.TrimSpace(c.ListingURL) == "" {
		return errors.New("listing_url is required")
	}
	if strings.TrimSpace(c.Resource) == "" {
		return errors.New("resource is required")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.PageTimeout <= 0 {
		return fmt.Errorf("page_timeout must be positive, got %s", c.PageTimeout)
	}

	switch c.Browser.Mode {
	case BrowserChrome, BrowserHTTP:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBrowser, c.Browser.Mode)
	}

	switch c.Scraper.ListConfig.Mode {
	case "", scraper.ModeHTML, scraper.ModeFeed:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidList, c.Scraper.ListConfig.Mode)
	}

	return nil
}

// S3Enabled reports whether the snapshot should be mirrored to S3.
func (c *Config) S3Enabled() bool {
	return c.Snapshot.S3Bucket != ""
}

// S3Key returns the object key for the snapshot mirror, defaulting to the
// snapshot file name.
func (c *Config) S3Key() string {
	if c.Snapshot.S3Key != "" {
		return c.Snapshot.S3Key
	}
	return c.Snapshot.Path
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// getEnvBool parses a boolean from environment variable or returns default.
func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
