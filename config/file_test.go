package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/authorsync/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: write a config file and point AUTHORSYNC_CONFIG at it
func writeConfigFile(t *testing.T, content string) string {
	configPath := filepath.Join(t.TempDir(), "authorsync.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	t.Setenv("AUTHORSYNC_CONFIG", configPath)
	return configPath
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	writeConfigFile(t, `dsn: "file.db"
listing_url: "https://example.com/author/someone/"
resource: "Example Outlet"
author: "Someone"
page_timeout: 15s
max_attempts: 5
browser:
  mode: http
  user_agent: "custom/1.0"
scraper:
  list:
    mode: feed
    feed_url: "https://example.com/author/someone/feed/"
snapshot:
  path: "example.json"
  s3_bucket: "archive"
  s3_key: "example/latest.json"
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file.db", cfg.DSN)
	assert.Equal(t, "https://example.com/author/someone/", cfg.ListingURL)
	assert.Equal(t, "Example Outlet", cfg.Resource)
	assert.Equal(t, "Someone", cfg.Author)
	assert.Equal(t, 15*time.Second, cfg.PageTimeout)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, BrowserHTTP, cfg.Browser.Mode)
	assert.Equal(t, "custom/1.0", cfg.Browser.UserAgent)
	assert.Equal(t, scraper.ModeFeed, cfg.Scraper.ListConfig.Mode)
	assert.Equal(t, "https://example.com/author/someone/feed/", cfg.Scraper.ListConfig.FeedURL)
	assert.Equal(t, "example.json", cfg.Snapshot.Path)
	assert.Equal(t, "example/latest.json", cfg.S3Key())

	// Keys absent from the file keep their defaults
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, ".item", cfg.Scraper.ListConfig.ItemSelector)
	assert.Equal(t, ".article-content p", cfg.Scraper.ArticleConfig.BodySelector)
}

// TestLoad_EnvOverridesFile verifies environment variables win over the file
func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	writeConfigFile(t, `dsn: "file.db"
snapshot:
  path: "from-file.json"
`)
	t.Setenv("POSTGRES_CONNECTION_STRING", "postgres://localhost/articles")
	t.Setenv("AUTHORSYNC_SNAPSHOT_PATH", "from-env.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/articles", cfg.DSN)
	assert.Equal(t, "from-env.json", cfg.Snapshot.Path)
}

func TestLoad_ConfigFileMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTHORSYNC_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_ConfigFileInvalidYAML(t *testing.T) {
	clearEnv(t)
	writeConfigFile(t, "dsn: [unclosed\n")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}
