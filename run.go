package authorsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pevans/authorsync/article"
	"github.com/pevans/authorsync/config"
	"github.com/pevans/authorsync/discovery"
	"github.com/pevans/authorsync/snapshot"
	"github.com/pevans/authorsync/store"
)

// ArticleStore is the persistence side of a run. store.ArticleStore
// implements it.
type ArticleStore interface {
	discovery.Saver
	Ping(ctx context.Context) error
	Purge(ctx context.Context, resource string) (int64, error)
	Close() error
}

// Dependencies are the factories a run uses to reach the outside world.
// Nil fields fall back to the ones from DefaultDependencies.
type Dependencies struct {
	OpenStore   func(dsn string) (ArticleStore, error)
	OpenSession func(ctx context.Context, browser config.BrowserConfig) (discovery.Session, error)
	NewPutter   func(ctx context.Context, cfg snapshot.S3Config) (snapshot.ObjectPutter, error)
}

// DefaultDependencies wires the real database, browser and S3 client.
func DefaultDependencies() Dependencies {
	return Dependencies{
		OpenStore: func(dsn string) (ArticleStore, error) {
			return store.Open(dsn)
		},
		OpenSession: OpenSession,
		NewPutter: func(ctx context.Context, cfg snapshot.S3Config) (snapshot.ObjectPutter, error) {
			return snapshot.NewS3(ctx, cfg)
		},
	}
}

func (d Dependencies) withDefaults() Dependencies {
	defaults := DefaultDependencies()
	if d.OpenStore == nil {
		d.OpenStore = defaults.OpenStore
	}
	if d.OpenSession == nil {
		d.OpenSession = defaults.OpenSession
	}
	if d.NewPutter == nil {
		d.NewPutter = defaults.NewPutter
	}
	return d
}

// OpenSession starts the page loader named by the browser mode.
func OpenSession(ctx context.Context, browser config.BrowserConfig) (discovery.Session, error) {
	switch browser.Mode {
	case config.BrowserHTTP:
		return discovery.NewHTTPSession(browser.UserAgent), nil
	case config.BrowserChrome, "":
		return discovery.LaunchBrowser(ctx, discovery.BrowserOptions{
			Headless:    browser.Headless,
			UserAgent:   browser.UserAgent,
			ExecPath:    browser.ExecPath,
			SettleDelay: browser.SettleDelay,
		})
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBrowser, browser.Mode)
	}
}

// Summary describes a finished run.
type Summary struct {
	Purged       int64
	Listed       int
	Saved        int
	Failed       int
	SnapshotPath string
	Mirrored     bool
	Duration     time.Duration
	Articles     []*article.Record
}

// Run performs one full synchronisation: purge the resource, scrape the
// listing and its articles, save each article, then write the snapshot.
// Per-article failures are logged and counted; anything else that fails
// aborts the run. The store and the page session are always released.
func Run(ctx context.Context, cfg *config.Config, deps Dependencies) (*Summary, error) {
	startTime := time.Now()
	deps = deps.withDefaults()

	log.Printf("INFO: Connecting to database")
	articleStore, err := deps.OpenStore(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := articleStore.Close(); err != nil {
			log.Printf("WARN: Failed to close store: %v", err)
		}
	}()

	if err := articleStore.Ping(ctx); err != nil {
		return nil, err
	}
	log.Printf("INFO: Connected to database")

	purged, err := articleStore.Purge(ctx, cfg.Resource)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: Purged %d existing records for %s", purged, cfg.Resource)

	session, err := deps.OpenSession(ctx, cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s session: %w", cfg.Browser.Mode, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("WARN: Failed to close session: %v", err)
		}
	}()

	fetcher := discovery.NewFetcher(session, articleStore, fetcherConfig(cfg))
	result, err := fetcher.Fetch(ctx, cfg.ListingURL)
	if err != nil {
		if result != nil {
			log.Printf("WARN: Run interrupted after %d saved articles", result.Saved)
		}
		return nil, err
	}

	summary := &Summary{
		Purged:       purged,
		Listed:       len(result.Articles),
		Saved:        result.Saved,
		Failed:       result.Failed,
		SnapshotPath: cfg.Snapshot.Path,
		Articles:     result.Articles,
	}

	data, err := snapshot.Write(cfg.Snapshot.Path, result.Articles)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: Wrote %d articles to %s", len(result.Articles), cfg.Snapshot.Path)

	if cfg.S3Enabled() {
		summary.Mirrored = mirror(ctx, cfg, deps, data)
	}

	summary.Duration = time.Since(startTime)
	log.Printf("INFO: Run complete: %d saved, %d failed, %d total in %v",
		summary.Saved, summary.Failed, summary.Listed, summary.Duration)

	return summary, nil
}

// mirror uploads the snapshot. A failed upload is logged but does not fail
// the run; the database and the local file are already complete.
func mirror(ctx context.Context, cfg *config.Config, deps Dependencies, data []byte) bool {
	putter, err := deps.NewPutter(ctx, snapshot.S3Config{Region: cfg.Snapshot.S3Region})
	if err != nil {
		log.Printf("WARN: Failed to create S3 client: %v", err)
		return false
	}

	key := cfg.S3Key()
	if err := snapshot.Mirror(ctx, putter, cfg.Snapshot.S3Bucket, key, data); err != nil {
		log.Printf("WARN: Failed to mirror snapshot: %v", err)
		return false
	}

	log.Printf("INFO: Mirrored snapshot to s3://%s/%s", cfg.Snapshot.S3Bucket, key)
	return true
}

func fetcherConfig(cfg *config.Config) discovery.FetcherConfig {
	return discovery.FetcherConfig{
		Resource:    cfg.Resource,
		Author:      cfg.Author,
		List:        cfg.Scraper.ListConfig,
		Article:     cfg.Scraper.ArticleConfig,
		PageTimeout: cfg.PageTimeout,
		MaxAttempts: cfg.MaxAttempts,
	}
}

// IsListingError reports whether err came from loading the listing page.
func IsListingError(err error) bool {
	return errors.Is(err, discovery.ErrListingLoad)
}
