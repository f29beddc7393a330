package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/authorsync/article"
	"github.com/pevans/authorsync/scraper"
)

// ErrListingLoad wraps any failure to load the listing. It is fatal to a run.
var ErrListingLoad = errors.New("failed to load listing page")

// Saver persists a single finished record.
type Saver interface {
	Insert(ctx context.Context, rec *article.Record) error
}

// FetcherConfig holds configuration for the article fetcher.
type FetcherConfig struct {
	// Resource and Author are stamped on every record of the run
	Resource string
	Author   string
	List     scraper.ListConfig
	Article  scraper.ArticleConfig
	// Deadline for each page navigation, listing included
	PageTimeout time.Duration
	// Attempts per article, counting the first one
	MaxAttempts int
}

// DefaultFetcherConfig returns the Court House News configuration.
func DefaultFetcherConfig() FetcherConfig {
	defaults := scraper.DefaultScraperConfig()
	return FetcherConfig{
		Resource:    "Court House News",
		Author:      "William Savinar",
		List:        defaults.ListConfig,
		Article:     defaults.ArticleConfig,
		PageTimeout: 6 * time.Second,
		MaxAttempts: 3,
	}
}

// ArticleError records an article that exhausted its attempts.
type ArticleError struct {
	Record   *article.Record
	Attempts int
	Err      error
}

// FetchResult contains every record of the run, including ones that failed
// and kept only their listing data.
type FetchResult struct {
	Articles []*article.Record
	Saved    int
	Failed   int
	Errors   []ArticleError
}

// Fetcher walks a listing and visits each article in turn, saving each one
// as soon as it is complete.
type Fetcher struct {
	nav    Navigator
	lister Lister
	saver  Saver
	config FetcherConfig
	now    func() time.Time
}

// NewFetcher creates a fetcher. The listing is read from the page through
// nav unless config.List.Mode is scraper.ModeFeed.
func NewFetcher(nav Navigator, saver Saver, config FetcherConfig) *Fetcher {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lister Lister
	if config.List.Mode == scraper.ModeFeed {
		lister = NewFeedLister(config.List.FeedURL)
	} else {
		lister = NewHTMLLister(nav, config.List)
	}

	return &Fetcher{
		nav:    nav,
		lister: lister,
		saver:  saver,
		config: config,
		now:    time.Now,
	}
}

// Fetch loads the listing, then visits, extracts and saves each article.
// Only a listing failure or cancellation of ctx returns an error; a
// cancelled run also returns the records gathered so far.
func (f *Fetcher) Fetch(ctx context.Context, listingURL string) (*FetchResult, error) {
	log.Printf("INFO: Navigating to listing %s", listingURL)

	stubs, err := f.list(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrListingLoad, listingURL, err)
	}

	log.Printf("INFO: Found %d articles on listing page", len(stubs))

	result := &FetchResult{Articles: f.buildRecords(stubs)}

	for i, rec := range result.Articles {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		log.Printf("INFO: [%d/%d] Visiting article: %s", i+1, len(result.Articles), rec.Headline)

		attempts, err := f.processArticle(ctx, rec)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}

			log.Printf("ERROR: Failed to load article after %d attempts: %s", attempts, rec.Link)
			result.Failed++
			result.Errors = append(result.Errors, ArticleError{
				Record:   rec,
				Attempts: attempts,
				Err:      err,
			})
			continue
		}

		result.Saved++
	}

	return result, nil
}

func (f *Fetcher) list(ctx context.Context, listingURL string) ([]article.Stub, error) {
	listCtx, cancel := context.WithTimeout(ctx, f.config.PageTimeout)
	defer cancel()

	return f.lister.List(listCtx, listingURL)
}

// buildRecords turns stubs into records. The stub index is the slug counter.
func (f *Fetcher) buildRecords(stubs []article.Stub) []*article.Record {
	runStart := f.now().UTC()

	records := make([]*article.Record, 0, len(stubs))
	for i, stub := range stubs {
		if stub.Date.IsZero() {
			log.Printf("WARN: No usable date for %q, using run start time", stub.Headline)
			stub.Date = runStart
		}
		records = append(records, article.NewRecord(stub, f.config.Resource, f.config.Author, i))
	}
	return records
}

// processArticle runs up to MaxAttempts attempts with no delay between them.
// It returns the number of attempts made and the last error, if every
// attempt failed.
func (f *Fetcher) processArticle(ctx context.Context, rec *article.Record) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= f.config.MaxAttempts; attempt++ {
		lastErr = f.attempt(ctx, rec)
		if lastErr == nil {
			log.Printf("INFO: Collected and saved article: %s", rec.Headline)
			return attempt, nil
		}

		log.Printf("WARN: Error processing article %q, attempt %d/%d: %v",
			rec.Headline, attempt, f.config.MaxAttempts, lastErr)

		if ctx.Err() != nil {
			return attempt, lastErr
		}
	}

	return f.config.MaxAttempts, lastErr
}

// attempt navigates to the article, fills in the record and saves it.
func (f *Fetcher) attempt(ctx context.Context, rec *article.Record) error {
	pageCtx, cancel := context.WithTimeout(ctx, f.config.PageTimeout)
	defer cancel()

	var doc *goquery.Document
	var err error
	if settler, ok := f.nav.(SettlingNavigator); ok {
		doc, err = settler.NavigateSettled(pageCtx, ctx, rec.Link)
	} else {
		doc, err = f.nav.Navigate(pageCtx, rec.Link)
	}
	if err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	applyContent(rec, ExtractContent(doc, f.config.Article))

	if err := f.saver.Insert(ctx, rec); err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}

	return nil
}

// applyContent copies extracted content onto the record. The listing
// summary wins over the derived one.
func applyContent(rec *article.Record, content Content) {
	rec.Media = content.Media
	if rec.Summary == "" {
		rec.Summary = article.DeriveSummary(content.Body)
	}
	rec.Body = article.FormatBody(content.Body, rec.Link, rec.Resource)
}
