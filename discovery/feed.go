package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/authorsync/article"
	"github.com/pevans/authorsync/scraper"
)

// Lister enumerates the article stubs of one listing, in listing order.
type Lister interface {
	List(ctx context.Context, listingURL string) ([]article.Stub, error)
}

// HTMLLister reads stubs from the listing page markup.
type HTMLLister struct {
	nav    Navigator
	config scraper.ListConfig
}

// NewHTMLLister creates a lister that loads the listing through nav.
func NewHTMLLister(nav Navigator, config scraper.ListConfig) *HTMLLister {
	return &HTMLLister{nav: nav, config: config}
}

// List loads listingURL and extracts its items.
func (l *HTMLLister) List(ctx context.Context, listingURL string) ([]article.Stub, error) {
	doc, err := l.nav.Navigate(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	pageURL := listingURL
	if doc.Url != nil {
		pageURL = doc.Url.String()
	}

	return ExtractListing(doc, l.config, pageURL), nil
}

// FeedLister reads stubs from the author's RSS or Atom feed. The gofeed
// library detects and handles both formats.
type FeedLister struct {
	parser  *gofeed.Parser
	feedURL string
}

// NewFeedLister creates a feed lister. When feedURL is empty the listing URL
// passed to List is parsed as the feed.
func NewFeedLister(feedURL string) *FeedLister {
	return &FeedLister{
		parser:  gofeed.NewParser(),
		feedURL: feedURL,
	}
}

// List fetches the feed and converts its items to stubs.
func (l *FeedLister) List(ctx context.Context, listingURL string) ([]article.Stub, error) {
	feedURL := l.feedURL
	if feedURL == "" {
		feedURL = listingURL
	}

	feed, err := l.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return FeedToStubs(feed), nil
}

// FeedToStubs converts feed items to stubs, keeping feed order.
func FeedToStubs(feed *gofeed.Feed) []article.Stub {
	stubs := make([]article.Stub, 0, len(feed.Items))
	for _, item := range feed.Items {
		stub := article.Stub{
			Headline: strings.TrimSpace(item.Title),
			Link:     strings.TrimSpace(item.Link),
			Summary:  plainText(item.Description),
		}

		// gofeed parses both <pubDate> (RSS) and <published>/<updated> (Atom)
		if item.PublishedParsed != nil {
			stub.Date = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			stub.Date = item.UpdatedParsed.UTC()
		}

		stubs = append(stubs, stub)
	}
	return stubs
}

// plainText drops markup from a feed description.
func plainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}
