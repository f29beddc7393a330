package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// DefaultUserAgent identifies the scraper to the sites it visits.
const DefaultUserAgent = "authorsync/1.0 (article listing scraper)"

// Navigator loads a page and returns its parsed document. The context
// deadline bounds the whole load.
type Navigator interface {
	Navigate(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// SettlingNavigator is a Navigator that can give a loaded page time to run
// its scripts. Only the load is bounded by loadCtx; the wait and the read use
// settleCtx. Article pages are loaded this way when the navigator supports it.
type SettlingNavigator interface {
	Navigator
	NavigateSettled(loadCtx, settleCtx context.Context, pageURL string) (*goquery.Document, error)
}

// Session is a Navigator holding resources that must be released once.
type Session interface {
	Navigator
	Close() error
}

// HTTPSession loads pages with plain HTTP requests. It serves sites that
// render their listing and article markup server side.
type HTTPSession struct {
	client    *http.Client
	userAgent string
}

// NewHTTPSession creates an HTTP session. An empty userAgent uses
// DefaultUserAgent.
func NewHTTPSession(userAgent string) *HTTPSession {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPSession{
		client:    &http.Client{},
		userAgent: userAgent,
	}
}

// Navigate fetches pageURL and parses the response as HTML.
func (s *HTTPSession) Navigate(ctx context.Context, pageURL string) (*goquery.Document, error) {
	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	// Perform the request
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	// Check for HTTP errors
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	// Parse HTML with goquery
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Keep the final URL after redirects for link resolution
	doc.Url = resp.Request.URL
	if doc.Url == nil {
		doc.Url, _ = url.Parse(pageURL)
	}

	return doc, nil
}

// Close releases idle connections.
func (s *HTTPSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
