package discovery

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/pevans/authorsync/article"
	"github.com/pevans/authorsync/scraper"
)

// ErrEmptyDate is returned by ParseListingDate when there is no date text.
var ErrEmptyDate = errors.New("date text is empty")

// Content holds what is extracted from a loaded article page. Body has the
// dateline stripped but is not yet wrapped for storage.
type Content struct {
	Media string
	Body  string
}

// ExtractListing extracts one stub per listing item, in document order.
// Items with no headline or link are still returned. Relative links are
// resolved against pageURL.
func ExtractListing(doc *goquery.Document, config scraper.ListConfig, pageURL string) []article.Stub {
	base, _ := url.Parse(pageURL)

	stubs := []article.Stub{}
	doc.Find(config.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		headline := item.Find(config.HeadlineSelector).First()

		stub := article.Stub{
			// Normalize whitespace: replace multiple spaces/newlines with single space
			Headline: strings.Join(strings.Fields(headline.Text()), " "),
		}

		if href, ok := headline.Attr("href"); ok {
			stub.Link = resolveURL(base, href)
		}

		// Unparsable dates stay zero; the fetcher decides the fallback
		if config.DateSelector != "" {
			date, err := ParseListingDate(item.Find(config.DateSelector).First().Text())
			if err == nil {
				stub.Date = date
			}
		}

		if config.SummarySelector != "" {
			stub.Summary = strings.TrimSpace(item.Find(config.SummarySelector).First().Text())
		}

		stubs = append(stubs, stub)
	})

	return stubs
}

var leadingSeparator = regexp.MustCompile(`^/\s*`)

// ParseListingDate parses a listing date such as "/ Jan 2, 2024" into UTC.
// The leading slash separator is optional.
func ParseListingDate(text string) (time.Time, error) {
	text = strings.TrimSpace(leadingSeparator.ReplaceAllString(strings.TrimSpace(text), ""))
	if text == "" {
		return time.Time{}, ErrEmptyDate
	}

	date, err := dateparse.ParseIn(text, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", text, err)
	}

	return date.UTC(), nil
}

// ExtractContent extracts the featured image and body text from an article
// page. It never fails: missing elements give empty strings.
func ExtractContent(doc *goquery.Document, config scraper.ArticleConfig) Content {
	return Content{
		Media: extractMedia(doc, config),
		Body:  extractBody(doc, config),
	}
}

// extractMedia returns the featured image source, or "" when it is missing
// or only a placeholder.
func extractMedia(doc *goquery.Document, config scraper.ArticleConfig) string {
	if config.MediaSelector == "" {
		return ""
	}

	src, ok := doc.Find(config.MediaSelector).First().Attr("src")
	if !ok {
		return ""
	}

	src = strings.TrimSpace(src)
	if config.PlaceholderImage != "" && strings.Contains(src, config.PlaceholderImage) {
		return ""
	}

	return src
}

// extractBody joins every body paragraph with a blank line and strips the
// wire dateline.
func extractBody(doc *goquery.Document, config scraper.ArticleConfig) string {
	if config.BodySelector == "" {
		return ""
	}

	var paragraphs []string
	doc.Find(config.BodySelector).Each(func(_ int, p *goquery.Selection) {
		paragraphs = append(paragraphs, strings.TrimSpace(p.Text()))
	})

	return article.StripDateline(strings.Join(paragraphs, "\n\n"))
}

// resolveURL turns href into an absolute URL. Without a base, href is
// returned trimmed.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}

	return base.ResolveReference(ref).String()
}
