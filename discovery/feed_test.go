package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/authorsync/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authorFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>William Savinar</title>
		<link>https://example.com/author/someone/</link>
		<item>
			<title> Border update </title>
			<link>https://example.com/a</link>
			<pubDate>Tue, 02 Jan 2024 15:04:05 +0000</pubDate>
			<description><![CDATA[<p>Officials <b>said</b> more.</p>]]></description>
		</item>
		<item>
			<title>Undated</title>
			<link>https://example.com/b</link>
		</item>
	</channel>
</rss>`

func TestFeedToStubs(t *testing.T) {
	feed, err := gofeed.NewParser().ParseString(authorFeed)
	require.NoError(t, err)

	stubs := FeedToStubs(feed)

	require.Len(t, stubs, 2)
	assert.Equal(t, "Border update", stubs[0].Headline)
	assert.Equal(t, "https://example.com/a", stubs[0].Link)
	assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), stubs[0].Date)
	assert.Equal(t, "Officials said more.", stubs[0].Summary, "markup should be dropped")

	assert.Equal(t, "Undated", stubs[1].Headline)
	assert.True(t, stubs[1].Date.IsZero())
	assert.Empty(t, stubs[1].Summary)
}

// TestFeedLister_List verifies the feed lister falls back to the listing URL
func TestFeedLister_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(authorFeed))
	}))
	defer server.Close()

	stubs, err := NewFeedLister("").List(context.Background(), server.URL+"/feed")
	require.NoError(t, err)
	assert.Len(t, stubs, 2)
}

func TestFeedLister_InvalidFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a feed"))
	}))
	defer server.Close()

	_, err := NewFeedLister(server.URL).List(context.Background(), "ignored")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse feed")
}

// TestFetch_FeedMode verifies the fetcher lists from the feed and still
// visits article pages for content
func TestFetch_FeedMode(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed":
			w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>x</title>` +
				`<item><title>From feed</title><link>` + server.URL + `/a</link>` +
				`<pubDate>Tue, 02 Jan 2024 00:00:00 +0000</pubDate></item></channel></rss>`))
		case "/a":
			w.Write([]byte(articlePage("", "Feed body.")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	config := testFetcherConfig()
	config.List.Mode = scraper.ModeFeed
	config.List.FeedURL = server.URL + "/feed"
	saver := &fakeSaver{}
	fetcher := NewFetcher(NewHTTPSession(""), saver, config)

	result, err := fetcher.Fetch(context.Background(), server.URL+"/author/someone/")
	require.NoError(t, err)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "From feed", result.Articles[0].Headline)
	assert.Contains(t, result.Articles[0].Body, "<p>Feed body.</p>")
	assert.Len(t, saver.inserted, 1)
}
