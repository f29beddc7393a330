package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNewListConfig verifies list config creation with defaults
func TestNewListConfig(t *testing.T) {
	config := NewListConfig("article.post")

	assert.Equal(t, ModeHTML, config.Mode, "should default to html listing")
	assert.Equal(t, "article.post", config.ItemSelector)
	assert.Equal(t, "h2 a", config.HeadlineSelector)
	assert.Equal(t, ".author-date span", config.DateSelector)
	assert.Empty(t, config.FeedURL, "feed url should be empty by default")
}

func TestDefaultScraperConfig(t *testing.T) {
	config := DefaultScraperConfig()

	assert.Equal(t, ".item", config.ListConfig.ItemSelector)
	assert.Equal(t, "div.excerpt p.small", config.ListConfig.SummarySelector)
	assert.Equal(t, "figure.featured-image img", config.ArticleConfig.MediaSelector)
	assert.Equal(t, "placeholder.png", config.ArticleConfig.PlaceholderImage)
	assert.Equal(t, ".article-content p", config.ArticleConfig.BodySelector)
}
