package scraper

// Listing modes.
const (
	ModeHTML = "html"
	ModeFeed = "feed"
)

// ScraperConfig defines how to extract articles from one author's pages.
type ScraperConfig struct {
	ListConfig    ListConfig    `yaml:"list" json:"list_config"`
	ArticleConfig ArticleConfig `yaml:"article" json:"article_config"`
}

// ListConfig defines how to enumerate article stubs on the listing page.
// Mode "feed" reads the stubs from FeedURL instead of the listing HTML.
type ListConfig struct {
	Mode             string `yaml:"mode" json:"mode"`
	FeedURL          string `yaml:"feed_url" json:"feed_url,omitempty"`
	ItemSelector     string `yaml:"item_selector" json:"item_selector"`
	HeadlineSelector string `yaml:"headline_selector" json:"headline_selector"`
	DateSelector     string `yaml:"date_selector" json:"date_selector"`
	SummarySelector  string `yaml:"summary_selector" json:"summary_selector,omitempty"`
}

// ArticleConfig defines how to extract content from individual article
// pages.
type ArticleConfig struct {
	MediaSelector    string `yaml:"media_selector" json:"media_selector"`
	PlaceholderImage string `yaml:"placeholder_image" json:"placeholder_image,omitempty"`
	BodySelector     string `yaml:"body_selector" json:"body_selector"`
}

// DefaultScraperConfig returns the selectors for Court House News author
// pages.
func DefaultScraperConfig() ScraperConfig {
	return ScraperConfig{
		ListConfig:    NewListConfig(".item"),
		ArticleConfig: NewArticleConfig(),
	}
}

// NewListConfig creates a new list configuration with default values.
func NewListConfig(itemSelector string) ListConfig {
	return ListConfig{
		Mode:             ModeHTML,
		ItemSelector:     itemSelector,
		HeadlineSelector: "h2 a",
		DateSelector:     ".author-date span",
		SummarySelector:  "div.excerpt p.small",
	}
}

// NewArticleConfig creates a new article configuration with default values.
func NewArticleConfig() ArticleConfig {
	return ArticleConfig{
		MediaSelector:    "figure.featured-image img",
		PlaceholderImage: "placeholder.png",
		BodySelector:     ".article-content p",
	}
}
