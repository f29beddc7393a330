package article

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SummaryWords is the number of body words kept when a summary has to be
// derived from the article body.
const SummaryWords = 20

// DateLayout is the layout used whenever a record date leaves the process
// (database rows and logs). Always UTC with millisecond precision.
const DateLayout = "2006-01-02T15:04:05.000Z"

// Record is a single scraped article. It is created from a listing stub,
// filled in from the article page, inserted once and never updated.
type Record struct {
	ID       uuid.UUID `json:"id"`
	Slug     string    `json:"slug"`
	Headline string    `json:"headline"`
	Link     string    `json:"link"`
	Date     time.Time `json:"date"`
	Summary  string    `json:"summary"`
	Body     string    `json:"body"`
	Author   string    `json:"author"`
	Resource string    `json:"resource"`
	Media    string    `json:"media"`
}

// Stub holds what the listing page tells us about an article before its own
// page is visited.
type Stub struct {
	Headline string
	Link     string
	Date     time.Time
	Summary  string
}

// NewRecord builds a record from a listing stub. The index is the stub's
// position in the listing and determines the slug.
func NewRecord(stub Stub, resource, author string, index int) *Record {
	return &Record{
		ID:       uuid.New(),
		Slug:     Slug(resource, index),
		Headline: stub.Headline,
		Link:     stub.Link,
		Date:     stub.Date.UTC(),
		Summary:  stub.Summary,
		Body:     "",
		Author:   author,
		Resource: resource,
		Media:    "",
	}
}

// FormattedDate returns the record date in DateLayout.
func (r *Record) FormattedDate() string {
	return r.Date.UTC().Format(DateLayout)
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// SlugPrefix turns a resource name into its slug form, e.g. "Court House
// News" becomes "court-house-news".
func SlugPrefix(resource string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(resource), "-")
	return strings.Trim(s, "-")
}

// Slug returns the run-scoped slug for the listing item at index: a, b, ...,
// z, aa, ab, ... appended to the resource prefix.
func Slug(resource string, index int) string {
	return fmt.Sprintf("%s-%s", SlugPrefix(resource), letters(index))
}

// letters is the bijective base-26 form of index, so there is no ceiling on
// items per run.
func letters(index int) string {
	if index < 0 {
		index = 0
	}

	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append(b, byte('a'+(n-1)%26))
	}

	// Digits were produced least significant first
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

var dateline = regexp.MustCompile(`^MEXICO CITY \(CN\) —[\s\p{Zs}]*`)

// StripDateline removes a leading "MEXICO CITY (CN) — " wire dateline and
// any spacing after it, non-breaking spaces included.
func StripDateline(body string) string {
	return dateline.ReplaceAllString(body, "")
}

// DeriveSummary builds a summary from the first SummaryWords words of body.
func DeriveSummary(body string) string {
	words := strings.Fields(body)
	if len(words) > SummaryWords {
		words = words[:SummaryWords]
	}
	return strings.Join(words, " ") + "..."
}

// FormatBody wraps body for storage and appends a link back to the source.
// An empty body still gets the link when there is one.
func FormatBody(body, link, resource string) string {
	switch {
	case body != "":
		return fmt.Sprintf("<p>%s</p><br><br><ul><li><a href='%s'>Visit %s</a></li></ul>", body, link, resource)
	case link != "":
		return fmt.Sprintf("<br><br><ul><li><a href='%s'>Visit article @ %s</a></li></ul>", link, resource)
	default:
		return ""
	}
}
