package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pevans/authorsync/article"
)

// entry is the snapshot form of a record. Dates are written in the same
// layout as the database column.
type entry struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Body     string `json:"body"`
	Author   string `json:"author"`
	Resource string `json:"resource"`
	Media    string `json:"media"`
	Link     string `json:"link"`
	Date     string `json:"date"`
}

// Marshal renders records as an indented JSON array, in the given order.
// An empty run produces "[]".
func Marshal(records []*article.Record) ([]byte, error) {
	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, entry{
			ID:       rec.ID.String(),
			Slug:     rec.Slug,
			Headline: rec.Headline,
			Summary:  rec.Summary,
			Body:     rec.Body,
			Author:   rec.Author,
			Resource: rec.Resource,
			Media:    rec.Media,
			Link:     rec.Link,
			Date:     rec.FormattedDate(),
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Write replaces the file at path with the snapshot of records.
func Write(path string, records []*article.Record) ([]byte, error) {
	data, err := Marshal(records)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	return data, nil
}
