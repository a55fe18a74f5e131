package rss

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// Entry represents a normalized feed entry.
type Entry struct {
	ID          string
	Title       string
	Link        string
	PublishedAt time.Time
	Description string
}

// Source is anything that can produce feed entries, newest first.
type Source interface {
	Fetch(ctx context.Context) ([]Entry, error)
}

// Fetcher pulls and parses a single feed.
type Fetcher struct {
	feedURL    string
	maxEntries int
	parser     *gofeed.Parser
	logger     *log.Logger
}

// NewFetcher creates a fetcher for feedURL. maxEntries caps the window
// returned by Fetch; 0 means no cap.
func NewFetcher(feedURL string, maxEntries int, logger *log.Logger) *Fetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 30 * time.Second}
	return &Fetcher{
		feedURL:    feedURL,
		maxEntries: maxEntries,
		parser:     parser,
		logger:     logger,
	}
}

// Fetch pulls the feed and returns its entries in feed order. An empty feed
// is not an error.
func (f *Fetcher) Fetch(ctx context.Context) ([]Entry, error) {
	feed, err := f.parser.ParseURLWithContext(f.feedURL, ctx)
	if err != nil {
		return nil, err
	}

	items := feed.Items
	if f.maxEntries > 0 && len(items) > f.maxEntries {
		items = items[:f.maxEntries]
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		var pubTime time.Time
		if item.PublishedParsed != nil {
			pubTime = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pubTime = *item.UpdatedParsed
		}
		entries = append(entries, Entry{
			ID:          pickID(item),
			Title:       item.Title,
			Link:        item.Link,
			PublishedAt: pubTime,
			Description: item.Description,
		})
	}
	f.logger.Printf("fetched %d entries from %s", len(entries), f.feedURL)
	return entries, nil
}

// pickID prefers the native GUID and falls back to the link, so entries
// without a GUID that share a link are indistinguishable.
func pickID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}
