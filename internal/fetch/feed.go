package fetch

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

// FeedFetcher reads items from a per-entity RSS/Atom feed. It is the
// offline-friendly alternative to the scraping service: feed entries become
// items with zero engagement counts.
type FeedFetcher struct {
	urls   map[string]string // entity -> feed URL
	parser *gofeed.Parser
}

// NewFeedFetcher creates a feed-backed fetcher from an entity -> URL map.
func NewFeedFetcher(urls map[string]string) *FeedFetcher {
	return &FeedFetcher{
		urls:   urls,
		parser: gofeed.NewParser(),
	}
}

// IsConfigured returns whether any feed is configured.
func (f *FeedFetcher) IsConfigured() bool {
	return len(f.urls) > 0
}

// Fetch parses the entity's feed and returns up to maxItems items,
// newest first as the feed lists them.
func (f *FeedFetcher) Fetch(ctx context.Context, entity string, maxItems int) ([]Item, error) {
	feedURL, ok := f.urls[entity]
	if !ok || feedURL == "" {
		return nil, fmt.Errorf("no feed configured for entity %s", entity)
	}

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	var items []Item
	for _, entry := range feed.Items {
		if len(items) >= maxItems {
			break
		}
		item := feedEntryToItem(entry, entity, feedURL)
		if item == nil {
			continue
		}
		items = append(items, *item)
	}

	log.Printf("Fetched %d items from feed for %s", len(items), entity)
	return items, nil
}

func feedEntryToItem(entry *gofeed.Item, entity, feedURL string) *Item {
	id := entry.GUID
	if id == "" {
		id = entry.Link
	}
	if id == "" {
		return nil
	}

	text := entryText(entry, feedURL)
	if text == "" {
		return nil
	}

	var createdAt string
	if entry.PublishedParsed != nil {
		createdAt = entry.PublishedParsed.UTC().Format(CreatedAtLayout)
	} else if entry.UpdatedParsed != nil {
		createdAt = entry.UpdatedParsed.UTC().Format(CreatedAtLayout)
	}

	var media []MediaRef
	for _, enc := range entry.Enclosures {
		if enc.URL == "" {
			continue
		}
		media = append(media, MediaRef{URL: enc.URL, Type: enclosureType(enc.Type), MediaURL: enc.URL})
	}

	return &Item{
		ID:        id,
		Text:      text,
		CreatedAt: createdAt,
		URL:       entry.Link,
		Media:     media,
		Author:    AuthorInfo{Username: entity},
	}
}

// entryText extracts plain text from a feed entry. Long HTML bodies go
// through readability; short ones just get tags stripped.
func entryText(entry *gofeed.Item, feedURL string) string {
	raw := entry.Content
	if raw == "" {
		raw = entry.Description
	}
	if raw == "" {
		return strings.TrimSpace(entry.Title)
	}

	if len(raw) > 2000 {
		pageURL, _ := url.Parse(entry.Link)
		article, err := readability.FromReader(strings.NewReader(raw), pageURL)
		if err == nil {
			text := strings.TrimSpace(article.TextContent)
			if text != "" {
				return text
			}
		}
	}

	return stripHTML(raw)
}

func enclosureType(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/gif"):
		return "animated_gif"
	case strings.HasPrefix(mimeType, "image/"):
		return "photo"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	default:
		return mimeType
	}
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	// Decode common entities
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	// Normalize whitespace
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
