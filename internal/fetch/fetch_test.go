package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func TestParseCreatedAt(t *testing.T) {
	ts, err := ParseCreatedAt("Mon Aug 31 15:04:05 +0000 2026")
	if err != nil {
		t.Fatalf("ParseCreatedAt: %v", err)
	}
	if ts.Year() != 2026 || ts.Month() != time.August || ts.Day() != 31 {
		t.Errorf("parsed %v", ts)
	}

	if _, err := ParseCreatedAt("2026-08-31T15:04:05Z"); err == nil {
		t.Error("expected error for ISO timestamp")
	}
}

func TestItemHelpers(t *testing.T) {
	item := Item{
		Likes:   1,
		Shares:  2,
		Replies: 3,
		Quotes:  4,
		Media:   []MediaRef{{Type: "photo"}},
	}
	if item.TotalEngagement() != 10 {
		t.Errorf("total = %d, want 10", item.TotalEngagement())
	}
	if !item.HasMedia() {
		t.Error("HasMedia = false with media present")
	}
	if (Item{}).HasMedia() {
		t.Error("HasMedia = true with no media")
	}
}

func TestItemWireFormat(t *testing.T) {
	raw := `{
		"id_str": "12345",
		"full_text": "big launch",
		"created_at": "Mon Aug 31 15:04:05 +0000 2026",
		"favorite_count": 10,
		"retweet_count": 5,
		"reply_count": 2,
		"quote_count": 1,
		"user": {"screen_name": "acme", "followers_count": 900}
	}`

	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if item.ID != "12345" || item.Text != "big launch" {
		t.Errorf("item = %+v", item)
	}
	if item.TotalEngagement() != 18 {
		t.Errorf("total = %d, want 18", item.TotalEngagement())
	}
	if item.Author.Username != "acme" || item.Author.Followers != 900 {
		t.Errorf("author = %+v", item.Author)
	}
}

func TestAPIClientFetch(t *testing.T) {
	t.Setenv("TEST_API_TOKEN", "secret")

	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[{"id_str":"1","full_text":"first"},{"id_str":"2","full_text":"second"}]`)
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, "TEST_API_TOKEN")
	if !client.IsConfigured() {
		t.Fatal("client with URL and token should be configured")
	}

	items, err := client.Fetch(context.Background(), "acme", 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotQuery == "" {
		t.Error("query parameters not sent")
	}
	// maxItems truncates the response.
	if len(items) != 1 || items[0].ID != "1" {
		t.Errorf("items = %+v, want only the first", items)
	}
}

func TestAPIClientUnconfigured(t *testing.T) {
	client := NewAPIClient("", "UNSET_TOKEN_VAR")
	if client.IsConfigured() {
		t.Error("client without URL should not be configured")
	}
}

func TestFeedEntryToItem(t *testing.T) {
	published := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	entry := &gofeed.Item{
		GUID:            "guid-1",
		Link:            "https://example.com/post/1",
		Title:           "Launch",
		Description:     "<p>We shipped &amp; it was <b>great</b></p>",
		PublishedParsed: &published,
		Enclosures: []*gofeed.Enclosure{
			{URL: "https://example.com/a.jpg", Type: "image/jpeg"},
			{URL: "https://example.com/a.gif", Type: "image/gif"},
			{URL: "https://example.com/a.mp4", Type: "video/mp4"},
		},
	}

	item := feedEntryToItem(entry, "acme", "https://example.com/feed")
	if item == nil {
		t.Fatal("feedEntryToItem returned nil")
	}
	if item.ID != "guid-1" {
		t.Errorf("id = %q", item.ID)
	}
	if item.Text != "We shipped & it was great" {
		t.Errorf("text = %q", item.Text)
	}
	if _, err := ParseCreatedAt(item.CreatedAt); err != nil {
		t.Errorf("created_at %q not in wire layout: %v", item.CreatedAt, err)
	}
	if len(item.Media) != 3 {
		t.Fatalf("media = %+v", item.Media)
	}
	types := []string{item.Media[0].Type, item.Media[1].Type, item.Media[2].Type}
	want := []string{"photo", "animated_gif", "video"}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("media[%d] type = %q, want %q", i, types[i], want[i])
		}
	}
	if item.Author.Username != "acme" {
		t.Errorf("author = %+v", item.Author)
	}
}

func TestFeedEntryToItemSkipsEmpty(t *testing.T) {
	if item := feedEntryToItem(&gofeed.Item{}, "acme", ""); item != nil {
		t.Errorf("entry without ID should be skipped, got %+v", item)
	}
	if item := feedEntryToItem(&gofeed.Item{GUID: "g"}, "acme", ""); item != nil {
		t.Errorf("entry without text should be skipped, got %+v", item)
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<div>hello   <span>world</span></div> &quot;quoted&quot;")
	if got != `hello world "quoted"` {
		t.Errorf("stripHTML = %q", got)
	}
}

func TestFeedFetcherUnknownEntity(t *testing.T) {
	f := NewFeedFetcher(map[string]string{"acme": "https://example.com/feed"})
	if !f.IsConfigured() {
		t.Error("fetcher with feeds should be configured")
	}
	if _, err := f.Fetch(context.Background(), "globex", 10); err == nil {
		t.Error("expected error for entity without a feed")
	}
}
