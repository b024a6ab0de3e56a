package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Fetcher retrieves items for an entity. Implementations own their own
// timeouts and retries; callers only see items or an error.
type Fetcher interface {
	Fetch(ctx context.Context, entity string, maxItems int) ([]Item, error)
	IsConfigured() bool
}

// APIClient fetches items from the remote scraping service.
type APIClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewAPIClient creates a client for the scraping service. The token is read
// from the named environment variable.
func NewAPIClient(baseURL, tokenEnv string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   os.Getenv(tokenEnv),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// IsConfigured returns whether the API token is available.
func (c *APIClient) IsConfigured() bool {
	return c.token != "" && c.baseURL != ""
}

// Fetch retrieves up to maxItems recent items for an entity.
func (c *APIClient) Fetch(ctx context.Context, entity string, maxItems int) ([]Item, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("scrape API not configured (set the API token)")
	}

	params := url.Values{
		"handle":    {entity},
		"max_items": {strconv.Itoa(maxItems)},
		"replies":   {"true"},
		"reposts":   {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/items?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("scrape API returned %d: %s", resp.StatusCode, string(body))
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}

	if len(items) > maxItems {
		items = items[:maxItems]
	}

	log.Printf("Fetched %d items for %s", len(items), entity)
	return items, nil
}
