package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Classifier is the interface for remote sentiment classifiers.
type Classifier interface {
	ClassifySentiment(ctx context.Context, text string) (label string, score float64, err error)
}

// Summarizer is the interface for remote text summarizers.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ModelClient calls a model-serving endpoint for classification and
// summarization. Both calls are best-effort from the extractor's point of
// view; failures degrade to lexicon scoring and truncation.
type ModelClient struct {
	BaseURL string
	client  *http.Client
}

// NewModelClient creates a model client against the given base URL.
func NewModelClient(baseURL string) *ModelClient {
	return &ModelClient{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured checks whether the model endpoint answers.
func (m *ModelClient) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", m.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ClassifySentiment sends text to the classification endpoint.
func (m *ModelClient) ClassifySentiment(ctx context.Context, text string) (string, float64, error) {
	var result struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := m.post(ctx, "/classify", map[string]string{"text": text}, &result); err != nil {
		return "", 0, err
	}
	return result.Label, result.Score, nil
}

// Summarize sends text to the summarization endpoint.
func (m *ModelClient) Summarize(ctx context.Context, text string) (string, error) {
	var result struct {
		Summary string `json:"summary"`
	}
	if err := m.post(ctx, "/summarize", map[string]string{"text": text}, &result); err != nil {
		return "", err
	}
	return result.Summary, nil
}

func (m *ModelClient) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("model API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("model API returned %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
