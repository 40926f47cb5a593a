// Package kb is the client for the knowledge-base search service used to
// ground generated replies in policy and FAQ passages.
package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// Client queries the knowledge-base search endpoint over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a knowledge-base client for the given endpoint.
func New(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type searchResult struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Search returns up to topK passage texts for the query, in the service's
// ranking order.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, "api/v1/search")

	q := u.Query()
	q.Set("q", query)
	q.Set("k", strconv.Itoa(topK))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kb search failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kb returned %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	passages := make([]string, 0, len(sr.Results))
	for _, r := range sr.Results {
		if r.Text == "" {
			continue
		}
		passages = append(passages, r.Text)
		if len(passages) >= topK {
			break
		}
	}
	return passages, nil
}
