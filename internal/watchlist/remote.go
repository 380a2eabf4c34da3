package watchlist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Remote is the contract to the remote watchlist service: a per-subscriber
// slug set with fetch and full-replace operations.
type Remote interface {
	// Fetch returns the remote slug set for the subscriber.
	Fetch(ctx context.Context, subscriberID string) ([]string, error)

	// Replace overwrites the remote slug set for the subscriber.
	Replace(ctx context.Context, subscriberID string, slugs []string) error
}

// Client talks to the remote watchlist service over HTTP:
//
//	GET  {base}/api/watchlist/{subscriberId} → {"success": bool, "watchlist": [slug]}
//	POST {base}/api/watchlist/{subscriberId} with {"slugs": [slug]}
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time interface check.
var _ Remote = (*Client)(nil)

// NewClient creates a remote watchlist client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type fetchResponse struct {
	Success   bool     `json:"success"`
	Watchlist []string `json:"watchlist"`
}

type replaceRequest struct {
	Slugs []string `json:"slugs"`
}

// Fetch implements Remote.
func (c *Client) Fetch(ctx context.Context, subscriberID string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.watchlistURL(subscriberID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote watchlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching remote watchlist: status %d", resp.StatusCode)
	}

	var out fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding remote watchlist: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("remote watchlist service reported failure")
	}
	return out.Watchlist, nil
}

// Replace implements Remote.
func (c *Client) Replace(ctx context.Context, subscriberID string, slugs []string) error {
	if slugs == nil {
		slugs = []string{}
	}
	body, err := json.Marshal(replaceRequest{Slugs: slugs})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.watchlistURL(subscriberID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pushing remote watchlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("pushing remote watchlist: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) watchlistURL(subscriberID string) string {
	return c.baseURL + "/api/watchlist/" + url.PathEscape(subscriberID)
}
