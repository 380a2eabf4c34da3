// Package polywatch provides a Go SDK for the polywatch daemon API.
package polywatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to a running polywatch daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new polywatch API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Event is an event as served by the daemon API.
type Event struct {
	ID        string   `json:"id"`
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Category  string   `json:"category,omitempty"`
	Volume    float64  `json:"volume"`
	Liquidity float64  `json:"liquidity"`
	CreatedAt string   `json:"createdAt,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	Image     string   `json:"image,omitempty"`
	Markets   []Market `json:"markets,omitempty"`
}

// Market is a sub-market of an event.
type Market struct {
	Question string    `json:"question"`
	Outcomes []string  `json:"outcomes,omitempty"`
	Prices   []float64 `json:"prices,omitempty"`
	Volume   float64   `json:"volume"`
}

// WatchlistEntry pairs a watched slug with its last-known snapshot.
// Event is nil for entries the daemon has not resolved yet.
type WatchlistEntry struct {
	Slug  string `json:"slug"`
	Event *Event `json:"event"`
}

// ToggleResult reports the state of a slug after a toggle.
type ToggleResult struct {
	Slug    string `json:"slug"`
	Watched bool   `json:"watched"`
}

// RecentEvents retrieves the newest events, most recent first.
func (c *Client) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	var out []Event
	return out, c.get(ctx, "/api/events/recent", limit, &out)
}

// HotEvents retrieves the highest-volume events.
func (c *Client) HotEvents(ctx context.Context, limit int) ([]Event, error) {
	var out []Event
	return out, c.get(ctx, "/api/events/hot", limit, &out)
}

// Posted retrieves recently notified events, newest first.
func (c *Client) Posted(ctx context.Context, limit int) ([]Event, error) {
	var out []Event
	return out, c.get(ctx, "/api/events/posted", limit, &out)
}

// Watchlist retrieves the watched entries in display order.
func (c *Client) Watchlist(ctx context.Context) ([]WatchlistEntry, error) {
	var out []WatchlistEntry
	return out, c.get(ctx, "/api/watchlist", 0, &out)
}

// Toggle flips the watched state of a slug.
func (c *Client) Toggle(ctx context.Context, slug string) (ToggleResult, error) {
	var out ToggleResult
	err := c.do(ctx, http.MethodPost, "/api/watchlist/"+url.PathEscape(slug), &out)
	return out, err
}

// Clear removes all watchlist entries.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/watchlist", nil)
}

func (c *Client) get(ctx context.Context, path string, limit int, out any) error {
	u := c.baseURL + path
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(nil))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
