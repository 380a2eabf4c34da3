// Package gamma provides a read-only client for the Polymarket Gamma
// events API.
package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"polywatch/internal/domain"
	"polywatch/internal/util"
)

// Client fetches market events from the Gamma API. All methods return an
// error on any non-2xx response or decode failure; callers treat that as
// a failed fetch and retry on their own schedule.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *util.RateLimiter
}

// NewClient creates a Gamma API client. perMinute caps the request rate;
// zero disables the limiter.
func NewClient(baseURL string, timeout time.Duration, perMinute int) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    util.NewRateLimiter(perMinute),
	}
}

// RecentEvents fetches up to limit active events sorted by creation date,
// most recent first.
func (c *Client) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	return c.getEvents(ctx, url.Values{
		"limit":     {strconv.Itoa(limit)},
		"offset":    {"0"},
		"active":    {"true"},
		"closed":    {"false"},
		"order":     {"createdAt"},
		"ascending": {"false"},
	})
}

// HotEvents fetches up to limit active events sorted by trading volume,
// highest first.
func (c *Client) HotEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	return c.getEvents(ctx, url.Values{
		"limit":     {strconv.Itoa(limit)},
		"active":    {"true"},
		"closed":    {"false"},
		"order":     {"volume"},
		"ascending": {"false"},
	})
}

// EventBySlug fetches a single event by its slug. Returns nil without an
// error when the slug is unknown.
func (c *Client) EventBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	events, err := c.getEvents(ctx, url.Values{"slug": {slug}})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (c *Client) getEvents(ctx context.Context, params url.Values) ([]domain.Event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + "/events?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching events: status %d", resp.StatusCode)
	}

	var events []domain.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}
	return events, nil
}
