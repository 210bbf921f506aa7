// Package picsum is an HTTP transport for Picsum-style photo list endpoints:
// GET <endpoint>?page=<n>&limit=<m> returning a JSON array of photo records.
package picsum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/swipedeck/internal/source"
)

// DefaultEndpoint is the public Picsum list endpoint.
const DefaultEndpoint = "https://picsum.photos/v2/list"

// maxBodyBytes caps the response body read.
const maxBodyBytes = 4 << 20

// StatusError reports a non-200 response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("picsum: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client lists photos from a Picsum-compatible endpoint.
type Client struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a Client. An empty endpoint uses DefaultEndpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(250*time.Millisecond), 2),
	}
}

// List implements source.Transport.
func (c *Client) List(ctx context.Context, page, limit int) ([]source.Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("picsum: rate limiter wait failed: %w", err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("picsum: invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("picsum: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "swipedeck/0.1 (+https://github.com/abelbrown/swipedeck)")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("picsum: request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("picsum: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("picsum: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	var records []source.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("picsum: failed to parse response: %w", err)
	}
	return records, nil
}
