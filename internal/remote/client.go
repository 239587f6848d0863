package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/invsync/inventory-sync-server/internal/catalog"
	"github.com/invsync/inventory-sync-server/internal/sign"
	"github.com/invsync/inventory-sync-server/internal/target"
)

// Client talks to one target's remote platform. Every request carries a
// freshly timestamped HMAC authorization header (signatures are
// time-bound, so the timestamp is regenerated per attempt).
type Client struct {
	client  *http.Client
	tgt     *target.Credentials
	limiter *rate.Limiter
	stats   *Stats
}

// NewClient creates a client for one target. stats may be nil.
func NewClient(tgt *target.Credentials, stats *Stats) *Client {
	timeout := time.Duration(tgt.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if tgt.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(tgt.RateLimit), 1)
	}

	return &Client{
		client:  &http.Client{Timeout: timeout},
		tgt:     tgt,
		limiter: limiter,
		stats:   stats,
	}
}

// listResponse is the wire shape of one listing page.
type listResponse struct {
	Data    []catalog.Entry `json:"data"`
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Page    int             `json:"page"`
	Pages   int             `json:"pages"`
}

// updateResponse is decoded only for targets with the success-flag
// capability.
type updateResponse struct {
	Success bool `json:"success"`
}

// ListPage fetches one page of the target's listing. Listing is
// idempotent, so transport failures, 429 and 5xx are retried with
// exponential backoff, honoring Retry-After.
func (c *Client) ListPage(ctx context.Context, page int) ([]catalog.Entry, error) {
	var lastErr error

	for attempt := 0; attempt <= c.tgt.MaxRetries; attempt++ {
		c.stats.IncListAttempt()

		if attempt > 0 {
			c.stats.IncListRetry()

			backoff := time.Duration(c.tgt.BackoffMs) * time.Duration(1<<uint(attempt-1)) * time.Millisecond
			if max := time.Duration(c.tgt.BackoffMaxMs) * time.Millisecond; backoff > max {
				backoff = max
			}
			if httpErr, ok := lastErr.(*HTTPError); ok && httpErr.RetryAfter > 0 {
				backoff = httpErr.RetryAfter
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		entries, err := c.listPageOnce(ctx, page)
		if err == nil {
			return entries, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) listPageOnce(ctx context.Context, page int) ([]catalog.Entry, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	url := fmt.Sprintf("%s%s?active=true&page=%d&pagesize=%d",
		c.tgt.BaseURL, c.tgt.ListPath, page, c.tgt.PageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request error: %w", err)
	}
	// Query parameters are excluded from the signature.
	if err := c.authorize(req, c.tgt.ListPath); err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var listing listResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode listing error: %w", err)
	}
	return listing.Data, nil
}

// UpdateStock sets the stock level of one resolved item. The call is
// made exactly once: a set-stock retried after a lost response cannot be
// told apart from a duplicate apply, so at-most-once is the accepted
// policy here.
func (c *Client) UpdateStock(ctx context.Context, remoteID string, quantity int) error {
	c.stats.IncUpdateAttempt()

	path := c.tgt.ListPath + "/" + remoteID

	payload, err := json.Marshal(map[string]int{"stockLevel": quantity})
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.tgt.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req, path); err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if c.tgt.SuccessFlag {
		var update updateResponse
		if err := json.Unmarshal(bodyBytes, &update); err != nil {
			return fmt.Errorf("decode update response error: %w", err)
		}
		if !update.Success {
			return &HTTPError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
		}
	}

	return nil
}

// authorize signs the request and sets the vendor auth headers. The
// method and target path must match what the remote verifies.
func (c *Client) authorize(req *http.Request, path string) error {
	timestamp := sign.Timestamp(time.Now())

	signature, err := sign.Build(req.Method, path, timestamp, c.tgt.Token, c.tgt.Secret, c.tgt.Algorithm)
	if err != nil {
		return fmt.Errorf("target %s: %w", c.tgt.Name, err)
	}

	prefix := c.tgt.VendorPrefix
	req.Header.Set("x-"+prefix+"-date", timestamp)
	req.Header.Set("x-"+prefix+"-authorization", signature)
	if c.tgt.Algorithm == target.SHA256 {
		req.Header.Set("x-"+prefix+"-algorithm", "SHA256")
	}
	return nil
}

// isRetryable reports whether a listing error is worth another attempt.
func isRetryable(err error) bool {
	httpErr, ok := err.(*HTTPError)
	if !ok {
		// Network errors are retryable.
		return true
	}
	if httpErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return httpErr.StatusCode >= 500
}

// parseRetryAfter parses a Retry-After header given in seconds.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// HTTPError captures a remote rejection: status and body are kept
// verbatim for diagnostics.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
