// Package freshbooks is a small FreshBooks REST client. Every failure it returns is one
// of the raw failure types from mcperror, so callers can normalize it without guessing.
package freshbooks

// file: internal/freshbooks/client.go

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/dkoosis/freshbooks-mcp/internal/config"
	"github.com/dkoosis/freshbooks-mcp/internal/logging"
	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

// TokenProvider supplies a valid OAuth access token for each request.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client calls the FreshBooks API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	limiter    *rate.Limiter
	maxRetries int
	logger     logging.Logger

	// retryInitial and maxRetryWait bound the retry schedule.
	retryInitial time.Duration
	maxRetryWait time.Duration
}

// NewClient creates a Client from the FreshBooks configuration.
func NewClient(cfg config.FreshBooksConfig, tokens TokenProvider, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		tokens:       tokens,
		limiter:      rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries:   cfg.MaxRetries,
		logger:       logger.WithField("component", "freshbooks_client"),
		retryInitial: 500 * time.Millisecond,
		maxRetryWait: time.Minute,
	}
}

// Do sends a request and decodes a successful JSON response into out (when out is not nil).
// GET requests are retried while the failure is recoverable.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	if method == http.MethodGet {
		return c.withRetry(ctx, method+" "+path, func() error {
			return c.doOnce(ctx, method, path, body, out)
		})
	}
	return c.doOnce(ctx, method, path, body, out)
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return &mcperror.NetworkFailure{Op: op, Err: err}
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "failed to encode request body for %s", op)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "failed to create request for %s", op)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Version", "alpha")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &mcperror.NetworkFailure{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &mcperror.NetworkFailure{Op: op, Err: err}
	}
	c.logger.Debug("FreshBooks request completed.", "op", op, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp, respBody)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrapf(err, "failed to decode FreshBooks response for %s", op)
	}
	return nil
}
