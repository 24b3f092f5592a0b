// Package provision creates test accounts through the back-end signup API.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/common"
	"github.com/ternarybob/webprobe/internal/interfaces"
	"github.com/ternarybob/webprobe/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout for the signup call
	DefaultTimeout = 10 * time.Second

	// maxBodyExcerpt bounds how much of an error response is kept
	maxBodyExcerpt = 2048
)

// Client posts accounts to the signup endpoint
type Client struct {
	signupURL  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

var _ interfaces.AccountProvisioner = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit throttles signup requests; 0 disables throttling.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// NewClient creates a signup client for signupURL
func NewClient(signupURL string, logger arbor.ILogger, opts ...ClientOption) *Client {
	c := &Client{
		signupURL: signupURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:  logger,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig creates a client from the [backend] config section
func NewClientFromConfig(config *common.Config, logger arbor.ILogger) *Client {
	return NewClient(config.SignupURL(), logger,
		WithHTTPClient(&http.Client{Timeout: config.RequestTimeout()}),
		WithRateLimit(config.Backend.RateLimit),
	)
}

// SignupURL returns the endpoint this client posts to
func (c *Client) SignupURL() string {
	return c.signupURL
}

// Provision creates account on the back-end. Only 201 Created counts as
// success; there are no retries.
func (c *Client) Provision(ctx context.Context, account models.Account) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrProvisioning, err)
	}

	payload, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("%w: failed to encode account: %v", ErrProvisioning, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.signupURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrProvisioning, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("url", c.signupURL).
		Str("username", account.Username).
		Str("email", account.Email).
		Msg("Provisioning test account")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyExcerpt))
		perr := &ProvisionError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			URL:        c.signupURL,
		}
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", perr.Body).
			Str("email", account.Email).
			Msg("Signup endpoint refused test account")
		return perr
	}

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info().
		Str("username", account.Username).
		Str("email", account.Email).
		Dur("duration", time.Since(started)).
		Msg("Test account created")

	return nil
}
