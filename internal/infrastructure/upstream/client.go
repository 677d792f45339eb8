// Package upstream reads users from the JSONPlaceholder-style REST API.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lllypuk/userdir/internal/domain/errs"
	"github.com/lllypuk/userdir/internal/domain/user"
	"github.com/lllypuk/userdir/internal/infrastructure/metrics"
)

// DefaultBaseURL is the public demo API the directory was built against.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

const (
	endpointListUsers = "list_users"
	endpointGetUser   = "get_user"

	maxBodyBytes = 10 << 20
)

// Config contains configuration for Client.
type Config struct {
	// BaseURL is the API root, for example https://jsonplaceholder.typicode.com.
	BaseURL string

	// HTTPClient is an optional custom HTTP client. Its transport is
	// wrapped, the client itself is not modified.
	HTTPClient *http.Client

	// UserAgent is sent with every request when set.
	UserAgent string

	// Metrics enables request instrumentation when set.
	Metrics *metrics.UpstreamMetrics

	// Middleware runs after the built-in stages, closest to the wire.
	Middleware []RoundTripperMiddleware
}

// Client fetches user records. It performs exactly one GET per call, with
// no retries and no caching.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new upstream client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: upstream base URL is required", errs.ErrInvalidInput)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: invalid upstream base URL %q", errs.ErrInvalidInput, cfg.BaseURL)
	}

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		clientCopy := *cfg.HTTPClient
		httpClient = &clientCopy
	}

	stages := []RoundTripperMiddleware{
		WithUserAgent(cfg.UserAgent),
		WithMetrics(cfg.Metrics),
	}
	stages = append(stages, cfg.Middleware...)
	httpClient.Transport = Chain(httpClient.Transport, stages...)

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoadAll fetches and normalizes the full user list in upstream order.
func (c *Client) LoadAll(ctx context.Context) ([]user.User, error) {
	var records []user.Record
	if err := c.getJSON(ctx, c.baseURL+"/users", &records, nil); err != nil {
		return nil, err
	}

	users, err := user.NormalizeAll(records)
	if err != nil {
		return nil, &TransportError{Cause: err}
	}

	return users, nil
}

// GetUser fetches one user by id. A 404 matches errs.ErrNotFound.
func (c *Client) GetUser(ctx context.Context, id int) (user.User, error) {
	if id <= 0 {
		return user.User{}, fmt.Errorf("%w: user id must be positive", errs.ErrInvalidInput)
	}

	var record user.Record
	reqURL := c.baseURL + "/users/" + strconv.Itoa(id)
	err := c.getJSON(ctx, reqURL, &record, func(code int) error {
		if code == http.StatusNotFound {
			return errs.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}

	u, err := user.Normalize(record)
	if err != nil {
		return user.User{}, &TransportError{Cause: err}
	}

	return u, nil
}

// getJSON performs a GET and decodes a 2xx body into out. statusCause may
// supply a more specific cause for a non-2xx status.
func (c *Client) getJSON(ctx context.Context, reqURL string, out any, statusCause func(int) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &TransportError{Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

		var cause error = statusError{code: resp.StatusCode}
		if statusCause != nil {
			if specific := statusCause(resp.StatusCode); specific != nil {
				cause = specific
			}
		}
		return &TransportError{StatusCode: resp.StatusCode, Cause: cause}
	}

	if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); decodeErr != nil {
		return &TransportError{Cause: fmt.Errorf("failed to decode response: %w", decodeErr)}
	}

	return nil
}
