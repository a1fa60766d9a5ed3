package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits to prevent resource exhaustion when many cards
// poll the same platform host
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults
)

// StatusError is returned when the platform responds with a non-2xx status.
//
// The body snippet is limited to a short prefix; full bodies are never
// retained on the error path.
type StatusError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Body is a truncated prefix of the response body, for diagnostics.
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("platform returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("platform returned status %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client for the serverless platform API.
//
// Client uses per-request timeouts via context rather than a global timeout,
// so different callers can apply different deadlines. Response bodies are
// limited to 1MB. All methods honor context cancellation; a cancelled
// request surfaces an error satisfying errors.Is(err, context.Canceled).
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	timeout    time.Duration
}

// ClientOption configures a [Client] during construction.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Used by tests to
// inject httptest transports.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestTimeout sets the per-request timeout applied on top of the
// caller's context. Zero disables the client-side timeout.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a platform API [Client].
//
// baseURL is the platform origin (e.g., "https://api.example.dev"); token is
// the deploy key sent as a bearer credential on every request. The client is
// configured with connection pooling limits suitable for sustained polling:
//   - MaxIdleConns: 100 total idle connections
//   - MaxIdleConnsPerHost: 10 idle connections per host
//   - MaxConnsPerHost: 10 concurrent connections per host
//   - IdleConnTimeout: 60 seconds before closing idle connections
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false, // explicitly enable connection reuse
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logs fetches one batch of execution logs for a deployment, resuming from
// cursor. udf optionally restricts the batch to a single function; empty
// means all functions.
//
// A zero cursor starts from the beginning of the retained log window. The
// returned batch may be empty, and its NewCursor may be zero, meaning the
// caller should retain its previous cursor.
func (c *Client) Logs(ctx context.Context, deployment, udf string, cursor Cursor) (LogBatch, error) {
	q := url.Values{}
	if !cursor.IsZero() {
		q.Set("cursor", cursor.String())
	}
	if udf != "" {
		q.Set("udf", udf)
	}

	var batch LogBatch
	path := fmt.Sprintf("/api/v1/deployments/%s/logs", url.PathEscape(deployment))
	if err := c.get(ctx, path, q, &batch); err != nil {
		return LogBatch{}, fmt.Errorf("fetch logs: %w", err)
	}
	return batch, nil
}

// MetricSeries fetches the time series for one metric family over the given
// trailing window. metric must be one of the Metric* constants.
func (c *Client) MetricSeries(ctx context.Context, deployment, metric string, window time.Duration) (Series, error) {
	q := url.Values{}
	q.Set("window", strconv.FormatInt(int64(window/time.Second), 10)+"s")

	var series Series
	path := fmt.Sprintf("/api/v1/deployments/%s/metrics/%s", url.PathEscape(deployment), url.PathEscape(metric))
	if err := c.get(ctx, path, q, &series); err != nil {
		return Series{}, fmt.Errorf("fetch %s series: %w", metric, err)
	}
	return series, nil
}

// UDFStats fetches per-function execution statistics over the given trailing
// window.
func (c *Client) UDFStats(ctx context.Context, deployment string, window time.Duration) ([]UDFStat, error) {
	q := url.Values{}
	q.Set("window", strconv.FormatInt(int64(window/time.Second), 10)+"s")

	var stats []UDFStat
	path := fmt.Sprintf("/api/v1/deployments/%s/udfs", url.PathEscape(deployment))
	if err := c.get(ctx, path, q, &stats); err != nil {
		return nil, fmt.Errorf("fetch udf stats: %w", err)
	}
	return stats, nil
}

// Usage fetches the billing usage summary for a team.
func (c *Client) Usage(ctx context.Context, team string) (Usage, error) {
	var usage Usage
	path := fmt.Sprintf("/api/v1/teams/%s/usage", url.PathEscape(team))
	if err := c.get(ctx, path, nil, &usage); err != nil {
		return Usage{}, fmt.Errorf("fetch usage: %w", err)
	}
	return usage, nil
}

// get performs a GET request against the platform and decodes the JSON
// response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: bodySnippet(body)}
	}

	if len(body) == 0 {
		// empty body is treated as an empty result, not a failure
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// bodySnippet truncates an error body for inclusion in error messages.
func bodySnippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
