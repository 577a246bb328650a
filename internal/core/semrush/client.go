// Package semrush implements the analytics API client used to fetch
// domain SEO metrics. Every request is gated by the shared rate
// limiter registry before it reaches the network.
package semrush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seolens/seolens/internal/core/ratelimit"
)

// DefaultBaseURL is the production analytics API origin.
const DefaultBaseURL = "https://api.semrush.com"

const defaultTimeout = 30 * time.Second

// Report is a decoded API response payload. The API returns loosely
// shaped JSON, so values stay untyped until normalization.
type Report map[string]any

// Config holds client settings consumed from configuration.
type Config struct {
	APIKey   string        `mapstructure:"key"`
	BaseURL  string        `mapstructure:"base_url"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Client talks to the analytics API V3.
type Client struct {
	apiKey   string
	baseURL  string
	database string

	httpClient *http.Client
	limiter    *ratelimit.Registry
}

// NewClient builds a client. The limiter registry is required: a
// client that can bypass rate limiting is a configuration error.
func NewClient(cfg Config, limiter *ratelimit.Registry) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("semrush: api key is required")
	}
	if limiter == nil {
		return nil, errors.New("semrush: rate limiter registry is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	database := strings.TrimSpace(cfg.Database)
	if database == "" {
		database = "us"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		database:   database,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}, nil
}

// GetDomainOverview fetches domain rank data: traffic, cost and
// keyword counts.
func (c *Client) GetDomainOverview(ctx context.Context, domain string) (Report, error) {
	params := url.Values{
		"target":         {domain},
		"database":       {c.database},
		"display_date":   {"yesterday"},
		"display_limit":  {"100"},
		"display_sort":   {"tr_count_desc"},
		"export_columns": {"Ot,Oc,Or,Ob,Op,Od"},
	}
	return c.request(ctx, "/analytics/v1/domain_ranks", params)
}

// GetDomainMetrics fetches detailed organic metrics for a domain.
func (c *Client) GetDomainMetrics(ctx context.Context, domain string) (Report, error) {
	params := url.Values{
		"target":         {domain},
		"database":       {c.database},
		"display_date":   {"yesterday"},
		"export_columns": {"Rk,Kt,Po,Cp,Ur,Tr"},
	}
	return c.request(ctx, "/analytics/v1/domain_organic", params)
}

// GetBacklinksOverview fetches backlink counts and referring domains.
func (c *Client) GetBacklinksOverview(ctx context.Context, domain string) (Report, error) {
	params := url.Values{
		"target":         {domain},
		"export_columns": {"source_url,anchor,external,nofollow"},
	}
	return c.request(ctx, "/backlinks/v1/domain_backlinks", params)
}

// EndpointKey maps an API path to its rate-limit quota group: the
// first path segment, so all analytics operations share one quota and
// all backlinks operations another.
func EndpointKey(endpoint string) string {
	trimmed := strings.TrimPrefix(endpoint, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

func (c *Client) request(ctx context.Context, endpoint string, params url.Values) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := c.limiter.WaitForEndpoint(ctx, EndpointKey(endpoint)); err != nil {
		return nil, err
	}

	params.Set("key", c.apiKey)
	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("semrush: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("read response: %v", err), StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Message:      errorMessage(body, resp.Status),
			StatusCode:   resp.StatusCode,
			ResponseText: string(body),
			RetryAfter:   retryAfterHeader(resp),
		}
	}

	var report Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, &APIError{
			Message:      fmt.Sprintf("decode response: %v", err),
			StatusCode:   resp.StatusCode,
			ResponseText: string(body),
		}
	}
	return report, nil
}

// errorMessage digs a human-readable message out of an error payload,
// falling back to the HTTP status line.
func errorMessage(body []byte, status string) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return "API request failed: " + status
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil || resp.Header == nil {
		return 0
	}

	retry := resp.Header.Get("Retry-After")
	if retry == "" {
		return 0
	}

	if seconds, err := time.ParseDuration(retry + "s"); err == nil {
		return seconds
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		return time.Until(parsed)
	}
	return 0
}
