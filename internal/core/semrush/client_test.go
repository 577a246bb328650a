package semrush

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seolens/seolens/internal/core/ratelimit"
)

func testRegistry(t *testing.T) *ratelimit.Registry {
	t.Helper()
	reg, err := ratelimit.NewRegistry(ratelimit.Config{
		ShortLimit: 100,
		LongLimit:  1000,
	}, nil)
	require.NoError(t, err)
	return reg
}

func newTestClient(t *testing.T, baseURL string, reg *ratelimit.Registry) *Client {
	t.Helper()
	client, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
	}, reg)
	require.NoError(t, err)
	return client
}

func TestNewClientValidation(t *testing.T) {
	reg := testRegistry(t)

	_, err := NewClient(Config{}, reg)
	require.Error(t, err)

	_, err = NewClient(Config{APIKey: "k"}, nil)
	require.Error(t, err)

	client, err := NewClient(Config{APIKey: "k"}, reg)
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestEndpointKey(t *testing.T) {
	assert.Equal(t, "analytics", EndpointKey("/analytics/v1/domain_ranks"))
	assert.Equal(t, "backlinks", EndpointKey("/backlinks/v1/domain_backlinks"))
	assert.Equal(t, "reports", EndpointKey("reports"))
}

func TestGetDomainOverview(t *testing.T) {
	var gotPath, gotKey, gotTarget string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotTarget = r.URL.Query().Get("target")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic_traffic": "1.5K", "organic_keywords": 120}`))
	}))
	defer srv.Close()

	reg := testRegistry(t)
	client := newTestClient(t, srv.URL, reg)

	report, err := client.GetDomainOverview(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, "/analytics/v1/domain_ranks", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "example.com", gotTarget)
	assert.Equal(t, "1.5K", report["organic_traffic"])

	// The call must have been admitted through the analytics quota.
	usage := reg.EndpointUsage()
	assert.Equal(t, 1, usage["analytics"].ShortCount)
}

func TestRequestMapsHTTPErrorToAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "limit exceeded"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, testRegistry(t))

	_, err := client.GetBacklinksOverview(context.Background(), "example.com")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "limit exceeded", apiErr.Message)
	assert.Equal(t, 30*time.Second, apiErr.RetryAfter)
	assert.Contains(t, apiErr.ResponseText, "limit exceeded")
}

func TestRequestMapsDecodeFailureToAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, testRegistry(t))

	_, err := client.GetDomainMetrics(context.Background(), "example.com")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "decode response")
}

func TestRequestBlocksOnExhaustedLimiter(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	clock := time.Unix(1_000_000, 0)
	reg, err := ratelimit.NewRegistry(ratelimit.Config{
		ShortLimit: 1,
		MaxRetries: 1,
		TimeFunc:   func() time.Time { return clock },
		SleepFunc:  func(context.Context, time.Duration) error { return nil },
	}, nil)
	require.NoError(t, err)

	client := newTestClient(t, srv.URL, reg)

	_, err = client.GetDomainOverview(context.Background(), "example.com")
	require.NoError(t, err)

	// The second call exhausts the frozen-clock limiter and must not
	// reach the network.
	_, err = client.GetDomainOverview(context.Background(), "example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ratelimit.ErrExhausted))
	assert.EqualValues(t, 1, calls.Load())
}
