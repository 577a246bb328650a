package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seolens/seolens/internal/config"
	"github.com/seolens/seolens/internal/core/ratelimit"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	reg, err := ratelimit.NewRegistry(ratelimit.Config{}, nil)
	require.NoError(t, err)
	_, err = reg.GetLimiter("analytics")
	require.NoError(t, err)

	return New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, nil, reg, "1.2.3-test")
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestVersion(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/version")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1.2.3-test")
}

func TestStatusReportsDegradedStoreAndLimiterUsage(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/v1/status")

	// No store wired: the service is up but degraded.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.Store)

	usage, ok := resp.RateLimits["analytics"]
	require.True(t, ok)
	assert.Equal(t, ratelimit.DefaultShortLimit, usage.ShortLimit)
	assert.Equal(t, ratelimit.DefaultLongLimit, usage.LongLimit)
}

func TestMetricsWithoutStore(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/v1/metrics/example.com")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRejectsBadLimit(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/v1/metrics/example.com?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id", rec.Header().Get(RequestIDHeader))
}

func TestRequestIDGenerated(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/healthz")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestShutdownWithoutStart(t *testing.T) {
	require.NoError(t, newTestServer(t).Shutdown(context.Background()))
}
