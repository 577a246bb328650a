package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seolens/seolens/internal/core"
	"github.com/seolens/seolens/internal/core/semrush"
)

type stubAPI struct {
	overview  []call
	organic   []call
	backlinks []call

	overviewCalls  int
	organicCalls   int
	backlinksCalls int
}

type call struct {
	report semrush.Report
	err    error
}

func (s *stubAPI) next(calls []call, count int) (semrush.Report, error) {
	if len(calls) == 0 {
		return semrush.Report{}, nil
	}
	if count >= len(calls) {
		count = len(calls) - 1
	}
	return calls[count].report, calls[count].err
}

func (s *stubAPI) GetDomainOverview(ctx context.Context, domain string) (semrush.Report, error) {
	defer func() { s.overviewCalls++ }()
	return s.next(s.overview, s.overviewCalls)
}

func (s *stubAPI) GetDomainMetrics(ctx context.Context, domain string) (semrush.Report, error) {
	defer func() { s.organicCalls++ }()
	return s.next(s.organic, s.organicCalls)
}

func (s *stubAPI) GetBacklinksOverview(ctx context.Context, domain string) (semrush.Report, error) {
	defer func() { s.backlinksCalls++ }()
	return s.next(s.backlinks, s.backlinksCalls)
}

type stubStore struct {
	domains      map[string]int64
	metrics      []core.DomainMetrics
	runs         []core.CollectionRun
	finished     map[string]core.RunStatus
	finishErrors map[string]string
	registration map[string]core.RegistrationInfo

	insertErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		domains:      map[string]int64{},
		finished:     map[string]core.RunStatus{},
		finishErrors: map[string]string{},
		registration: map[string]core.RegistrationInfo{},
	}
}

func (s *stubStore) UpsertDomain(ctx context.Context, domain string) (int64, error) {
	if id, ok := s.domains[domain]; ok {
		return id, nil
	}
	id := int64(len(s.domains) + 1)
	s.domains[domain] = id
	return id, nil
}

func (s *stubStore) SetRegistration(ctx context.Context, domain string, info core.RegistrationInfo) error {
	s.registration[domain] = info
	return nil
}

func (s *stubStore) InsertMetrics(ctx context.Context, domainID int64, m core.DomainMetrics) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.metrics = append(s.metrics, m)
	return nil
}

func (s *stubStore) RecordRun(ctx context.Context, run core.CollectionRun) error {
	s.runs = append(s.runs, run)
	return nil
}

func (s *stubStore) FinishRun(ctx context.Context, id string, status core.RunStatus, runErr string) error {
	s.finished[id] = status
	s.finishErrors[id] = runErr
	return nil
}

type stubLookup struct {
	info *core.RegistrationInfo
	err  error
}

func (s *stubLookup) Lookup(ctx context.Context, domain string) (*core.RegistrationInfo, error) {
	return s.info, s.err
}

func fullReports() *stubAPI {
	return &stubAPI{
		overview: []call{{report: semrush.Report{
			"organic_traffic":      "1.5K",
			"paid_traffic":         "200",
			"organic_traffic_cost": "$310.50",
		}}},
		organic: []call{{report: semrush.Report{
			"organic_keywords": "120",
			"paid_keywords":    "15",
		}}},
		backlinks: []call{{report: semrush.Report{
			"backlink_count":    "900",
			"referring_domains": "45",
			"domain_authority":  "61",
		}}},
	}
}

func buildCollector(t *testing.T, api API, store Storage, lookup RegistrationLookup, cfg Config) *Collector {
	t.Helper()
	c, err := New(api, store, lookup, cfg, zap.NewNop())
	require.NoError(t, err)
	c.clock = func() time.Time { return time.Unix(1_700_000_000, 0) }
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, newStubStore(), nil, Config{}, nil)
	require.Error(t, err)

	_, err = New(fullReports(), nil, nil, Config{}, nil)
	require.Error(t, err)
}

func TestCollectHappyPath(t *testing.T) {
	store := newStubStore()
	c := buildCollector(t, fullReports(), store, nil, Config{})

	result, err := c.Collect(context.Background(), "https://www.Example.com/about")
	require.NoError(t, err)

	assert.Equal(t, core.RunStatusSucceeded, result.Run.Status)
	assert.Empty(t, result.Problems)
	assert.Equal(t, "example.com", result.Metrics.Domain)

	require.Len(t, store.metrics, 1)
	m := store.metrics[0]
	require.NotNil(t, m.OrganicTraffic)
	assert.EqualValues(t, 1500, *m.OrganicTraffic)
	require.NotNil(t, m.BacklinkCount)
	assert.EqualValues(t, 900, *m.BacklinkCount)
	require.NotNil(t, m.OrganicTrafficCost)
	assert.InDelta(t, 310.5, *m.OrganicTrafficCost, 0.001)

	require.Len(t, store.runs, 1)
	assert.Equal(t, core.RunStatusSucceeded, store.finished[store.runs[0].ID])
}

func TestCollectRejectsInvalidDomain(t *testing.T) {
	c := buildCollector(t, fullReports(), newStubStore(), nil, Config{})

	_, err := c.Collect(context.Background(), "not a domain")
	require.Error(t, err)
}

func TestCollectFailsOnOverviewError(t *testing.T) {
	api := fullReports()
	api.overview = []call{{err: &semrush.APIError{Message: "bad request", StatusCode: 400}}}

	store := newStubStore()
	c := buildCollector(t, api, store, nil, Config{})

	_, err := c.Collect(context.Background(), "example.com")
	require.Error(t, err)

	// Client errors are not retried.
	assert.Equal(t, 1, api.overviewCalls)
	assert.Empty(t, store.metrics)

	require.Len(t, store.runs, 1)
	assert.Equal(t, core.RunStatusFailed, store.finished[store.runs[0].ID])
}

func TestCollectPartialWhenBacklinksUnavailable(t *testing.T) {
	api := fullReports()
	api.backlinks = []call{{err: &semrush.APIError{Message: "forbidden", StatusCode: 403}}}

	store := newStubStore()
	c := buildCollector(t, api, store, nil, Config{})

	result, err := c.Collect(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, core.RunStatusPartial, result.Run.Status)
	assert.NotEmpty(t, result.Problems)
	assert.Nil(t, result.Metrics.BacklinkCount)

	// Metrics without backlink data are still persisted.
	require.Len(t, store.metrics, 1)
	assert.Contains(t, store.finishErrors[store.runs[0].ID], "backlinks unavailable")
}

func TestCollectRetriesServerErrors(t *testing.T) {
	api := fullReports()
	api.overview = []call{
		{err: &semrush.APIError{Message: "server error", StatusCode: 500}},
		{err: &semrush.APIError{Message: "server error", StatusCode: 503}},
		{report: semrush.Report{"organic_traffic": "1.5K"}},
	}

	store := newStubStore()
	c := buildCollector(t, api, store, nil, Config{RetryAttempts: 3, RetryBackoff: time.Second})

	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	result, err := c.Collect(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, 3, api.overviewCalls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeps)
	require.NotNil(t, result.Metrics.OrganicTraffic)
}

func TestCollectHonorsRetryAfterHint(t *testing.T) {
	api := fullReports()
	api.overview = []call{
		{err: &semrush.APIError{Message: "limited", StatusCode: 429, RetryAfter: 5 * time.Second}},
		{report: semrush.Report{"organic_traffic": "1.5K"}},
	}

	c := buildCollector(t, api, newStubStore(), nil, Config{RetryAttempts: 2, RetryBackoff: time.Second})

	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	_, err := c.Collect(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second}, sleeps)
}

func TestCollectExhaustsRetries(t *testing.T) {
	api := fullReports()
	api.overview = []call{{err: &semrush.APIError{Message: "server error", StatusCode: 500}}}

	store := newStubStore()
	c := buildCollector(t, api, store, nil, Config{RetryAttempts: 2})

	_, err := c.Collect(context.Background(), "example.com")
	require.Error(t, err)

	assert.Equal(t, 2, api.overviewCalls)
	assert.Equal(t, core.RunStatusFailed, store.finished[store.runs[0].ID])
}

func TestCollectEnrichesRegistration(t *testing.T) {
	store := newStubStore()
	lookup := &stubLookup{info: &core.RegistrationInfo{
		Registrar:   "Example Registrar",
		CreatedDate: "1995-08-14",
		ExpiryDate:  "2027-08-13",
	}}
	c := buildCollector(t, fullReports(), store, lookup, Config{})

	result, err := c.Collect(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, core.RunStatusSucceeded, result.Run.Status)
	info, ok := store.registration["example.com"]
	require.True(t, ok)
	assert.Equal(t, "Example Registrar", info.Registrar)
}

func TestCollectRegistrationFailureDegradesToPartial(t *testing.T) {
	store := newStubStore()
	lookup := &stubLookup{err: errors.New("rdap unavailable")}
	c := buildCollector(t, fullReports(), store, lookup, Config{})

	result, err := c.Collect(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, core.RunStatusPartial, result.Run.Status)
	assert.Contains(t, result.Problems[len(result.Problems)-1], "registration unavailable")

	// The metrics row itself is unaffected.
	require.Len(t, store.metrics, 1)
}

func TestCollectRecordsCollectionDate(t *testing.T) {
	store := newStubStore()
	c := buildCollector(t, fullReports(), store, nil, Config{})

	result, err := c.Collect(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC().Format("2006-01-02"), result.Metrics.CollectedOn)
}
