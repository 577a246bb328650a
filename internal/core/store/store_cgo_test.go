//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seolens/seolens/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func int64p(v int64) *int64       { return &v }
func float64p(v float64) *float64 { return &v }

func TestOpenRequiresPathOrURL(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	require.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "postgres", Path: ":memory:"})
	require.Error(t, err)
}

func TestUpsertDomainIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertDomain(ctx, "example.com")
	require.NoError(t, err)
	second, err := s.UpsertDomain(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := s.UpsertDomain(ctx, "other.com")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestSetRegistrationRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertDomain(ctx, "example.com")
	require.NoError(t, err)

	info := core.RegistrationInfo{
		Registrar:   "Example Registrar",
		CreatedDate: "1995-08-14",
		ExpiryDate:  "2027-08-13",
		CheckedAt:   time.Unix(1_700_000_000, 0),
	}
	require.NoError(t, s.SetRegistration(ctx, "example.com", info))

	rec, err := s.GetDomain(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, rec.Registration)
	assert.Equal(t, "Example Registrar", rec.Registration.Registrar)
	assert.Equal(t, "1995-08-14", rec.Registration.CreatedDate)
	assert.Equal(t, "2027-08-13", rec.Registration.ExpiryDate)
	assert.Equal(t, int64(1_700_000_000), rec.Registration.CheckedAt.Unix())
}

func TestSetRegistrationUnknownDomain(t *testing.T) {
	s := openTestStore(t)

	err := s.SetRegistration(context.Background(), "missing.com", core.RegistrationInfo{Registrar: "r"})
	require.Error(t, err)
}

func TestGetDomainUnknownReturnsNil(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.GetDomain(context.Background(), "missing.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestInsertMetricsReplacesSameDay(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertDomain(ctx, "example.com")
	require.NoError(t, err)

	metrics := core.DomainMetrics{
		Domain:             "example.com",
		CollectedOn:        "2026-08-29",
		OrganicTraffic:     int64p(1500),
		OrganicKeywords:    int64p(120),
		OrganicTrafficCost: float64p(310.5),
		BacklinkCount:      int64p(900),
	}
	require.NoError(t, s.InsertMetrics(ctx, id, metrics))

	metrics.OrganicTraffic = int64p(1800)
	require.NoError(t, s.InsertMetrics(ctx, id, metrics))

	records, err := s.ListMetrics(ctx, "example.com", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].OrganicTraffic)
	assert.EqualValues(t, 1800, *records[0].OrganicTraffic)
	assert.Nil(t, records[0].PaidTraffic)
}

func TestListMetricsOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertDomain(ctx, "example.com")
	require.NoError(t, err)

	for _, day := range []string{"2026-08-27", "2026-08-29", "2026-08-28"} {
		m := core.DomainMetrics{Domain: "example.com", CollectedOn: day, OrganicTraffic: int64p(1)}
		require.NoError(t, s.InsertMetrics(ctx, id, m))
	}

	records, err := s.ListMetrics(ctx, "example.com", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2026-08-29", records[0].CollectedOn)
	assert.Equal(t, "2026-08-28", records[1].CollectedOn)
}

func TestDateColumnsKeepDayPrecision(t *testing.T) {
	// The driver hands date-shaped TEXT back as time.Time; reads must
	// normalize instead of leaking a T00:00:00Z suffix.
	assert.Equal(t, "2026-08-29", dateText("2026-08-29"))
	assert.Equal(t, "2026-08-29", dateText("2026-08-29T00:00:00Z"))
	assert.Equal(t, "2026-08-29", dateText(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", dateText(nil))

	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertDomain(ctx, "example.com")
	require.NoError(t, err)

	m := core.DomainMetrics{Domain: "example.com", CollectedOn: "2026-08-29", OrganicTraffic: int64p(1)}
	require.NoError(t, s.InsertMetrics(ctx, id, m))

	records, err := s.ListMetrics(ctx, "example.com", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2026-08-29", records[0].CollectedOn)
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := core.CollectionRun{
		ID:        "run-1",
		Domain:    "example.com",
		StartedAt: time.Unix(1_700_000_000, 0),
		Status:    core.RunStatusFailed,
	}
	require.NoError(t, s.RecordRun(ctx, run))
	require.NoError(t, s.FinishRun(ctx, "run-1", core.RunStatusPartial, "backlinks unavailable"))

	runs, err := s.ListRuns(ctx, "example.com", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, core.RunStatusPartial, runs[0].Status)
	assert.Equal(t, "backlinks unavailable", runs[0].Error)
	require.NotNil(t, runs[0].FinishedAt)
}

func TestFinishRunUnknownID(t *testing.T) {
	s := openTestStore(t)

	err := s.FinishRun(context.Background(), "missing", core.RunStatusSucceeded, "")
	require.Error(t, err)
}
