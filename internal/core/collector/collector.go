// Package collector orchestrates a metrics collection run: fetch raw
// reports from the analytics API, normalize and validate them, and
// persist the result together with a run record.
package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seolens/seolens/internal/core"
	"github.com/seolens/seolens/internal/core/semrush"
	"github.com/seolens/seolens/internal/core/transform"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 2 * time.Second
)

// API is the slice of the analytics client the collector consumes.
type API interface {
	GetDomainOverview(ctx context.Context, domain string) (semrush.Report, error)
	GetDomainMetrics(ctx context.Context, domain string) (semrush.Report, error)
	GetBacklinksOverview(ctx context.Context, domain string) (semrush.Report, error)
}

// Storage is the slice of the store the collector consumes.
type Storage interface {
	UpsertDomain(ctx context.Context, domain string) (int64, error)
	SetRegistration(ctx context.Context, domain string, info core.RegistrationInfo) error
	InsertMetrics(ctx context.Context, domainID int64, m core.DomainMetrics) error
	RecordRun(ctx context.Context, run core.CollectionRun) error
	FinishRun(ctx context.Context, id string, status core.RunStatus, runErr string) error
}

// Config holds collection behavior settings.
type Config struct {
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	CheckRegistration bool          `mapstructure:"check_registration"`
}

// Collector runs end-to-end collections for domains.
type Collector struct {
	api          API
	store        Storage
	registration RegistrationLookup
	logger       *zap.Logger

	attempts int
	backoff  time.Duration

	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Result reports the outcome of a single collection.
type Result struct {
	Run      core.CollectionRun `json:"run"`
	Metrics  core.DomainMetrics `json:"metrics"`
	Problems []string           `json:"problems,omitempty"`
}

// New builds a collector. The registration lookup is optional; pass
// nil to skip RDAP enrichment.
func New(api API, store Storage, registration RegistrationLookup, cfg Config, logger *zap.Logger) (*Collector, error) {
	if api == nil {
		return nil, errors.New("collector: api client is required")
	}
	if store == nil {
		return nil, errors.New("collector: store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	return &Collector{
		api:          api,
		store:        store,
		registration: registration,
		logger:       logger,
		attempts:     attempts,
		backoff:      backoff,
		clock:        time.Now,
		sleep:        sleepContext,
	}, nil
}

// Collect fetches, normalizes and persists metrics for one domain. The
// run record is persisted even when the collection fails, so failures
// stay visible in history.
func (c *Collector) Collect(ctx context.Context, domain string) (*Result, error) {
	if c == nil {
		return nil, errors.New("collector is not configured")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	clean := transform.CleanDomain(domain)
	if !transform.ValidDomain(clean) {
		return nil, fmt.Errorf("invalid domain: %q", domain)
	}

	now := c.clock()
	run := core.CollectionRun{
		ID:        uuid.NewString(),
		Domain:    clean,
		StartedAt: now,
		Status:    core.RunStatusFailed,
	}
	if err := c.store.RecordRun(ctx, run); err != nil {
		return nil, err
	}

	log := c.logger.With(zap.String("domain", clean), zap.String("run_id", run.ID))
	log.Info("starting collection")

	result, problems, err := c.collect(ctx, log, clean, now)
	if err != nil {
		c.finish(ctx, log, run.ID, core.RunStatusFailed, err.Error())
		return nil, err
	}

	status := core.RunStatusSucceeded
	if len(problems) > 0 {
		status = core.RunStatusPartial
	}
	c.finish(ctx, log, run.ID, status, strings.Join(problems, "; "))

	run.Status = status
	run.Error = strings.Join(problems, "; ")
	finished := c.clock()
	run.FinishedAt = &finished

	log.Info("collection finished",
		zap.String("status", string(status)),
		zap.Int("problems", len(problems)))

	return &Result{Run: run, Metrics: *result, Problems: problems}, nil
}

func (c *Collector) collect(ctx context.Context, log *zap.Logger, domain string, startedAt time.Time) (*core.DomainMetrics, []string, error) {
	var problems []string

	overview, err := c.fetch(ctx, log, "domain overview", domain, c.api.GetDomainOverview)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch domain overview: %w", err)
	}

	organic, err := c.fetch(ctx, log, "organic metrics", domain, c.api.GetDomainMetrics)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch organic metrics: %w", err)
	}

	// Backlink data is best effort. A missing backlinks report
	// degrades the run to partial instead of failing it.
	backlinks, err := c.fetch(ctx, log, "backlinks overview", domain, c.api.GetBacklinksOverview)
	if err != nil {
		log.Warn("backlinks fetch failed, continuing without backlink data", zap.Error(err))
		problems = append(problems, fmt.Sprintf("backlinks unavailable: %v", err))
		backlinks = nil
	}

	raw := mergeReports(overview, organic, backlinks)
	metrics, normProblems := transform.NormalizeMetrics(domain, startedAt.UTC().Format("2006-01-02"), raw)
	problems = append(problems, normProblems...)
	problems = append(problems, transform.ValidateMetrics(metrics)...)

	domainID, err := c.store.UpsertDomain(ctx, domain)
	if err != nil {
		return nil, nil, err
	}
	if err := c.store.InsertMetrics(ctx, domainID, metrics); err != nil {
		return nil, nil, err
	}

	if c.registration != nil {
		if err := c.enrichRegistration(ctx, log, domain); err != nil {
			log.Warn("registration lookup failed", zap.Error(err))
			problems = append(problems, fmt.Sprintf("registration unavailable: %v", err))
		}
	}

	return &metrics, problems, nil
}

// fetch calls one API operation with retries. Rate limit exhaustion
// and context cancellation are not retried; waiting any longer is the
// limiter's job, not ours.
func (c *Collector) fetch(ctx context.Context, log *zap.Logger, name, domain string, op func(context.Context, string) (semrush.Report, error)) (semrush.Report, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		report, err := op(ctx, domain)
		if err == nil {
			return report, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, err
		}
		if !retryable(err) {
			return nil, err
		}
		if attempt == c.attempts {
			break
		}

		wait := c.backoff
		var apiErr *semrush.APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > wait {
			wait = apiErr.RetryAfter
		}

		log.Warn("retrying after fetch failure",
			zap.String("report", name),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Collector) enrichRegistration(ctx context.Context, log *zap.Logger, domain string) error {
	info, err := c.registration.Lookup(ctx, domain)
	if err != nil {
		return err
	}
	if info == nil {
		return nil
	}

	log.Debug("registration resolved",
		zap.String("registrar", info.Registrar),
		zap.String("expiry_date", info.ExpiryDate))

	return c.store.SetRegistration(ctx, domain, *info)
}

func (c *Collector) finish(ctx context.Context, log *zap.Logger, id string, status core.RunStatus, runErr string) {
	if err := c.store.FinishRun(ctx, id, status, runErr); err != nil {
		log.Warn("failed to finalize run record", zap.Error(err))
	}
}

// retryable reports whether an API failure is worth another attempt:
// transport errors and 5xx/429 responses are, client errors are not.
func retryable(err error) bool {
	var apiErr *semrush.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == 0 {
		return true
	}
	return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
}

func mergeReports(reports ...semrush.Report) map[string]any {
	merged := map[string]any{}
	for _, report := range reports {
		for key, value := range report {
			merged[key] = value
		}
	}
	return merged
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
