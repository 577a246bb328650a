package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Override adjusts the window limits for a single endpoint. Zero
// fields fall back to the registry defaults.
type Override struct {
	ShortLimit int `mapstructure:"calls_per_second" json:"calls_per_second"`
	LongLimit  int `mapstructure:"calls_per_minute" json:"calls_per_minute"`
}

// Registry lazily creates and caches one Limiter per endpoint key.
// A single registry is shared by everything issuing outbound calls,
// so all callers hitting the same endpoint share one quota.
type Registry struct {
	mu        sync.Mutex
	limiters  map[string]*Limiter
	defaults  Config
	overrides map[string]Override
}

// NewRegistry returns a registry that builds limiters from defaults,
// adjusted by the per-endpoint overrides. The defaults are validated
// eagerly so a bad configuration fails at startup rather than on the
// first outbound call.
func NewRegistry(defaults Config, overrides map[string]Override) (*Registry, error) {
	if _, err := New(defaults); err != nil {
		return nil, err
	}
	for endpoint, o := range overrides {
		if o.ShortLimit < 0 || o.LongLimit < 0 {
			return nil, fmt.Errorf("ratelimit: invalid override for endpoint %q", endpoint)
		}
	}

	reg := &Registry{
		limiters:  make(map[string]*Limiter),
		defaults:  defaults,
		overrides: make(map[string]Override, len(overrides)),
	}
	for endpoint, o := range overrides {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" {
			continue
		}
		reg.overrides[endpoint] = o
	}
	return reg, nil
}

// GetLimiter returns the limiter bound to the endpoint key, creating
// it on first use. At most one limiter ever exists per key: racing
// first callers converge on a single instance. Overrides passed here
// apply only when the limiter is created; on a cache hit they are
// ignored because quotas are fixed at creation.
func (r *Registry) GetLimiter(endpoint string, overrides ...Override) (*Limiter, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("ratelimit: endpoint key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if lim, ok := r.limiters[endpoint]; ok {
		return lim, nil
	}

	cfg := r.defaults
	o, ok := r.overrides[endpoint]
	if len(overrides) > 0 {
		o, ok = overrides[0], true
	}
	if ok {
		if o.ShortLimit != 0 {
			cfg.ShortLimit = o.ShortLimit
		}
		if o.LongLimit != 0 {
			cfg.LongLimit = o.LongLimit
		}
	}

	lim, err := New(cfg)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: build limiter for endpoint %q: %w", endpoint, err)
	}
	r.limiters[endpoint] = lim
	return lim, nil
}

// WaitForEndpoint blocks until the endpoint's limiter admits a call.
func (r *Registry) WaitForEndpoint(ctx context.Context, endpoint string) error {
	lim, err := r.GetLimiter(endpoint)
	if err != nil {
		return err
	}

	if err := lim.Admit(ctx); err != nil {
		var exhausted *ExhaustedError
		if errors.As(err, &exhausted) {
			return &ExhaustedError{Endpoint: endpoint, Attempts: exhausted.Attempts}
		}
		return err
	}
	return nil
}

// EndpointUsage reports window occupancy for every limiter created so
// far, keyed by endpoint.
func (r *Registry) EndpointUsage() map[string]Usage {
	r.mu.Lock()
	limiters := make(map[string]*Limiter, len(r.limiters))
	for endpoint, lim := range r.limiters {
		limiters[endpoint] = lim
	}
	r.mu.Unlock()

	usage := make(map[string]Usage, len(limiters))
	for endpoint, lim := range limiters {
		usage[endpoint] = lim.Usage()
	}
	return usage
}
