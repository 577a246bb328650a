// Package ratelimit enforces per-endpoint request quotas over two
// simultaneous sliding windows (a short burst window and a long
// sustained window). A request is admitted only when both windows
// have headroom at the same instant.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultShortLimit    = 10
	DefaultLongLimit     = 600
	DefaultShortInterval = time.Second
	DefaultLongInterval  = time.Minute
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = time.Second
)

const minQueueCapacity = 16

// Config holds the settings for a dual-window limiter.
type Config struct {
	// ShortLimit is the number of admissions allowed per ShortInterval.
	ShortLimit int

	// LongLimit is the number of admissions allowed per LongInterval.
	LongLimit int

	// ShortInterval is the width of the burst window. Defaults to 1s.
	ShortInterval time.Duration

	// LongInterval is the width of the sustained window. Defaults to 1m.
	LongInterval time.Duration

	// MaxRetries bounds the number of admission attempts before
	// Admit gives up with an ExhaustedError. Defaults to 3.
	MaxRetries int

	// RetryDelay is the fallback sleep between attempts when a window
	// refilled while the caller was waiting. Defaults to 1s.
	RetryDelay time.Duration

	// Time-related functions can be overridden to allow for easier
	// testing. You should usually not set these.
	TimeFunc  func() time.Time
	SleepFunc func(ctx context.Context, d time.Duration) error
}

// Limiter gates calls so that, looking backward from any instant, no
// more than ShortLimit admissions occurred in the trailing
// ShortInterval and no more than LongLimit in the trailing
// LongInterval. Safe for concurrent use.
type Limiter struct {
	mu    sync.Mutex
	short *window
	long  *window

	maxRetries int
	retryDelay time.Duration

	timeFunc  func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// Usage is a point-in-time snapshot of both windows.
type Usage struct {
	ShortCount int `json:"short_count"`
	ShortLimit int `json:"short_limit"`
	LongCount  int `json:"long_count"`
	LongLimit  int `json:"long_limit"`
}

// window tracks admission timestamps inside one trailing interval.
// Timestamps are appended in increasing order, so eviction only ever
// removes from the front. All methods require the owning Limiter's
// lock to be held.
type window struct {
	events   *deque.Deque
	limit    int
	interval time.Duration
}

func newWindow(limit int, interval time.Duration) *window {
	return &window{
		events:   deque.New(minQueueCapacity, minQueueCapacity),
		limit:    limit,
		interval: interval,
	}
}

// evict drops timestamps that fell out of the trailing interval. An
// event aged exactly one interval is dropped too, so a caller that
// slept for waitTime always finds the slot it waited for.
func (w *window) evict(now time.Time) {
	for w.events.Len() > 0 {
		if now.Sub(w.events.Front().(time.Time)) < w.interval {
			break
		}
		w.events.PopFront()
	}
}

func (w *window) full() bool {
	return w.events.Len() >= w.limit
}

// waitTime returns how long until the oldest remaining admission
// leaves the window, clamped at zero.
func (w *window) waitTime(now time.Time) time.Duration {
	if w.events.Len() == 0 {
		return 0
	}
	d := w.interval - now.Sub(w.events.Front().(time.Time))
	if d < 0 {
		return 0
	}
	return d
}

// New returns a Limiter built from the given configuration.
//
// Zero values take the package defaults. Negative values are
// configuration errors.
func New(cfg Config) (*Limiter, error) {
	if cfg.ShortLimit == 0 {
		cfg.ShortLimit = DefaultShortLimit
	}
	if cfg.LongLimit == 0 {
		cfg.LongLimit = DefaultLongLimit
	}
	if cfg.ShortInterval == 0 {
		cfg.ShortInterval = DefaultShortInterval
	}
	if cfg.LongInterval == 0 {
		cfg.LongInterval = DefaultLongInterval
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	if cfg.ShortLimit < 0 || cfg.LongLimit < 0 {
		return nil, errors.New("ratelimit: window limits must be positive")
	}
	if cfg.ShortInterval < 0 || cfg.LongInterval < 0 {
		return nil, errors.New("ratelimit: window intervals must be positive")
	}
	if cfg.MaxRetries < 0 {
		return nil, errors.New("ratelimit: max retries must be positive")
	}
	if cfg.RetryDelay < 0 {
		return nil, errors.New("ratelimit: retry delay must not be negative")
	}

	l := &Limiter{
		short:      newWindow(cfg.ShortLimit, cfg.ShortInterval),
		long:       newWindow(cfg.LongLimit, cfg.LongInterval),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeFunc:   cfg.TimeFunc,
		sleepFunc:  cfg.SleepFunc,
	}
	if l.timeFunc == nil {
		l.timeFunc = time.Now
	}
	if l.sleepFunc == nil {
		l.sleepFunc = sleepContext
	}
	return l, nil
}

// Admit blocks until both windows have headroom, then records the
// admission in both and returns nil. The check-and-record sequence is
// a single critical section: the lock is held for the whole attempt,
// sleeps included, so concurrent callers can never overfill a window.
//
// After MaxRetries attempts without a slot it returns an
// ExhaustedError. A cancelled context aborts an in-progress wait and
// returns the context error instead.
func (l *Limiter) Admit(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for attempt := 0; attempt < l.maxRetries; attempt++ {
		now := l.timeFunc()
		l.short.evict(now)
		l.long.evict(now)

		if l.short.full() {
			if err := l.sleepFunc(ctx, l.short.waitTime(now)); err != nil {
				return err
			}
			now = l.timeFunc()
			l.short.evict(now)
			l.long.evict(now)
		}

		if l.long.full() {
			if err := l.sleepFunc(ctx, l.long.waitTime(now)); err != nil {
				return err
			}
			now = l.timeFunc()
			l.short.evict(now)
			l.long.evict(now)
		}

		// A wait on one window can leave the other stale, so only
		// record when both have headroom in the same pass.
		if !l.short.full() && !l.long.full() {
			l.short.events.PushBack(now)
			l.long.events.PushBack(now)
			return nil
		}

		if err := l.sleepFunc(ctx, l.retryDelay); err != nil {
			return err
		}
	}

	return &ExhaustedError{Attempts: l.maxRetries}
}

// Usage reports current window occupancy after evicting stale
// admissions.
func (l *Limiter) Usage() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.timeFunc()
	l.short.evict(now)
	l.long.evict(now)

	return Usage{
		ShortCount: l.short.events.Len(),
		ShortLimit: l.short.limit,
		LongCount:  l.long.events.Len(),
		LongLimit:  l.long.limit,
	}
}

// sleepContext sleeps for d unless the context is cancelled first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
