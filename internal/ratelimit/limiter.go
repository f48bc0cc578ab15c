// Package ratelimit enforces per-domain request budgets over a sliding
// one-minute window, with randomized politeness jitter between requests.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const window = time.Minute

// Config holds rate limiter settings.
type Config struct {
	RequestsPerMinute int
	MinDelay          time.Duration
	MaxDelay          time.Duration
}

// domainWindow tracks request timestamps for one domain. Its mutex is held
// across the whole wait so concurrent callers for the same domain are
// serialized, which is what keeps the per-minute budget honest.
type domainWindow struct {
	mu       sync.Mutex
	requests []time.Time
}

// Limiter manages sliding-window state per domain within one process.
// If multiple workers crawl the same domain, each needs its own budget or
// a shared store; this implementation is process-confined.
type Limiter struct {
	mu      sync.Mutex
	domains map[string]*domainWindow
	cfg     Config
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	rng     *rand.Rand
	rngMu   sync.Mutex
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 10
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	return &Limiter{
		domains: make(map[string]*domainWindow),
		cfg:     cfg,
		now:     time.Now,
		sleep:   sleepWithContext,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WaitForSlot blocks until the domain has capacity for one more request,
// then records the request timestamp. At budget the wait runs until the
// oldest request ages out of the window; under budget a randomized jitter
// between the configured minimum and maximum still applies.
func (l *Limiter) WaitForSlot(ctx context.Context, domain string) error {
	w := l.window(domain)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	w.purge(now)

	var delay time.Duration
	if len(w.requests) >= l.cfg.RequestsPerMinute {
		oldest := w.requests[0]
		delay = window - now.Sub(oldest)
		if delay < l.cfg.MinDelay {
			delay = l.cfg.MinDelay
		}
	} else {
		delay = l.jitter()
	}

	if err := l.sleep(ctx, delay); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", domain, err)
	}

	now = l.now()
	w.purge(now)
	w.requests = append(w.requests, now)
	return nil
}

// PendingDelay reports the delay the next caller for the domain would incur
// right now, without waiting or recording anything.
func (l *Limiter) PendingDelay(domain string) time.Duration {
	w := l.window(domain)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	w.purge(now)
	if len(w.requests) >= l.cfg.RequestsPerMinute {
		delay := window - now.Sub(w.requests[0])
		if delay < l.cfg.MinDelay {
			delay = l.cfg.MinDelay
		}
		return delay
	}
	return l.cfg.MinDelay
}

func (l *Limiter) window(domain string) *domainWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.domains[domain]
	if !ok {
		w = &domainWindow{}
		l.domains[domain] = w
	}
	return w
}

func (l *Limiter) jitter() time.Duration {
	spread := l.cfg.MaxDelay - l.cfg.MinDelay
	if spread <= 0 {
		return l.cfg.MinDelay
	}
	l.rngMu.Lock()
	d := time.Duration(l.rng.Int63n(int64(spread) + 1))
	l.rngMu.Unlock()
	return l.cfg.MinDelay + d
}

func (w *domainWindow) purge(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(w.requests) && !w.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.requests = append(w.requests[:0], w.requests[i:]...)
	}
}

// sleepWithContext parks the caller for the delay, honoring cancellation.
func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
