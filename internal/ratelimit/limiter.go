package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock supplies time to the limiter so tests can observe spacing without sleeping
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock returns the wall clock
func RealClock() Clock { return realClock{} }

// Limiter gates outbound requests per provider.
// Requests to the same provider are spaced by that provider's minimum
// interval; providers never wait on each other.
type Limiter struct {
	limiters  map[string]*rate.Limiter
	intervals map[string]time.Duration
	clock     Clock
	mu        sync.RWMutex
}

var (
	instance *Limiter
	once     sync.Once
)

// Shared returns the process-wide limiter used by every transport
func Shared() *Limiter {
	once.Do(func() {
		instance = New(RealClock())
	})
	return instance
}

// New creates an empty limiter driven by clock
func New(clock Clock) *Limiter {
	if clock == nil {
		clock = RealClock()
	}
	return &Limiter{
		limiters:  make(map[string]*rate.Limiter),
		intervals: make(map[string]time.Duration),
		clock:     clock,
	}
}

// Configure sets the minimum interval between two requests to provider.
// An interval of zero or less removes the gate.
func (l *Limiter) Configure(provider string, interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if interval <= 0 {
		delete(l.limiters, provider)
		delete(l.intervals, provider)
		return
	}
	l.limiters[provider] = rate.NewLimiter(rate.Every(interval), 1)
	l.intervals[provider] = interval
}

// Interval returns the configured minimum interval for provider
func (l *Limiter) Interval(provider string) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.intervals[provider]
}

// Wait blocks until the gate permits a request to provider.
// It returns an error if the context is done before the request can proceed.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if !exists {
		// Ungated provider
		return nil
	}

	now := l.clock.Now()
	r := limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("rate gate for %s cannot admit a request", provider)
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	if err := l.clock.Sleep(ctx, delay); err != nil {
		// Give the slot back so later callers are not pushed out further
		r.CancelAt(l.clock.Now())
		return err
	}
	return nil
}

// Allow reports whether a request to provider may happen now, consuming the slot if so
func (l *Limiter) Allow(provider string) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if !exists {
		return true
	}

	return limiter.AllowN(l.clock.Now(), 1)
}
