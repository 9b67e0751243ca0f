// Package ratelimit implements a per-connection token bucket for inbound lines.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Limiter is a token bucket. A nil *Limiter never waits.
type Limiter struct {
	clock clock.Clock

	mu        sync.Mutex
	tokens    float64
	capacity  float64
	rate      float64
	lastCheck time.Time
}

// New returns a limiter holding up to burst tokens refilled at perSecond.
// It returns nil (unlimited) when either value is not positive.
func New(burst int, perSecond float64, clk clock.Clock) *Limiter {
	if burst <= 0 || perSecond <= 0 {
		return nil
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Limiter{
		clock:     clk,
		tokens:    float64(burst),
		capacity:  float64(burst),
		rate:      perSecond,
		lastCheck: clk.Now(),
	}
}

// Wait blocks until a token is available and consumes it. Callers are held
// back rather than refused, so the lines they carry keep their order.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	for {
		delay := l.take()
		if delay <= 0 {
			return nil
		}

		timer := l.clock.Timer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take consumes a token if one is available, otherwise it reports how long
// until the next one.
func (l *Limiter) take() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if elapsed := now.Sub(l.lastCheck).Seconds(); elapsed > 0 {
		l.tokens += elapsed * l.rate
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
	}
	l.lastCheck = now

	if l.tokens >= 1 {
		l.tokens--
		return 0
	}
	delay := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
	if delay <= 0 {
		delay = time.Nanosecond
	}
	return delay
}
