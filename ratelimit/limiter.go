/*
Package ratelimit is a fixed-window attempt counter with a pluggable
backend.

MODEL:
  Each key (a client fingerprint such as "login:<ip>") gets a counter that
  starts a window of length Window on its first hit. Hits beyond Limit
  inside the window are refused until the window expires. A successful
  login may Reset the key.

BACKENDS:
  RedisBackend:  shared across instances (INCR + PEXPIRE)
  MemoryBackend: single process, tests and development
*/
package ratelimit

import (
	"context"
	"time"
)

// Backend stores per-key counters.
type Backend interface {
	// Incr adds one hit to key, opening a window of the given length when
	// the key is new or expired. It returns the hit count within the
	// current window and the time left until the window closes.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter struct {
	backend Backend
	prefix  string
	limit   int
	window  time.Duration
}

func NewLimiter(backend Backend, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{backend: backend, prefix: prefix, limit: limit, window: window}
}

// Allow counts one attempt for key and reports whether it is within limit.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	n, ttl, err := l.backend.Incr(ctx, l.prefix+key, l.window)
	if err != nil {
		return Result{}, err
	}
	if n > int64(l.limit) {
		return Result{Allowed: false, RetryAfter: ttl}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - int(n)}, nil
}

func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.backend.Reset(ctx, l.prefix+key)
}
