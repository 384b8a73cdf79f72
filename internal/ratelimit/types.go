// Package ratelimit caps how often a user can hit the AI-backed entry paths.
// Every allowed request spends paid OpenAI quota, so the limit is enforced
// before the upstream call, keyed per user over a fixed one-minute window.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error)
}
