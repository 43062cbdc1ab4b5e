package ratelimiter

import (
	"context"
	"time"
)

// Config defines the token bucket.
type Config struct {
	Capacity       int           // burst size
	RefillRate     int           // tokens added per interval
	RefillInterval time.Duration // refill period
}

func (c Config) validate() error {
	switch {
	case c.Capacity <= 0:
		return ErrInvalidConfig
	case c.RefillRate <= 0:
		return ErrInvalidConfig
	case c.RefillInterval <= 0:
		return ErrInvalidConfig
	}
	return nil
}

// Result is the bucket state after a check.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allowed reports whether the consuming call fit into the bucket.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// Exhausted reports whether the next token request would be rejected.
func (r *Result) Exhausted() bool {
	return r.Remaining <= 0
}

// RetryAfter is how long to wait for the next refill, or 0 when allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(time.Until(r.ResetAt), 0)
}

// Store persists bucket state.
type Store interface {
	// ConsumeTokens refills the bucket for the elapsed time, then removes
	// tokens. A negative remaining count means the request is denied.
	ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config) (remaining int, resetAt time.Time, err error)

	// Reset forgets the bucket for key.
	Reset(ctx context.Context, key string) error
}
