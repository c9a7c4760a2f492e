package ratelimit

import "context"

// RateLimiter throttles operations per named key, shared across API
// instances.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}
