package ratelimit

import "context"

// RateLimiter bounds outbound delivery throughput per destination host.
type RateLimiter interface {
	Allow(ctx context.Context, host string) (bool, error)
	Wait(ctx context.Context, host string) error
}
