package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket spreads requests evenly over a minute with a burst of one
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows perMinute requests per minute. perMinute <= 0 means unlimited.
func NewTokenBucket(perMinute int) Limiter {
	if perMinute <= 0 {
		return Unlimited()
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

type unlimited struct{}

// Unlimited returns a Limiter that never delays
func Unlimited() Limiter {
	return unlimited{}
}

func (unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
