// Package ratelimit paces image downloads during export.
//
// TokenBucket wraps golang.org/x/time/rate with a burst of one, so requests
// are spread evenly instead of arriving in bursts at the top of each minute.
//
// Usage:
//
//	limiter := ratelimit.NewTokenBucket(cfg.ImageFetchesPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// fetch
package ratelimit
