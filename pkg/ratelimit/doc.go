// Package ratelimit throttles calls to the private API.
//
// Two limiters implement the Limiter interface:
//
// TokenBucket caps the number of requests per refill period. The instagram client
// waits on one before every HTTP request:
//
//	limiter := ratelimit.PerMinute(cfg.Instagram.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//
// Pacer enforces a fixed minimum gap between consecutive calls, without delaying
// the first. The feed fetcher uses one between pages and the experiment runner
// uses one between variants.
//
// Both Wait methods return early with ctx.Err() when the context is cancelled.
package ratelimit
