// Package retry re-runs operations that fail with transient errors.
//
// Retry decisions follow the typed errors in pkg/errors: network, rate-limit and
// server errors are retried with backoff; auth, challenge, not-found and parsing
// errors are returned immediately. Rate-limit errors can use their own, slower
// backoff through Config.ErrorBackoff.
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	result, err := retry.DoWithResult(ctx, func(ctx context.Context) (feed.Result, error) {
//		return fetcher.Fetch(ctx, source, opts)
//	}, cfg)
//
// Waiting honours context cancellation.
package retry
