// Package retry wraps a unit of work with classified exponential-backoff
// retry. Only transient failures (429, 5xx, resets, timeouts, quota
// markers) consume retry attempts; everything else propagates on the
// first attempt. Every attempt passes the rate limiter first, so retries
// are shaped by the same traffic budget as fresh requests.
package retry
