// Package tasks provides a resilient client for the Google Tasks API,
// routed through the same cache, coalescing, rate-limit, retry and
// batching core as the calendar client. Task lists are slow-changing
// and cached with the lookup TTL; task reads use the shorter list TTL;
// mutations are batched and invalidate the affected list's cache.
package tasks
