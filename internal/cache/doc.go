// Package cache provides a process-lifetime TTL cache for read
// responses, keyed by operation name plus canonicalised parameters.
//
// Entries are evicted lazily on read. There is no background sweeper:
// once the cache grows past a size threshold, the next write triggers a
// full sweep of expired entries. Mutations that make cached list results
// stale call Invalidate with a key substring.
package cache
