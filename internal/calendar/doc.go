// Package calendar provides a resilient client for the Google Calendar
// API. Every read is coalesced and served from a TTL cache; every write
// is batched and retried; every outgoing call passes the shared rate
// limiter. Mutations invalidate the cache entries they affect, so a
// list following a create never returns data predating the create.
//
// Lookups of absent resources return nil results rather than errors; a
// 404 is a normal answer for this API, not a failure.
package calendar
