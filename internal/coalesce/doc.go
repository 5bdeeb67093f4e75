// Package coalesce merges concurrent identical read requests onto one
// in-flight producer call and fronts the result with the TTL cache.
//
// For any key at most one producer runs at a time. Callers arriving
// while a producer started within the coalescing window is still in
// flight join its result; once the window has passed, the stale flight
// is forgotten and the next caller starts a fresh one.
package coalesce
