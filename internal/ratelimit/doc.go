// Package ratelimit shapes outgoing API traffic to a configured
// requests-per-second budget.
//
// Two independent gates admit a caller: a pacer enforcing the minimum
// inter-request interval (approximately FIFO, via x/time/rate with a
// burst of one), and a trailing one-second window that bounds the total
// number of admissions in any rolling second. Both are re-checked after
// every wait, since timer granularity can admit a caller slightly early.
package ratelimit
