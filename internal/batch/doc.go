// Package batch windows and groups mutation requests so bursts of
// individual writes become fewer, rate-limiter-friendly rounds.
//
// The queue moves through Idle -> Scheduled -> Flushing -> Idle. A flush
// takes up to maxBatchSize queued operations in enqueue order and runs
// them concurrently through the retry executor; each operation settles
// its own result channel, so one failure never blocks the rest of the
// batch. Operations still queued after a flush re-arm the window timer.
package batch
