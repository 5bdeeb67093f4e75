// Package batch formats the per-operation outcomes of multi-item tool
// calls. The client core settles each batched mutation independently;
// this package turns those mixed outcomes into one JSON document so a
// partially failed batch reports exactly which items succeeded.
package batch
