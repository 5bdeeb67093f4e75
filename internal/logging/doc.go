// Package logging provides slog attribute helpers and constant keys so
// log lines stay consistently named across the client core: operations,
// cache keys, retry attempts, batch sizes. Tokens and credential
// material are never logged; SanitizeToken masks everything but the
// length.
package logging
