// Package apierr defines the closed error taxonomy for the client core
// and the single classification point that decides whether a failed
// operation may be retried.
//
// The taxonomy mirrors the failure modes of a service-account Google API
// client:
//
//   - ConfigurationError: missing or malformed credentials, fatal
//   - SigningError: JWT assertion could not be signed, fatal
//   - AuthError: token exchange rejected, fatal for the current call
//   - TransientNetworkError: 429, 5xx, resets and timeouts, retryable
//   - PermanentAPIError: other 4xx responses, never retried
//   - RetriesExhaustedError: last transient error after max attempts
//
// All types are matched with errors.As; Retryable is the only function
// retry policy should consult.
package apierr
