package apierr

import (
	"fmt"
)

// ConfigurationError indicates missing or invalid client configuration,
// typically a service-account key that fails validation. It is fatal and
// surfaced immediately, never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// SigningError indicates the JWT assertion could not be built or signed,
// usually because the private key material is unparseable.
type SigningError struct {
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jwt signing failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("jwt signing failed: %s", e.Reason)
}

func (e *SigningError) Unwrap() error { return e.Err }

// AuthError indicates the token endpoint rejected the assertion (bad
// grant, revoked account, clock skew). Fatal for the current call; a
// later Authenticate may succeed if the underlying cause is corrected.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransientNetworkError wraps a retryable failure: HTTP 429, 5xx,
// connection resets and timeouts, or quota exhaustion.
type TransientNetworkError struct {
	Status int // HTTP status when known, zero for transport errors
	Err    error
}

func (e *TransientNetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient API error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient network error: %v", e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// PermanentAPIError wraps a non-retryable API rejection such as 400 or
// 404. Lookups are expected to map 404 to an absent result instead of
// propagating this error.
type PermanentAPIError struct {
	Status int
	Err    error
}

func (e *PermanentAPIError) Error() string {
	return fmt.Sprintf("permanent API error (status %d): %v", e.Status, e.Err)
}

func (e *PermanentAPIError) Unwrap() error { return e.Err }

// RetriesExhaustedError wraps the last transient error observed after
// the retry budget is spent.
type RetriesExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }
