package apierr

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"google.golang.org/api/googleapi"
)

// quotaMarkers are substrings Google puts in quota-exhaustion messages.
// A 403 carrying one of these behaves like a 429 and is worth retrying.
var quotaMarkers = []string{
	"rateLimitExceeded",
	"userRateLimitExceeded",
	"quotaExceeded",
	"Quota exceeded",
}

// Retryable reports whether err represents a failure that may succeed on
// a later attempt: HTTP 429, any 5xx, connection resets and timeouts, or
// a quota-exceeded marker in the message. Everything else (400, 404,
// auth and configuration failures) is fatal.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var transient *TransientNetworkError
	if errors.As(err, &transient) {
		return true
	}
	var permanent *PermanentAPIError
	if errors.As(err, &permanent) {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusTooManyRequests {
			return true
		}
		if gerr.Code >= 500 && gerr.Code < 600 {
			return true
		}
		return hasQuotaMarker(gerr)
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	msg := err.Error()
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func hasQuotaMarker(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		for _, marker := range quotaMarkers {
			if item.Reason == marker || strings.Contains(item.Message, marker) {
				return true
			}
		}
	}
	for _, marker := range quotaMarkers {
		if strings.Contains(gerr.Message, marker) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is an HTTP 404 from the API. Lookup
// operations use this to return an absent result instead of an error.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var permanent *PermanentAPIError
	if errors.As(err, &permanent) {
		return permanent.Status == http.StatusNotFound
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return false
}

// Wrap converts a raw API error into the taxonomy. Retryable failures
// become TransientNetworkError, 4xx rejections become PermanentAPIError,
// anything unrecognised passes through unchanged.
func Wrap(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusTooManyRequests || (gerr.Code >= 500 && gerr.Code < 600) || hasQuotaMarker(gerr) {
			return &TransientNetworkError{Status: gerr.Code, Err: err}
		}
		if gerr.Code >= 400 && gerr.Code < 500 {
			return &PermanentAPIError{Status: gerr.Code, Err: err}
		}
		return err
	}

	if Retryable(err) {
		return &TransientNetworkError{Err: err}
	}
	return err
}
