// Package config holds the runtime settings for the client core:
// credential location, traffic shaping, retry policy, and the windows
// used for coalescing and write batching.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/calbridge/calbridge/internal/apierr"
)

// Defaults for the tuning knobs. The coalescing and batch windows carry
// the values the original deployment ran with; both are configurable.
const (
	DefaultRatePerSecond  = 5
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = time.Second
	DefaultCoalesceWindow = 100 * time.Millisecond
	DefaultBatchWindow    = 50 * time.Millisecond
	DefaultMaxBatchSize   = 50
	DefaultListTTL        = 30 * time.Second
	DefaultLookupTTL      = 5 * time.Minute
)

// Settings configures a client instance. Zero values are replaced by
// defaults in Normalize.
type Settings struct {
	// CredentialsFile is the path to the service-account key JSON.
	CredentialsFile string

	// Subject optionally enables domain-wide delegation: the user the
	// service account impersonates. Empty means the account acts as
	// itself.
	Subject string

	// RatePerSecond caps outgoing API requests per rolling second.
	RatePerSecond int

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles per retry.
	RetryBaseDelay time.Duration

	// CoalesceWindow is the span during which identical in-flight reads
	// are merged.
	CoalesceWindow time.Duration

	// BatchWindow is how long mutations accumulate before a flush.
	BatchWindow time.Duration

	// MaxBatchSize caps the operations taken per flush.
	MaxBatchSize int

	// ListTTL is the cache lifetime for list reads (events, tasks).
	ListTTL time.Duration

	// LookupTTL is the cache lifetime for slow-changing lookups
	// (calendar list, task lists).
	LookupTTL time.Duration
}

// FromEnv builds Settings from environment variables, falling back to
// defaults for anything unset.
func FromEnv() Settings {
	return Settings{
		CredentialsFile: getEnvOrDefault("CALBRIDGE_CREDENTIALS_FILE", ""),
		Subject:         getEnvOrDefault("CALBRIDGE_SUBJECT", ""),
		RatePerSecond:   getEnvIntOrDefault("CALBRIDGE_RATE_PER_SECOND", DefaultRatePerSecond),
		MaxRetries:      getEnvIntOrDefault("CALBRIDGE_MAX_RETRIES", DefaultMaxRetries),
		RetryBaseDelay:  getEnvDurationOrDefault("CALBRIDGE_RETRY_BASE_DELAY", DefaultRetryBaseDelay),
		CoalesceWindow:  getEnvDurationOrDefault("CALBRIDGE_COALESCE_WINDOW", DefaultCoalesceWindow),
		BatchWindow:     getEnvDurationOrDefault("CALBRIDGE_BATCH_WINDOW", DefaultBatchWindow),
		MaxBatchSize:    getEnvIntOrDefault("CALBRIDGE_MAX_BATCH_SIZE", DefaultMaxBatchSize),
		ListTTL:         getEnvDurationOrDefault("CALBRIDGE_LIST_TTL", DefaultListTTL),
		LookupTTL:       getEnvDurationOrDefault("CALBRIDGE_LOOKUP_TTL", DefaultLookupTTL),
	}
}

// Normalize replaces zero or negative tuning values with defaults.
func (s *Settings) Normalize() {
	if s.RatePerSecond <= 0 {
		s.RatePerSecond = DefaultRatePerSecond
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = DefaultMaxRetries
	}
	if s.RetryBaseDelay <= 0 {
		s.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if s.CoalesceWindow <= 0 {
		s.CoalesceWindow = DefaultCoalesceWindow
	}
	if s.BatchWindow <= 0 {
		s.BatchWindow = DefaultBatchWindow
	}
	if s.MaxBatchSize <= 0 {
		s.MaxBatchSize = DefaultMaxBatchSize
	}
	if s.ListTTL <= 0 {
		s.ListTTL = DefaultListTTL
	}
	if s.LookupTTL <= 0 {
		s.LookupTTL = DefaultLookupTTL
	}
}

// Validate checks that the settings can produce a working client.
func (s *Settings) Validate() error {
	if s.CredentialsFile == "" {
		return &apierr.ConfigurationError{
			Field:  "credentials_file",
			Reason: "no service account key configured (set CALBRIDGE_CREDENTIALS_FILE or --credentials)",
		}
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
