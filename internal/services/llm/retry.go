package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/colligo/internal/common"
)

// RetrySchedule defines exponential backoff behavior for gateway API
// calls.
type RetrySchedule struct {
	// MaxRetries is the maximum number of retry attempts after the
	// initial call.
	MaxRetries int

	// InitialBackoff is the wait time before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait time between retries.
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to the backoff on each retry.
	BackoffMultiplier float64
}

// Default retry constants for gateway API calls.
const (
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// NewDefaultRetrySchedule returns a RetrySchedule with sensible defaults.
func NewDefaultRetrySchedule() *RetrySchedule {
	return &RetrySchedule{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// NewRetrySchedule builds a RetrySchedule from configuration, falling
// back to defaults for unset values.
func NewRetrySchedule(config common.RetryConfig) (*RetrySchedule, error) {
	schedule := NewDefaultRetrySchedule()

	if config.MaxRetries > 0 {
		schedule.MaxRetries = config.MaxRetries
	}
	if config.BackoffMultiplier > 0 {
		schedule.BackoffMultiplier = config.BackoffMultiplier
	}
	if config.InitialBackoff != "" {
		d, err := time.ParseDuration(config.InitialBackoff)
		if err != nil {
			return nil, fmt.Errorf("invalid initial_backoff '%s': %w", config.InitialBackoff, err)
		}
		schedule.InitialBackoff = d
	}
	if config.MaxBackoff != "" {
		d, err := time.ParseDuration(config.MaxBackoff)
		if err != nil {
			return nil, fmt.Errorf("invalid max_backoff '%s': %w", config.MaxBackoff, err)
		}
		schedule.MaxBackoff = d
	}

	return schedule, nil
}

// Backoff computes the wait duration before retry number attempt
// (0-based). The result is capped at MaxBackoff.
func (c *RetrySchedule) Backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(c.InitialBackoff) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}

	return backoff
}

// IsRateLimitError checks if an error is an API rate limit error.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota")
}
