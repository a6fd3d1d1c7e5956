package llm

import "time"

// RetryConfig tunes per-endpoint retry behavior.
type RetryConfig struct {
	// MaxAttempts caps attempts per endpoint.
	MaxAttempts int
	// BackoffBase is the first retry delay.
	BackoffBase time.Duration
	// BackoffMultiplier grows the delay on each retry.
	BackoffMultiplier float64
	// MaxBackoff caps the delay.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the default retry tuning.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}
