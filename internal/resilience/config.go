package resilience

import (
	"time"
)

// RetryFromAttempts returns the default retry policy capped at maxAttempts.
// Values below one keep the default.
func RetryFromAttempts(maxAttempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	return cfg
}

// BreakerFromConfig converts resilience.* config values to a
// CircuitBreakerConfig. Rate limits and open circuits do not count as
// failures; a quota window is not a broken tier.
func BreakerFromConfig(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	cfg.ShouldTrip = func(err error) bool {
		return err != nil && !IsRateLimited(err)
	}
	return cfg
}
