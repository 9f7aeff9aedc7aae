package resilience

import (
	"time"
)

// FromCircuitConfig builds a CircuitBreakerConfig from config values, keeping
// defaults for anything unset.
func FromCircuitConfig(failureThreshold int, resetTimeout time.Duration) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeout > 0 {
		cfg.ResetTimeout = resetTimeout
	}
	return cfg
}

// APIRetryConfig returns the retry policy for remote API calls with the given
// attempt budget, logging each retry under service.
func APIRetryConfig(service string, attempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	if attempts > 0 {
		cfg.MaxAttempts = attempts
	}
	cfg.OnRetry = RetryLogger(service, "request")
	return cfg
}
