package resilience

import "time"

type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled           bool
	BreakerFailureThreshold  uint32
	BreakerOpenTimeout       time.Duration
	BreakerHalfOpenSuccesses uint32
}

// DefaultConfig matches the embedding-provider policy: up to three retries on
// a 1s/2s/3s backoff schedule, breaker tripping after five consecutive
// failures, a 30s open window, two consecutive half-open successes to close.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    4,
		RetryInitialBackoff: 1 * time.Second,
		RetryMaxBackoff:     3 * time.Second,
		RetryMultiplier:     2.0,

		BreakerEnabled:           true,
		BreakerFailureThreshold:  5,
		BreakerOpenTimeout:       30 * time.Second,
		BreakerHalfOpenSuccesses: 2,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerFailureThreshold == 0 {
		out.BreakerFailureThreshold = def.BreakerFailureThreshold
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenSuccesses == 0 {
		out.BreakerHalfOpenSuccesses = def.BreakerHalfOpenSuccesses
	}

	return out
}
