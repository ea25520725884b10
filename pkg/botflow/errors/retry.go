package errors

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy computes backoff for retryable failures.
type RetryPolicy struct {
	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps computed backoff. A server retry-after hint is not capped.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied per retry already made.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64
}

// DefaultRetryPolicy is the standard policy: 1s doubling up to 30s, no jitter.
var DefaultRetryPolicy = RetryPolicy{
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	BackoffFactor:  2.0,
}

// RetryDecision is the outcome of RetryPolicy.Decide.
type RetryDecision struct {
	ShouldRetry       bool
	Delay             time.Duration
	AttemptsRemaining int
}

// DelayMs returns the delay in whole milliseconds.
func (d RetryDecision) DelayMs() int64 {
	return d.Delay.Milliseconds()
}

// Decide reports whether a failure should be retried and how long to wait.
//
// attempt is the number of retries already made (0 after the first
// failure); maxAttempts is the retry budget. AUTHENTICATION, VALIDATION
// and BUSINESS_LOGIC failures are never retried. Decide has no side effects.
func (p RetryPolicy) Decide(c *ClassifiedError, attempt, maxAttempts int) RetryDecision {
	if c == nil || !c.Category.Retryable() || attempt < 0 || attempt >= maxAttempts {
		return RetryDecision{}
	}
	return RetryDecision{
		ShouldRetry:       true,
		Delay:             p.delay(c, attempt),
		AttemptsRemaining: maxAttempts - attempt - 1,
	}
}

func (p RetryPolicy) delay(c *ClassifiedError, attempt int) time.Duration {
	if c.RetryAfter != nil && *c.RetryAfter > 0 {
		return time.Duration(*c.RetryAfter) * time.Second
	}
	return p.Backoff(attempt)
}

// Backoff returns the computed backoff before retry number attempt+1,
// capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	backoff := float64(p.InitialBackoff) * math.Pow(factor, float64(attempt))
	if p.MaxBackoff > 0 && backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}
	d := calculateBackoff(time.Duration(backoff), p.Jitter)
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// calculateBackoff returns the backoff duration with jitter applied.
func calculateBackoff(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}

	// base +/- (base * jitter * random)
	jitterAmount := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + jitterAmount)
}

// RetryOption configures a RetryPolicy.
type RetryOption func(*RetryPolicy)

// WithInitialBackoff sets the initial backoff duration.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(p *RetryPolicy) {
		p.InitialBackoff = d
	}
}

// WithMaxBackoff sets the maximum backoff duration.
func WithMaxBackoff(d time.Duration) RetryOption {
	return func(p *RetryPolicy) {
		p.MaxBackoff = d
	}
}

// WithBackoffFactor sets the backoff multiplier.
func WithBackoffFactor(f float64) RetryOption {
	return func(p *RetryPolicy) {
		p.BackoffFactor = f
	}
}

// WithJitter sets the jitter factor.
func WithJitter(j float64) RetryOption {
	return func(p *RetryPolicy) {
		p.Jitter = j
	}
}

// NewRetryPolicy creates a policy from DefaultRetryPolicy and the given options.
func NewRetryPolicy(opts ...RetryOption) RetryPolicy {
	p := DefaultRetryPolicy
	for _, opt := range opts {
		opt(&p)
	}
	return p
}
