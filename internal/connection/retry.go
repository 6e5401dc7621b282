package connection

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures reconnection backoff.
type RetryConfig struct {
	BaseDelay   time.Duration
	Multiplier  float64
	MaxAttempts int
}

// DefaultRetryConfig returns the feed's reconnection defaults: 10s, 20s, 40s,
// 80s, 160s, then give up.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BaseDelay:   10 * time.Second,
		Multiplier:  2,
		MaxAttempts: 5,
	}
}

// Delay returns the wait before the given 1-based attempt.
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt-1)))
}

// RetryPolicy hands out reconnection delays until MaxAttempts is reached.
// Not safe for concurrent use; the controller only touches it from its
// event loop.
type RetryPolicy struct {
	cfg     RetryConfig
	backoff backoff.BackOff
	attempt int
}

// NewRetryPolicy creates a policy with deterministic (unjittered) delays.
func NewRetryPolicy(cfg RetryConfig, clk clock.Clock) *RetryPolicy {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.BaseDelay
	exp.Multiplier = cfg.Multiplier
	exp.RandomizationFactor = 0
	exp.MaxInterval = cfg.Delay(cfg.MaxAttempts)
	exp.MaxElapsedTime = 0
	exp.Clock = clk
	exp.Reset()

	var b backoff.BackOff = exp
	if cfg.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(exp, uint64(cfg.MaxAttempts))
	}

	return &RetryPolicy{cfg: cfg, backoff: b}
}

// Next advances to the next attempt. ok is false once MaxAttempts attempts
// have been handed out since the last Reset.
func (p *RetryPolicy) Next() (attempt int, delay time.Duration, ok bool) {
	delay = p.backoff.NextBackOff()
	if delay == backoff.Stop {
		return p.attempt, 0, false
	}
	p.attempt++
	return p.attempt, delay, true
}

// Reset starts a fresh sequence. Called once per successful open.
func (p *RetryPolicy) Reset() {
	p.backoff.Reset()
	p.attempt = 0
}

// Attempt returns the number of attempts handed out since the last Reset.
func (p *RetryPolicy) Attempt() int {
	return p.attempt
}

// MaxAttempts returns the configured limit.
func (p *RetryPolicy) MaxAttempts() int {
	return p.cfg.MaxAttempts
}
