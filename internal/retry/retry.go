// Package retry implements the backoff wrapper used by every outbound
// network call in the service. It is a pure control-flow combinator: the
// only side effects are those of the wrapped operation.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"
)

// ErrBudgetExceeded marks a call abandoned because its wall-clock budget ran
// out before all retries were used.
var ErrBudgetExceeded = errors.New("retry: total duration budget exceeded")

// StatusError carries an HTTP status code through the retry classification.
// Adapters return it for non-2xx vendor responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Policy controls how Do retries a failing operation.
type Policy struct {
	MaxRetries       int           // additional attempts after the first
	InitialDelay     time.Duration
	MaxDelay         time.Duration // cap on a single backoff wait
	MaxTotalDuration time.Duration // wall-clock budget for the whole call
	Multiplier       float64

	// ShouldRetry receives the attempt's error and the zero-based attempt
	// number. Nil means DefaultShouldRetry.
	ShouldRetry func(err error, attempt int) bool
}

// DefaultPolicy mirrors the budgets used for vendor API calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:       3,
		InitialDelay:     time.Second,
		MaxDelay:         30 * time.Second,
		MaxTotalDuration: 8 * time.Second,
		Multiplier:       2,
	}
}

// DefaultShouldRetry retries connection and timeout failures and 5xx vendor
// responses. 4xx responses are caller errors: retrying cannot help, so they
// fail on the first attempt.
func DefaultShouldRetry(err error, _ int) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Unclassified errors are treated as transient (typically transport-level
	// failures wrapped by net/http).
	return true
}

// Do runs op up to MaxRetries+1 times with exponential backoff and jitter.
//
// Before every attempt after the first, the elapsed wall-clock time is
// checked against MaxTotalDuration; if the budget is already spent, or the
// next wait would overrun it, Do gives up immediately with the last error
// wrapped in ErrBudgetExceeded. It never starts an attempt whose wait window
// it cannot honour.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	if p.Multiplier <= 0 {
		p.Multiplier = 2
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(p, attempt-1)
			if p.MaxTotalDuration > 0 {
				elapsed := time.Since(start)
				if elapsed >= p.MaxTotalDuration || elapsed+delay > p.MaxTotalDuration {
					return fmt.Errorf("%w (elapsed %s): %v", ErrBudgetExceeded, elapsed.Round(time.Millisecond), lastErr)
				}
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err, attempt) {
			return lastErr
		}
	}

	return lastErr
}

// backoffDelay returns initial*multiplier^attempt capped at MaxDelay, plus up
// to 25% uniform jitter so retries across tenants and sources do not
// synchronise into storms.
func backoffDelay(p Policy, attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	jitter := rand.Float64() * 0.25 * d
	return time.Duration(d + jitter)
}
