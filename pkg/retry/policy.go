// Package retry decides whether a failed connection attempt is retried.
//
// A Policy is a pure function of the failure, the attempt number and the time
// already spent retrying; it holds no per-session state.
package retry

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aretw0/kvsession/pkg/domain"
)

const (
	DefaultBackoff     = 5 * time.Second
	DefaultMaxElapsed  = 60 * time.Second
	DefaultMaxAttempts = 10
)

var (
	// ErrRefused is the give-up reason when the endpoint refused the connection.
	ErrRefused = errors.New("store refused connection")

	// ErrTimeExhausted is the give-up reason when the cumulative retry time ceiling is exceeded.
	ErrTimeExhausted = errors.New("retry time exhausted")

	// ErrAttemptsExhausted is the give-up reason when the attempt ceiling is exceeded.
	ErrAttemptsExhausted = errors.New("max reconnection attempts exhausted")
)

// Policy holds the reconnection tunables. A zero ceiling disables that check.
type Policy struct {
	// Backoff is the delay before the first retry.
	Backoff time.Duration

	// Multiplier grows the delay on each attempt. Values below 1 keep it fixed.
	Multiplier float64

	// MaxBackoff caps the grown delay. Zero means no cap.
	MaxBackoff time.Duration

	// MaxElapsed is the ceiling on cumulative retry time.
	MaxElapsed time.Duration

	// MaxAttempts is the ceiling on the attempt count.
	MaxAttempts int
}

// Default returns the policy of a fixed 5s backoff, 60s total and 10 attempts.
func Default() Policy {
	return Policy{
		Backoff:     DefaultBackoff,
		Multiplier:  1,
		MaxElapsed:  DefaultMaxElapsed,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Decision is the outcome of evaluating a Policy.
type Decision struct {
	Retry bool
	Delay time.Duration // Wait before the next attempt, when Retry is set
	Cause error         // Give-up reason wrapping the transport error, when Retry is not set
}

// Decide evaluates one transport failure. attempt is the 1-based number of the
// failure being evaluated and elapsed the time spent retrying so far.
//
// The rules are checked in order: a refused connection gives up at once, then
// the time ceiling, then the attempt ceiling; otherwise the next attempt waits
// for the backoff.
func (p Policy) Decide(err error, attempt int, elapsed time.Duration) Decision {
	if errors.Is(err, domain.ErrTransportRefused) {
		return giveUp(ErrRefused, err)
	}
	if p.MaxElapsed > 0 && elapsed > p.MaxElapsed {
		return giveUp(ErrTimeExhausted, err)
	}
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return giveUp(ErrAttemptsExhausted, err)
	}
	return Decision{Retry: true, Delay: p.delay(attempt)}
}

func (p Policy) delay(attempt int) time.Duration {
	if attempt <= 1 || p.Multiplier <= 1 || p.Backoff <= 0 {
		return p.Backoff
	}
	d := float64(p.Backoff) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		return p.MaxBackoff
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

func giveUp(reason, err error) Decision {
	if err == nil {
		return Decision{Cause: reason}
	}
	return Decision{Cause: fmt.Errorf("%w: %w", reason, err)}
}
