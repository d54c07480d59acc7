package session

import (
	"log/slog"
	"time"

	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/aretw0/kvsession/pkg/retry"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger configures a logger for the Session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// WithPolicy overrides the retry policy derived from the Config.
func WithPolicy(policy retry.Policy) Option {
	return func(s *Session) {
		s.policy = policy
	}
}

// WithID sets the session identifier used in events and logs (default: random UUID).
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithClock replaces time.Now when measuring retry time and operation latency.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}
