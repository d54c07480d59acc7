package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/kvsession/pkg/domain"
)

// LogHooks reports lifecycle events on logger.
// State changes and retries are logged at debug level, the give-up at error level.
// Operations are only logged when they fail.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(ctx context.Context, e *domain.StateEvent) {
			attrs := []any{"session_id", e.SessionID, "from", e.From, "to", e.To}
			switch e.To {
			case domain.StateConnecting:
				logger.DebugContext(ctx, "Connecting to the store", attrs...)
			case domain.StateReady:
				logger.DebugContext(ctx, "Store is accepting commands", attrs...)
			case domain.StateReconnecting:
				logger.DebugContext(ctx, "Connection to the store was lost", append(attrs, "err", e.Err)...)
			case domain.StateClosed:
				if e.Err != nil {
					logger.ErrorContext(ctx, "Giving up on the store connection", append(attrs, "attempt", e.Attempt, "err", e.Err)...)
					return
				}
				logger.DebugContext(ctx, "Connection to the store has been closed", attrs...)
			}
		},
		OnRetry: func(ctx context.Context, e *domain.RetryEvent) {
			logger.DebugContext(ctx, "Reconnecting",
				"session_id", e.SessionID,
				"delay", e.Delay,
				"attempt", e.Attempt,
				"elapsed", e.Elapsed,
				"err", e.Err,
			)
		},
		OnOperation: func(ctx context.Context, e *domain.OperationEvent) {
			if e.Err == nil {
				return
			}
			logger.DebugContext(ctx, "Operation failed",
				"session_id", e.SessionID,
				"op", e.Op,
				"key", e.Key,
				"kind", domain.KindOf(e.Err),
				"err", e.Err,
			)
		},
	}
}
