package observability

import (
	"context"

	"github.com/aretw0/kvsession/pkg/domain"
)

// Combine returns hooks that call each of the given hooks in order.
// Nil callbacks are skipped.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var combined domain.LifecycleHooks

	var onState []func(context.Context, *domain.StateEvent)
	var onRetry []func(context.Context, *domain.RetryEvent)
	var onOp []func(context.Context, *domain.OperationEvent)
	for _, h := range all {
		if h.OnStateChange != nil {
			onState = append(onState, h.OnStateChange)
		}
		if h.OnRetry != nil {
			onRetry = append(onRetry, h.OnRetry)
		}
		if h.OnOperation != nil {
			onOp = append(onOp, h.OnOperation)
		}
	}

	if len(onState) > 0 {
		combined.OnStateChange = func(ctx context.Context, e *domain.StateEvent) {
			for _, fn := range onState {
				fn(ctx, e)
			}
		}
	}
	if len(onRetry) > 0 {
		combined.OnRetry = func(ctx context.Context, e *domain.RetryEvent) {
			for _, fn := range onRetry {
				fn(ctx, e)
			}
		}
	}
	if len(onOp) > 0 {
		combined.OnOperation = func(ctx context.Context, e *domain.OperationEvent) {
			for _, fn := range onOp {
				fn(ctx, e)
			}
		}
	}
	return combined
}
