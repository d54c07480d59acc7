package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()
	base := domain.EventBase{SessionID: "s1"}

	hooks.OnStateChange(ctx, &domain.StateEvent{EventBase: base, From: domain.StateDisconnected, To: domain.StateConnecting})
	hooks.OnRetry(ctx, &domain.RetryEvent{EventBase: base, Attempt: 1, Delay: 5 * time.Second})
	hooks.OnStateChange(ctx, &domain.StateEvent{EventBase: base, From: domain.StateConnecting, To: domain.StateReady})
	hooks.OnOperation(ctx, &domain.OperationEvent{EventBase: base, Op: "set", Duration: time.Millisecond})
	hooks.OnOperation(ctx, &domain.OperationEvent{EventBase: base, Op: "set", Err: domain.ErrInvalidValue})
	hooks.OnOperation(ctx, &domain.OperationEvent{EventBase: base, Op: "get", Err: errors.New("boom")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("s1", "ready")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("s1", "connecting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("connecting", "ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("set", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("set", "invalid_value")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("get", "unknown")))

	count, err := testutil.GatherAndCount(reg, "kvsession_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "One histogram per operation name")
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
