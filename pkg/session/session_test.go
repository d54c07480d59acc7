package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/aretw0/kvsession/pkg/retry"
	"github.com/aretw0/kvsession/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_NotConnectedBeforeConnect(t *testing.T) {
	tr := newTransport(t)
	s, rec := newSession(t, tr, fastConfig())
	ctx := context.Background()

	assert.Equal(t, domain.StateDisconnected, s.State())

	_, err := s.SetString(ctx, "framework", "Spring", 0).Wait()
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	_, err = s.GetString(ctx, "framework").Wait()
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	_, err = s.Increment(ctx, "counter", 1).Wait()
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	_, err = s.SetHashFields(ctx, "tech-stack", map[string]any{"a": "b"}).Wait()
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	assert.Zero(t, tr.Calls(), "No operation should reach the transport")
	assert.Zero(t, tr.Dials())
	assert.Empty(t, rec.transitions())
	assert.Equal(t, domain.KindNotConnected, domain.KindOf(err))
}

func TestSession_Connect(t *testing.T) {
	tr := newTransport(t)
	s, rec := newSession(t, tr, fastConfig(), session.WithID("sess-1"))

	connect(t, s)

	assert.Equal(t, domain.StateReady, s.State())
	assert.Equal(t, "sess-1", s.ID())
	assert.Equal(t, 1, tr.Dials())
	// The Ready event is delivered before the Connect result.
	assert.Equal(t, []string{"disconnected->connecting", "connecting->ready"}, rec.transitions())
	assert.Empty(t, rec.retryAttempts())

	stats := s.Stats()
	assert.Equal(t, "sess-1", stats.ID)
	assert.Equal(t, domain.StateReady, stats.State)
	assert.Zero(t, stats.Attempts)
	assert.Zero(t, stats.Pending)
}

func TestSession_ConnectJoinsCurrentAttempt(t *testing.T) {
	tr := newTransport(t)
	cfg := fastConfig()
	cfg.RetryBackoff = 20 * time.Millisecond
	tr.FailDial(errDown)
	s, _ := newSession(t, tr, cfg)

	first := s.Connect()
	second := s.Connect()

	state, err := first.Wait()
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, state)
	state, err = second.Wait()
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, state)

	assert.Equal(t, 2, tr.Dials(), "A second Connect must not start another dial loop")

	state, err = s.Connect().Wait()
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, state)
}

func TestSession_RefusedClosesWithoutRetry(t *testing.T) {
	tr := newTransport(t)
	tr.FailDial(errRefused)
	s, rec := newSession(t, tr, fastConfig())

	state, err := s.Connect().Wait()
	require.Error(t, err)
	assert.Equal(t, domain.StateClosed, state)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.ErrorIs(t, err, retry.ErrRefused)
	assert.ErrorIs(t, err, domain.ErrTransportRefused)

	assert.Equal(t, 1, tr.Dials())
	assert.Empty(t, rec.retryAttempts())
	assert.Equal(t, []string{"disconnected->connecting", "connecting->closed"}, rec.transitions())
	assert.True(t, tr.Closed(), "Giving up should release the transport")

	_, err = s.GetString(context.Background(), "k").Wait()
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestSession_RetryThenSucceed(t *testing.T) {
	tr := newTransport(t)
	tr.FailDial(errDown, errDown)
	s, rec := newSession(t, tr, fastConfig())

	connect(t, s)

	assert.Equal(t, 3, tr.Dials())
	assert.Equal(t, []int{1, 2}, rec.retryAttempts())
	assert.Equal(t, []string{"disconnected->connecting", "connecting->ready"}, rec.transitions(),
		"Retries of the first connection stay in Connecting")

	rec.mu.Lock()
	for _, ev := range rec.retries {
		assert.Equal(t, domain.StateConnecting, ev.State)
		assert.Equal(t, time.Millisecond, ev.Delay)
		assert.ErrorIs(t, ev.Err, domain.ErrTransportUnavailable)
	}
	rec.mu.Unlock()

	assert.Equal(t, 2, s.Stats().Attempts)
}

func TestSession_AttemptCeiling(t *testing.T) {
	tr := newTransport(t)
	tr.SetDown(errDown)
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 2
	s, rec := newSession(t, tr, cfg)

	_, err := s.Connect().Wait()
	assert.ErrorIs(t, err, retry.ErrAttemptsExhausted)
	assert.ErrorIs(t, err, domain.ErrTransportUnavailable)
	assert.Equal(t, domain.StateClosed, s.State())

	// The first dial plus one per scheduled retry.
	assert.Equal(t, 3, tr.Dials())
	assert.Equal(t, []int{1, 2}, rec.retryAttempts())
}

func TestSession_TimeCeiling(t *testing.T) {
	tr := newTransport(t)
	tr.SetDown(errDown)
	cfg := fastConfig()
	cfg.RetryBackoff = 5 * time.Millisecond
	cfg.RetryMaxElapsed = 20 * time.Millisecond
	cfg.RetryMaxAttempts = 0
	s, _ := newSession(t, tr, cfg)

	_, err := s.Connect().Wait()
	assert.ErrorIs(t, err, retry.ErrTimeExhausted)
	assert.Equal(t, domain.StateClosed, s.State())
	assert.GreaterOrEqual(t, s.Stats().RetryElapsed, 20*time.Millisecond)
}

func TestSession_ReconnectAfterDrop(t *testing.T) {
	tr := newTransport(t)
	s, rec := newSession(t, tr, fastConfig())
	ctx := context.Background()
	connect(t, s)

	tr.FailNext(errDown)
	_, err := s.SetString(ctx, "framework", "Spring", 0).Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.NotErrorIs(t, err, domain.ErrTransportUnavailable, "Transport errors surface only as not connected")
	assert.Contains(t, err.Error(), "connection reset by peer")

	waitState(t, s, domain.StateReady)
	waitTransitions(t, rec, 4)
	assert.Equal(t, []string{
		"disconnected->connecting",
		"connecting->ready",
		"ready->reconnecting",
		"reconnecting->ready",
	}, rec.transitions())
	assert.Equal(t, []int{1}, rec.retryAttempts())

	ack, err := s.SetString(ctx, "framework", "Spring", 0).Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(1), ack.Affected)
}

func TestSession_AttemptsAccumulateAcrossOutages(t *testing.T) {
	tr := newTransport(t)
	s, rec := newSession(t, tr, fastConfig())
	ctx := context.Background()
	connect(t, s)

	for i := 0; i < 2; i++ {
		tr.FailNext(errDown)
		_, err := s.Delete(ctx, "k").Wait()
		require.ErrorIs(t, err, domain.ErrNotConnected)
		waitState(t, s, domain.StateReady)
		// Wait for the reconnect event to be recorded too.
		require.Eventually(t, func() bool { return len(rec.retryAttempts()) == i+1 }, time.Second, time.Millisecond)
	}

	assert.Equal(t, []int{1, 2}, rec.retryAttempts())
	assert.Equal(t, 2, s.Stats().Attempts)
}

func TestSession_OperationsWhileReconnecting(t *testing.T) {
	tr := newTransport(t)
	cfg := fastConfig()
	cfg.RetryBackoff = time.Hour
	s, _ := newSession(t, tr, cfg)
	ctx := context.Background()
	connect(t, s)

	tr.FailNext(errDown)
	_, err := s.GetString(ctx, "k").Wait()
	require.ErrorIs(t, err, domain.ErrNotConnected)
	assert.Equal(t, domain.StateReconnecting, s.State())

	calls := tr.Calls()
	_, err = s.SetString(ctx, "k", "v", 0).Wait()
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	_, err = s.Increment(ctx, "counter", 1).Wait()
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.Equal(t, calls, tr.Calls(), "Operations must not reach the transport while reconnecting")

	// Close interrupts the pending backoff.
	require.NoError(t, s.Close())
	assert.Equal(t, domain.StateClosed, s.State())
	assert.Equal(t, 1, tr.Dials())
}

func TestSession_RefusedAfterDropCloses(t *testing.T) {
	tr := newTransport(t)
	s, rec := newSession(t, tr, fastConfig())
	connect(t, s)

	tr.FailNext(errRefused)
	_, err := s.Increment(context.Background(), "counter", 1).Wait()
	require.ErrorIs(t, err, domain.ErrNotConnected)

	waitState(t, s, domain.StateClosed)
	waitTransitions(t, rec, 4)
	assert.Equal(t, []string{
		"disconnected->connecting",
		"connecting->ready",
		"ready->reconnecting",
		"reconnecting->closed",
	}, rec.transitions())
	assert.Equal(t, 1, tr.Dials(), "A refused endpoint is not dialed again")
	assert.Empty(t, rec.retryAttempts())
}

func TestSession_StoreErrorKeepsSessionReady(t *testing.T) {
	tr := newTransport(t)
	s, rec := newSession(t, tr, fastConfig())
	ctx := context.Background()
	connect(t, s)

	_, err := s.SetString(ctx, "framework", "Spring", 0).Wait()
	require.NoError(t, err)

	_, err = s.AddToSet(ctx, "framework", []string{"x"}).Wait()
	assert.ErrorIs(t, err, domain.ErrStoreError)
	assert.Equal(t, domain.KindStoreError, domain.KindOf(err))
	assert.Equal(t, domain.StateReady, s.State())
	assert.Len(t, rec.transitions(), 2)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	tr := newTransport(t)
	s, rec := newSession(t, tr, fastConfig())
	connect(t, s)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, domain.StateClosed, s.State())
	assert.True(t, tr.Closed())
	assert.Equal(t, []string{
		"disconnected->connecting",
		"connecting->ready",
		"ready->closed",
	}, rec.transitions())

	_, err := s.SetString(context.Background(), "k", "v", 0).Wait()
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	state, err := s.Connect().Wait()
	assert.Equal(t, domain.StateClosed, state)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSession_CloseBeforeConnect(t *testing.T) {
	tr := newTransport(t)
	s, rec := newSession(t, tr, fastConfig())

	require.NoError(t, s.Close())
	assert.Equal(t, []string{"disconnected->closed"}, rec.transitions())
	assert.Zero(t, tr.Dials())
}

func TestSession_CloseDuringConnectFailsWaiter(t *testing.T) {
	tr := newTransport(t)
	tr.FailDial(errDown)
	cfg := fastConfig()
	cfg.RetryBackoff = time.Hour
	s, _ := newSession(t, tr, cfg)

	f := s.Connect()
	require.Eventually(t, func() bool { return s.Stats().Attempts == 1 }, time.Second, time.Millisecond)
	require.NoError(t, s.Close())

	state, err := f.Wait()
	assert.Equal(t, domain.StateClosed, state)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSession_HooksMayCloseTheSession(t *testing.T) {
	tr := newTransport(t)
	var s *session.Session
	var seen []string
	closed := make(chan struct{})
	hooks := domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, ev *domain.StateEvent) {
			seen = append(seen, fmt.Sprintf("%s->%s", ev.From, ev.To))
			switch ev.To {
			case domain.StateReady:
				_ = s.Close()
			case domain.StateClosed:
				close(closed)
			}
		},
	}
	s = session.New(tr, fastConfig(), session.WithHooks(hooks))

	state, err := s.Connect().Wait()
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, state)
	assert.Equal(t, domain.StateClosed, s.State())

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Closed event was not delivered")
	}
	assert.Equal(t, []string{
		"disconnected->connecting",
		"connecting->ready",
		"ready->closed",
	}, seen)
}

func TestSession_HealthCheckDetectsDrop(t *testing.T) {
	tr := newTransport(t)
	cfg := fastConfig()
	cfg.HealthInterval = 5 * time.Millisecond
	cfg.RetryBackoff = 10 * time.Millisecond
	cfg.RetryMaxAttempts = 0
	cfg.RetryMaxElapsed = 0
	s, rec := newSession(t, tr, cfg)
	connect(t, s)

	tr.SetDown(errDown)
	waitState(t, s, domain.StateReconnecting)
	assert.Zero(t, tr.Calls(), "The drop was found without any data operation")

	tr.SetDown(nil)
	waitState(t, s, domain.StateReady)
	waitTransitions(t, rec, 4)
	assert.Equal(t, "ready->reconnecting", rec.transitions()[2])
	assert.Equal(t, "reconnecting->ready", rec.transitions()[3])
}

func TestSession_WithPolicyOverridesConfig(t *testing.T) {
	tr := newTransport(t)
	tr.SetDown(errDown)
	s, rec := newSession(t, tr, session.DefaultConfig(), session.WithPolicy(retry.Policy{
		Backoff:     time.Millisecond,
		MaxAttempts: 1,
	}))

	_, err := s.Connect().Wait()
	assert.ErrorIs(t, err, retry.ErrAttemptsExhausted)
	assert.Equal(t, []int{1}, rec.retryAttempts())
}

func TestSession_CallerCancellation(t *testing.T) {
	tr := newTransport(t)
	s, _ := newSession(t, tr, fastConfig())
	connect(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetString(ctx, "k").Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.KindCanceled, domain.KindOf(err))
	assert.Equal(t, domain.StateReady, s.State(), "Cancelling one call does not drop the connection")
}
