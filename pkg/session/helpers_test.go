package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/kvsession/pkg/adapters/memory"
	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/aretw0/kvsession/pkg/session"
	"github.com/stretchr/testify/require"
)

var (
	errDown    = fmt.Errorf("%w: connection reset by peer", domain.ErrTransportUnavailable)
	errRefused = fmt.Errorf("%w: connect: connection refused", domain.ErrTransportRefused)
)

// fastConfig keeps retries in the millisecond range.
func fastConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryMaxElapsed = 5 * time.Second
	cfg.RetryMaxAttempts = 3
	cfg.DialTimeout = time.Second
	return cfg
}

type recorder struct {
	mu      sync.Mutex
	states  []domain.StateEvent
	retries []domain.RetryEvent
	ops     []domain.OperationEvent
}

func (r *recorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, ev *domain.StateEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, *ev)
		},
		OnRetry: func(_ context.Context, ev *domain.RetryEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.retries = append(r.retries, *ev)
		},
		OnOperation: func(_ context.Context, ev *domain.OperationEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.ops = append(r.ops, *ev)
		},
	}
}

func (r *recorder) transitions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.states))
	for i, ev := range r.states {
		out[i] = fmt.Sprintf("%s->%s", ev.From, ev.To)
	}
	return out
}

func (r *recorder) retryAttempts() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.retries))
	for i, ev := range r.retries {
		out[i] = ev.Attempt
	}
	return out
}

func (r *recorder) operations() []domain.OperationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.OperationEvent(nil), r.ops...)
}

func newTransport(t *testing.T) *memory.Transport {
	t.Helper()
	tr, err := memory.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func newSession(t *testing.T, tr *memory.Transport, cfg session.Config, opts ...session.Option) (*session.Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]session.Option{session.WithHooks(rec.hooks())}, opts...)
	s := session.New(tr, cfg, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, rec
}

func connect(t *testing.T, s *session.Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := s.Connect().Await(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StateReady, state)
}

func waitState(t *testing.T, s *session.Session, want domain.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.State() == want
	}, 5*time.Second, time.Millisecond, "session never reached %s", want)
}

func waitTransitions(t *testing.T, rec *recorder, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(rec.transitions()) >= n
	}, 5*time.Second, time.Millisecond)
}
