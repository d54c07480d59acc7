package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/kvsession/internal/logging"
	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/aretw0/kvsession/pkg/ports"
	"github.com/aretw0/kvsession/pkg/retry"
	"github.com/google/uuid"
)

// Session owns one logical connection to the store and mediates every operation through it.
// It is safe for concurrent use.
type Session struct {
	id        string
	transport ports.Transport
	cfg       Config
	policy    retry.Policy
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time

	mu            sync.Mutex
	state         domain.State
	attempts      int           // Retries scheduled over the session lifetime
	outageStart   time.Time     // Zero while no retry is running
	retryTotal    time.Duration // Retry time of finished outages
	waiters       []*Future[domain.State]
	lifetime      context.Context
	stop          context.CancelFunc
	stopMonitor   context.CancelFunc
	closeOnce     sync.Once
	closeErr      error
	pending       atomic.Int64
	emitMu        sync.Mutex
	queue         []func()
}

// Stats is a snapshot of the session attributes.
type Stats struct {
	ID           string        `json:"id"`
	State        domain.State  `json:"state"`
	Pending      int64         `json:"pending"`
	Attempts     int           `json:"attempts"`
	RetryElapsed time.Duration `json:"retry_elapsed"`
}

// New creates a Disconnected session over the given transport.
func New(transport ports.Transport, cfg Config, opts ...Option) *Session {
	lifetime, stop := context.WithCancel(context.Background())
	s := &Session{
		id:        uuid.NewString(),
		transport: transport,
		cfg:       cfg,
		policy:    cfg.Policy(),
		logger:    logging.NewNop(),
		now:       time.Now,
		state:     domain.StateDisconnected,
		lifetime:  lifetime,
		stop:      stop,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.id)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the session attributes.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := s.retryTotal
	if !s.outageStart.IsZero() {
		elapsed += s.now().Sub(s.outageStart)
	}
	return Stats{
		ID:           s.id,
		State:        s.state,
		Pending:      s.pending.Load(),
		Attempts:     s.attempts,
		RetryElapsed: elapsed,
	}
}

// Connect starts connecting a Disconnected session. The returned Future resolves
// with StateReady once connected, or fails with the give-up reason when the retry
// policy closes the session. Calling Connect on a session that is already
// connecting or ready joins the current attempt.
func (s *Session) Connect() *Future[domain.State] {
	f := newFuture[domain.State]()

	s.mu.Lock()
	switch s.state {
	case domain.StateReady:
		s.mu.Unlock()
		f.resolve(domain.StateReady, nil)
		return f
	case domain.StateClosed:
		s.mu.Unlock()
		f.resolve(domain.StateClosed, domain.ErrSessionClosed)
		return f
	case domain.StateConnecting, domain.StateReconnecting:
		s.waiters = append(s.waiters, f)
		s.mu.Unlock()
		return f
	}

	s.waiters = append(s.waiters, f)
	s.setStateLocked(domain.StateConnecting, nil)
	go s.dialLoop(nil)
	s.mu.Unlock()

	s.flush()
	return f
}

// Close moves the session to Closed and releases the transport.
// In-flight operations are not cancelled; their results should be ignored.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == domain.StateClosed {
		s.mu.Unlock()
		return s.closeTransport()
	}
	s.setStateLocked(domain.StateClosed, nil)
	s.mu.Unlock()

	s.flush()
	return s.closeTransport()
}

// closeTransport stops background work and closes the transport exactly once.
func (s *Session) closeTransport() error {
	s.closeOnce.Do(func() {
		s.stop()
		if err := s.transport.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close transport: %w", err)
		}
	})
	return s.closeErr
}

// dialLoop runs until the session is Ready or Closed. cause is the transport
// error that started the loop, nil for the first connection.
// Only one dialLoop runs at a time: it is started on Disconnected->Connecting
// and on Ready->Reconnecting, both under s.mu.
func (s *Session) dialLoop(cause error) {
	ctx := s.lifetime
	for {
		if cause != nil {
			delay, ok := s.schedule(cause)
			if !ok {
				return
			}
			if !sleep(ctx, delay) {
				return
			}
		}

		err := s.dial(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			s.ready()
			return
		}
		s.logger.Debug("Dial failed", "err", err)
		cause = err
	}
}

func (s *Session) dial(ctx context.Context) error {
	if s.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DialTimeout)
		defer cancel()
	}
	return s.transport.Dial(ctx)
}

// schedule evaluates the retry policy for one failure. It returns the delay
// before the next dial, or false once the session has been closed.
func (s *Session) schedule(cause error) (time.Duration, bool) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return 0, false
	}
	now := s.now()
	if s.outageStart.IsZero() {
		s.outageStart = now
	}
	elapsed := now.Sub(s.outageStart)
	attempt := s.attempts + 1

	decision := s.policy.Decide(cause, attempt, elapsed)
	if !decision.Retry {
		s.retryTotal += elapsed
		s.outageStart = time.Time{}
		s.setStateLocked(domain.StateClosed, decision.Cause)
		s.mu.Unlock()

		if err := s.closeTransport(); err != nil {
			s.logger.Warn("Failed to release transport after giving up", "err", err)
		}
		s.flush()
		return 0, false
	}

	s.attempts = attempt
	ev := &domain.RetryEvent{
		EventBase: s.base(domain.EventRetry),
		State:     s.state,
		Attempt:   attempt,
		Delay:     decision.Delay,
		Elapsed:   elapsed,
		Err:       cause,
	}
	s.enqueueLocked(func() {
		if s.hooks.OnRetry != nil {
			s.hooks.OnRetry(context.Background(), ev)
		}
	})
	s.mu.Unlock()

	s.flush()
	return decision.Delay, true
}

func (s *Session) ready() {
	s.mu.Lock()
	if !s.outageStart.IsZero() {
		s.retryTotal += s.now().Sub(s.outageStart)
		s.outageStart = time.Time{}
	}
	if s.setStateLocked(domain.StateReady, nil) && s.cfg.HealthInterval > 0 {
		ctx, cancel := context.WithCancel(s.lifetime)
		s.stopMonitor = cancel
		go s.monitor(ctx, s.cfg.HealthInterval)
	}
	s.mu.Unlock()
	s.flush()
}

// drop moves a Ready session to Reconnecting after a transport failure.
// It is a no-op in any other state, so concurrent failures start a single loop.
func (s *Session) drop(cause error) {
	s.mu.Lock()
	if s.state != domain.StateReady {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(domain.StateReconnecting, cause)
	go s.dialLoop(cause)
	s.mu.Unlock()
	s.flush()
}

// monitor checks the connection every interval while the session is Ready.
func (s *Session) monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.dial(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil && domain.IsTransport(err) {
				s.logger.Debug("Health check failed", "err", err)
				s.drop(err)
				return
			}
		}
	}
}

// setStateLocked applies a transition allowed by the lifecycle, queues its event
// and settles Connect waiters. The caller must hold s.mu and call flush after unlocking.
func (s *Session) setStateLocked(to domain.State, cause error) bool {
	from := s.state
	if !from.CanTransition(to) {
		return false
	}
	s.state = to
	if from == domain.StateReady && s.stopMonitor != nil {
		s.stopMonitor()
		s.stopMonitor = nil
	}

	ev := &domain.StateEvent{
		EventBase: s.base(domain.EventStateChange),
		From:      from,
		To:        to,
		Attempt:   s.attempts,
		Err:       cause,
	}
	s.enqueueLocked(func() {
		if s.hooks.OnStateChange != nil {
			s.hooks.OnStateChange(context.Background(), ev)
		}
	})

	var result error
	switch to {
	case domain.StateReady:
	case domain.StateClosed:
		result = domain.ErrSessionClosed
		if cause != nil {
			result = fmt.Errorf("%w: %w", domain.ErrSessionClosed, cause)
		}
	default:
		return true
	}
	waiters := s.waiters
	s.waiters = nil
	s.enqueueLocked(func() {
		for _, w := range waiters {
			w.resolve(to, result)
		}
	})
	return true
}

func (s *Session) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: s.now(), Type: t, SessionID: s.id}
}

func (s *Session) enqueueLocked(fn func()) {
	s.queue = append(s.queue, fn)
}

// flush runs queued lifecycle callbacks in the order they were queued.
// Hooks may call back into the Session (including Close): a nested flush
// returns at once and the running one drains whatever was added.
func (s *Session) flush() {
	for {
		if !s.emitMu.TryLock() {
			return
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			fn := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			fn()
		}
		s.emitMu.Unlock()

		s.mu.Lock()
		empty := len(s.queue) == 0
		s.mu.Unlock()
		if empty {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
