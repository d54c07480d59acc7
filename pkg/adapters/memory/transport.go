package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/kvsession/pkg/adapters/redis"
	"github.com/aretw0/kvsession/pkg/domain"
)

// Transport implements ports.Transport over an in-process Redis server.
// Commands go through the Redis adapter, so replies and errors match a real
// store; on top of that, failures can be injected per call.
// Safe for concurrent use.
type Transport struct {
	server *miniredis.Miniredis
	inner  *redis.Transport

	mu       sync.Mutex
	synced   time.Time
	dialErrs []error
	opErrs   []error
	holds    []chan struct{}
	down     error
	closed   bool
	dials    int
	calls    int
}

// New starts an empty in-process store and returns a transport connected to it.
func New() (*Transport, error) {
	server := miniredis.NewMiniRedis()
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("failed to start in-process store: %w", err)
	}
	inner, err := redis.New("redis://" + server.Addr() + "/0")
	if err != nil {
		server.Close()
		return nil, err
	}
	return &Transport{
		server: server,
		inner:  inner,
		synced: time.Now(),
	}, nil
}

// Server returns the in-process store, for inspecting its contents.
func (t *Transport) Server() *miniredis.Miniredis {
	return t.server
}

// FailDial queues errors returned by the next Dial calls, one per call.
func (t *Transport) FailDial(errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialErrs = append(t.dialErrs, errs...)
}

// FailNext queues errors returned by the next data calls, one per call.
func (t *Transport) FailNext(errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opErrs = append(t.opErrs, errs...)
}

// HoldNext makes the next data call wait until release is called or its
// context is done. A call released after Close fails as unavailable.
func (t *Transport) HoldNext() (release func()) {
	ch := make(chan struct{})
	t.mu.Lock()
	t.holds = append(t.holds, ch)
	t.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// SetDown makes every call fail with err until SetDown(nil) is called.
func (t *Transport) SetDown(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.down = err
}

// Advance moves the store clock forward, expiring keys whose TTL elapsed.
// The clock also follows wall time between calls.
func (t *Transport) Advance(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.server.FastForward(d)
	}
}

// Dials returns the number of Dial calls so far.
func (t *Transport) Dials() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

// Calls returns the number of data calls so far.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Dial succeeds unless a failure was injected or the transport is closed.
func (t *Transport) Dial(ctx context.Context) error {
	t.mu.Lock()
	t.dials++
	err := ctx.Err()
	if err == nil && len(t.dialErrs) > 0 {
		err = t.dialErrs[0]
		t.dialErrs = t.dialErrs[1:]
	}
	if err == nil {
		err = t.availableLocked()
	}
	t.mu.Unlock()
	if err != nil {
		return err
	}
	return t.inner.Dial(ctx)
}

func (t *Transport) availableLocked() error {
	if t.closed {
		return fmt.Errorf("%w: transport closed", domain.ErrTransportUnavailable)
	}
	return t.down
}

// begin counts one data call, reports any injected failure and waits on a
// pending hold before the command is sent.
func (t *Transport) begin(ctx context.Context) error {
	t.mu.Lock()
	t.calls++
	if err := ctx.Err(); err != nil {
		t.mu.Unlock()
		return err
	}
	if err := t.availableLocked(); err != nil {
		t.mu.Unlock()
		return err
	}
	if len(t.opErrs) > 0 {
		err := t.opErrs[0]
		t.opErrs = t.opErrs[1:]
		t.mu.Unlock()
		return err
	}
	var hold chan struct{}
	if len(t.holds) > 0 {
		hold = t.holds[0]
		t.holds = t.holds[1:]
	}
	t.syncLocked()
	t.mu.Unlock()

	if hold == nil {
		return nil
	}
	select {
	case <-hold:
	case <-ctx.Done():
		return ctx.Err()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.availableLocked()
}

// syncLocked moves the store clock by the wall time since the last call;
// miniredis only expires keys when told time has passed.
func (t *Transport) syncLocked() {
	now := time.Now()
	if d := now.Sub(t.synced); d > 0 {
		t.server.FastForward(d)
	}
	t.synced = now
}

func (t *Transport) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := t.begin(ctx); err != nil {
		return err
	}
	return t.inner.Set(ctx, key, value, ttl)
}

func (t *Transport) Get(ctx context.Context, key string) (string, bool, error) {
	if err := t.begin(ctx); err != nil {
		return "", false, err
	}
	return t.inner.Get(ctx, key)
}

func (t *Transport) HSet(ctx context.Context, key string, fields map[string]string) (int64, error) {
	if err := t.begin(ctx); err != nil {
		return 0, err
	}
	return t.inner.HSet(ctx, key, fields)
}

func (t *Transport) HGet(ctx context.Context, key, field string) (string, bool, error) {
	if err := t.begin(ctx); err != nil {
		return "", false, err
	}
	return t.inner.HGet(ctx, key, field)
}

func (t *Transport) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := t.begin(ctx); err != nil {
		return nil, err
	}
	return t.inner.HGetAll(ctx, key)
}

func (t *Transport) HKeys(ctx context.Context, key string) ([]string, error) {
	if err := t.begin(ctx); err != nil {
		return nil, err
	}
	return t.inner.HKeys(ctx, key)
}

func (t *Transport) Push(ctx context.Context, key string, values []string, atFront bool) (int64, error) {
	if err := t.begin(ctx); err != nil {
		return 0, err
	}
	return t.inner.Push(ctx, key, values, atFront)
}

func (t *Transport) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := t.begin(ctx); err != nil {
		return nil, err
	}
	return t.inner.Range(ctx, key, start, stop)
}

func (t *Transport) SAdd(ctx context.Context, key string, members []string) (int64, error) {
	if err := t.begin(ctx); err != nil {
		return 0, err
	}
	return t.inner.SAdd(ctx, key, members)
}

func (t *Transport) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := t.begin(ctx); err != nil {
		return nil, err
	}
	return t.inner.SMembers(ctx, key)
}

func (t *Transport) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	if err := t.begin(ctx); err != nil {
		return 0, err
	}
	return t.inner.IncrBy(ctx, key, delta)
}

func (t *Transport) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := t.begin(ctx); err != nil {
		return false, err
	}
	return t.inner.Expire(ctx, key, ttl)
}

func (t *Transport) Del(ctx context.Context, key string) (int64, error) {
	if err := t.begin(ctx); err != nil {
		return 0, err
	}
	return t.inner.Del(ctx, key)
}

// Close releases the client and stops the in-process store; later calls fail as unavailable.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	err := t.inner.Close()
	t.server.Close()
	return err
}
