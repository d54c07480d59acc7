package http

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aretw0/kvsession/pkg/domain"
)

// EventStream fans lifecycle events out to Watch subscribers as JSON.
// Slow subscribers miss events rather than blocking the session.
type EventStream struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewEventStream creates an EventStream with no subscribers.
func NewEventStream() *EventStream {
	return &EventStream{subs: make(map[chan string]struct{})}
}

// Hooks returns the lifecycle hooks publishing to the stream.
func (e *EventStream) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, ev *domain.StateEvent) {
			e.publish(ev)
		},
		OnRetry: func(_ context.Context, ev *domain.RetryEvent) {
			e.publish(ev)
		},
	}
}

// Watch subscribes until ctx is done, then closes the returned channel.
func (e *EventStream) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		delete(e.subs, ch)
		close(ch)
		e.mu.Unlock()
	}()
	return ch, nil
}

func (e *EventStream) publish(ev any) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- string(data):
		default:
		}
	}
}
