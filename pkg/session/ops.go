package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aretw0/kvsession/pkg/domain"
)

// submit runs fn on its own goroutine once the session is Ready.
// Transport failures are turned into ErrNotConnected after starting the
// reconnection; a cancelled caller context only fails this operation.
func submit[T any](ctx context.Context, s *Session, op, key string, validate func() error, fn func(context.Context) (T, error)) *Future[T] {
	var zero T
	start := s.now()

	if state := s.State(); state != domain.StateReady {
		err := fmt.Errorf("%s %q: %w (state %s)", op, key, domain.ErrNotConnected, state)
		s.observe(op, key, start, err)
		return resolvedFuture(zero, err)
	}
	if key == "" {
		err := fmt.Errorf("%s: empty key: %w", op, domain.ErrInvalidValue)
		s.observe(op, key, start, err)
		return resolvedFuture(zero, err)
	}
	if validate != nil {
		if err := validate(); err != nil {
			err = fmt.Errorf("%s %q: %w", op, key, err)
			s.observe(op, key, start, err)
			return resolvedFuture(zero, err)
		}
	}

	f := newFuture[T]()
	s.pending.Add(1)
	go func() {
		opCtx := ctx
		if s.cfg.OperationTimeout > 0 {
			var cancel context.CancelFunc
			opCtx, cancel = context.WithTimeout(ctx, s.cfg.OperationTimeout)
			defer cancel()
		}

		val, err := fn(opCtx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			err = fmt.Errorf("%s %q: %w", op, key, ctx.Err())
		case domain.IsTransport(err):
			s.drop(err)
			err = fmt.Errorf("%s %q: %w: %v", op, key, domain.ErrNotConnected, err)
		default:
			err = fmt.Errorf("%s %q: %w", op, key, err)
		}
		if err != nil {
			val = zero
		}
		s.pending.Add(-1)
		s.observe(op, key, start, err)
		f.resolve(val, err)
	}()
	return f
}

func (s *Session) observe(op, key string, start time.Time, err error) {
	if err != nil {
		s.logger.Debug("Operation failed", "op", op, "key", key, "kind", domain.KindOf(err), "err", err)
	}
	if s.hooks.OnOperation == nil {
		return
	}
	s.hooks.OnOperation(context.Background(), &domain.OperationEvent{
		EventBase: s.base(domain.EventOperation),
		Op:        op,
		Key:       key,
		Duration:  s.now().Sub(start),
		Err:       err,
	})
}

// SetString stores value under key. A positive ttl makes the key expire after
// that duration; zero keeps it until deleted.
func (s *Session) SetString(ctx context.Context, key, value string, ttl time.Duration) *Future[domain.Ack] {
	validate := func() error {
		if ttl < 0 {
			return fmt.Errorf("negative ttl %s: %w", ttl, domain.ErrInvalidValue)
		}
		return nil
	}
	return submit(ctx, s, "set", key, validate, func(ctx context.Context) (domain.Ack, error) {
		if err := s.transport.Set(ctx, key, value, ttl); err != nil {
			return domain.Ack{}, err
		}
		return domain.Ack{Affected: 1}, nil
	})
}

// GetString returns the value of key. A missing key is an absent Optional, not an error.
func (s *Session) GetString(ctx context.Context, key string) *Future[domain.Optional[string]] {
	return submit(ctx, s, "get", key, nil, func(ctx context.Context) (domain.Optional[string], error) {
		val, found, err := s.transport.Get(ctx, key)
		if err != nil || !found {
			return domain.None[string](), err
		}
		return domain.Some(val), nil
	})
}

// SetHashFields overwrites the named fields of the hash at key.
// Every value must already be a string: numbers, nested maps, slices or structs
// are rejected with ErrInvalidValue instead of being stringified.
func (s *Session) SetHashFields(ctx context.Context, key string, fields map[string]any) *Future[domain.Ack] {
	flat := make(map[string]string, len(fields))
	validate := func() error {
		if len(fields) == 0 {
			return fmt.Errorf("no fields: %w", domain.ErrInvalidValue)
		}
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if name == "" {
				return fmt.Errorf("empty field name: %w", domain.ErrInvalidValue)
			}
			str, ok := fields[name].(string)
			if !ok {
				return fmt.Errorf("field %q has %T value, want string: %w", name, fields[name], domain.ErrInvalidValue)
			}
			flat[name] = str
		}
		return nil
	}
	return submit(ctx, s, "hset", key, validate, func(ctx context.Context) (domain.Ack, error) {
		created, err := s.transport.HSet(ctx, key, flat)
		return domain.Ack{Affected: created}, err
	})
}

// SetHashField sets a single field of the hash at key.
func (s *Session) SetHashField(ctx context.Context, key, field, value string) *Future[domain.Ack] {
	validate := func() error {
		if field == "" {
			return fmt.Errorf("empty field name: %w", domain.ErrInvalidValue)
		}
		return nil
	}
	return submit(ctx, s, "hset", key, validate, func(ctx context.Context) (domain.Ack, error) {
		created, err := s.transport.HSet(ctx, key, map[string]string{field: value})
		return domain.Ack{Affected: created}, err
	})
}

// GetHash returns every field of the hash at key, an empty map when absent.
func (s *Session) GetHash(ctx context.Context, key string) *Future[map[string]string] {
	return submit(ctx, s, "hgetall", key, nil, func(ctx context.Context) (map[string]string, error) {
		fields, err := s.transport.HGetAll(ctx, key)
		if err == nil && fields == nil {
			fields = map[string]string{}
		}
		return fields, err
	})
}

// GetHashField returns a single field of the hash at key.
func (s *Session) GetHashField(ctx context.Context, key, field string) *Future[domain.Optional[string]] {
	validate := func() error {
		if field == "" {
			return fmt.Errorf("empty field name: %w", domain.ErrInvalidValue)
		}
		return nil
	}
	return submit(ctx, s, "hget", key, validate, func(ctx context.Context) (domain.Optional[string], error) {
		val, found, err := s.transport.HGet(ctx, key, field)
		if err != nil || !found {
			return domain.None[string](), err
		}
		return domain.Some(val), nil
	})
}

// HashKeys returns the field names of the hash at key.
func (s *Session) HashKeys(ctx context.Context, key string) *Future[[]string] {
	return submit(ctx, s, "hkeys", key, nil, func(ctx context.Context) ([]string, error) {
		return s.transport.HKeys(ctx, key)
	})
}

// PushList appends values to the list at key, or prepends them when atFront is set.
// The Ack carries the length of the list after the push.
func (s *Session) PushList(ctx context.Context, key string, values []string, atFront bool) *Future[domain.Ack] {
	op := "rpush"
	if atFront {
		op = "lpush"
	}
	return submit(ctx, s, op, key, nonEmpty(values), func(ctx context.Context) (domain.Ack, error) {
		length, err := s.transport.Push(ctx, key, values, atFront)
		return domain.Ack{Affected: length}, err
	})
}

// RangeList returns the elements between start and end inclusive. An end of -1
// means the last element.
func (s *Session) RangeList(ctx context.Context, key string, start, end int64) *Future[[]string] {
	return submit(ctx, s, "lrange", key, nil, func(ctx context.Context) ([]string, error) {
		return s.transport.Range(ctx, key, start, end)
	})
}

// AddToSet adds values to the set at key. Duplicates collapse; the Ack carries
// the number of members actually added.
func (s *Session) AddToSet(ctx context.Context, key string, values []string) *Future[domain.Ack] {
	return submit(ctx, s, "sadd", key, nonEmpty(values), func(ctx context.Context) (domain.Ack, error) {
		added, err := s.transport.SAdd(ctx, key, values)
		return domain.Ack{Affected: added}, err
	})
}

// SetMembers returns the members of the set at key in no particular order.
func (s *Session) SetMembers(ctx context.Context, key string) *Future[[]string] {
	return submit(ctx, s, "smembers", key, nil, func(ctx context.Context) ([]string, error) {
		return s.transport.SMembers(ctx, key)
	})
}

// Increment adds by to the integer at key and returns the new value.
// An absent key starts at 0.
func (s *Session) Increment(ctx context.Context, key string, by int64) *Future[int64] {
	return submit(ctx, s, "incrby", key, nil, func(ctx context.Context) (int64, error) {
		return s.transport.IncrBy(ctx, key, by)
	})
}

// Expire makes key expire after ttl. The Ack is 0 when the key does not exist.
func (s *Session) Expire(ctx context.Context, key string, ttl time.Duration) *Future[domain.Ack] {
	validate := func() error {
		if ttl <= 0 {
			return fmt.Errorf("non-positive ttl %s: %w", ttl, domain.ErrInvalidValue)
		}
		return nil
	}
	return submit(ctx, s, "expire", key, validate, func(ctx context.Context) (domain.Ack, error) {
		ok, err := s.transport.Expire(ctx, key, ttl)
		if ok {
			return domain.Ack{Affected: 1}, err
		}
		return domain.Ack{}, err
	})
}

// Delete removes key. Deleting an absent key succeeds with a zero Ack.
func (s *Session) Delete(ctx context.Context, key string) *Future[domain.Ack] {
	return submit(ctx, s, "del", key, nil, func(ctx context.Context) (domain.Ack, error) {
		removed, err := s.transport.Del(ctx, key)
		return domain.Ack{Affected: removed}, err
	})
}

func nonEmpty(values []string) func() error {
	return func() error {
		if len(values) == 0 {
			return fmt.Errorf("no values: %w", domain.ErrInvalidValue)
		}
		return nil
	}
}
