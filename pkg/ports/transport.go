package ports

import (
	"context"
	"time"
)

// Transport defines the command surface a Session drives.
//
// Implementations MUST wrap every error they return in exactly one of the
// domain transport or store sentinels (ErrTransportRefused, ErrTransportTimeout,
// ErrTransportUnavailable, ErrStoreError) so callers can classify it with
// domain.KindOf. A cancelled context may be returned unchanged.
// A missing key is never an error.
type Transport interface {
	// Dial establishes (or verifies) the connection to the store.
	Dial(ctx context.Context) error

	// Set stores value under key. A zero ttl means no expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// HSet writes the given fields and returns how many were newly created.
	HSet(ctx context.Context, key string, fields map[string]string) (int64, error)

	// HGet returns a single hash field and whether it exists.
	HGet(ctx context.Context, key, field string) (string, bool, error)

	// HGetAll returns every field of the hash, empty when the key is absent.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HKeys returns the field names of the hash.
	HKeys(ctx context.Context, key string) ([]string, error)

	// Push appends values to the tail of the list, or to the head when atFront is set.
	// It returns the length of the list after the push.
	Push(ctx context.Context, key string, values []string, atFront bool) (int64, error)

	// Range returns the list elements between start and stop inclusive; -1 is the last element.
	Range(ctx context.Context, key string, start, stop int64) ([]string, error)

	// SAdd adds members to the set and returns how many were not already present.
	SAdd(ctx context.Context, key string, members []string) (int64, error)

	// SMembers returns the members of the set in no particular order.
	SMembers(ctx context.Context, key string) ([]string, error)

	// IncrBy adds delta to the integer at key, treating an absent key as 0.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// Expire sets a timeout on key. It returns false when the key does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Del removes key and returns the number of keys removed.
	Del(ctx context.Context, key string) (int64, error)

	// Close releases the connection.
	Close() error
}
