package ports

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTransportContract runs a suite of tests to verify that a Transport implementation
// adheres to the defined interface contract. The transport must be reachable.
func RunTransportContract(t *testing.T, tr Transport) {
	ctx := context.Background()
	prefix := "contract:" + time.Now().Format("20060102150405") + ":"

	require.NoError(t, tr.Dial(ctx), "Dial should succeed against a reachable store")

	t.Run("Set and Get", func(t *testing.T) {
		key := prefix + "string"
		require.NoError(t, tr.Set(ctx, key, "Spring", 0))

		val, found, err := tr.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Spring", val)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		val, found, err := tr.Get(ctx, prefix+"missing")
		require.NoError(t, err, "A missing key is not an error")
		assert.False(t, found)
		assert.Empty(t, val)
	})

	t.Run("Hash", func(t *testing.T) {
		key := prefix + "hash"
		created, err := tr.HSet(ctx, key, map[string]string{"backend": "Spring", "cache": "Redis"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), created)

		// Overwriting an existing field creates nothing new.
		created, err = tr.HSet(ctx, key, map[string]string{"cache": "Valkey"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), created)

		all, err := tr.HGetAll(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"backend": "Spring", "cache": "Valkey"}, all)

		val, found, err := tr.HGet(ctx, key, "backend")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Spring", val)

		_, found, err = tr.HGet(ctx, key, "frontend")
		require.NoError(t, err)
		assert.False(t, found)

		keys, err := tr.HKeys(ctx, key)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"backend", "cache"}, keys)

		empty, err := tr.HGetAll(ctx, prefix+"no-hash")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("List Push and Range", func(t *testing.T) {
		key := prefix + "list"
		n, err := tr.Push(ctx, key, []string{"x", "y"}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = tr.Push(ctx, key, []string{"z"}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		all, err := tr.Range(ctx, key, 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"z", "x", "y"}, all)

		tail, err := tr.Range(ctx, key, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, tail)

		// Pushing several values at the front reverses them, like LPUSH.
		_, err = tr.Push(ctx, key, []string{"a", "b"}, true)
		require.NoError(t, err)
		all, err = tr.Range(ctx, key, 0, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, all)

		none, err := tr.Range(ctx, prefix+"no-list", 0, -1)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Set Members", func(t *testing.T) {
		key := prefix + "set"
		added, err := tr.SAdd(ctx, key, []string{"peter", "saul", "peter"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), added)

		members, err := tr.SMembers(ctx, key)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"peter", "saul"}, members)
	})

	t.Run("IncrBy", func(t *testing.T) {
		key := prefix + "counter"
		v, err := tr.IncrBy(ctx, key, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), v)

		v, err = tr.IncrBy(ctx, key, -2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), v)
	})

	t.Run("Expire", func(t *testing.T) {
		key := prefix + "expiring"
		require.NoError(t, tr.Set(ctx, key, "world", 0))

		ok, err := tr.Expire(ctx, key, 10*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tr.Expire(ctx, prefix+"no-key", 10*time.Second)
		require.NoError(t, err)
		assert.False(t, ok, "Expire on a missing key reports false, not an error")
	})

	t.Run("Delete", func(t *testing.T) {
		key := prefix + "doomed"
		require.NoError(t, tr.Set(ctx, key, "v", 0))

		n, err := tr.Del(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = tr.Del(ctx, key)
		require.NoError(t, err, "Deleting an absent key is not an error")
		assert.Equal(t, int64(0), n)
	})

	t.Run("Wrong Type", func(t *testing.T) {
		key := prefix + "typed"
		require.NoError(t, tr.Set(ctx, key, "scalar", 0))

		_, err := tr.Push(ctx, key, []string{"x"}, false)
		assert.ErrorIs(t, err, domain.ErrStoreError)

		_, err = tr.IncrBy(ctx, key, 1)
		assert.ErrorIs(t, err, domain.ErrStoreError, "Incrementing a non-integer is a store error")
	})

	t.Run("IncrBy Overflow", func(t *testing.T) {
		key := prefix + "overflow"
		v, err := tr.IncrBy(ctx, key, math.MaxInt64)
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), v)

		_, err = tr.IncrBy(ctx, key, 1)
		assert.ErrorIs(t, err, domain.ErrStoreError, "An overflowing increment is rejected by the store")

		val, _, err := tr.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "9223372036854775807", val, "A rejected increment leaves the value unchanged")
	})
}
