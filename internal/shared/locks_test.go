package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) *KeyLocker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewKeyLocker(client, time.Second)
}

func TestWithLockRunsAndReleases(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	ran := false
	err := locker.WithLock(ctx, OutturnLockKey(9), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)

	// Released: a second acquisition must succeed immediately.
	err = locker.WithLock(ctx, OutturnLockKey(9), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
}

func TestWithLockPropagatesCallbackError(t *testing.T) {
	locker := newTestLocker(t)

	sentinel := NewValidationError("bags", "must be positive")
	err := locker.WithLock(context.Background(), StockLockKey(7, 1), func(ctx context.Context) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	// An error in fn still releases the lock.
	err = locker.WithLock(context.Background(), StockLockKey(7, 1), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
}

func TestNilLockerRunsUnguarded(t *testing.T) {
	var locker *KeyLocker
	ran := false
	require.NoError(t, locker.WithLock(context.Background(), "any", func(ctx context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}

func TestLockKeysAreDisjoint(t *testing.T) {
	require.NotEqual(t, StockLockKey(1, 2), StockLockKey(2, 1))
	require.NotEqual(t, OutturnLockKey(1), StockLockKey(1, 0))
	require.NotEqual(t, RiceStockLockKey("MILL", 1), RiceStockLockKey("MILL", 2))
}
