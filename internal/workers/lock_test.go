package workers_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sol1corejz/workwise/internal/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := workers.ConnectRedis("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	a := workers.NewRedisLocker(client, time.Minute)
	b := workers.NewRedisLocker(client, time.Minute)

	ok, release, err := a.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	ok, releaseB, err := b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	releaseB()
}

func TestRedisLockerLeaseExpires(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	a := workers.NewRedisLocker(client, time.Second)
	b := workers.NewRedisLocker(client, time.Second)

	ok, staleRelease, err := a.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, release, err := b.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// the expired holder must not drop the new lease
	staleRelease()
	ok, _, err = a.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	release()
}

func TestRedisLockerUnavailable(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()

	_, _, err := workers.NewRedisLocker(client, time.Second).TryLock(context.Background())
	assert.Error(t, err)
}

func TestSweepWithRedisLocker(t *testing.T) {
	_, client := newRedis(t)
	e := newEnv(t)
	e.deposit(t, "10.00")
	locker := workers.NewRedisLocker(client, time.Minute)

	held, release, err := locker.TryLock(context.Background())
	require.NoError(t, err)
	require.True(t, held)

	_, err = e.reconciler(workers.WithLocker(locker)).Sweep(context.Background())
	assert.ErrorIs(t, err, workers.ErrSweepInProgress)

	release()
	sum, err := e.reconciler(workers.WithLocker(locker)).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Checked)
}

func TestConnectRedisPlainAddress(t *testing.T) {
	mr, _ := newRedis(t)
	client, err := workers.ConnectRedis(mr.Addr())
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())
}
