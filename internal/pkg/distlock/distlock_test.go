package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLock_MutualExclusion(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "segment-update", time.Minute)
	second := NewRedisLock(client, "segment-update", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be rejected while the lease is live")

	assert.ErrorIs(t, second.Release(ctx), ErrNotHeld)
	require.NoError(t, first.Release(ctx))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_OwnersAreDistinct(t *testing.T) {
	_, client := newRedis(t)
	a := NewRedisLock(client, "segment-update", time.Minute)
	b := NewRedisLock(client, "segment-update", time.Minute)
	require.NotEmpty(t, a.value)
	assert.NotEqual(t, a.value, b.value)

	ctx := context.Background()
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.ErrorIs(t, b.Release(ctx), ErrNotHeld)
	assert.ErrorIs(t, b.Extend(ctx, time.Minute), ErrNotHeld)
	require.NoError(t, a.Release(ctx))
}

func TestRedisLock_LeaseExpiresAndExtend(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	lock := NewRedisLock(client, "segment-update", 10*time.Second)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Extend(ctx, time.Minute))
	mr.FastForward(30 * time.Second)
	assert.True(t, mr.Exists(lock.Key()), "extended lease should survive past the original ttl")

	mr.FastForward(time.Minute)
	assert.False(t, mr.Exists(lock.Key()))
	assert.ErrorIs(t, lock.Extend(ctx, time.Minute), ErrNotHeld)

	other := NewRedisLock(client, "segment-update", time.Minute)
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewFactory_PrefersRedis(t *testing.T) {
	_, client := newRedis(t)

	lock := NewFactory(client, nil, "segment-update", time.Minute)()
	_, isRedis := lock.(*RedisLock)
	assert.True(t, isRedis)

	lock = NewFactory(nil, nil, "segment-update", time.Minute)()
	_, isPG := lock.(*PGAdvisoryLock)
	assert.True(t, isPG)
}

func TestPGAdvisoryLock_AcquireRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := AdvisoryLockID("segment-update")
	mock.ExpectQuery(`SELECT pg_try_advisory_lock\(\$1\)`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(`SELECT pg_advisory_unlock\(\$1\)`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	lock := NewPGAdvisoryLock(db, "segment-update")
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, lock.Extend(ctx, time.Minute))
	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), ErrNotHeld)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_Busy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	lock := NewPGAdvisoryLock(db, "segment-update")
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, lock.Extend(context.Background(), time.Minute), ErrNotHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type countingLock struct {
	extends chan time.Duration
}

func (c *countingLock) Acquire(context.Context) (bool, error) { return true, nil }
func (c *countingLock) Release(context.Context) error         { return nil }
func (c *countingLock) Extend(_ context.Context, ttl time.Duration) error {
	select {
	case c.extends <- ttl:
	default:
	}
	return nil
}

func TestKeepAlive_ExtendsUntilStopped(t *testing.T) {
	lock := &countingLock{extends: make(chan time.Duration, 1)}

	stop := KeepAlive(context.Background(), lock, 30*time.Millisecond)
	select {
	case ttl := <-lock.extends:
		assert.Equal(t, 30*time.Millisecond, ttl)
	case <-time.After(time.Second):
		t.Fatal("lease was never extended")
	}
	stop()
}
