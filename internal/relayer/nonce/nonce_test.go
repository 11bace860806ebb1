package nonce_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/relayer/internal/relayer/nonce"
)

func TestKey(t *testing.T) {
	addr := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	assert.Equal(t, "42161:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", nonce.Key(42161, addr))
}

func TestLocalLockerSerialises(t *testing.T) {
	locker := nonce.NewLocalLocker()
	ctx := t.Context()

	unlock, err := locker.Lock(ctx, "1:a")
	require.NoError(t, err)

	// other keys are independent
	unlockOther, err := locker.Lock(ctx, "42161:a")
	require.NoError(t, err)
	unlockOther()

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "1:a")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(ctx, "1:a")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	unlock()
	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not handed over")
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestRedisLockerAcrossProcesses(t *testing.T) {
	mr, client := newRedis(t)
	ctx := t.Context()

	first := nonce.NewRedisLocker(client, 10*time.Second)
	second := nonce.NewRedisLocker(client, 10*time.Second)

	unlock, err := first.Lock(ctx, "1:a")
	require.NoError(t, err)
	assert.True(t, mr.Exists("relayer:lock:1:a"))

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = second.Lock(waitCtx, "1:a")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.False(t, mr.Exists("relayer:lock:1:a"))

	unlockSecond, err := second.Lock(ctx, "1:a")
	require.NoError(t, err)
	unlockSecond()
}

func TestRedisLockerReleaseChecksToken(t *testing.T) {
	mr, client := newRedis(t)
	ctx := t.Context()

	locker := nonce.NewRedisLocker(client, time.Second)

	unlock, err := locker.Lock(ctx, "1:a")
	require.NoError(t, err)

	// lease expired and another holder took over
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("relayer:lock:1:a", "someone-else"))

	unlock()

	got, err := mr.Get("relayer:lock:1:a")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLockerUnavailable(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()

	locker := nonce.NewRedisLocker(client, time.Second)

	failCtx, cancelFail := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancelFail()

	_, err := locker.Lock(failCtx, "1:a")
	require.Error(t, err)

	// the in-process lock must not leak on failure
	require.NoError(t, mr.Restart())

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	unlock, err := locker.Lock(ctx, "1:a")
	require.NoError(t, err)
	unlock()
}
