package nonce

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redisKeyPrefix      = "relayer:lock:"
	redisRetryInterval  = 50 * time.Millisecond
	redisReleaseTimeout = 5 * time.Second
)

// releaseScript deletes the lock only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type redisLocker struct {
	local  *localLocker
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLocker returns a locker shared by every process using the same redis. The in-process
// lock is always taken first; the redis lease expires after ttl if its holder dies.
//
//nolint:ireturn
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) Locker {
	return &redisLocker{
		local:  newLocalLocker(),
		client: client,
		ttl:    ttl,
	}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	unlockLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, errors.Wrapf(err, "failed to acquire redis lock %s", key)
		}
		if ok {
			break
		}

		timer := time.NewTimer(redisRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			unlockLocal()
			return nil, errors.Wrapf(ctx.Err(), "failed to acquire redis lock %s", key)
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), redisReleaseTimeout)
			defer cancel()

			if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
				log.Error().Err(err).Str("key", key).Msg("Failed to release redis lock, lease will expire")
			}
			unlockLocal()
		})
	}, nil
}

// Close closes the redis client.
func (l *redisLocker) Close() error {
	return l.client.Close()
}
