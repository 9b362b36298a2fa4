package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventflow/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	redisKeyPrefix    = "eventflow:lock:"
	redisPollInterval = 10 * time.Millisecond
)

// unlockScript deletes the key only while it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a domain.Locker backed by SET NX PX leases, for deployments that run
// more than one API process against the same database.
type Redis struct {
	client redis.Cmdable
	wait   time.Duration
	lease  time.Duration
}

// NewRedis returns a Redis locker. lease bounds how long a crashed holder can keep a key.
func NewRedis(client redis.Cmdable, wait, lease time.Duration) *Redis {
	return &Redis{client: client, wait: wait, lease: lease}
}

var _ domain.Locker = (*Redis)(nil)

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Lock acquires all keys within the configured wait.
func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	held := make([]string, 0, len(keys))
	release := func() {
		// Release must run even when the operation's ctx is already done.
		rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
		defer rcancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := unlockScript.Run(rctx, r.client, []string{held[i]}, token).Err(); err != nil && err != redis.Nil {
				slog.Warn("Failed to release lock", "key", held[i], "error", err)
			}
		}
	}

	for _, key := range keys {
		rkey := redisKeyPrefix + key
		if err := r.acquire(waitCtx, rkey, token); err != nil {
			release()
			if waitCtx.Err() != nil {
				return nil, acquireError(ctx, key)
			}
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		held = append(held, rkey)
	}

	done := false
	return func() {
		if done {
			return
		}
		done = true
		release()
	}, nil
}

func (r *Redis) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(redisPollInterval)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.lease).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
