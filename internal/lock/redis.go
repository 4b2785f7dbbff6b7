package lock

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const delCommand = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`

// Redis is a Locker backed by SET NX with a compare-and-delete release so a
// caller never removes a lock it no longer owns.
type Redis struct {
	client redis.Cmdable
	prefix string
	logger zerolog.Logger
}

// RedisOption customises the Redis locker.
type RedisOption func(*Redis)

// WithKeyPrefix namespaces every lock key.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithLogger sets the logger used for release failures.
func WithLogger(logger zerolog.Logger) RedisOption {
	return func(r *Redis) {
		r.logger = logger
	}
}

// NewRedis constructs a Redis locker.
func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: "processmap:lock:", logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NonBlockingSynchronized implements Locker.
func (r *Redis) NonBlockingSynchronized(ctx context.Context, key string, ttl time.Duration, f func(context.Context) error) error {
	if _, ok := heldToken(ctx, key); ok {
		return f(ctx)
	}

	token := newToken()
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, ttl).Result()
	if err != nil {
		return errors.WithMessagef(err, "[lock.Redis] acquire %s", key)
	}
	if !ok {
		return errors.WithMessagef(ErrLockFailed, "[lock.Redis] %s has been locked", key)
	}

	defer r.release(key, token)
	return f(withToken(ctx, key, token))
}

func (r *Redis) release(key, token string) {
	// The caller's context may already be cancelled.
	reply, err := r.client.Eval(context.Background(), delCommand, []string{r.prefix + key}, token).Int64()
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("release lock failed")
		return
	}
	if reply != 1 {
		r.logger.Warn().Str("key", key).Msg("lock expired before release")
	}
}
