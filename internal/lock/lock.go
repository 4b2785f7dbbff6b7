// Package lock provides the per-workflow advisory locks that serialise grid
// mutations. Both implementations are non-blocking and re-entrant: a call made
// with a context that already holds the key runs immediately.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrLockFailed is returned when the key is held by another caller.
var ErrLockFailed = errors.New("lock failed")

// Locker runs f while holding key, failing fast when the key is taken.
type Locker interface {
	NonBlockingSynchronized(ctx context.Context, key string, ttl time.Duration, f func(context.Context) error) error
}

type lockKey string

func heldToken(ctx context.Context, key string) (string, bool) {
	token, ok := ctx.Value(lockKey(key)).(string)
	return token, ok
}

func withToken(ctx context.Context, key, token string) context.Context {
	return context.WithValue(ctx, lockKey(key), token)
}

func newToken() string {
	return uuid.NewString()
}
