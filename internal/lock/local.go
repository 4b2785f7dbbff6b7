package lock

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type holder struct {
	token    string
	expireAt time.Time
}

// Local is an in-process Locker. Expired holders are evicted on the next
// acquisition attempt.
type Local struct {
	mu    sync.Mutex
	now   func() time.Time
	locks map[string]holder
}

// NewLocal constructs an empty Local locker.
func NewLocal() *Local {
	return &Local{now: time.Now, locks: make(map[string]holder)}
}

// NonBlockingSynchronized implements Locker.
func (l *Local) NonBlockingSynchronized(ctx context.Context, key string, ttl time.Duration, f func(context.Context) error) error {
	if _, ok := heldToken(ctx, key); ok {
		return f(ctx)
	}

	token := newToken()
	if !l.acquire(key, token, ttl) {
		return errors.WithMessagef(ErrLockFailed, "[lock.Local] %s has been locked", key)
	}
	defer l.release(key, token)

	return f(withToken(ctx, key, token))
}

func (l *Local) acquire(key, token string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if current, ok := l.locks[key]; ok && now.Before(current.expireAt) {
		return false
	}
	l.locks[key] = holder{token: token, expireAt: now.Add(ttl)}
	return true
}

func (l *Local) release(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// An expired lock may already belong to someone else.
	if current, ok := l.locks[key]; ok && current.token == token {
		delete(l.locks, key)
	}
}
