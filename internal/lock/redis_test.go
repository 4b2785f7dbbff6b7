package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisTransportErrorIsNotContention(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	called := false
	err := NewRedis(client).NonBlockingSynchronized(context.Background(), "workflow:1", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrLockFailed)
	require.Contains(t, err.Error(), "acquire workflow:1")
	require.False(t, called)
}
