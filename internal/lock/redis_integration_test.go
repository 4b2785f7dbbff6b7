//go:build integration

package lock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T, ctx context.Context) *redis.Client {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLockLifecycle(t *testing.T) {
	ctx := context.Background()
	client := startRedis(t, ctx)
	locker := NewRedis(client, WithKeyPrefix("test:"))

	err := locker.NonBlockingSynchronized(ctx, "workflow:1", time.Minute, func(held context.Context) error {
		exists, err := client.Exists(ctx, "test:workflow:1").Result()
		require.NoError(t, err)
		require.EqualValues(t, 1, exists)

		other := NewRedis(client, WithKeyPrefix("test:"))
		err = other.NonBlockingSynchronized(ctx, "workflow:1", time.Minute, func(context.Context) error {
			return nil
		})
		require.ErrorIs(t, err, ErrLockFailed)

		return locker.NonBlockingSynchronized(held, "workflow:1", time.Minute, func(context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)

	exists, err := client.Exists(ctx, "test:workflow:1").Result()
	require.NoError(t, err)
	require.Zero(t, exists)
}

func TestRedisReleaseLeavesForeignTokenAlone(t *testing.T) {
	ctx := context.Background()
	client := startRedis(t, ctx)
	locker := NewRedis(client, WithKeyPrefix("test:"))

	err := locker.NonBlockingSynchronized(ctx, "workflow:2", time.Minute, func(context.Context) error {
		return client.Set(ctx, "test:workflow:2", "someone-else", time.Minute).Err()
	})
	require.NoError(t, err)

	value, err := client.Get(ctx, "test:workflow:2").Result()
	require.NoError(t, err)
	require.Equal(t, "someone-else", value)
}
