package media

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"economy-game-bot/internal/pkg/cache"
)

func setupRedisQueue(t *testing.T) (*Queue, *redis.Client) {
	t.Helper()
	if exec.Command("docker", "info").Run() != nil {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	client := cache.NewWithClient(rdb, cache.LockOptions{
		TTL:           2 * time.Second,
		Timeout:       2 * time.Second,
		RetryInterval: 5 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewQueue(client, time.Hour, 10), rdb
}

func TestRedisQueue_RoundTrip(t *testing.T) {
	q, rdb := setupRedisQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Playlist, 42, track("a"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, Playlist, 42, track("b"))
	require.NoError(t, err)

	ttl, err := rdb.TTL(ctx, Key(Playlist, 42)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	skipped, ok, err := q.Skip(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, track("a"), skipped)

	history, err := q.List(ctx, History, 42)
	require.NoError(t, err)
	assert.Equal(t, []Track{track("a")}, history)

	_, _, err = q.Dequeue(ctx, Playlist, 42)
	require.NoError(t, err)
	n, err := rdb.Exists(ctx, Key(Playlist, 42)).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "empty queue leaves no key")

	locks, err := rdb.Keys(ctx, "*:lock").Result()
	require.NoError(t, err)
	assert.Empty(t, locks, "every lock released")
}

func TestRedisQueue_ConcurrentMutations(t *testing.T) {
	q, _ := setupRedisQueue(t)
	ctx := context.Background()

	done := make(chan error, 20)
	for i := range 20 {
		go func() {
			_, err := q.Enqueue(ctx, Playlist, 1, Track{Title: fmt.Sprint(i)})
			done <- err
		}()
	}
	for range 20 {
		require.NoError(t, <-done)
	}

	list, err := q.List(ctx, Playlist, 1)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
