package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MockRedisClient keeps the lock keyspace in a plain map. TTLs are not
// simulated; expiry behavior is covered by the container test below.
type MockRedisClient struct {
	store map[string]string
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{store: make(map[string]string)}
}

func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd {
	cmd := goredis.NewBoolCmd(ctx)
	if _, exists := m.store[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	m.store[key] = value.(string)
	cmd.SetVal(true)
	return cmd
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *goredis.StringCmd {
	cmd := goredis.NewStringCmd(ctx)
	val, exists := m.store[key]
	if !exists {
		cmd.SetErr(goredis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(ctx)
	var deleted int64
	for _, key := range keys {
		if _, exists := m.store[key]; exists {
			delete(m.store, key)
			deleted++
		}
	}
	cmd.SetVal(deleted)
	return cmd
}

func TestLockTableIsExclusive(t *testing.T) {
	lock := NewRedis(NewMockRedisClient(), time.Minute)
	ctx := context.Background()

	ok, err := lock.LockTable(ctx, 1, "token-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.LockTable(ctx, 1, "token-b")
	require.NoError(t, err)
	assert.False(t, ok, "a held table must refuse a second holder")

	// A different table is unaffected.
	ok, err = lock.LockTable(ctx, 2, "token-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlockTableOnlyForOwner(t *testing.T) {
	client := NewMockRedisClient()
	lock := NewRedis(client, time.Minute)
	ctx := context.Background()

	ok, err := lock.LockTable(ctx, 1, "token-a")
	require.NoError(t, err)
	require.True(t, ok)

	// A foreign token must not release the lock.
	require.NoError(t, lock.UnlockTable(ctx, 1, "token-b"))
	ok, err = lock.LockTable(ctx, 1, "token-c")
	require.NoError(t, err)
	assert.False(t, ok)

	// The owner can.
	require.NoError(t, lock.UnlockTable(ctx, 1, "token-a"))
	ok, err = lock.LockTable(ctx, 1, "token-c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlockTableMissingKeyIsNoop(t *testing.T) {
	lock := NewRedis(NewMockRedisClient(), time.Minute)
	assert.NoError(t, lock.UnlockTable(context.Background(), 42, "token-a"))
}

func TestNewRedisDefaultsTTL(t *testing.T) {
	lock := NewRedis(NewMockRedisClient(), 0)
	assert.Equal(t, 30*time.Second, lock.TTL)
}

func TestLockExpiresAgainstRealRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "redis:latest",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })

	lock := NewRedis(client, time.Second)

	ok, err := lock.LockTable(ctx, 7, "token-a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.LockTable(ctx, 7, "token-b")
	require.NoError(t, err)
	assert.False(t, ok)

	// A crashed holder's lock falls away once the TTL passes.
	time.Sleep(1500 * time.Millisecond)
	ok, err = lock.LockTable(ctx, 7, "token-b")
	require.NoError(t, err)
	assert.True(t, ok)
}
