package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisInvalidationBroadcaster_EncodeDecode(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	a := NewRedisInvalidationBroadcasterWithClient(client)
	b := NewRedisInvalidationBroadcasterWithClient(client, WithChannel("custom"))
	assert.Equal(t, DefaultInvalidationChannel, a.channel)
	assert.Equal(t, "custom", b.channel)

	key := LineItemsKey(uuid.New())
	data, err := a.encode(key)
	require.NoError(t, err)

	got, foreign, err := a.decode(string(data))
	require.NoError(t, err)
	assert.Equal(t, key, got)
	assert.False(t, foreign, "own messages are ignored")

	got, foreign, err = b.decode(string(data))
	require.NoError(t, err)
	assert.Equal(t, key, got)
	assert.True(t, foreign)

	_, _, err = a.decode("not json")
	assert.Error(t, err)
}

func TestRedisInvalidationBroadcaster_PublishError(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	b := NewRedisInvalidationBroadcasterWithClient(client)
	err := b.PublishInvalidation(context.Background(), QuotesKey())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish invalidation")
}

func TestNewRedisInvalidationBroadcaster_ConnectFailure(t *testing.T) {
	_, err := NewRedisInvalidationBroadcaster(RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisInvalidationBroadcaster_CloseWithoutRun(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	b := NewRedisInvalidationBroadcasterWithClient(client)
	assert.NoError(t, b.Close())
}
