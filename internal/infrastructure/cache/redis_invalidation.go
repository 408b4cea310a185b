package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultInvalidationChannel is the pub/sub channel for query invalidations
	DefaultInvalidationChannel = "catering:query-invalidation"
	defaultCloseTimeout        = 5 * time.Second
)

// InvalidationMessage is the wire format of a broadcast invalidation
type InvalidationMessage struct {
	Key       []string `json:"key"`
	Origin    string   `json:"origin"`
	Timestamp int64    `json:"ts"`
}

// RedisInvalidationBroadcaster fans query invalidations out to every
// process subscribed to the same Redis channel. Messages a process
// published itself are ignored on receipt.
type RedisInvalidationBroadcaster struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	origin     string
	logger     *zap.Logger

	mu        sync.Mutex
	cancelFn  context.CancelFunc
	doneCh    chan struct{}
	doneOnce  sync.Once
	isRunning bool
}

// RedisBroadcasterOption configures a RedisInvalidationBroadcaster
type RedisBroadcasterOption func(*RedisInvalidationBroadcaster)

func WithChannel(channel string) RedisBroadcasterOption {
	return func(b *RedisInvalidationBroadcaster) {
		if channel != "" {
			b.channel = channel
		}
	}
}

func WithBroadcasterLogger(logger *zap.Logger) RedisBroadcasterOption {
	return func(b *RedisInvalidationBroadcaster) { b.logger = logger }
}

// RedisConfig holds the connection settings for NewRedisInvalidationBroadcaster
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisInvalidationBroadcaster connects to Redis and verifies the connection
func NewRedisInvalidationBroadcaster(cfg RedisConfig, opts ...RedisBroadcasterOption) (*RedisInvalidationBroadcaster, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	b := NewRedisInvalidationBroadcasterWithClient(client, opts...)
	b.ownsClient = true
	return b, nil
}

// NewRedisInvalidationBroadcasterWithClient uses a shared client that the
// caller keeps ownership of.
func NewRedisInvalidationBroadcasterWithClient(client *redis.Client, opts ...RedisBroadcasterOption) *RedisInvalidationBroadcaster {
	b := &RedisInvalidationBroadcaster{
		client:  client,
		channel: DefaultInvalidationChannel,
		origin:  uuid.NewString(),
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PublishInvalidation implements Broadcaster
func (b *RedisInvalidationBroadcaster) PublishInvalidation(ctx context.Context, key QueryKey) error {
	data, err := b.encode(key)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	b.logger.Debug("published invalidation",
		zap.String("key", key.String()),
		zap.String("channel", b.channel))
	return nil
}

// Run subscribes to the channel and applies peer invalidations to target
// until ctx is cancelled or Close is called. It blocks.
func (b *RedisInvalidationBroadcaster) Run(ctx context.Context, target *QueryCache) error {
	b.mu.Lock()
	if b.isRunning {
		b.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	b.isRunning = true
	subCtx, cancel := context.WithCancel(ctx)
	b.cancelFn = cancel
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.isRunning = false
		b.mu.Unlock()
		b.markDone()
	}()

	pubsub := b.client.Subscribe(subCtx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	b.logger.Info("subscribed to query invalidation channel", zap.String("channel", b.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				b.logger.Warn("query invalidation channel closed")
				return nil
			}
			key, fromPeer, err := b.decode(msg.Payload)
			if err != nil {
				b.logger.Error("failed to decode invalidation message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			if fromPeer {
				target.InvalidateLocal(key)
			}
		}
	}
}

// Close stops Run and closes the client if this broadcaster created it
func (b *RedisInvalidationBroadcaster) Close() error {
	b.mu.Lock()
	cancelFn := b.cancelFn
	b.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-b.doneCh:
		case <-time.After(defaultCloseTimeout):
			b.logger.Warn("timeout waiting for invalidation subscription to stop")
		}
	}
	if b.ownsClient {
		return b.client.Close()
	}
	return nil
}

func (b *RedisInvalidationBroadcaster) encode(key QueryKey) ([]byte, error) {
	data, err := json.Marshal(InvalidationMessage{
		Key:       key,
		Origin:    b.origin,
		Timestamp: time.Now().UnixNano(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	return data, nil
}

func (b *RedisInvalidationBroadcaster) decode(payload string) (QueryKey, bool, error) {
	var msg InvalidationMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, false, err
	}
	return QueryKey(msg.Key), msg.Origin != b.origin, nil
}

func (b *RedisInvalidationBroadcaster) markDone() {
	b.doneOnce.Do(func() { close(b.doneCh) })
}

var _ Broadcaster = (*RedisInvalidationBroadcaster)(nil)
