package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	goCache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// DefaultTTL bounds how long an unread entry is kept
	DefaultTTL = 5 * time.Minute
	// DefaultCleanupInterval is how often expired entries are purged
	DefaultCleanupInterval = 10 * time.Minute
)

// ErrFetchCancelled is returned by Fetch when Cancel aborted the read
var ErrFetchCancelled = errors.New("query fetch cancelled")

// Listener is notified with the key that was invalidated
type Listener func(key QueryKey)

// Broadcaster forwards invalidations to other processes sharing the data
type Broadcaster interface {
	PublishInvalidation(ctx context.Context, key QueryKey) error
}

type queryEntry struct {
	value     any
	stale     bool
	updatedAt time.Time
}

type inflightFetch struct {
	cancel    context.CancelFunc
	cancelled bool
}

// QueryCache holds dependent views keyed by QueryKey. Invalidation marks
// entries stale and notifies subscribers; readers refetch on next Fetch.
// Writes through Set take precedence over reads that were in flight.
type QueryCache struct {
	store       *goCache.Cache
	ttl         time.Duration
	logger      *zap.Logger
	broadcaster Broadcaster

	mu          sync.Mutex
	writeGen    map[string]uint64
	invalidGen  map[string]uint64
	inflight    map[string]map[uint64]*inflightFetch
	listeners   map[uint64]keyListener
	nextFetchID uint64
	nextSubID   uint64
}

type keyListener struct {
	key QueryKey
	fn  Listener
}

// QueryCacheOption configures a QueryCache
type QueryCacheOption func(*queryCacheOptions)

type queryCacheOptions struct {
	ttl             time.Duration
	cleanupInterval time.Duration
	logger          *zap.Logger
	broadcaster     Broadcaster
}

func WithTTL(ttl time.Duration) QueryCacheOption {
	return func(o *queryCacheOptions) { o.ttl = ttl }
}

func WithCleanupInterval(interval time.Duration) QueryCacheOption {
	return func(o *queryCacheOptions) { o.cleanupInterval = interval }
}

func WithLogger(logger *zap.Logger) QueryCacheOption {
	return func(o *queryCacheOptions) { o.logger = logger }
}

// WithBroadcaster publishes every Invalidate to peers
func WithBroadcaster(b Broadcaster) QueryCacheOption {
	return func(o *queryCacheOptions) { o.broadcaster = b }
}

// NewQueryCache creates an empty cache
func NewQueryCache(opts ...QueryCacheOption) *QueryCache {
	o := queryCacheOptions{
		ttl:             DefaultTTL,
		cleanupInterval: DefaultCleanupInterval,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &QueryCache{
		store:       goCache.New(o.ttl, o.cleanupInterval),
		ttl:         o.ttl,
		logger:      o.logger.Named("query-cache"),
		broadcaster: o.broadcaster,
		writeGen:    make(map[string]uint64),
		invalidGen:  make(map[string]uint64),
		inflight:    make(map[string]map[uint64]*inflightFetch),
		listeners:   make(map[uint64]keyListener),
	}
}

// SetBroadcaster attaches a broadcaster after construction
func (c *QueryCache) SetBroadcaster(b Broadcaster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcaster = b
}

// Get returns the cached value, fresh or stale
func (c *QueryCache) Get(key QueryKey) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key.String())
	if !ok {
		return nil, false
	}
	return e.value, true
}

// IsStale reports whether key is missing or invalidated
func (c *QueryCache) IsStale(key QueryKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key.String())
	return !ok || e.stale
}

// Set writes a fresh value. In-flight reads of key will not overwrite it.
func (c *QueryCache) Set(key QueryKey, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key.String()
	c.writeGen[k]++
	c.store.Set(k, &queryEntry{value: value, updatedAt: time.Now()}, c.ttl)
}

// Remove drops key from the cache
func (c *QueryCache) Remove(key QueryKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key.String()
	c.writeGen[k]++
	c.store.Delete(k)
}

// Fetch returns the fresh cached value for key, or runs fetcher and caches
// its result. The fetcher's context is cancelled by Cancel(key).
func (c *QueryCache) Fetch(ctx context.Context, key QueryKey, fetcher func(ctx context.Context) (any, error)) (any, error) {
	k := key.String()

	c.mu.Lock()
	if e, ok := c.lookup(k); ok && !e.stale {
		c.mu.Unlock()
		return e.value, nil
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.nextFetchID++
	id := c.nextFetchID
	flight := &inflightFetch{cancel: cancel}
	if c.inflight[k] == nil {
		c.inflight[k] = make(map[uint64]*inflightFetch)
	}
	c.inflight[k][id] = flight
	startWrite, startInvalid := c.writeGen[k], c.invalidGen[k]
	c.mu.Unlock()

	value, err := fetcher(fetchCtx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight[k], id)
	if len(c.inflight[k]) == 0 {
		delete(c.inflight, k)
	}

	if flight.cancelled {
		c.logger.Debug("discarding cancelled fetch", zap.String("key", k))
		return nil, ErrFetchCancelled
	}
	if err != nil {
		return nil, err
	}
	if c.writeGen[k] != startWrite {
		// A direct write landed while we were reading; it wins.
		if e, ok := c.lookup(k); ok {
			return e.value, nil
		}
		return value, nil
	}

	c.store.Set(k, &queryEntry{
		value:     value,
		stale:     c.invalidGen[k] != startInvalid,
		updatedAt: time.Now(),
	}, c.ttl)
	return value, nil
}

// Cancel aborts in-flight fetches for key and every key below it. Their
// results are discarded.
func (c *QueryCache) Cancel(key QueryKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cancelled := 0
	for k, flights := range c.inflight {
		if !parseKey(k).HasPrefix(key) {
			continue
		}
		for _, f := range flights {
			if !f.cancelled {
				f.cancelled = true
				f.cancel()
				cancelled++
			}
		}
	}
	return cancelled
}

// Invalidate marks key and every key below it stale, notifies subscribers
// and forwards the invalidation to the broadcaster, if any.
func (c *QueryCache) Invalidate(ctx context.Context, key QueryKey) {
	c.InvalidateLocal(key)

	c.mu.Lock()
	b := c.broadcaster
	c.mu.Unlock()
	if b == nil {
		return
	}
	if err := b.PublishInvalidation(ctx, key); err != nil {
		c.logger.Warn("failed to broadcast invalidation",
			zap.String("key", key.String()),
			zap.Error(err),
		)
	}
}

// InvalidateLocal is Invalidate without broadcasting
func (c *QueryCache) InvalidateLocal(key QueryKey) {
	c.mu.Lock()
	for k := range c.inflight {
		if parseKey(k).HasPrefix(key) {
			c.invalidGen[k]++
		}
	}
	for k, item := range c.store.Items() {
		if !parseKey(k).HasPrefix(key) {
			continue
		}
		c.invalidGen[k]++
		if e, ok := item.Object.(*queryEntry); ok {
			e.stale = true
		}
	}

	notify := make([]Listener, 0)
	for _, l := range c.listeners {
		if l.key.Overlaps(key) {
			notify = append(notify, l.fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range notify {
		c.notify(fn, key)
	}
}

// Subscribe registers fn for invalidations overlapping key. The returned
// function removes the subscription.
func (c *QueryCache) Subscribe(key QueryKey, fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.listeners[id] = keyListener{key: append(QueryKey(nil), key...), fn: fn}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *QueryCache) lookup(k string) (*queryEntry, bool) {
	obj, ok := c.store.Get(k)
	if !ok {
		return nil, false
	}
	e, ok := obj.(*queryEntry)
	return e, ok
}

func (c *QueryCache) notify(fn Listener, key QueryKey) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in invalidation listener",
				zap.String("key", key.String()),
				zap.Any("panic", r),
			)
		}
	}()
	fn(key)
}
