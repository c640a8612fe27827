package repositorycache

import (
	"context"
	"time"

	"github.com/goliatone/go-rest-scaffold/cache"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// DefaultListTTL is how long a list read is served from cache.
const DefaultListTTL = 60 * time.Second

// ListGate memoizes list mode reads per entity and parameter set.
//
// Writes never purge list entries: a list may be up to DefaultListTTL stale
// after a store, update or delete. The gate keeps no per key state; entries
// live and expire in the cache service only.
type ListGate struct {
	cache      cache.CacheService
	serializer cache.KeySerializer
	logger     zerolog.Logger

	hits   *xsync.Counter
	misses *xsync.Counter
}

// Option configures a ListGate.
type Option func(*ListGate)

// WithLogger sets the logger used for cache read tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *ListGate) {
		g.logger = logger
	}
}

// New creates a gate over cacheService. The service TTL decides how long
// entries live; the container builds it with DefaultListTTL.
func New(cacheService cache.CacheService, serializer cache.KeySerializer, opts ...Option) *ListGate {
	if serializer == nil {
		serializer = cache.NewDefaultKeySerializer()
	}

	g := &ListGate{
		cache:      cacheService,
		serializer: serializer,
		logger:     zerolog.Nop(),
		hits:       xsync.NewCounter(),
		misses:     xsync.NewCounter(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Key returns the cache key for entity and params.
func (g *ListGate) Key(entity string, params any) string {
	return EntityName(entity) + "_" + g.serializer.SerializeKey(listOperation, params)
}

// Prefix returns the prefix shared by every list key of entity. Serializers
// must start keys with the operation followed by cache.KeySeparator.
func (g *ListGate) Prefix(entity string) string {
	return EntityName(entity) + "_" + listOperation + cache.KeySeparator
}

// Remember returns the cached list for entity and params, calling fn on a
// miss. Concurrent misses may each call fn.
func Remember[T any](ctx context.Context, g *ListGate, entity string, params any, fn cache.FetchFn[T]) (T, error) {
	key := g.Key(entity, params)

	computed := false
	result, err := cache.GetOrFetch(ctx, g.cache, key, func(ctx context.Context) (T, error) {
		computed = true
		return fn(ctx)
	})

	if computed {
		g.misses.Inc()
	} else {
		g.hits.Inc()
	}

	g.logger.Debug().
		Str("entity", entity).
		Str("key", key).
		Bool("hit", !computed).
		Err(err).
		Msg("list cache read")

	return result, err
}

// Purge drops every cached list of entity. It is not called by any write
// path.
func (g *ListGate) Purge(ctx context.Context, entity string) error {
	return g.cache.DeleteByPrefix(ctx, g.Prefix(entity))
}

// Stats returns how many reads were served from cache and how many were
// computed since the gate was created.
func (g *ListGate) Stats() (hits, misses int64) {
	return g.hits.Value(), g.misses.Value()
}

const listOperation = "list"
