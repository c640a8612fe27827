// Package cache provides the read-through cache used for list queries.
//
// # Overview
//
// The package exports two interfaces and their default implementations:
//
//   - CacheService: read-through caching with a fixed TTL per service
//   - KeySerializer: builds stable cache keys from a method name and arguments
//
// NewCacheService picks a backend from Config. The memory backend is backed
// by sturdyc and coalesces concurrent misses on the same key. The redis
// backend shares entries between processes and encodes values with msgpack.
//
// # Basic Usage
//
//	service, err := cache.NewCacheService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("list", criteria)
//
//	page, err := cache.GetOrFetch(ctx, service, key, func(ctx context.Context) (Page, error) {
//		return loadPage(ctx, criteria)
//	})
//
// # Key Serialization
//
// The default serializer walks arguments with reflection. Maps are written
// with their keys sorted, so two criteria maps with the same entries always
// produce the same key regardless of insertion order. Structs that implement
// fmt.Stringer use String(). Functions and channels are not serialized and
// produce a type marker instead.
//
// Keys do not depend on process state, so they are safe to share through
// the redis backend.
package cache
