// Package repositorycache memoizes list mode reads.
//
// # Overview
//
// A ListGate sits in front of a repository read and keeps the result for a
// fixed window. Keys are built from the entity name and a canonical
// serialization of every request parameter:
//
//	product_category_list::map[2]:{list=1,status=active}
//
// Parameter maps serialize with sorted keys, so the same request always maps
// to the same entry.
//
// # Usage
//
//	gate := repositorycache.New(cacheService, cache.NewDefaultKeySerializer())
//
//	items, err := repositorycache.Remember(ctx, gate, "Product", criteria,
//		func(ctx context.Context) ([]Product, error) {
//			res, err := repo.FindBy(ctx, criteria)
//			return res.Items, err
//		})
//
// # Staleness
//
// Store, update and delete do not purge list entries. A list read may lag a
// write by up to DefaultListTTL. Purge deletes every list entry of one
// entity by key prefix and is meant for operator tooling. The gate itself
// remembers no keys, so request parameters cannot grow its memory.
//
// # Concurrency
//
// The gate adds no locking of its own. Two concurrent misses on the same key
// may both compute. The memory backend coalesces them into a single fetch;
// the redis backend does not.
package repositorycache
