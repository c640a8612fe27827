package cacheinfra

import (
	"context"
	"strings"

	"github.com/viccon/sturdyc"
)

// sturdycService keeps list results in process memory.
// Concurrent misses on one key are coalesced by sturdyc into a single fetch.
type sturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates cfg and creates an in memory cache service.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycService{client: client}, nil
}

// GetOrFetch returns the cached value for key, calling fetchFn on a miss
// or once the entry has expired. fetchFn must be func(context.Context) (T, error).
// Errors from fetchFn are returned and nothing is cached.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if _, err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	return s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return callFetch(ctx, fetchFn)
	})
}

// Delete removes a single entry.
func (s *sturdycService) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *sturdycService) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Size returns the number of stored entries.
func (s *sturdycService) Size() int {
	return s.client.Size()
}
