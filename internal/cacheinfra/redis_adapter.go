package cacheinfra

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// maxKeyLength bounds the readable part of a redis key. Longer keys keep
// their head, so prefix deletes still match, and get a hash suffix.
const maxKeyLength = 200

const scanBatchSize = 100

// redisService shares cached values between processes. Values are encoded
// with msgpack and expire through the redis TTL.
type redisService struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisService validates cfg and creates a redis backed cache service.
// The connection is lazy: no command is sent until the first read.
func NewRedisService(cfg Config) (*redisService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	return newRedisService(client, cfg.Redis.Prefix, cfg.TTL), nil
}

func newRedisService(client *redis.Client, prefix string, ttl time.Duration) *redisService {
	return &redisService{client: client, prefix: prefix, ttl: ttl}
}

// GetOrFetch reads key from redis and decodes it into the fetchFn result
// type. On a miss the value is fetched and stored with the configured TTL.
func (s *redisService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	outType, err := validateFetchFn(fetchFn)
	if err != nil {
		return nil, err
	}

	storageKey := s.storageKey(key)

	raw, err := s.client.Get(ctx, storageKey).Bytes()
	switch {
	case err == nil:
		if value, decodeErr := decodeValue(raw, outType); decodeErr == nil {
			return value, nil
		}
		// unreadable entries are refetched and overwritten
	case !errors.Is(err, redis.Nil):
		return nil, err
	}

	value, err := callFetch(ctx, fetchFn)
	if err != nil {
		return nil, err
	}

	payload, err := msgpack.Marshal(value)
	if err != nil {
		return nil, err
	}

	if err := s.client.Set(ctx, storageKey, payload, s.ttl).Err(); err != nil {
		return nil, err
	}

	return value, nil
}

// Delete removes a single entry.
func (s *redisService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.storageKey(key)).Err()
}

// DeleteByPrefix scans for keys under prefix and removes them in batches.
func (s *redisService) DeleteByPrefix(ctx context.Context, prefix string) error {
	match := escapeGlob(s.prefix+prefix) + "*"
	iter := s.client.Scan(ctx, 0, match, scanBatchSize).Iterator()

	batch := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *redisService) Close() error {
	return s.client.Close()
}

func (s *redisService) storageKey(key string) string {
	if len(key) <= maxKeyLength {
		return s.prefix + key
	}
	sum := strconv.FormatUint(xxhash.Sum64String(key), 16)
	return s.prefix + key[:maxKeyLength] + "#" + sum
}

func decodeValue(raw []byte, outType reflect.Type) (any, error) {
	target := reflect.New(outType)
	if err := msgpack.Unmarshal(raw, target.Interface()); err != nil {
		return nil, err
	}
	return target.Elem().Interface(), nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
