// Package cache holds the collection cache that sits in front of the
// repositories and the session store used by the auth gate.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Store is a byte-oriented key/value cache with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Versioned is implemented by stores that keep a generation counter per key.
// Bump drops the keys and advances their generations; SetIfGeneration only
// writes while the key is still at gen. Load uses it so a fill that started
// before an invalidation cannot put its snapshot back.
type Versioned interface {
	Generation(ctx context.Context, key string) (int64, error)
	SetIfGeneration(ctx context.Context, key string, value []byte, ttl time.Duration, gen int64) (bool, error)
	Bump(ctx context.Context, keys ...string) error
}

// Load returns the JSON-decoded value cached under key, calling fn and
// caching its result on a miss. Cache errors are treated as misses so a
// failing cache backend never fails a read.
func Load[T any](ctx context.Context, s Store, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if s != nil {
		if data, ok, err := s.Get(ctx, key); err == nil && ok {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				return v, nil
			}
		}
	}

	vs, versioned := s.(Versioned)
	var gen int64
	cacheable := s != nil
	if versioned {
		g, err := vs.Generation(ctx, key)
		gen, cacheable = g, err == nil
	}

	v, err := fn(ctx)
	if err != nil {
		return v, err
	}

	if cacheable {
		if data, err := json.Marshal(v); err == nil {
			if versioned {
				_, _ = vs.SetIfGeneration(ctx, key, data, ttl, gen)
			} else {
				_ = s.Set(ctx, key, data, ttl)
			}
		}
	}
	return v, nil
}

// Invalidate drops the given keys and, on a Versioned store, advances their
// generations. A nil store is a no-op.
func Invalidate(ctx context.Context, s Store, keys ...string) error {
	if s == nil || len(keys) == 0 {
		return nil
	}
	if vs, ok := s.(Versioned); ok {
		return vs.Bump(ctx, keys...)
	}
	return s.Delete(ctx, keys...)
}
