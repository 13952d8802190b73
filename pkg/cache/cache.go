package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface. Values are opaque bytes; use
// GetJSON and SetJSON for typed access.
type Service interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern removes keys matching a glob with a single trailing '*'.
	DeleteByPattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error
}

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, c Service, key string, v any, expiration time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b, expiration)
}

// GetJSON loads key into a T. It returns ErrCacheMiss when key is absent.
func GetJSON[T any](ctx context.Context, c Service, key string) (T, error) {
	var out T
	b, err := c.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}
