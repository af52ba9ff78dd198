package cache

import (
	"context"
	"time"
)

// NullCache is a no-op backend: every Get misses and every Set is
// discarded. Used when caching is disabled.
type NullCache struct{}

// NewNullCache creates a disabled cache.
func NewNullCache() *NullCache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }
