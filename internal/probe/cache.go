package probe

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached wraps a Prober with an LRU keyed by path. Blobs are
// content-addressed, so a hit can never be stale; reordering media or
// re-running the adjustment never reprobes the same content.
type Cached struct {
	inner Prober
	cache *lru.Cache[string, float64]
}

func NewCached(inner Prober, capacity int) (*Cached, error) {
	cache, err := lru.New[string, float64](capacity)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Duration(ctx context.Context, path string) (float64, error) {
	if dur, ok := c.cache.Get(path); ok {
		return dur, nil
	}
	dur, err := c.inner.Duration(ctx, path)
	if err != nil {
		return 0, err
	}
	c.cache.Add(path, dur)
	return dur, nil
}
