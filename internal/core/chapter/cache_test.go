// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/textbook/internal/platform/cache"
)

// hookedCache runs afterSet once the value is written, standing in for a
// writer that invalidates between the cache write and its own follow-up.
type hookedCache struct {
	*cache.MemoryCache
	afterSet func()
}

func (c *hookedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.MemoryCache.Set(ctx, key, value, ttl)
	if c.afterSet != nil {
		c.afterSet()
	}
	return err
}

func TestReaderCache_Set(t *testing.T) {
	ctx := context.Background()

	t.Run("Stores the view when nothing changed", func(t *testing.T) {
		rc := NewReaderCache(cache.NewMemory(), time.Minute)

		rc.set(ctx, "ch-1", []byte("v1"), rc.snapshot())

		body, ok := rc.get(ctx, "ch-1")
		assert.True(t, ok)
		assert.Equal(t, []byte("v1"), body)
	})

	t.Run("Skips a view read before an invalidation", func(t *testing.T) {
		rc := NewReaderCache(cache.NewMemory(), time.Minute)
		seen := rc.snapshot()

		rc.InvalidateChapter(ctx, "ch-1")
		rc.set(ctx, "ch-1", []byte("stale"), seen)

		_, ok := rc.get(ctx, "ch-1")
		assert.False(t, ok)
	})

	t.Run("Skips a view read before a full flush", func(t *testing.T) {
		rc := NewReaderCache(cache.NewMemory(), time.Minute)
		seen := rc.snapshot()

		rc.InvalidateAll(ctx)
		rc.set(ctx, "ch-1", []byte("stale"), seen)

		_, ok := rc.get(ctx, "ch-1")
		assert.False(t, ok)
	})

	t.Run("Evicts when an invalidation lands during the write", func(t *testing.T) {
		backing := &hookedCache{MemoryCache: cache.NewMemory()}
		rc := NewReaderCache(backing, time.Minute)
		backing.afterSet = func() { rc.generation.Add(1) }

		rc.set(ctx, "ch-1", []byte("stale"), rc.snapshot())

		_, ok := rc.get(ctx, "ch-1")
		assert.False(t, ok)
	})
}
