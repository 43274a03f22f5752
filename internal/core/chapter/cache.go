// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/taibuivan/textbook/internal/platform/cache"
	"github.com/taibuivan/textbook/internal/platform/constants"
	"github.com/taibuivan/textbook/internal/platform/ctxutil"
)

// ReaderCache stores the encoded published-chapter responses served to readers.
//
// Cache failures never fail a request: reads fall through to storage and
// write or eviction errors are only logged.
//
// Every invalidation bumps a generation counter. A view built before an
// invalidation in this process is never left in the cache.
type ReaderCache struct {
	cache      cache.Cache
	ttl        time.Duration
	generation atomic.Uint64
}

// NewReaderCache wraps c; a nil c disables caching.
func NewReaderCache(c cache.Cache, ttl time.Duration) *ReaderCache {
	if c == nil {
		c = cache.Noop{}
	}
	return &ReaderCache{cache: c, ttl: ttl}
}

func key(chapterID string) string {
	return constants.RedisPrefixPublishedChapter + chapterID
}

func (rc *ReaderCache) get(ctx context.Context, chapterID string) ([]byte, bool) {
	body, err := rc.cache.Get(ctx, key(chapterID))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "reader_cache_get_failed",
				slog.String("chapter_id", chapterID), slog.Any("error", err))
		}
		return nil, false
	}
	return body, true
}

// snapshot is taken before the view is read from storage and handed to set.
func (rc *ReaderCache) snapshot() uint64 {
	return rc.generation.Load()
}

// set stores body unless an invalidation ran since seen. The second check
// catches an invalidation whose delete landed before the write.
func (rc *ReaderCache) set(ctx context.Context, chapterID string, body []byte, seen uint64) {
	if rc.generation.Load() != seen {
		return
	}
	if err := rc.cache.Set(ctx, key(chapterID), body, rc.ttl); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "reader_cache_set_failed",
			slog.String("chapter_id", chapterID), slog.Any("error", err))
		return
	}
	if rc.generation.Load() != seen {
		rc.evict(ctx, chapterID)
	}
}

// InvalidateChapter drops the cached view of one chapter.
func (rc *ReaderCache) InvalidateChapter(ctx context.Context, chapterID string) {
	rc.generation.Add(1)
	rc.evict(ctx, chapterID)
}

func (rc *ReaderCache) evict(ctx context.Context, chapterID string) {
	if err := rc.cache.Delete(ctx, key(chapterID)); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "reader_cache_evict_failed",
			slog.String("chapter_id", chapterID), slog.Any("error", err))
	}
}

// InvalidateAll drops every cached chapter view. Used when a content block
// that may appear in several chapters changes.
func (rc *ReaderCache) InvalidateAll(ctx context.Context) {
	rc.generation.Add(1)
	if err := rc.cache.DeletePrefix(ctx, constants.RedisPrefixPublishedChapter); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "reader_cache_flush_failed", slog.Any("error", err))
	}
}
