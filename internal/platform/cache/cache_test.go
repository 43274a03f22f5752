// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/textbook/internal/platform/cache"
)

/*
TestMemoryCache_Lifecycle covers set/get, expiry and prefix deletion.
*/
func TestMemoryCache_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()

	require.NoError(t, c.Set(ctx, "p:1", []byte(`{"a":1}`), 0))
	require.NoError(t, c.Set(ctx, "p:2", []byte(`{"a":2}`), time.Hour))
	require.NoError(t, c.Set(ctx, "other", []byte(`x`), 0))

	got, err := c.Get(ctx, "p:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	require.NoError(t, c.DeletePrefix(ctx, "p:"))

	_, err = c.Get(ctx, "p:1")
	assert.ErrorIs(t, err, cache.ErrMiss)
	_, err = c.Get(ctx, "p:2")
	assert.ErrorIs(t, err, cache.ErrMiss)

	_, err = c.Get(ctx, "other")
	assert.NoError(t, err)
}

/*
TestMemoryCache_Expiry verifies a short TTL eventually misses.
*/
func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

/*
TestNoop_AlwaysMisses.
*/
func TestNoop_AlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c cache.Cache = cache.Noop{}

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}
