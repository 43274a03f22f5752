// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package objectstore_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/textbook/internal/platform/objectstore"
)

/*
TestPublicBaseURL covers the three URL derivations.
*/
func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name   string
		config objectstore.Config
		want   string
	}{
		{
			name:   "explicit_public_url",
			config: objectstore.Config{Bucket: "media", PublicBaseURL: "https://cdn.example.org/"},
			want:   "https://cdn.example.org",
		},
		{
			name:   "custom_endpoint",
			config: objectstore.Config{Bucket: "media", Endpoint: "http://localhost:9000"},
			want:   "http://localhost:9000/media",
		},
		{
			name:   "aws_default",
			config: objectstore.Config{Bucket: "media", Region: "eu-west-1"},
			want:   "https://media.s3.eu-west-1.amazonaws.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objectstore.PublicBaseURL(tt.config))
		})
	}
}

/*
TestMemoryStore_PutDelete verifies the in-process store.
*/
func TestMemoryStore_PutDelete(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemory("https://cdn.example.org/")

	url, err := store.Put(ctx, objectstore.Object{
		Key:         "contents/cell.png",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/contents/cell.png", url)

	data, contentType, ok := store.Get("contents/cell.png")
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", contentType)

	require.NoError(t, store.Delete(ctx, "contents/cell.png"))
	assert.Equal(t, 0, store.Len())
}
