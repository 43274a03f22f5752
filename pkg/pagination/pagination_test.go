// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/pkg/pagination"
)

/*
TestFromRequest covers defaults, explicit values and rejected input.
*/
func TestFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    pagination.Params
		wantErr bool
	}{
		{"defaults", "", pagination.Params{Skip: 0, Limit: pagination.DefaultLimit}, false},
		{"explicit", "?skip=20&limit=10", pagination.Params{Skip: 20, Limit: 10}, false},
		{"zero_limit", "?limit=0", pagination.Params{Skip: 0, Limit: 0}, false},
		{"negative_skip", "?skip=-1", pagination.Params{}, true},
		{"garbage_limit", "?limit=ten", pagination.Params{}, true},
		{"limit_over_max", "?limit=501", pagination.Params{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/chapters"+tt.query, nil)
			got, err := pagination.FromRequest(req)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

/*
TestNewMeta checks the has_more flag.
*/
func TestNewMeta(t *testing.T) {
	meta := pagination.NewMeta(pagination.Params{Skip: 0, Limit: 2}, 2, 5)
	assert.True(t, meta.HasMore)

	meta = pagination.NewMeta(pagination.Params{Skip: 4, Limit: 2}, 1, 5)
	assert.False(t, meta.HasMore)
}
