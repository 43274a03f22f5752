// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/textbook/internal/platform/config"
	"github.com/taibuivan/textbook/internal/platform/constants"
)

/*
TestParse_MemoryDefaults checks the defaults of a minimal memory configuration.
*/
func TestParse_MemoryDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("EXTRA_ORIGINS", " https://a.example.org, ,https://b.example.org ")

	cfg, err := config.Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.False(t, cfg.UsesPostgres())
	assert.False(t, cfg.CacheEnabled())
	assert.False(t, cfg.UploadsEnabled())
	assert.Equal(t, 5*time.Minute, cfg.PublishedCacheTTL)
	assert.Equal(t, int64(constants.DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.AllowedOrigins())
}

/*
TestParse_Validation rejects inconsistent storage settings.
*/
func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		dsn    string
		ok     bool
	}{
		{"postgres_with_dsn", "postgres", "postgres://u:p@localhost/db", true},
		{"postgres_without_dsn", "postgres", "", false},
		{"unknown_driver", "mongo", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORAGE_DRIVER", tt.driver)
			t.Setenv("DATABASE_URL", tt.dsn)

			_, err := config.Parse()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
