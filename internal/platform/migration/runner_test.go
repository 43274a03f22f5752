// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/textbook/internal/platform/migration"
)

func TestConvertToPgx5DSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@db:5432/book", "pgx5://u:p@db:5432/book"},
		{"postgresql://u:p@db/book?sslmode=disable", "pgx5://u:p@db/book?sslmode=disable"},
		{"pgx5://u:p@db/book", "pgx5://u:p@db/book"},
		{"host=db user=u", "host=db user=u"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, migration.ConvertToPgx5DSN(tt.in))
		})
	}
}
