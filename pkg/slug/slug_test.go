// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/textbook/pkg/slug"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "Célula Animal", want: "celula-animal"},
		{input: "  mitosis__phase (2) ", want: "mitosis-phase-2"},
		{input: "ÁRBOL---genealógico", want: "arbol-genealogico"},
		{input: "細胞", want: ""},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.From(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "cell", slug.Truncate("cell-division", 5))
	assert.Equal(t, "cell", slug.Truncate("cell", 10))
}
