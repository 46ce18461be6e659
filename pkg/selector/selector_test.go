// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selector

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSelectorLike(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"btn", true},
		{"hover:bg-red-500", true},
		{"w-1/2", true},
		{"![color:red]", true},
		{"md:w-1.5", true},
		{"hover:", false},
		{"", false},
		{"a,b", false},
		{"foo=bar", false},
		{"{x}", false},
		{"two words", false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSelectorLike(tt.token))
		})
	}
}

func TestFindSelectorLike(t *testing.T) {
	got := FindSelectorLike(`<div class="hover: px-4 w-1/2">::</div>`)
	assert.Equal(t, []string{"div", "class", "hover", "px-4", "w-1/2", "/div"}, got)

	assert.Empty(t, FindSelectorLike(""))
	assert.Empty(t, FindSelectorLike("::: ,,, ==="))
}

func TestSplitSpaces(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitSpaces("  a b   c "))
	assert.Equal(t, []string{"a\tb"}, SplitSpaces("a\tb"))
	assert.Empty(t, SplitSpaces("   "))
}

func TestFilterSelectorLike(t *testing.T) {
	got := FilterSelectorLike([]string{"ok", "hover:", "{bad}", "w-1/2"})
	assert.Equal(t, []string{"ok", "w-1/2"}, got)
}

func TestKind_Format(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindClass, ".x"},
		{KindClassDirective, ".x"},
		{KindFromIdentifier, ".x"},
		{KindID, "#x"},
		{KindElement, "x"},
		{KindAttribute, "x"},
		{KindGlobalPseudo, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Format("x"))
		})
	}
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestTable(t *testing.T) {
	t.Run("keeps first position and last kind", func(t *testing.T) {
		table := NewTable()
		table.Add("active", KindAttribute)
		table.Add("btn", KindClass)
		table.Add("active", KindClassDirective)

		assert.Equal(t, 2, table.Len())
		assert.Equal(t, []string{"active", "btn"}, table.Tokens())
		assert.Equal(t, []string{".active", ".btn"}, table.Selectors())

		kind, ok := table.Kind("active")
		require.True(t, ok)
		assert.Equal(t, KindClassDirective, kind)
	})

	t.Run("ignores empty tokens", func(t *testing.T) {
		table := NewTable()
		table.AddAll([]string{"", "a", ""}, KindClass)
		assert.Equal(t, []string{".a"}, table.Selectors())
	})

	t.Run("tokens are a copy", func(t *testing.T) {
		table := NewTable()
		table.Add("a", KindClass)
		tokens := table.Tokens()
		tokens[0] = "mutated"
		assert.Equal(t, []string{"a"}, table.Tokens())
	})
}

func TestExtractWithRegex(t *testing.T) {
	t.Run("every run becomes a class", func(t *testing.T) {
		got := ExtractWithRegex(`<p class="text-sm md:text-lg">hi</p>`)
		assert.Contains(t, got, ".text-sm")
		assert.Contains(t, got, ".md:text-lg")
		assert.Contains(t, got, ".hi")
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, ExtractWithRegex(""))
	})

	t.Run("idempotent", func(t *testing.T) {
		src := "a b:c d/e [f] a"
		assert.Equal(t, ExtractWithRegex(src), ExtractWithRegex(src))
		assert.Equal(t, []string{".a", ".b:c", ".d/e", ".[f]"}, ExtractWithRegex(src))
	})
}

func TestParseError(t *testing.T) {
	err := NewParseError("App.svelte", 3, 7, "unexpected token")
	assert.Equal(t, "App.svelte:3:7: unexpected token", err.Error())
	assert.True(t, errors.Is(err, ErrParseFailed))

	wrapped := fmt.Errorf("extract: %w", err)
	assert.True(t, IsParseError(wrapped))
	assert.False(t, IsParseError(errors.New("other")))

	assert.Equal(t, "<input>: bad", (&ParseError{Message: "bad"}).Error())
	assert.Equal(t, "f.js:2: bad", (&ParseError{FilePath: "f.js", Line: 2, Message: "bad"}).Error())
}
