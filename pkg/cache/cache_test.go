// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/safelist/pkg/extract"
)

var _ extract.Cache = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put("k", []string{".a", "#b", "div"}))
	got, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{".a", "#b", "div"}, got)

	require.NoError(t, s.Put("k", []string{".c"}))
	got, _, err = s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []string{".c"}, got)
}

func TestStore_EmptySelectors(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("empty", nil))
	got, ok, err := s.Get("empty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestStore_SelectorsWithNewlines(t *testing.T) {
	s := openTestStore(t)

	want := []string{".a\nb", ".c", ".tab\there"}
	require.NoError(t, s.Put("k", want))
	got, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestStore_LenAndClear(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("a", []string{".a"}))
	require.NoError(t, s.Put("b", []string{".b"}))

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Clear())
	n, err = s.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_Persistent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")

	s, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, s.Put("k", []string{".kept"}))
	require.NoError(t, s.Close())

	s2, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer s2.Close()

	got, ok, err := s2.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{".kept"}, got)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestStore_CloseTwice(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestStore_AsExtractCache(t *testing.T) {
	s := openTestStore(t)
	ex := extract.NewExtractor(extract.WithCache(s))
	content := []byte(`const x = "from-cache";`)

	first, err := ex.Extract(context.Background(), "a.js", content)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := ex.Extract(context.Background(), "a.js", content)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, []string{".from-cache"}, second.Selectors)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_MarkupCacheHitMatchesMiss(t *testing.T) {
	s := openTestStore(t)
	ex := extract.NewExtractor(extract.WithCache(s))
	content := []byte("<div class=\"a\nb c\"></div>")

	miss, err := ex.Extract(context.Background(), "x.html", content)
	require.NoError(t, err)
	assert.False(t, miss.Cached)
	assert.Equal(t, []string{".a\nb", ".c"}, miss.Selectors)

	hit, err := ex.Extract(context.Background(), "x.html", content)
	require.NoError(t, err)
	assert.True(t, hit.Cached)
	assert.Equal(t, miss.Selectors, hit.Selectors)
}
