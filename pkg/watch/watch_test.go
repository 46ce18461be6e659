// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/safelist/pkg/extract"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "remove", OpRemove.String())
	assert.Equal(t, "rename", OpRename.String())
	assert.Equal(t, "unknown", Op(42).String())
}

func TestDedupe(t *testing.T) {
	changes := []Change{
		{Path: "a.js", Op: OpCreate},
		{Path: "b.js", Op: OpWrite},
		{Path: "a.js", Op: OpWrite},
		{Path: "b.js", Op: OpRemove},
	}
	got := Dedupe(changes)
	require.Len(t, got, 2)
	assert.Equal(t, Change{Path: "a.js", Op: OpWrite}, got[0])
	assert.Equal(t, Change{Path: "b.js", Op: OpRemove}, got[1])
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.Error(t, err)
}

func TestWatcher_Ignored(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{dir}, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.True(t, w.ignored(filepath.Join(w.Roots()[0], "node_modules", "x.js")))
	assert.True(t, w.ignored(filepath.Join(w.Roots()[0], "src", "a.tmp")))
	assert.False(t, w.ignored(filepath.Join(w.Roots()[0], "src", "a.js")))
	assert.False(t, w.ignored("/elsewhere/node_modules/x.js"))
}

func TestIndex_LoadAndApply(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.js")
	b := filepath.Join(dir, "b.html")
	writeFile(t, a, `const x = "alpha";`)
	writeFile(t, b, `<p class="beta"></p>`)

	ix := NewIndex(extract.NewExtractor(), nil)
	require.NoError(t, ix.Load(context.Background(), []string{a, b}, 2))
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, []string{".alpha", ".beta"}, ix.Selectors())

	writeFile(t, a, `const x = "gamma";`)
	changed, err := ix.Apply(context.Background(), []Change{{Path: a, Op: OpWrite}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{".beta", ".gamma"}, ix.Selectors())

	changed, err = ix.Apply(context.Background(), []Change{{Path: a, Op: OpWrite}})
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.Remove(b))
	changed, err = ix.Apply(context.Background(), []Change{{Path: b, Op: OpRemove}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{".gamma"}, ix.Selectors())
	assert.Equal(t, 1, ix.Len())
}

func TestIndex_ApplyMissingFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.js")
	writeFile(t, a, `"alpha"`)

	ix := NewIndex(extract.NewExtractor(), nil)
	require.NoError(t, ix.Load(context.Background(), []string{a}, 1))
	require.NoError(t, os.Remove(a))

	changed, err := ix.Apply(context.Background(), []Change{{Path: a, Op: OpWrite}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, ix.Len())
}

func TestIndex_FailFast(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.js")
	writeFile(t, bad, `const = ;`)

	ix := NewIndex(extract.NewExtractor(extract.WithFailFast(true)), nil)
	_, err := ix.Apply(context.Background(), []Change{{Path: bad, Op: OpCreate}})
	assert.Error(t, err)

	lenient := NewIndex(extract.NewExtractor(), nil)
	changed, err := lenient.Apply(context.Background(), []Change{{Path: bad, Op: OpCreate}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, lenient.Selectors(), ".const")
}

func TestWatcher_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0755))

	batches := make(chan []Change, 10)
	opts := DefaultOptions()
	opts.Debounce = 50 * time.Millisecond
	w, err := New([]string{dir}, func(changes []Change) { batches <- changes }, &opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()
	assert.True(t, w.IsWatching())

	writeFile(t, filepath.Join(dir, "node_modules", "skip.js"), `"x"`)
	writeFile(t, filepath.Join(dir, "notes.bin"), "x")
	target := filepath.Join(w.Roots()[0], "app.js")
	writeFile(t, target, `"x"`)

	select {
	case batch := <-batches:
		require.Len(t, batch, 1)
		assert.Equal(t, target, batch[0].Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch received")
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := New([]string{t.TempDir()}, nil, nil)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
	assert.False(t, w.IsWatching())
}
