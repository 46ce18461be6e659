// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/safelist/cmd/safelist/config"
	"github.com/AleutianAI/safelist/pkg/extract"
	"github.com/AleutianAI/safelist/pkg/ux"
)

// project creates a small source tree in a temp dir and makes it the
// working directory.
func project(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	t.Chdir(dir)
	ux.SetOutput(io.Discard)
	t.Cleanup(func() { ux.SetOutput(nil) })
	return dir
}

func run(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout bytes.Buffer
	base := []string{"--ui", "machine", "--log-level", "error"}
	code := execute(context.Background(), append(args, base...), &stdout)
	return code, stdout.String()
}

var sampleFiles = map[string]string{
	"src/index.html":    `<div class="card" id="main"><span data-side="left"></span></div>`,
	"src/Button.svelte": `<script>let cls = "btn primary";</script><button class={cls}>Go</button>`,
	"src/app.js":        `export const theme = "dark-mode";`,
}

func TestExtract_Text(t *testing.T) {
	project(t, sampleFiles)

	code, out := run(t, "extract")
	require.Equal(t, CLIExitSuccess, code)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	for _, want := range []string{"#main", ".card", ".left", ".btn", ".primary", "button", ".dark-mode"} {
		assert.Contains(t, lines, want)
	}
	assert.IsNonDecreasing(t, lines)
}

func TestExtract_JSONPerFile(t *testing.T) {
	project(t, sampleFiles)

	code, out := run(t, "extract", "src/index.html", "src/app.js", "--format", "json", "--per-file")
	require.Equal(t, CLIExitSuccess, code)

	var doc struct {
		Selectors []string `json:"selectors"`
		Files     []struct {
			Path      string   `json:"path"`
			Kind      string   `json:"kind"`
			Selectors []string `json:"selectors"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, []string{"#main", ".card", ".dark-mode", ".data-side", ".left"}, doc.Selectors)
	require.Len(t, doc.Files, 2)
	assert.Equal(t, "src/app.js", doc.Files[0].Path)
	assert.Equal(t, "script", doc.Files[0].Kind)
	assert.Equal(t, "markup", doc.Files[1].Kind)
}

func TestExtract_OutputFile(t *testing.T) {
	dir := project(t, sampleFiles)

	code, out := run(t, "extract", "src/app.js", "-o", "out/safelist.txt")
	require.Equal(t, CLIExitSuccess, code)
	assert.Empty(t, out)

	data, err := os.ReadFile(filepath.Join(dir, "out", "safelist.txt"))
	require.NoError(t, err)
	assert.Equal(t, ".dark-mode\n", string(data))
}

func TestExtract_RegexMode(t *testing.T) {
	project(t, map[string]string{"src/app.js": `const = "x";`})

	code, out := run(t, "extract", "--mode", "regex")
	require.Equal(t, CLIExitSuccess, code)
	assert.Equal(t, ".const\n.x\n", out)
}

func TestExtract_ParseErrorFallsBack(t *testing.T) {
	project(t, map[string]string{"src/bad.js": `const = "fallback-token";`})

	code, out := run(t, "extract")
	require.Equal(t, CLIExitSuccess, code)
	assert.Contains(t, out, ".fallback-token")
}

func TestExtract_FailFast(t *testing.T) {
	project(t, map[string]string{"src/bad.js": `const = ;`})

	code, _ := run(t, "extract", "--fail-fast")
	assert.Equal(t, CLIExitFindings, code)
}

func TestExtract_Errors(t *testing.T) {
	project(t, sampleFiles)

	code, _ := run(t, "extract", "--format", "xml")
	assert.Equal(t, CLIExitError, code)

	code, _ = run(t, "extract", "missing-dir")
	assert.Equal(t, CLIExitError, code)

	require.NoError(t, os.MkdirAll("empty", 0755))
	code, _ = run(t, "extract", "empty")
	assert.Equal(t, CLIExitError, code)
}

func TestExtract_ConfigFile(t *testing.T) {
	project(t, map[string]string{
		"web/page.vue": `<div class="from-vue"></div>`,
		config.FileName: `
include: [web]
output:
  format: yaml
extract:
  extensions:
    .vue: markup
`,
	})

	code, out := run(t, "extract")
	require.Equal(t, CLIExitSuccess, code)

	var doc Document
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, []string{".from-vue"}, doc.Selectors)
}

func TestExtract_Cache(t *testing.T) {
	dir := project(t, map[string]string{"src/app.js": `"cached"`})
	t.Setenv("SAFELIST_CACHE_DIR", filepath.Join(dir, ".cache"))

	code, out := run(t, "extract")
	require.Equal(t, CLIExitSuccess, code)
	assert.Equal(t, ".cached\n", out)

	code, out = run(t, "extract")
	require.Equal(t, CLIExitSuccess, code)
	assert.Equal(t, ".cached\n", out)
	assert.DirExists(t, filepath.Join(dir, ".cache"))
}

func TestInit(t *testing.T) {
	dir := project(t, nil)

	code, _ := run(t, "init")
	require.Equal(t, CLIExitSuccess, code)
	assert.FileExists(t, filepath.Join(dir, config.FileName))

	code, _ = run(t, "init")
	assert.Equal(t, CLIExitError, code)

	code, _ = run(t, "init", "--force")
	assert.Equal(t, CLIExitSuccess, code)
}

func TestInit_SkipsBrokenConfig(t *testing.T) {
	project(t, map[string]string{config.FileName: "output: [broken"})

	code, _ := run(t, "init", "other.yaml")
	assert.Equal(t, CLIExitSuccess, code)

	code, _ = run(t, "extract")
	assert.Equal(t, CLIExitError, code)
}

func TestWatch_InitialExtraction(t *testing.T) {
	dir := project(t, sampleFiles)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		var stdout bytes.Buffer
		done <- execute(ctx, []string{"watch", "src", "-o", "safelist.txt", "--ui", "machine", "--log-level", "error"}, &stdout)
	}()

	path := filepath.Join(dir, "safelist.txt")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(data), ".card")
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "app.js"), []byte(`export const theme = "light-mode";`), 0644))
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(data), ".light-mode") && !strings.Contains(string(data), ".dark-mode")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, CLIExitSuccess, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestRender(t *testing.T) {
	results := []*extract.Result{{Path: "a.js", Kind: extract.KindScript, Selectors: []string{".a"}}}

	out, err := render("text", []string{".a", ".b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ".a\n.b\n", string(out))

	out, err = render("text", nil, results)
	require.NoError(t, err)
	assert.Equal(t, "# a.js\n.a\n", string(out))

	out, err = render("json", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"selectors": []}`, string(out))

	out, err = render("yaml", []string{".a"}, results)
	require.NoError(t, err)
	assert.Contains(t, string(out), "kind: script")

	_, err = render("xml", nil, nil)
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"300ms", 300 * time.Millisecond, false},
		{"2s", 2 * time.Second, false},
		{"150", 150 * time.Millisecond, false},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
