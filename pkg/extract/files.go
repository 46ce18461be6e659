// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultIgnorePatterns are skipped by Discover and the watcher.
var DefaultIgnorePatterns = []string{
	".git",
	"node_modules",
	".svelte-kit",
	"dist",
	"build",
	".idea",
	"*.swp",
	"*.tmp",
	"*.min.js",
}

// Ignored reports whether any segment of path matches one of patterns.
//
// Patterns are filepath.Match globs compared against single path segments,
// so "node_modules" skips the directory at any depth and "*.tmp" skips
// matching files.
func Ignored(path string, patterns []string) bool {
	segments := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	for _, pattern := range patterns {
		for _, seg := range segments {
			if seg == "" || seg == "." || seg == ".." {
				continue
			}
			if seg == pattern {
				return true
			}
			if matched, _ := filepath.Match(pattern, seg); matched {
				return true
			}
		}
	}
	return false
}

// Discover expands roots into the sorted list of files to extract.
//
// A root that is a file is always included. Directories are walked
// recursively; only files with a known extension (see Known) are kept and
// paths matching ignore are skipped.
func Discover(roots []string, ignore []string, overrides map[string]Kind) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil && rel != "." && Ignored(rel, ignore) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if Known(path, overrides) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// ExtractFiles reads and extracts paths concurrently, at most concurrency
// files at a time (0 means GOMAXPROCS).
//
// Results are returned in the order of paths. A file that cannot be read
// or extracted gets a Result carrying Err and no selectors, unless
// FailFast is set, in which case the first such error cancels the rest and
// is returned.
func (e *Extractor) ExtractFiles(ctx context.Context, paths []string, concurrency int) ([]*Result, error) {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	results := make([]*Result, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range paths {
		g.Go(func() error {
			result, err := e.ExtractFile(gCtx, path)
			if err != nil {
				if e.options.FailFast || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				e.logger.Warn("skipping file", "path", path, "error", err)
				result = &Result{Path: path, Kind: e.Kind(path), Err: err}
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ExtractFile reads path and extracts it.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return e.Extract(ctx, path, content)
}

// Merge returns the sorted, deduplicated union of the selectors of
// results. Nil results are skipped.
func Merge(results []*Result) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, s := range r.Selectors {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Failed returns the results that carry an error, including fallbacks.
func Failed(results []*Result) []*Result {
	var out []*Result
	for _, r := range results {
		if r != nil && r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
