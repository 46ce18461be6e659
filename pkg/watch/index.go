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
	"errors"
	"io/fs"
	"slices"
	"sort"
	"sync"

	"github.com/AleutianAI/safelist/pkg/extract"
	"github.com/AleutianAI/safelist/pkg/logging"
)

// Index holds the extraction result of every tracked file.
//
// Thread Safety: Safe for concurrent use.
type Index struct {
	extractor *extract.Extractor
	logger    *logging.Logger

	mu    sync.RWMutex
	files map[string]*extract.Result
}

// NewIndex creates an empty index that extracts with ex.
func NewIndex(ex *extract.Extractor, logger *logging.Logger) *Index {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Index{
		extractor: ex,
		logger:    logger,
		files:     make(map[string]*extract.Result),
	}
}

// Load extracts paths and replaces the index contents with the results.
func (ix *Index) Load(ctx context.Context, paths []string, concurrency int) error {
	results, err := ix.extractor.ExtractFiles(ctx, paths, concurrency)
	if err != nil {
		return err
	}

	files := make(map[string]*extract.Result, len(results))
	for _, r := range results {
		if r.Err != nil && !r.Fallback {
			continue
		}
		files[r.Path] = r
	}

	ix.mu.Lock()
	ix.files = files
	ix.mu.Unlock()
	return nil
}

// Apply re-extracts created and written files and forgets removed ones.
//
// It reports whether the merged selector set changed. A file that can no
// longer be read is forgotten. Errors are returned only when the extractor
// is configured to fail fast or ctx is done.
func (ix *Index) Apply(ctx context.Context, changes []Change) (bool, error) {
	before := ix.Selectors()

	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		switch c.Op {
		case OpRemove, OpRename:
			ix.forget(c.Path)
			continue
		}

		result, err := ix.extractor.ExtractFile(ctx, c.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				ix.forget(c.Path)
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false, err
			}
			if ix.extractor.FailFast() {
				return false, err
			}
			ix.logger.Warn("dropping file from index", "path", c.Path, "error", err)
			ix.forget(c.Path)
			continue
		}

		ix.mu.Lock()
		ix.files[c.Path] = result
		ix.mu.Unlock()
		ix.logger.Debug("reindexed", "path", c.Path, "op", c.Op.String(), "selectors", len(result.Selectors))
	}

	return !slices.Equal(before, ix.Selectors()), nil
}

func (ix *Index) forget(path string) {
	ix.mu.Lock()
	delete(ix.files, path)
	ix.mu.Unlock()
}

// Selectors returns the sorted union of every tracked file's selectors.
func (ix *Index) Selectors() []string {
	return extract.Merge(ix.Results())
}

// Results returns the tracked results sorted by path.
func (ix *Index) Results() []*extract.Result {
	ix.mu.RLock()
	out := make([]*extract.Result, 0, len(ix.files))
	for _, r := range ix.files {
		out = append(out, r)
	}
	ix.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of tracked files.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.files)
}
