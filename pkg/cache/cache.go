// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache persists extraction results in an embedded BadgerDB.
//
// Entries are keyed by extract.CacheKey, a digest of the extractor kind and
// the file content, so an unchanged file is never parsed twice across runs.
// Values are JSON arrays of selectors. Selectors may contain any character
// except the space, including newlines, so no separator is safe.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/safelist/pkg/logging"
)

// keyPrefix namespaces selector entries. Bump the version when the value
// encoding or any extractor's output changes.
const keyPrefix = "sel/v2/"

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("cache closed")

// Config holds configuration for a Store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory keeps the cache in RAM only. Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes.
	// Default: false; a lost cache entry only costs a re-parse.
	SyncWrites bool

	// TTL expires entries after the given duration. Zero keeps them forever.
	TTL time.Duration

	// GCInterval is how often to run value log garbage collection.
	// Default: 5 minutes. Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	// Default: 0.5
	GCDiscardRatio float64

	// Logger receives BadgerDB's internal logs. If nil, they are dropped.
	Logger *logging.Logger
}

// DefaultConfig returns a persistent configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts logging.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Store is a persistent selector cache. It satisfies extract.Cache.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db       *badger.DB
	ttl      time.Duration
	gcRunner *gcRunner
	logger   *logging.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open opens or creates a Store.
//
// Description:
//
//	Opens a BadgerDB at cfg.Path, or in memory if cfg.InMemory is true,
//	creating the directory if needed. A GC runner is started for
//	persistent stores when cfg.GCInterval is positive.
//
// Outputs:
//
//	*Store - The opened store. Caller must call Close() when done.
//	error - Non-nil if the path is missing or the database cannot be opened.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		logger = logging.Nop()
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	s := &Store{db: db, ttl: cfg.TTL, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gcRunner = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, logger)
		s.gcRunner.start()
	}
	return s, nil
}

// OpenInMemory opens a Store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Get returns the selectors stored under key.
func (s *Store) Get(key string) ([]string, bool, error) {
	var selectors []string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			selectors, err = decode(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, false, ErrClosed
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return selectors, true, nil
}

// Put stores selectors under key, replacing any previous entry.
func (s *Store) Put(key string, selectors []string) error {
	val, err := encode(selectors)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+key), val)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Len counts the live entries.
func (s *Store) Len() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache len: %w", err)
	}
	return n, nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	if err := s.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close stops garbage collection and closes the database.
// Safe to call multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.gcRunner != nil {
			s.gcRunner.stop()
		}
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func encode(selectors []string) ([]byte, error) {
	if selectors == nil {
		selectors = []string{}
	}
	return json.Marshal(selectors)
}

func decode(val []byte) ([]string, error) {
	selectors := []string{}
	if err := json.Unmarshal(val, &selectors); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	return selectors, nil
}

// gcRunner runs periodic value log garbage collection.
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	stopCh   chan struct{}
	doneCh   chan struct{}
	logger   *logging.Logger
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64, logger *logging.Logger) *gcRunner {
	if ratio <= 0 || ratio > 1 {
		ratio = 0.5
	}
	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (r *gcRunner) start() {
	go r.run()
}

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runGC()
		}
	}
}

func (r *gcRunner) runGC() {
	// ErrNoRewrite means there was nothing to collect.
	err := r.db.RunValueLogGC(r.ratio)
	switch {
	case err == nil:
		r.logger.Debug("cache value log GC completed")
	case !errors.Is(err, badger.ErrNoRewrite):
		r.logger.Warn("cache value log GC error", "error", err)
	}
}
