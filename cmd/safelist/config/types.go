// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/safelist/pkg/telemetry"
)

// SafelistConfig is the contents of safelist.yaml.
type SafelistConfig struct {
	// Include lists the files and directories to extract from.
	Include []string `yaml:"include" validate:"required,min=1,dive,required"`

	// Ignore lists path-segment patterns skipped during discovery and watch.
	Ignore []string `yaml:"ignore"`

	Output    OutputConfig     `yaml:"output"`
	Extract   ExtractConfig    `yaml:"extract"`
	Cache     CacheConfig      `yaml:"cache"`
	Watch     WatchConfig      `yaml:"watch"`
	Logging   LoggingConfig    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

type OutputConfig struct {
	// Path is where the safelist is written. Empty or "-" means stdout.
	Path string `yaml:"path"`

	// Format is one of text, json or yaml.
	Format string `yaml:"format" validate:"oneof=text json yaml"`
}

type ExtractConfig struct {
	// Mode is "auto" (pick an extractor per file) or "regex".
	Mode string `yaml:"mode" validate:"oneof=auto regex"`

	// Concurrency bounds parallel extraction. 0 means GOMAXPROCS.
	Concurrency int `yaml:"concurrency" validate:"gte=0,lte=1024"`

	FailFast      bool `yaml:"fail_fast"`
	InlineScripts bool `yaml:"inline_scripts"`

	// MaxFileSize is the largest file accepted, in bytes.
	MaxFileSize int `yaml:"max_file_size" validate:"gte=0"`

	// Reserved extends the markup scanner's ignored attribute names.
	Reserved []string `yaml:"reserved"`

	// Extensions maps file extensions to extractor kinds.
	Extensions map[string]string `yaml:"extensions" validate:"dive,keys,required,endkeys,kind"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir" validate:"required_if=Enabled true"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`

	// MetricsAddr serves /metrics while watching. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// defaultCacheDir returns the per-user cache directory, falling back to a
// project-local one.
func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "safelist")
	}
	return ".safelist-cache"
}

func DefaultConfig() SafelistConfig {
	return SafelistConfig{
		Include: []string{"src"},
		Ignore: []string{
			".git",
			"node_modules",
			".svelte-kit",
			"dist",
			"build",
			"*.min.js",
		},
		Output: OutputConfig{
			Format: "text",
		},
		Extract: ExtractConfig{
			Mode:          "auto",
			InlineScripts: true,
			MaxFileSize:   10 * 1024 * 1024,
			Extensions:    map[string]string{},
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     defaultCacheDir(),
			TTL:     7 * 24 * time.Hour,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}
