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
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/safelist/pkg/extract"
)

// FileName is the config file looked up in the working directory.
const FileName = "safelist.yaml"

// ErrExists is returned by WriteDefault when the file is already present.
var ErrExists = errors.New("config file already exists")

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("kind", validateKind)
}

// validateKind accepts any name extract.ParseKind understands.
func validateKind(fl validator.FieldLevel) bool {
	_, err := extract.ParseKind(fl.Field().String())
	return err == nil
}

// Load builds the effective configuration.
//
// Values are layered: defaults, then the YAML file, then SAFELIST_*
// environment variables (a .env file in the working directory is loaded
// first). When path is empty, FileName is tried and a missing file means
// defaults; an explicit path must exist.
func Load(path string) (SafelistConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return SafelistConfig{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = FileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return SafelistConfig{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return SafelistConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return SafelistConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return SafelistConfig{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *SafelistConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides cfg from SAFELIST_* variables.
func applyEnv(cfg *SafelistConfig) error {
	if v := os.Getenv("SAFELIST_INCLUDE"); v != "" {
		cfg.Include = splitList(v)
	}
	if v := os.Getenv("SAFELIST_IGNORE"); v != "" {
		cfg.Ignore = splitList(v)
	}
	if v := os.Getenv("SAFELIST_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("SAFELIST_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("SAFELIST_MODE"); v != "" {
		cfg.Extract.Mode = v
	}
	if v := os.Getenv("SAFELIST_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SAFELIST_CONCURRENCY: %w", err)
		}
		cfg.Extract.Concurrency = n
	}
	if v := os.Getenv("SAFELIST_FAIL_FAST"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SAFELIST_FAIL_FAST: %w", err)
		}
		cfg.Extract.FailFast = b
	}
	if v := os.Getenv("SAFELIST_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
		cfg.Cache.Enabled = true
	}
	if v := os.Getenv("SAFELIST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SAFELIST_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	if v := os.Getenv("SAFELIST_METRICS_ADDR"); v != "" {
		cfg.Watch.MetricsAddr = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks cfg against its struct tags.
func Validate(cfg SafelistConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// WriteDefault writes DefaultConfig to path. An existing file is only
// replaced when force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s: %w", path, ErrExists)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
