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
	"fmt"
	"path/filepath"
	"strings"
)

// Kind selects the extractor used for a file.
type Kind int

const (
	// KindRegex applies the structure-blind shape filter.
	KindRegex Kind = iota

	// KindMarkup scans plain markup attributes and inline scripts.
	KindMarkup

	// KindScript collects JavaScript string literals.
	KindScript

	// KindTypeScript collects TypeScript string literals.
	KindTypeScript

	// KindTemplate walks a component template.
	KindTemplate

	// KindTSX collects string literals of TypeScript with JSX.
	KindTSX
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRegex:
		return "regex"
	case KindMarkup:
		return "markup"
	case KindScript:
		return "script"
	case KindTypeScript:
		return "typescript"
	case KindTemplate:
		return "template"
	case KindTSX:
		return "tsx"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name accepted by ParseKind.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind converts a configuration name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "regex":
		return KindRegex, nil
	case "markup", "html":
		return KindMarkup, nil
	case "script", "javascript", "js":
		return KindScript, nil
	case "typescript", "ts":
		return KindTypeScript, nil
	case "template", "svelte":
		return KindTemplate, nil
	case "tsx":
		return KindTSX, nil
	default:
		return KindRegex, fmt.Errorf("kind %q: %w", name, ErrUnsupportedKind)
	}
}

// DefaultExtensions maps lower-case file extensions to kinds. Extensions
// not listed fall back to KindRegex when they are text.
var DefaultExtensions = map[string]Kind{
	".html":   KindMarkup,
	".htm":    KindMarkup,
	".js":     KindScript,
	".mjs":    KindScript,
	".cjs":    KindScript,
	".jsx":    KindScript,
	".ts":     KindTypeScript,
	".mts":    KindTypeScript,
	".cts":    KindTypeScript,
	".tsx":    KindTSX,
	".svelte": KindTemplate,
	".vue":    KindRegex,
	".php":    KindRegex,
	".erb":    KindRegex,
	".md":     KindRegex,
	".mdx":    KindRegex,
	".astro":  KindRegex,
}

// DetectKind returns the kind for path. overrides take precedence over
// DefaultExtensions; unknown extensions map to KindRegex.
func DetectKind(path string, overrides map[string]Kind) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if k, ok := overrides[ext]; ok {
		return k
	}
	if k, ok := DefaultExtensions[ext]; ok {
		return k
	}
	return KindRegex
}

// Known reports whether path has an extension listed in overrides or
// DefaultExtensions.
func Known(path string, overrides map[string]Kind) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := overrides[ext]; ok {
		return true
	}
	_, ok := DefaultExtensions[ext]
	return ok
}

// ParseOverrides converts an extension-to-kind-name map from configuration.
// Extensions are normalised to lower case with a leading dot.
func ParseOverrides(raw map[string]string) (map[string]Kind, error) {
	out := make(map[string]Kind, len(raw))
	for ext, name := range raw {
		k, err := ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("extension %s: %w", ext, err)
		}
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = k
	}
	return out, nil
}
