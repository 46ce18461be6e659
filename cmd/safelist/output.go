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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/safelist/pkg/extract"
)

// Document is the JSON and YAML shape of a safelist.
type Document struct {
	Selectors []string          `json:"selectors" yaml:"selectors"`
	Files     []*extract.Result `json:"files,omitempty" yaml:"files,omitempty"`
}

// render encodes selectors in format. Per-file results are included when
// files is non-empty.
func render(format string, selectors []string, files []*extract.Result) ([]byte, error) {
	if selectors == nil {
		selectors = []string{}
	}
	var buf bytes.Buffer
	switch format {
	case "", "text":
		if len(files) > 0 {
			for _, r := range files {
				fmt.Fprintf(&buf, "# %s\n", r.Path)
				for _, s := range r.Selectors {
					fmt.Fprintln(&buf, s)
				}
			}
			return buf.Bytes(), nil
		}
		for _, s := range selectors {
			fmt.Fprintln(&buf, s)
		}
	case "json":
		encoder := json.NewEncoder(&buf)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(Document{Selectors: selectors, Files: files}); err != nil {
			return nil, err
		}
	case "yaml":
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(Document{Selectors: selectors, Files: files}); err != nil {
			return nil, err
		}
		if err := encoder.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return buf.Bytes(), nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
//
// Files are replaced atomically so tools watching the output never read a
// partial safelist.
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
