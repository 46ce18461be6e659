// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selector

import (
	"errors"
	"fmt"
)

// ErrParseFailed is the cause carried by every ParseError produced when a
// grammar rejects its input.
var ErrParseFailed = errors.New("parse failed")

// ParseError reports source text that is not valid in its dialect.
//
// It is the only error the extractors produce. Extractors never recover
// from it: the whole extraction fails and no partial result is returned.
//
// Example:
//
//	_, err := template.Extract(ctx, src, "Button.svelte")
//	var parseErr *selector.ParseError
//	if errors.As(err, &parseErr) {
//	    fmt.Printf("%s:%d:%d: %s\n", parseErr.FilePath, parseErr.Line, parseErr.Column, parseErr.Message)
//	}
type ParseError struct {
	// FilePath names the input for diagnostics. May be empty.
	FilePath string

	// Line is the 1-indexed line of the first syntax error, 0 if unknown.
	Line int

	// Column is the 1-indexed column of the first syntax error, 0 if unknown.
	Column int

	// Message describes the error.
	Message string

	// Cause is the underlying error. Defaults to ErrParseFailed.
	Cause error
}

// Error formats the error as "file:line:col: message", omitting the parts
// that are unknown.
func (e *ParseError) Error() string {
	file := e.FilePath
	if file == "" {
		file = "<input>"
	}
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", file, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", file, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", file, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a ParseError caused by ErrParseFailed.
func NewParseError(filePath string, line, column int, message string) *ParseError {
	return &ParseError{
		FilePath: filePath,
		Line:     line,
		Column:   column,
		Message:  message,
		Cause:    ErrParseFailed,
	}
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}
