// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Mode defines the richness of CLI status output.
type Mode string

const (
	// ModeFull enables colors, icons and boxes.
	ModeFull Mode = "full"

	// ModeMinimal uses icons and plain text.
	ModeMinimal Mode = "minimal"

	// ModeMachine outputs plain prefixed lines suitable for scripting.
	ModeMachine Mode = "machine"
)

var (
	currentMode = ModeFull
	modeMu      sync.RWMutex
)

// GetMode returns the current output mode.
func GetMode() Mode {
	modeMu.RLock()
	defer modeMu.RUnlock()
	return currentMode
}

// SetMode updates the current output mode.
func SetMode(m Mode) {
	modeMu.Lock()
	defer modeMu.Unlock()
	currentMode = m
}

// ParseMode converts a string to a Mode. Unknown names map to ModeFull.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "min", "m":
		return ModeMinimal
	case "machine", "plain", "quiet", "q":
		return ModeMachine
	default:
		return ModeFull
	}
}

// InitMode picks the mode from SAFELIST_UI, falling back to ModeMachine
// when stderr is not a terminal.
func InitMode() {
	if env := os.Getenv("SAFELIST_UI"); env != "" {
		SetMode(ParseMode(env))
		return
	}
	if !IsTerminal(os.Stderr) {
		SetMode(ModeMachine)
		return
	}
	SetMode(ModeFull)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
