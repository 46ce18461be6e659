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
	"bytes"
	"os"
	"strings"
	"testing"
)

// capture runs f in mode and returns what it printed.
func capture(mode Mode, f func()) string {
	prev := GetMode()
	SetMode(mode)
	var buf bytes.Buffer
	SetOutput(&buf)
	defer func() {
		SetOutput(nil)
		SetMode(prev)
	}()
	f()
	return buf.String()
}

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending} {
		if icon.Render() == "" {
			t.Errorf("expected non-empty result for %q", icon)
		}
	}
	if IconArrow.Render() != string(IconArrow) {
		t.Errorf("expected unstyled arrow, got %q", IconArrow.Render())
	}
}

// =============================================================================
// Mode Tests
// =============================================================================

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"full":    ModeFull,
		"minimal": ModeMinimal,
		"M":       ModeMinimal,
		"machine": ModeMachine,
		"plain":   ModeMachine,
		"":        ModeFull,
		"bogus":   ModeFull,
	}
	for in, want := range tests {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInitMode_Env(t *testing.T) {
	prev := GetMode()
	defer SetMode(prev)

	t.Setenv("SAFELIST_UI", "minimal")
	InitMode()
	if GetMode() != ModeMinimal {
		t.Errorf("GetMode() = %q, want %q", GetMode(), ModeMinimal)
	}
}

func TestIsTerminal_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()
	if IsTerminal(w) {
		t.Error("a pipe is not a terminal")
	}
}

// =============================================================================
// Print Helper Tests
// =============================================================================

func TestTitle_MachineMode(t *testing.T) {
	if got := capture(ModeMachine, func() { Title("Hello") }); got != "" {
		t.Errorf("expected no output in machine mode, got %q", got)
	}
}

func TestTitle_FullMode(t *testing.T) {
	if got := capture(ModeFull, func() { Title("Hello") }); !strings.Contains(got, "Hello") {
		t.Errorf("expected title text, got %q", got)
	}
}

func TestStatusLines_MachineMode(t *testing.T) {
	tests := []struct {
		name string
		f    func()
		want string
	}{
		{"success", func() { Success("done") }, "OK: done\n"},
		{"warning", func() { Warning("careful") }, "WARN: careful\n"},
		{"error", func() { Error("broken") }, "ERROR: broken\n"},
		{"info", func() { Info("note") }, "note\n"},
		{"muted", func() { Muted("quiet") }, ""},
		{"box", func() { Box("T", "body") }, "T: body\n"},
		{"warning box", func() { WarningBox("T", "body") }, "WARN T: body\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := capture(ModeMachine, tt.f); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusLines_FullMode(t *testing.T) {
	tests := []struct {
		name string
		f    func()
		want string
	}{
		{"success", func() { Success("done") }, "done"},
		{"warning", func() { Warning("careful") }, "careful"},
		{"error", func() { Error("broken") }, "broken"},
		{"info", func() { Info("note") }, "note"},
		{"muted", func() { Muted("quiet") }, "quiet"},
		{"box", func() { Box("Title", "body") }, "body"},
		{"warning box", func() { WarningBox("Title", "body") }, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := capture(ModeFull, tt.f); !strings.Contains(got, tt.want) {
				t.Errorf("got %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestSuccess_MinimalMode(t *testing.T) {
	got := capture(ModeMinimal, func() { Success("done") })
	if !strings.Contains(got, "done") || strings.HasPrefix(got, "OK:") {
		t.Errorf("unexpected minimal output %q", got)
	}
}

func TestFileStatus(t *testing.T) {
	got := capture(ModeMachine, func() { FileStatus("a.js", IconWarning, "regex fallback") })
	if got != "⚠\ta.js\tregex fallback\n" {
		t.Errorf("machine output = %q", got)
	}

	got = capture(ModeMinimal, func() { FileStatus("a.js", IconWarning, "regex fallback") })
	if !strings.Contains(got, "a.js") || strings.Contains(got, "regex fallback") {
		t.Errorf("minimal output = %q", got)
	}

	got = capture(ModeFull, func() { FileStatus("a.js", IconWarning, "regex fallback") })
	if !strings.Contains(got, "a.js") || !strings.Contains(got, "regex fallback") {
		t.Errorf("full output with reason = %q", got)
	}

	got = capture(ModeFull, func() { FileStatus("a.js", IconSuccess, "") })
	if !strings.Contains(got, "a.js") || strings.Contains(got, "(") {
		t.Errorf("full output without reason = %q", got)
	}
}

func TestSummary(t *testing.T) {
	got := capture(ModeMachine, func() { Summary(3, 42, 1) })
	if got != "SUMMARY: files=3 selectors=42 fallbacks=1\n" {
		t.Errorf("machine output = %q", got)
	}

	got = capture(ModeFull, func() { Summary(3, 42, 1) })
	for _, want := range []string{"3", "42", "1", "files", "selectors", "fallbacks"} {
		if !strings.Contains(got, want) {
			t.Errorf("full output missing %q: %q", want, got)
		}
	}
}

func TestSetOutput_NilRestoresStderr(t *testing.T) {
	SetOutput(nil)
	outMu.Lock()
	defer outMu.Unlock()
	if out != os.Stderr {
		t.Error("SetOutput(nil) should restore stderr")
	}
}
