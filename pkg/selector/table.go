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

// Table maps raw tokens to the kind they were last registered with.
//
// Tokens keep the position of their first insertion. Registering a token a
// second time replaces its kind (last write wins) without moving it, so the
// formatted output is stable for a given input.
//
// A Table is not safe for concurrent use; extractors build one per call.
type Table struct {
	kinds map[string]Kind
	order []string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{kinds: make(map[string]Kind)}
}

// Add registers token with kind. Empty tokens are ignored.
func (t *Table) Add(token string, kind Kind) {
	if token == "" {
		return
	}
	if _, ok := t.kinds[token]; !ok {
		t.order = append(t.order, token)
	}
	t.kinds[token] = kind
}

// AddAll registers every token with kind.
func (t *Table) AddAll(tokens []string, kind Kind) {
	for _, tok := range tokens {
		t.Add(tok, kind)
	}
}

// Kind returns the kind registered for token.
func (t *Table) Kind(token string) (Kind, bool) {
	k, ok := t.kinds[token]
	return k, ok
}

// Len returns the number of distinct tokens.
func (t *Table) Len() int {
	return len(t.order)
}

// Tokens returns the raw tokens in insertion order.
func (t *Table) Tokens() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Selectors renders every token with the prefix of its kind, in insertion
// order.
func (t *Table) Selectors() []string {
	out := make([]string, 0, len(t.order))
	for _, tok := range t.order {
		out = append(out, t.kinds[tok].Format(tok))
	}
	return out
}
