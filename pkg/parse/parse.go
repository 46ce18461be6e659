// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package parse wraps tree-sitter for the selector extractors.
//
// Each call creates its own parser instance, so the helpers are safe for
// concurrent use across independent inputs.
package parse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/safelist/pkg/selector"
)

// Tree parses content with lang and returns the resulting tree.
//
// The caller owns the tree and must Close it. Syntax errors do not make Tree
// fail; use Check or Strict for that.
func Tree(ctx context.Context, lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	return tree, nil
}

// Strict parses content and fails with a *selector.ParseError when the tree
// contains any ERROR or MISSING node.
func Strict(ctx context.Context, lang *sitter.Language, content []byte, filePath string) (*sitter.Tree, error) {
	tree, err := Tree(ctx, lang, content)
	if err != nil {
		return nil, err
	}
	if perr := Check(tree.RootNode(), content, filePath); perr != nil {
		tree.Close()
		return nil, perr
	}
	return tree, nil
}

// Check returns a *selector.ParseError describing the first syntax error
// under root, or nil when the subtree is clean.
func Check(root *sitter.Node, content []byte, filePath string) *selector.ParseError {
	bad := FirstError(root)
	if bad == nil {
		return nil
	}
	pos := bad.StartPoint()
	var msg string
	if bad.IsMissing() {
		msg = fmt.Sprintf("missing %s", bad.Type())
	} else {
		msg = fmt.Sprintf("unexpected %s", describe(bad, content))
	}
	return selector.NewParseError(filePath, int(pos.Row)+1, int(pos.Column)+1, msg)
}

// FirstError returns the first ERROR or MISSING node in document order, or
// nil when there is none.
func FirstError(n *sitter.Node) *sitter.Node {
	return firstError(n, 0)
}

// maxDepth bounds recursion on pathologically nested input.
const maxDepth = 1000

func firstError(n *sitter.Node, depth int) *sitter.Node {
	if n == nil || !n.HasError() {
		return nil
	}
	if n.IsError() || n.IsMissing() || depth > maxDepth {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i), depth+1); bad != nil {
			return bad
		}
	}
	// HasError is also set on a node whose own parse was recovered without
	// a dedicated error child.
	return n
}

// Text returns the source text spanned by n.
func Text(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(content)
}

// StringValue returns the value of a JavaScript string node with its quotes
// removed and escape sequences decoded.
func StringValue(n *sitter.Node, content []byte) string {
	var b strings.Builder
	fragments := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "string_fragment":
			b.WriteString(Text(child, content))
			fragments++
		case "escape_sequence":
			b.WriteString(unescape(Text(child, content)))
			fragments++
		}
	}
	if fragments > 0 {
		return b.String()
	}
	// Grammars without fragment children.
	raw := Text(n, content)
	if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') && raw[len(raw)-1] == raw[0] {
		return raw[1 : len(raw)-1]
	}
	return raw
}

func unescape(seq string) string {
	switch seq {
	case `\'`:
		return "'"
	case "\\`":
		return "`"
	case "\\\n", "\\\r\n":
		return ""
	}
	if v, err := strconv.Unquote(`"` + seq + `"`); err == nil {
		return v
	}
	return strings.TrimPrefix(seq, `\`)
}

const maxSnippet = 20

func describe(n *sitter.Node, content []byte) string {
	text := Text(n, content)
	if text == "" {
		return "end of input"
	}
	runes := []rune(text)
	if len(runes) > maxSnippet {
		text = string(runes[:maxSnippet]) + "..."
	}
	return fmt.Sprintf("%q", text)
}
