// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package script extracts selectors from the string literals of script
// source.
package script

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/AleutianAI/safelist/pkg/parse"
	"github.com/AleutianAI/safelist/pkg/selector"
)

// nodeString is the tree-sitter node type of a quoted string literal in both
// the JavaScript and TypeScript grammars. Template strings are a different
// node type and are not collected.
const nodeString = "string"

// Options configures Extract.
type Options struct {
	// TypeScript selects the TypeScript grammar instead of JavaScript.
	TypeScript bool

	// TSX selects the TypeScript grammar with JSX support. It takes
	// precedence over TypeScript.
	TSX bool

	// FilePath names the input in parse errors.
	FilePath string
}

// Option is a functional option for Extract.
type Option func(*Options)

// WithTypeScript parses the input as TypeScript.
func WithTypeScript() Option {
	return func(o *Options) {
		o.TypeScript = true
	}
}

// WithTSX parses the input as TypeScript with JSX elements.
func WithTSX() Option {
	return func(o *Options) {
		o.TSX = true
	}
}

// WithFilePath sets the file name reported in parse errors.
func WithFilePath(path string) Option {
	return func(o *Options) {
		o.FilePath = path
	}
}

// Extract parses text as a module and returns every selector-like token of
// its string literals, each prefixed ".".
//
// Description:
//
//	Every quoted string literal is split on spaces and each token passing
//	the shape filter is kept. Numbers, template strings and identifiers
//	contribute nothing.
//
// Outputs:
//
//	[]string - Selectors in first-seen order. Empty for empty input.
//	error    - *selector.ParseError when text is not valid script source.
//	           No partial result is returned alongside it.
//
// Thread Safety:
//
//	Safe for concurrent use.
func Extract(ctx context.Context, text string, opts ...Option) ([]string, error) {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("script extract canceled before start: %w", err)
	}

	content := []byte(text)
	tree, err := parse.Strict(ctx, language(options), content, options.FilePath)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	table := selector.NewTable()
	collectStrings(tree.RootNode(), content, table)
	return table.Selectors(), nil
}

func language(o Options) *sitter.Language {
	if o.TSX {
		return tsx.GetLanguage()
	}
	if o.TypeScript {
		return typescript.GetLanguage()
	}
	return javascript.GetLanguage()
}

func collectStrings(n *sitter.Node, content []byte, table *selector.Table) {
	if n.Type() == nodeString {
		value := parse.StringValue(n, content)
		table.AddAll(selector.FilterSelectorLike(selector.SplitSpaces(value)), selector.KindClass)
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectStrings(n.Child(i), content, table)
	}
}
