// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package template extracts selectors from component templates that mix
// markup, embedded script expressions and scoped style blocks.
//
// Extraction runs in three phases:
//  1. Build lowers the tree-sitter document into a closed set of typed nodes.
//  2. A single depth-first fold collects selectors, identifier bindings and
//     identifiers used as dynamic attribute values.
//  3. Every used identifier is resolved against the bindings, so a binding
//     may be declared after its use.
package template

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/safelist/pkg/selector"
)

// accumulator is threaded through the fold. It is created per extraction.
type accumulator struct {
	table    *selector.Table
	bindings map[string][]string

	// uses holds identifiers in first-use order; seen dedupes them.
	uses []string
	seen map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		table:    selector.NewTable(),
		bindings: make(map[string][]string),
		seen:     make(map[string]struct{}),
	}
}

func (acc *accumulator) use(name string) {
	if _, ok := acc.seen[name]; ok {
		return
	}
	acc.seen[name] = struct{}{}
	acc.uses = append(acc.uses, name)
}

// Extract returns the selectors of a component template.
//
// Description:
//
//	Element names, attribute names, static attribute tokens, class
//	directive targets, :global(...) selectors and string literals in
//	embedded script are collected in one traversal. Identifiers used as
//	{name} in an attribute value are then resolved against literal
//	declarations anywhere in the file.
//
// Inputs:
//
//	ctx      - Context for cancellation of the underlying parsers.
//	text     - Template source.
//	filePath - Used only in parse errors. May be empty.
//
// Outputs:
//
//	[]string - Selectors formatted for CSS: "." for class-like tokens,
//	           verbatim for element names, attribute names and :global
//	           selectors.
//	error    - *selector.ParseError when the document or a <script> block
//	           is invalid. No partial result is returned alongside it.
//
// Thread Safety:
//
//	Safe for concurrent use.
func Extract(ctx context.Context, text string, filePath string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("template extract canceled before start: %w", err)
	}

	root, err := Build(ctx, []byte(text), filePath)
	if err != nil {
		return nil, err
	}

	acc := fold(root, nil, newAccumulator())
	resolve(acc)
	return acc.table.Selectors(), nil
}

// fold visits n, then its children with n as their parent.
func fold(n, parent Node, acc *accumulator) *accumulator {
	visit(n, parent, acc)
	for _, child := range Children(n) {
		acc = fold(child, n, acc)
	}
	return acc
}

func visit(n, parent Node, acc *accumulator) {
	switch v := n.(type) {
	case *Identifier:
		if decl, ok := parent.(*VariableDeclarator); ok && decl.ID == n {
			captureBinding(v.Name, decl.Init, acc)
		}

	case *Element:
		if v.Kind == ElementRegular {
			acc.table.Add(v.Name, selector.KindElement)
		}

	case *Attribute:
		acc.table.Add(v.Name, selector.KindAttribute)
		for _, part := range v.Value {
			switch p := part.(type) {
			case *MustacheTag:
				if id, ok := p.Expression.(*Identifier); ok {
					acc.use(id.Name)
				}
			case *Text:
				acc.table.AddAll(selector.FilterSelectorLike(strings.Fields(p.Data)), selector.KindClass)
			}
		}

	case *ClassDirective:
		acc.table.Add(v.Name, selector.KindClassDirective)

	case *GlobalPseudo:
		for _, sel := range strings.Split(v.Value, ",") {
			acc.table.Add(strings.TrimSpace(sel), selector.KindGlobalPseudo)
		}

	case *Literal:
		if !v.IsString {
			return
		}
		for _, tok := range strings.Fields(v.Value) {
			if tok == strings.ToLower(tok) {
				acc.table.Add(tok, selector.KindClass)
			}
		}

	case *TemplateTextSegment:
		acc.table.AddAll(selector.FilterSelectorLike(strings.Fields(v.Raw)), selector.KindClass)
	}
}

// captureBinding records the class tokens a declaration's initializer
// resolves to. It understands a string literal and a helper call over
// literals, such as cn("a b"), cva(["a", cond && "b"]) or
// ["a", "b"].join(" "). Later candidates replace earlier ones.
func captureBinding(name string, init Node, acc *accumulator) {
	switch v := init.(type) {
	case *Literal:
		bindLiteral(name, v, acc)

	case *CallExpression:
		var arrays []*ArrayExpression
		if member, ok := v.Callee.(*MemberExpression); ok {
			if arr, ok := member.Object.(*ArrayExpression); ok {
				arrays = append(arrays, arr)
			}
		}
		if len(v.Arguments) > 0 {
			if arr, ok := v.Arguments[0].(*ArrayExpression); ok {
				arrays = append(arrays, arr)
			} else {
				bindElement(name, v.Arguments[0], acc)
			}
		}
		for _, arr := range arrays {
			for _, el := range arr.Elements {
				bindElement(name, el, acc)
			}
		}
	}
}

func bindElement(name string, el Node, acc *accumulator) {
	switch v := el.(type) {
	case *Literal:
		bindLiteral(name, v, acc)
	case *LogicalExpression:
		if right, ok := v.Right.(*Literal); ok {
			bindLiteral(name, right, acc)
		}
	}
}

func bindLiteral(name string, lit *Literal, acc *accumulator) {
	if lit.IsString {
		acc.bindings[name] = strings.Fields(lit.Value)
	}
}

// resolve adds the bound tokens of every used identifier. Identifiers
// without a binding contribute nothing.
func resolve(acc *accumulator) {
	for _, name := range acc.uses {
		acc.table.AddAll(acc.bindings[name], selector.KindFromIdentifier)
	}
}
