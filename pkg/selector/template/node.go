// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package template

import "fmt"

// Node is one construct of a parsed component template.
//
// The set of node types is closed: every implementation lives in this file
// and Children handles each of them.
type Node interface {
	isNode()
}

// ElementKind distinguishes plain elements from components and special
// elements.
type ElementKind int

const (
	// ElementRegular is a plain markup element such as div or button.
	ElementRegular ElementKind = iota

	// ElementComponent is a component reference such as Button or ui.Card.
	ElementComponent

	// ElementSpecial is a framework element such as svelte:head or slot.
	ElementSpecial
)

// Root is a whole document: the markup fragment, its style blocks and its
// script blocks.
type Root struct {
	HTML    *Fragment
	CSS     []*Style
	Scripts []*Script
}

// Fragment is an ordered list of markup nodes.
type Fragment struct {
	Children []Node
}

// Element is a markup element or component.
type Element struct {
	Name       string
	Kind       ElementKind
	Attributes []Node
	Children   []Node
}

// Attribute is a name with an optional value. A nil Value is a boolean
// attribute. Value parts are *Text and *MustacheTag.
type Attribute struct {
	Name  string
	Value []Node
}

// ClassDirective is a class:name toggle.
type ClassDirective struct {
	Name       string
	Expression Node
}

// Directive is any other prefixed attribute, such as on:click or bind:value.
type Directive struct {
	Kind       string
	Name       string
	Expression Node
}

// Spread is a {...props} attribute.
type Spread struct {
	Expression Node
}

// Text is static markup text.
type Text struct {
	Data string
}

// MustacheTag is a {expression} interpolation.
type MustacheTag struct {
	Expression Node
}

// Script is a <script> block.
type Script struct {
	Module     bool
	TypeScript bool
	Body       []Node
}

// Style is a <style> block, reduced to the selectors it escapes with
// :global(...).
type Style struct {
	Children []Node
}

// GlobalPseudo is the argument text of a :global(...) selector.
type GlobalPseudo struct {
	Value string
}

// Literal is a script literal. Value holds the decoded value of strings
// and the source text of everything else.
type Literal struct {
	Value    string
	IsString bool
}

// TemplateLiteral is a backtick string. Quasis always has one more entry
// than Expressions.
type TemplateLiteral struct {
	Quasis      []*TemplateTextSegment
	Expressions []Node
}

// TemplateTextSegment is a static chunk of a template literal, as written.
type TemplateTextSegment struct {
	Raw string
}

// Identifier is a name reference or declaration.
type Identifier struct {
	Name string
}

// VariableDeclarator is one id = init pair of a declaration.
type VariableDeclarator struct {
	ID   Node
	Init Node
}

// CallExpression is callee(arguments...).
type CallExpression struct {
	Callee    Node
	Arguments []Node
}

// MemberExpression is object.property or object[property].
type MemberExpression struct {
	Object   Node
	Property Node
}

// ArrayExpression is an array literal.
type ArrayExpression struct {
	Elements []Node
}

// LogicalExpression is a short-circuit expression using &&, || or ??.
type LogicalExpression struct {
	Operator string
	Left     Node
	Right    Node
}

// Other is any script construct without a dedicated type. Only its
// children matter.
type Other struct {
	Type     string
	Children []Node
}

func (*Root) isNode()                {}
func (*Fragment) isNode()            {}
func (*Element) isNode()             {}
func (*Attribute) isNode()           {}
func (*ClassDirective) isNode()      {}
func (*Directive) isNode()           {}
func (*Spread) isNode()              {}
func (*Text) isNode()                {}
func (*MustacheTag) isNode()         {}
func (*Script) isNode()              {}
func (*Style) isNode()               {}
func (*GlobalPseudo) isNode()        {}
func (*Literal) isNode()             {}
func (*TemplateLiteral) isNode()     {}
func (*TemplateTextSegment) isNode() {}
func (*Identifier) isNode()          {}
func (*VariableDeclarator) isNode()  {}
func (*CallExpression) isNode()      {}
func (*MemberExpression) isNode()    {}
func (*ArrayExpression) isNode()     {}
func (*LogicalExpression) isNode()   {}
func (*Other) isNode()               {}

// Children returns the direct children of n in traversal order, skipping
// absent ones.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Root:
		out := make([]Node, 0, 1+len(v.CSS)+len(v.Scripts))
		out = appendNode(out, v.HTML)
		for _, s := range v.CSS {
			out = appendNode(out, s)
		}
		for _, s := range v.Scripts {
			out = appendNode(out, s)
		}
		return out
	case *Fragment:
		return compact(v.Children)
	case *Element:
		return compact(append(append([]Node{}, v.Attributes...), v.Children...))
	case *Attribute:
		return compact(v.Value)
	case *ClassDirective:
		return compact([]Node{v.Expression})
	case *Directive:
		return compact([]Node{v.Expression})
	case *Spread:
		return compact([]Node{v.Expression})
	case *MustacheTag:
		return compact([]Node{v.Expression})
	case *Script:
		return compact(v.Body)
	case *Style:
		return compact(v.Children)
	case *TemplateLiteral:
		out := make([]Node, 0, len(v.Quasis)+len(v.Expressions))
		for i, q := range v.Quasis {
			out = appendNode(out, q)
			if i < len(v.Expressions) {
				out = appendNode(out, v.Expressions[i])
			}
		}
		return out
	case *VariableDeclarator:
		return compact([]Node{v.ID, v.Init})
	case *CallExpression:
		return compact(append([]Node{v.Callee}, v.Arguments...))
	case *MemberExpression:
		return compact([]Node{v.Object, v.Property})
	case *ArrayExpression:
		return compact(v.Elements)
	case *LogicalExpression:
		return compact([]Node{v.Left, v.Right})
	case *Other:
		return compact(v.Children)
	case *Text, *GlobalPseudo, *Literal, *TemplateTextSegment, *Identifier:
		return nil
	default:
		panic(fmt.Sprintf("template: unhandled node type %T", n))
	}
}

func compact(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = appendNode(out, n)
	}
	return out
}

// appendNode appends n unless it is nil or a typed nil pointer.
func appendNode(out []Node, n Node) []Node {
	if isNil(n) {
		return out
	}
	return append(out, n)
}

func isNil(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *Fragment:
		return v == nil
	case *Style:
		return v == nil
	case *Script:
		return v == nil
	case *TemplateTextSegment:
		return v == nil
	default:
		return false
	}
}
