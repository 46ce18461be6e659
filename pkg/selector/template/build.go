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

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/svelte"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/AleutianAI/safelist/pkg/parse"
	"github.com/AleutianAI/safelist/pkg/selector"
)

// directivePrefixes maps attribute name prefixes to directive kinds. A
// prefix not listed here leaves the attribute a plain attribute.
var directivePrefixes = map[string]struct{}{
	"class":      {},
	"on":         {},
	"bind":       {},
	"use":        {},
	"transition": {},
	"in":         {},
	"out":        {},
	"animate":    {},
	"let":        {},
	"style":      {},
}

// builder lowers one tree-sitter document into the typed node model.
type builder struct {
	ctx        context.Context
	content    []byte
	filePath   string
	typeScript bool

	// at is the document position of the tag or attribute being lowered.
	// Errors in embedded expressions are reported there.
	at sitter.Point

	// err is the first failure met while parsing embedded code.
	err error
}

// Build parses content as a component template and returns its typed tree.
//
// The document, its <script> blocks and every {...} expression must be
// syntactically valid; otherwise Build fails with a *selector.ParseError.
// Block tags such as {#each xs as x} are reduced to their script
// expression before parsing.
func Build(ctx context.Context, content []byte, filePath string) (*Root, error) {
	content = blankBlocks(content)
	tree, err := parse.Strict(ctx, svelte.GetLanguage(), content, filePath)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	b := &builder{ctx: ctx, content: content, filePath: filePath}
	root := tree.RootNode()
	b.typeScript = b.detectTypeScript(root)

	doc := &Root{HTML: &Fragment{}}
	for i := 0; i < int(root.ChildCount()); i++ {
		if err := b.lowerMarkup(root.Child(i), doc, &doc.HTML.Children); err != nil {
			return nil, err
		}
	}
	if b.err != nil {
		return nil, b.err
	}
	return doc, nil
}

func (b *builder) lowerMarkup(n *sitter.Node, doc *Root, out *[]Node) error {
	switch n.Type() {
	case svNodeScriptElement:
		script, err := b.lowerScript(n)
		if err != nil {
			return err
		}
		doc.Scripts = append(doc.Scripts, script)
		return nil

	case svNodeStyleElement:
		doc.CSS = append(doc.CSS, b.lowerStyle(n))
		return nil

	case svNodeElement:
		el, err := b.lowerElement(n, doc)
		if err != nil {
			return err
		}
		*out = append(*out, el)
		return nil

	case svNodeComment:
		return nil

	case svNodeText:
		*out = append(*out, &Text{Data: parse.Text(n, b.content)})
		return nil
	}

	if inner, ok := mustache(parse.Text(n, b.content)); ok {
		b.at = n.StartPoint()
		*out = append(*out, b.lowerTag(inner)...)
		return nil
	}

	// Block statements and anything else: keep walking.
	for i := 0; i < int(n.ChildCount()); i++ {
		if err := b.lowerMarkup(n.Child(i), doc, out); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) lowerElement(n *sitter.Node, doc *Root) (*Element, error) {
	el := &Element{}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case svNodeStartTag, svNodeSelfClosingTag:
			b.lowerStartTag(child, el)
		case svNodeEndTag:
		default:
			if err := b.lowerMarkup(child, doc, &el.Children); err != nil {
				return nil, err
			}
		}
	}
	el.Kind = elementKind(el.Name)
	return el, nil
}

func (b *builder) lowerStartTag(n *sitter.Node, el *Element) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		text := parse.Text(child, b.content)
		switch {
		case child.Type() == svNodeTagName:
			el.Name = text
		case child.Type() == svNodeAttribute:
			b.at = child.StartPoint()
			el.Attributes = append(el.Attributes, b.lowerAttribute(text))
		default:
			if _, ok := mustache(text); ok {
				b.at = child.StartPoint()
				el.Attributes = append(el.Attributes, b.lowerAttribute(text))
			}
		}
	}
}

func elementKind(name string) ElementKind {
	if strings.HasPrefix(name, "svelte:") || name == "slot" {
		return ElementSpecial
	}
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) || strings.Contains(name, ".") {
		return ElementComponent
	}
	return ElementRegular
}

// lowerAttribute lowers the source text of one attribute.
func (b *builder) lowerAttribute(raw string) Node {
	raw = strings.TrimSpace(raw)

	if inner, ok := mustache(raw); ok {
		inner = strings.TrimSpace(inner)
		if rest, ok := strings.CutPrefix(inner, "..."); ok {
			return &Spread{Expression: b.expression(rest)}
		}
		return &Attribute{
			Name:  inner,
			Value: []Node{&MustacheTag{Expression: b.expression(inner)}},
		}
	}

	name, value, hasValue := cutAttribute(raw)
	var parts []Node
	if hasValue {
		parts = b.valueParts(value)
	}

	if prefix, target, ok := strings.Cut(name, ":"); ok {
		if _, isDirective := directivePrefixes[prefix]; isDirective {
			target, _, _ = strings.Cut(target, "|")
			expr := firstExpression(parts)
			if prefix == "class" {
				return &ClassDirective{Name: target, Expression: expr}
			}
			return &Directive{Kind: prefix, Name: target, Expression: expr}
		}
	}
	return &Attribute{Name: name, Value: parts}
}

// cutAttribute splits name="value" source text. The value is unquoted.
func cutAttribute(raw string) (name, value string, hasValue bool) {
	name, value, hasValue = strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		value = value[1 : len(value)-1]
	}
	return name, value, hasValue
}

func firstExpression(parts []Node) Node {
	for _, p := range parts {
		if tag, ok := p.(*MustacheTag); ok {
			return tag.Expression
		}
	}
	return nil
}

// valueParts splits an attribute value into *Text and *MustacheTag parts.
func (b *builder) valueParts(value string) []Node {
	parts := make([]Node, 0, 1)
	start := 0
	for i := 0; i < len(value); i++ {
		if value[i] != '{' {
			continue
		}
		end := matchBrace(value, i)
		if end < 0 {
			break
		}
		if i > start {
			parts = append(parts, &Text{Data: value[start:i]})
		}
		parts = append(parts, &MustacheTag{Expression: b.expression(value[i+1 : end])})
		start = end + 1
		i = end
	}
	if start < len(value) {
		parts = append(parts, &Text{Data: value[start:]})
	}
	return parts
}

// lowerTag lowers the inside of a markup {...} tag, including block tags.
func (b *builder) lowerTag(inner string) []Node {
	inner = strings.TrimSpace(inner)
	if inner == "" || inner[0] == '/' {
		return nil
	}
	if inner[0] != '#' && inner[0] != ':' && inner[0] != '@' {
		return []Node{&MustacheTag{Expression: b.expression(inner)}}
	}

	keyword, rest, _ := strings.Cut(inner[1:], " ")
	keyword = strings.TrimSpace(keyword)
	rest = strings.TrimSpace(rest)

	var expr string
	switch keyword {
	case "if", "key", "html", "render", "debug":
		expr = rest
	case "else":
		cond, ok := strings.CutPrefix(rest, "if ")
		if !ok {
			return nil
		}
		expr = cond
	case "each":
		expr, _, _ = strings.Cut(rest, " as ")
	case "await":
		expr, _, _ = strings.Cut(rest, " then ")
		expr, _, _ = strings.Cut(expr, " catch ")
	case "const":
		return []Node{b.program("const " + rest)}
	default:
		return nil
	}
	return []Node{&MustacheTag{Expression: b.expression(expr)}}
}

// mustache reports whether text is exactly one {...} tag and returns its
// inside.
func mustache(text string) (string, bool) {
	if len(text) < 2 || text[0] != '{' {
		return "", false
	}
	if matchBrace(text, 0) != len(text)-1 {
		return "", false
	}
	return text[1 : len(text)-1], true
}

// matchBrace returns the index of the brace closing the one at open, or -1.
// Braces inside quoted strings do not count.
func matchBrace(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (b *builder) scriptLanguage(typeScript bool) *sitter.Language {
	if typeScript {
		return typescript.GetLanguage()
	}
	return javascript.GetLanguage()
}

// expression parses src as a single script expression.
func (b *builder) expression(src string) Node {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil
	}
	content := []byte("(" + src + ")")
	tree, err := b.parseEmbedded(content)
	if err != nil {
		b.fail(err)
		return nil
	}
	defer tree.Close()

	prog := tree.RootNode()
	if prog.NamedChildCount() == 1 {
		if stmt := firstNamed(prog); stmt != nil && stmt.Type() == jsNodeExpressionStatement {
			if expr := firstNamed(stmt); expr != nil {
				return lowerJS(expr, content)
			}
		}
	}
	return lowerJS(prog, content)
}

// program parses src as statements.
func (b *builder) program(src string) Node {
	content := []byte(src)
	tree, err := b.parseEmbedded(content)
	if err != nil {
		b.fail(err)
		return nil
	}
	defer tree.Close()
	return lowerJS(tree.RootNode(), content)
}

// parseEmbedded parses script code taken from the markup. A syntax error is
// reported at the enclosing tag or attribute.
func (b *builder) parseEmbedded(content []byte) (*sitter.Tree, error) {
	tree, err := parse.Tree(b.ctx, b.scriptLanguage(b.typeScript), content)
	if err != nil {
		return nil, err
	}
	if perr := parse.Check(tree.RootNode(), content, b.filePath); perr != nil {
		tree.Close()
		return nil, selector.NewParseError(b.filePath, int(b.at.Row)+1, int(b.at.Column)+1,
			fmt.Sprintf("invalid expression: %s", perr.Message))
	}
	return tree, nil
}

// unknownBlocks lists block keywords the svelte grammar rejects.
var unknownBlocks = []string{"snippet"}

// blankBlocks overwrites the opening and closing tags of unknownBlocks with
// spaces, keeping byte offsets and line breaks. Block bodies stay in place
// and are lowered as ordinary markup. Script and style contents are left
// untouched.
func blankBlocks(content []byte) []byte {
	s := string(content)
	var out []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			if end := rawTextEnd(s, i); end > i {
				i = end - 1
			}
		case '{':
			if !isUnknownBlock(s[i+1:]) {
				continue
			}
			end := matchBrace(s, i)
			if end < 0 {
				continue
			}
			if out == nil {
				out = append([]byte(nil), content...)
			}
			for j := i; j <= end; j++ {
				if out[j] != '\n' && out[j] != '\r' {
					out[j] = ' '
				}
			}
			i = end
		}
	}
	if out == nil {
		return content
	}
	return out
}

func isUnknownBlock(rest string) bool {
	for _, kw := range unknownBlocks {
		for _, tag := range []string{"#" + kw, "/" + kw} {
			after, ok := strings.CutPrefix(rest, tag)
			if ok && after != "" && (after[0] == '}' || unicode.IsSpace(rune(after[0]))) {
				return true
			}
		}
	}
	return false
}

// rawTextEnd returns the offset just past the element starting at open when
// it is a <script> or <style> element, or -1.
func rawTextEnd(s string, open int) int {
	for _, name := range []string{"script", "style"} {
		if !hasPrefixFold(s[open:], "<"+name) {
			continue
		}
		next := open + 1 + len(name)
		if next < len(s) && s[next] != '>' && s[next] != '/' && !unicode.IsSpace(rune(s[next])) {
			continue
		}
		for j := next; j < len(s); j++ {
			if s[j] == '<' && hasPrefixFold(s[j:], "</"+name) {
				if gt := strings.IndexByte(s[j:], '>'); gt >= 0 {
					return j + gt + 1
				}
				return len(s)
			}
		}
		return len(s)
	}
	return -1
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builder) lowerScript(n *sitter.Node) (*Script, error) {
	attrs := b.tagAttributes(n)
	script := &Script{TypeScript: isTypeScript(attrs)}
	if ctx, ok := attrs["context"]; ok && ctx == "module" {
		script.Module = true
	}
	if _, ok := attrs["module"]; ok {
		script.Module = true
	}

	raw := childOfType(n, svNodeRawText)
	if raw == nil {
		return script, nil
	}
	body := []byte(parse.Text(raw, b.content))
	tree, err := parse.Strict(b.ctx, b.scriptLanguage(script.TypeScript), body, b.filePath)
	if err != nil {
		var perr *selector.ParseError
		if errors.As(err, &perr) {
			return nil, shiftError(perr, raw.StartPoint())
		}
		return nil, err
	}
	defer tree.Close()

	if prog, ok := lowerJS(tree.RootNode(), body).(*Other); ok {
		script.Body = prog.Children
	}
	return script, nil
}

// shiftError moves a position reported inside a script block to document
// coordinates.
func shiftError(perr *selector.ParseError, start sitter.Point) *selector.ParseError {
	shifted := *perr
	if shifted.Line == 1 {
		shifted.Column += int(start.Column)
	}
	if shifted.Line > 0 {
		shifted.Line += int(start.Row)
	}
	return &shifted
}

func (b *builder) lowerStyle(n *sitter.Node) *Style {
	style := &Style{}
	raw := childOfType(n, svNodeRawText)
	if raw == nil {
		return style
	}
	body := []byte(parse.Text(raw, b.content))
	tree, err := parse.Tree(b.ctx, css.GetLanguage(), body)
	if err != nil {
		b.fail(err)
		return style
	}
	defer tree.Close()

	collectGlobals(tree.RootNode(), body, &style.Children)
	return style
}

// collectGlobals appends a *GlobalPseudo for every :global(...) selector.
func collectGlobals(n *sitter.Node, content []byte, out *[]Node) {
	if n.Type() == cssNodePseudoClassSelector {
		name := childOfType(n, cssNodeClassName)
		args := childOfType(n, cssNodeArguments)
		if name != nil && args != nil && parse.Text(name, content) == cssGlobal {
			value := strings.TrimSpace(parse.Text(args, content))
			value = strings.TrimSuffix(strings.TrimPrefix(value, "("), ")")
			*out = append(*out, &GlobalPseudo{Value: value})
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectGlobals(n.Child(i), content, out)
	}
}

func (b *builder) detectTypeScript(root *sitter.Node) bool {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() == svNodeScriptElement && isTypeScript(b.tagAttributes(child)) {
			return true
		}
	}
	return false
}

// tagAttributes returns the unquoted attributes of an element's start tag.
func (b *builder) tagAttributes(n *sitter.Node) map[string]string {
	attrs := make(map[string]string)
	tag := childOfType(n, svNodeStartTag)
	if tag == nil {
		return attrs
	}
	for i := 0; i < int(tag.ChildCount()); i++ {
		child := tag.Child(i)
		if child.Type() != svNodeAttribute {
			continue
		}
		name, value, _ := cutAttribute(parse.Text(child, b.content))
		attrs[strings.ToLower(name)] = value
	}
	return attrs
}

func isTypeScript(attrs map[string]string) bool {
	lang := strings.ToLower(attrs["lang"])
	return lang == "ts" || lang == "typescript"
}

// lowerJS converts a script syntax node to the typed model.
func lowerJS(n *sitter.Node, content []byte) Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case jsNodeComment:
		return nil

	case jsNodeString:
		return &Literal{Value: parse.StringValue(n, content), IsString: true}

	case jsNodeNumber, jsNodeTrue, jsNodeFalse, jsNodeNull, jsNodeRegex:
		return &Literal{Value: parse.Text(n, content)}

	case jsNodeTemplateString:
		return lowerTemplateString(n, content)

	case jsNodeIdentifier, jsNodePropertyIdentifier, jsNodeShorthandProperty:
		return &Identifier{Name: parse.Text(n, content)}

	case jsNodeVariableDeclarator:
		return &VariableDeclarator{
			ID:   lowerJS(n.ChildByFieldName(jsFieldName), content),
			Init: lowerJS(n.ChildByFieldName(jsFieldValue), content),
		}

	case jsNodeCallExpression:
		call := &CallExpression{Callee: lowerJS(n.ChildByFieldName(jsFieldFunction), content)}
		args := n.ChildByFieldName(jsFieldArguments)
		switch {
		case args == nil:
		case args.Type() == jsNodeArguments:
			call.Arguments = lowerNamed(args, content)
		default:
			// Tagged template: the template string is the only argument.
			call.Arguments = appendNode(nil, lowerJS(args, content))
		}
		return call

	case jsNodeMemberExpression:
		return &MemberExpression{
			Object:   lowerJS(n.ChildByFieldName(jsFieldObject), content),
			Property: lowerJS(n.ChildByFieldName(jsFieldProperty), content),
		}

	case jsNodeArray:
		return &ArrayExpression{Elements: lowerNamed(n, content)}

	case jsNodeBinaryExpression:
		op := n.ChildByFieldName(jsFieldOperator)
		if op != nil {
			switch op.Type() {
			case "&&", "||", "??":
				return &LogicalExpression{
					Operator: op.Type(),
					Left:     lowerJS(n.ChildByFieldName(jsFieldLeft), content),
					Right:    lowerJS(n.ChildByFieldName(jsFieldRight), content),
				}
			}
		}

	case jsNodeParenthesized:
		return lowerJS(firstNamed(n), content)
	}

	return &Other{Type: n.Type(), Children: lowerNamed(n, content)}
}

func lowerNamed(n *sitter.Node, content []byte) []Node {
	out := make([]Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = appendNode(out, lowerJS(n.NamedChild(i), content))
	}
	return out
}

// lowerTemplateString splits a backtick string into its static segments and
// substitutions.
func lowerTemplateString(n *sitter.Node, content []byte) Node {
	tl := &TemplateLiteral{}
	cursor := n.StartByte() + 1
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != jsNodeTemplateSubst {
			continue
		}
		tl.Quasis = append(tl.Quasis, &TemplateTextSegment{Raw: string(content[cursor:child.StartByte()])})
		tl.Expressions = append(tl.Expressions, lowerJS(firstNamed(child), content))
		cursor = child.EndByte()
	}
	end := n.EndByte()
	if end > cursor {
		end--
	}
	tl.Quasis = append(tl.Quasis, &TemplateTextSegment{Raw: string(content[cursor:end])})
	return tl
}

// firstNamed returns the first named child that is not a comment.
func firstNamed(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != jsNodeComment {
			return child
		}
	}
	return nil
}

func childOfType(n *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}
