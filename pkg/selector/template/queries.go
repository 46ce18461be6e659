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

// Tree-sitter node types consumed when lowering a document.
//
// Markup comes from the svelte grammar, embedded expressions and script
// blocks from the javascript (or typescript) grammar and style blocks from
// the css grammar.
//
// Reference: https://github.com/Himujjal/tree-sitter-svelte

// Svelte grammar node types.
const (
	svNodeElement        = "element"
	svNodeScriptElement  = "script_element"
	svNodeStyleElement   = "style_element"
	svNodeStartTag       = "start_tag"
	svNodeSelfClosingTag = "self_closing_tag"
	svNodeEndTag         = "end_tag"
	svNodeTagName        = "tag_name"
	svNodeAttribute      = "attribute"
	svNodeRawText        = "raw_text"
	svNodeText           = "text"
	svNodeComment        = "comment"
)

// JavaScript and TypeScript grammar node types.
const (
	jsNodeProgram             = "program"
	jsNodeExpressionStatement = "expression_statement"
	jsNodeString              = "string"
	jsNodeTemplateString      = "template_string"
	jsNodeTemplateSubst       = "template_substitution"
	jsNodeNumber              = "number"
	jsNodeTrue                = "true"
	jsNodeFalse               = "false"
	jsNodeNull                = "null"
	jsNodeRegex               = "regex"
	jsNodeIdentifier          = "identifier"
	jsNodePropertyIdentifier  = "property_identifier"
	jsNodeShorthandProperty   = "shorthand_property_identifier"
	jsNodeVariableDeclarator  = "variable_declarator"
	jsNodeCallExpression      = "call_expression"
	jsNodeArguments           = "arguments"
	jsNodeMemberExpression    = "member_expression"
	jsNodeArray               = "array"
	jsNodeBinaryExpression    = "binary_expression"
	jsNodeParenthesized       = "parenthesized_expression"
	jsNodeComment             = "comment"
)

// JavaScript grammar field names.
const (
	jsFieldName      = "name"
	jsFieldValue     = "value"
	jsFieldFunction  = "function"
	jsFieldArguments = "arguments"
	jsFieldObject    = "object"
	jsFieldProperty  = "property"
	jsFieldLeft      = "left"
	jsFieldRight     = "right"
	jsFieldOperator  = "operator"
)

// CSS grammar node types.
const (
	cssNodePseudoClassSelector = "pseudo_class_selector"
	cssNodeClassName           = "class_name"
	cssNodeArguments           = "arguments"
)

// cssGlobal is the pseudo-class that opts selectors out of scoping.
const cssGlobal = "global"
