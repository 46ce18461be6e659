// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package selector provides the shared vocabulary of the selector extractors.
//
// Every extractor in this module reduces source text to a set of candidate
// CSS selectors for safelisting. This package defines the pieces they all
// share:
//   - Kind: how a raw token was discovered, which decides its CSS prefix
//   - Table: an insertion-ordered token table with last-write-wins kinds
//   - IsSelectorLike / FindSelectorLike: the token shape filter
//   - ParseError: the only failure an extractor reports
//
// The structure-blind fallback extractor, ExtractWithRegex, also lives here
// because it needs nothing beyond the shape filter.
package selector

// Kind classifies how a raw token was discovered.
//
// The kind decides how the token is rendered as a CSS selector: class-like
// kinds get a "." prefix, IDs get "#", everything else is emitted verbatim.
type Kind int

const (
	// KindClass is a class name taken from static text or a string literal.
	KindClass Kind = iota

	// KindID is the value of an id attribute.
	KindID

	// KindElement is an element tag name.
	KindElement

	// KindAttribute is an attribute name.
	KindAttribute

	// KindClassDirective is the target of a class:name toggle.
	KindClassDirective

	// KindGlobalPseudo is an author-written selector inside :global(...).
	KindGlobalPseudo

	// KindFromIdentifier is a class name recovered by resolving an
	// identifier used as a dynamic class value.
	KindFromIdentifier
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindID:
		return "id"
	case KindElement:
		return "element"
	case KindAttribute:
		return "attribute"
	case KindClassDirective:
		return "class_directive"
	case KindGlobalPseudo:
		return "global_pseudo"
	case KindFromIdentifier:
		return "from_identifier"
	default:
		return "unknown"
	}
}

// Prefix returns the CSS prefix for tokens of this kind.
func (k Kind) Prefix() string {
	switch k {
	case KindClass, KindClassDirective, KindFromIdentifier:
		return "."
	case KindID:
		return "#"
	default:
		return ""
	}
}

// Format renders a raw token as a selector of this kind.
func (k Kind) Format(token string) string {
	return k.Prefix() + token
}
