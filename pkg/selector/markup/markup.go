// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package markup extracts selectors from plain markup by scanning attributes.
//
// The scanner is structure-light: it never builds a document tree, it only
// consumes the attribute events of a streaming tokenizer. Malformed markup
// is handled by the tokenizer's own recovery and never produces an error.
package markup

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/AleutianAI/safelist/pkg/selector"
)

// ReservedAttributes lists attribute names whose names and values are never
// selector candidates. Names are compared in lower case.
var ReservedAttributes = []string{
	"action",
	"alt",
	"aria-describedby",
	"aria-hidden",
	"aria-label",
	"aria-labelledby",
	"charset",
	"content",
	"crossorigin",
	"d",
	"height",
	"href",
	"integrity",
	"lang",
	"method",
	"placeholder",
	"rel",
	"src",
	"srcset",
	"style",
	"tabindex",
	"target",
	"title",
	"type",
	"value",
	"viewbox",
	"width",
	"xmlns",
}

// Options configures Extract.
type Options struct {
	// Reserved holds attribute names to ignore entirely, lower case.
	Reserved map[string]struct{}
}

// Option is a functional option for Extract.
type Option func(*Options)

// WithReserved adds attribute names to the reserved set.
func WithReserved(names ...string) Option {
	return func(o *Options) {
		for _, n := range names {
			o.Reserved[strings.ToLower(n)] = struct{}{}
		}
	}
}

// DefaultOptions returns options holding ReservedAttributes.
func DefaultOptions() Options {
	reserved := make(map[string]struct{}, len(ReservedAttributes))
	for _, n := range ReservedAttributes {
		reserved[n] = struct{}{}
	}
	return Options{Reserved: reserved}
}

// Extract returns the selectors found in the attributes of text: ids first,
// each prefixed "#", then classes prefixed ".".
//
// Each attribute is classified by name:
//   - class: the value is split on spaces and every token is trusted
//   - id: the whole value is an id
//   - reserved: ignored
//   - anything else: value tokens and the attribute name itself are kept
//     when they pass the shape filter
func Extract(text string, opts ...Option) []string {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	ids := selector.NewTable()
	classes := selector.NewTable()

	z := html.NewTokenizer(strings.NewReader(text))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF, or input the tokenizer gave up on.
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		_, more := z.TagName()
		for more {
			var key, val []byte
			key, val, more = z.TagAttr()
			scanAttribute(string(key), string(val), options, ids, classes)
		}
	}

	out := make([]string, 0, ids.Len()+classes.Len())
	for _, id := range ids.Tokens() {
		out = append(out, "#"+id)
	}
	for _, class := range classes.Tokens() {
		if strings.HasPrefix(class, ".") {
			out = append(out, class)
			continue
		}
		out = append(out, "."+class)
	}
	return out
}

func scanAttribute(name, value string, options Options, ids, classes *selector.Table) {
	switch name {
	case "class":
		classes.AddAll(selector.SplitSpaces(value), selector.KindClass)
	case "id":
		ids.Add(value, selector.KindID)
	default:
		if _, ok := options.Reserved[name]; ok {
			return
		}
		classes.AddAll(selector.FilterSelectorLike(selector.SplitSpaces(value)), selector.KindClass)
		if selector.IsSelectorLike(name) {
			classes.Add(name, selector.KindClass)
		}
	}
}
