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

import (
	"regexp"
	"strings"
)

// selectorRun matches a maximal run of characters that may appear in a
// utility-style class name: word characters plus - : . / ! [ ].
var selectorRun = regexp.MustCompile(`[\w\-:./!\[\]]+`)

// selectorToken anchors selectorRun to a whole token.
var selectorToken = regexp.MustCompile(`^[\w\-:./!\[\]]+$`)

// IsSelectorLike reports whether token has the shape of a class name.
//
// A token passes when it consists only of word characters and - : . / ! [ ]
// and does not end in ":". This accepts variant-prefixed utilities such as
// "hover:bg-blue-500", fractions such as "w-1/2" and arbitrary values such
// as "![color:red]", while rejecting a dangling "hover:".
func IsSelectorLike(token string) bool {
	if token == "" || strings.HasSuffix(token, ":") {
		return false
	}
	return selectorToken.MatchString(token)
}

// FindSelectorLike returns every selector-like run in text, in order.
//
// Runs ending in ":" are shortened to their longest prefix that does not;
// runs made only of colons are dropped.
func FindSelectorLike(text string) []string {
	runs := selectorRun.FindAllString(text, -1)
	out := make([]string, 0, len(runs))
	for _, run := range runs {
		run = strings.TrimRight(run, ":")
		if run != "" {
			out = append(out, run)
		}
	}
	return out
}

// SplitSpaces splits s on single space characters and drops empty tokens.
//
// Unlike strings.Fields, tabs and newlines stay inside tokens; this matches
// how class attribute values and script string literals are tokenized.
func SplitSpaces(s string) []string {
	parts := strings.Split(s, " ")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FilterSelectorLike returns the tokens that pass IsSelectorLike.
func FilterSelectorLike(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if IsSelectorLike(tok) {
			out = append(out, tok)
		}
	}
	return out
}
