// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_Attributes(t *testing.T) {
	got := Extract(`<div class="a b" id="x" data-foo="c d" aria-hidden="true">`)
	assert.ElementsMatch(t, []string{"#x", ".a", ".b", ".c", ".d", ".data-foo"}, got)
	assert.Equal(t, "#x", got[0], "ids come first")
}

func TestExtract_ClassesAreTrusted(t *testing.T) {
	got := Extract(`<span class="hover: {weird} .pre"></span>`)
	assert.Equal(t, []string{".hover:", ".{weird}", ".pre"}, got)
}

func TestExtract_GenericAttributeFilter(t *testing.T) {
	got := Extract(`<button data-state="open hover:" x-on:click="go()">`)
	assert.ElementsMatch(t, []string{".open", ".data-state", ".x-on:click"}, got)
}

func TestExtract_Reserved(t *testing.T) {
	t.Run("default list", func(t *testing.T) {
		got := Extract(`<a href="/docs" title="Read more" class="link">`)
		assert.Equal(t, []string{".link"}, got)
	})

	t.Run("extended list", func(t *testing.T) {
		src := `<div role="dialog" class="modal">`
		assert.ElementsMatch(t, []string{".modal", ".role", ".dialog"}, Extract(src))
		assert.Equal(t, []string{".modal"}, Extract(src, WithReserved("ROLE")))
	})
}

func TestExtract_Ids(t *testing.T) {
	got := Extract(`<p id="one"></p><p id="two"/><p id=""></p><p id="one"></p>`)
	assert.Equal(t, []string{"#one", "#two"}, got)
}

func TestExtract_Malformed(t *testing.T) {
	got := Extract(`<div class="a"></span></p><p class=b>text</div><li class="c"`)
	assert.Equal(t, []string{".a", ".b"}, got, "unterminated trailing tag is dropped")
}

func TestExtract_Empty(t *testing.T) {
	assert.Empty(t, Extract(""))
	assert.Empty(t, Extract("just text, no tags"))
}

func TestExtract_Idempotent(t *testing.T) {
	src := `<main id="m" class="x y"><input data-a="b" /></main>`
	assert.Equal(t, Extract(src), Extract(src))
}
