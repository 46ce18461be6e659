// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract applies the selector extractors to files.
//
// It picks an extractor by file extension, validates content, consults an
// optional result cache, falls back to regex extraction when a structured
// extractor rejects its input, and records telemetry for every file.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/safelist/pkg/logging"
	"github.com/AleutianAI/safelist/pkg/parse"
	"github.com/AleutianAI/safelist/pkg/selector"
	"github.com/AleutianAI/safelist/pkg/selector/markup"
	"github.com/AleutianAI/safelist/pkg/selector/script"
	"github.com/AleutianAI/safelist/pkg/selector/template"
)

// Cache stores extraction results by content key.
//
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the selectors stored under key and whether they exist.
	Get(key string) ([]string, bool, error)

	// Put stores selectors under key.
	Put(key string, selectors []string) error
}

// Result is the outcome of extracting one file.
type Result struct {
	// Path is the file path as given to the extractor.
	Path string `json:"path" yaml:"path"`

	// Kind is the extractor that ran.
	Kind Kind `json:"kind" yaml:"kind"`

	// Selectors are the extracted selectors in first-seen order.
	Selectors []string `json:"selectors" yaml:"selectors"`

	// Cached is true when Selectors came from the cache.
	Cached bool `json:"cached,omitempty" yaml:"cached,omitempty"`

	// Fallback is true when the structured extractor failed and Selectors
	// came from regex extraction.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`

	// Err is the structured extractor's error when Fallback is true, or
	// the file's failure when ExtractFiles kept going past it.
	Err error `json:"-" yaml:"-"`
}

// Options configures an Extractor.
type Options struct {
	// MaxFileSize is the largest content accepted, in bytes.
	// Default: 10MB
	MaxFileSize int

	// Reserved extends the markup scanner's reserved attribute list.
	Reserved []string

	// Overrides maps extensions to kinds ahead of DefaultExtensions.
	Overrides map[string]Kind

	// Cache is consulted before extraction and filled after. Optional.
	Cache Cache

	// ForceRegex runs regex extraction for every file.
	ForceRegex bool

	// FailFast makes parse errors fatal instead of falling back to regex.
	FailFast bool

	// InlineScripts feeds <script> blocks of markup files to the script
	// extractor. Default: true
	InlineScripts bool

	// Logger receives per-file diagnostics. Default: logging.Nop()
	Logger *logging.Logger
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:   10 * 1024 * 1024, // 10MB
		InlineScripts: true,
	}
}

// Option is a functional option for configuring an Extractor.
type Option func(*Options)

// WithMaxFileSize sets the maximum content size.
func WithMaxFileSize(size int) Option {
	return func(o *Options) {
		o.MaxFileSize = size
	}
}

// WithReserved adds reserved markup attribute names.
func WithReserved(names ...string) Option {
	return func(o *Options) {
		o.Reserved = append(o.Reserved, names...)
	}
}

// WithOverrides sets extension to kind overrides.
func WithOverrides(overrides map[string]Kind) Option {
	return func(o *Options) {
		o.Overrides = overrides
	}
}

// WithCache sets the result cache.
func WithCache(c Cache) Option {
	return func(o *Options) {
		o.Cache = c
	}
}

// WithForceRegex forces regex extraction for every file.
func WithForceRegex(force bool) Option {
	return func(o *Options) {
		o.ForceRegex = force
	}
}

// WithFailFast makes parse errors fatal.
func WithFailFast(failFast bool) Option {
	return func(o *Options) {
		o.FailFast = failFast
	}
}

// WithInlineScripts sets whether markup <script> blocks are extracted.
func WithInlineScripts(enabled bool) Option {
	return func(o *Options) {
		o.InlineScripts = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Extractor runs the selector extractors over files.
//
// Thread Safety:
//
//	Extractor is safe for concurrent use when its Cache is.
type Extractor struct {
	options Options
	logger  *logging.Logger

	// markupVariant folds the markup-affecting options into cache keys.
	markupVariant string
}

// NewExtractor creates an Extractor with the given options.
//
// Example:
//
//	ex := extract.NewExtractor(
//	    extract.WithCache(store),
//	    extract.WithReserved("role"),
//	)
//	result, err := ex.Extract(ctx, "src/App.svelte", content)
func NewExtractor(opts ...Option) *Extractor {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Extractor{
		options:       options,
		logger:        logger,
		markupVariant: markupVariant(options),
	}
}

func markupVariant(o Options) string {
	reserved := make([]string, 0, len(o.Reserved))
	for _, name := range o.Reserved {
		reserved = append(reserved, strings.ToLower(name))
	}
	sort.Strings(reserved)
	return fmt.Sprintf("inline=%t;reserved=%s", o.InlineScripts, strings.Join(reserved, ","))
}

// variant returns the option fingerprint that affects kind's output.
func (e *Extractor) variant(kind Kind) string {
	if kind == KindMarkup {
		return e.markupVariant
	}
	return ""
}

// Kind returns the kind the extractor will use for path.
func (e *Extractor) Kind(path string) Kind {
	if e.options.ForceRegex {
		return KindRegex
	}
	return DetectKind(path, e.options.Overrides)
}

// FailFast reports whether parse errors are fatal.
func (e *Extractor) FailFast() bool {
	return e.options.FailFast
}

// Extract returns the selectors of one file.
//
// Description:
//
//	The extractor is chosen by Kind(path). When it rejects the content
//	with a *selector.ParseError, the file falls back to regex extraction
//	and the error is kept in Result.Err, unless FailFast is set.
//
// Inputs:
//
//	ctx     - Context for cancellation.
//	path    - File path, used for kind detection and diagnostics.
//	content - Raw file bytes. Must be valid UTF-8.
//
// Outputs:
//
//	*Result - Never nil on success.
//	error   - ErrFileTooLarge, ErrInvalidContent, a context error, or a
//	          *selector.ParseError when FailFast is set.
func (e *Extractor) Extract(ctx context.Context, path string, content []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract canceled before start: %w", err)
	}
	if e.options.MaxFileSize > 0 && len(content) > e.options.MaxFileSize {
		return nil, fmt.Errorf("%s: %w", path, ErrFileTooLarge)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidContent)
	}

	kind := e.Kind(path)
	ctx, span := startExtractSpan(ctx, kind, path, len(content))
	defer span.End()
	start := time.Now()

	logger := e.logger.With("path", path, "kind", kind.String())
	result := &Result{Path: path, Kind: kind}

	key := CacheKey(kind, e.variant(kind), content)
	if e.options.Cache != nil {
		cached, ok, err := e.options.Cache.Get(key)
		switch {
		case err != nil:
			logger.Warn("cache read failed", "error", err)
		case ok:
			result.Selectors = cached
			result.Cached = true
			logger.Debug("cache hit", "selectors", len(cached))
			setExtractSpanResult(span, result)
			recordExtractMetrics(ctx, kind, time.Since(start), result, false)
			return result, nil
		}
	}

	selectors, err := e.run(ctx, kind, path, content)
	if err != nil {
		if !selector.IsParseError(err) || e.options.FailFast {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			recordExtractMetrics(ctx, kind, time.Since(start), nil, true)
			return nil, err
		}
		logger.Warn("falling back to regex extraction", "error", err)
		selectors = selector.ExtractWithRegex(string(content))
		result.Fallback = true
		result.Err = err
	}
	result.Selectors = selectors

	if e.options.Cache != nil && !result.Fallback {
		if err := e.options.Cache.Put(key, selectors); err != nil {
			logger.Warn("cache write failed", "error", err)
		}
	}

	logger.Debug("extracted", "selectors", len(selectors), "fallback", result.Fallback)
	setExtractSpanResult(span, result)
	recordExtractMetrics(ctx, kind, time.Since(start), result, result.Fallback)
	return result, nil
}

func (e *Extractor) run(ctx context.Context, kind Kind, path string, content []byte) ([]string, error) {
	text := string(content)
	switch kind {
	case KindMarkup:
		out := markup.Extract(text, markup.WithReserved(e.options.Reserved...))
		if !e.options.InlineScripts {
			return out, nil
		}
		scripts, err := e.inlineScripts(ctx, path, content)
		if err != nil {
			return nil, err
		}
		return appendUnique(out, scripts...), nil
	case KindScript:
		return script.Extract(ctx, text, script.WithFilePath(path))
	case KindTypeScript:
		return script.Extract(ctx, text, script.WithFilePath(path), script.WithTypeScript())
	case KindTSX:
		return script.Extract(ctx, text, script.WithFilePath(path), script.WithTSX())
	case KindTemplate:
		return template.Extract(ctx, text, path)
	default:
		return selector.ExtractWithRegex(text), nil
	}
}

// inlineScripts extracts the string literals of every inline JavaScript
// <script> block in an HTML document. A block that does not parse is
// skipped with a warning.
func (e *Extractor) inlineScripts(ctx context.Context, path string, content []byte) ([]string, error) {
	tree, err := parse.Tree(ctx, html.GetLanguage(), content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []string
	for _, body := range scriptBodies(tree.RootNode(), content) {
		selectors, err := script.Extract(ctx, body, script.WithFilePath(path))
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			e.logger.Warn("skipping inline script", "path", path, "error", err)
			continue
		}
		out = appendUnique(out, selectors...)
	}
	return out, nil
}

// scriptBodies returns the text of every inline <script> whose type is
// JavaScript. External scripts have no body and are skipped.
func scriptBodies(n *sitter.Node, content []byte) []string {
	var out []string
	if n.Type() == htmlNodeScriptElement {
		var body string
		isJS := true
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			switch child.Type() {
			case htmlNodeStartTag:
				isJS = isJavaScriptType(scriptType(child, content))
			case htmlNodeRawText:
				body = parse.Text(child, content)
			}
		}
		if isJS && strings.TrimSpace(body) != "" {
			out = append(out, body)
		}
		return out
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, scriptBodies(n.Child(i), content)...)
	}
	return out
}

// scriptType returns the value of a start tag's type attribute.
func scriptType(tag *sitter.Node, content []byte) string {
	for i := 0; i < int(tag.ChildCount()); i++ {
		child := tag.Child(i)
		if child.Type() != htmlNodeAttribute {
			continue
		}
		name, value := attributeNameValue(child, content)
		if strings.EqualFold(name, "type") {
			return value
		}
	}
	return ""
}

func attributeNameValue(n *sitter.Node, content []byte) (name, value string) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case htmlNodeAttributeName:
			name = parse.Text(child, content)
		case htmlNodeQuotedAttributeValue:
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				if gc.Type() == htmlNodeAttributeValue {
					value = parse.Text(gc, content)
				}
			}
		case htmlNodeAttributeValue:
			value = parse.Text(child, content)
		}
	}
	return name, value
}

func isJavaScriptType(t string) bool {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "module", "text/javascript", "application/javascript":
		return true
	default:
		return false
	}
}

// CacheKey returns the cache key of content extracted as kind. variant
// carries any extractor options that change the output for that kind.
func CacheKey(kind Kind, variant string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(kind.String()))
	h.Write([]byte{0})
	h.Write([]byte(variant))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func appendUnique(dst []string, src ...string) []string {
	seen := make(map[string]struct{}, len(dst)+len(src))
	for _, s := range dst {
		seen[s] = struct{}{}
	}
	for _, s := range src {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		dst = append(dst, s)
	}
	return dst
}
