// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for extraction.
var (
	tracer = otel.Tracer("safelist.extract")
	meter  = otel.Meter("safelist.extract")
)

// Metrics for extraction operations.
var (
	extractLatency     metric.Float64Histogram
	extractTotal       metric.Int64Counter
	selectorsExtracted metric.Int64Histogram
	extractFailures    metric.Int64Counter
	cacheHits          metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		extractLatency, err = meter.Float64Histogram(
			"safelist_extract_duration_seconds",
			metric.WithDescription("Duration of per-file selector extraction"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		extractTotal, err = meter.Int64Counter(
			"safelist_extract_total",
			metric.WithDescription("Total number of files extracted"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		selectorsExtracted, err = meter.Int64Histogram(
			"safelist_selectors_extracted",
			metric.WithDescription("Number of selectors extracted per file"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		extractFailures, err = meter.Int64Counter(
			"safelist_extract_failures_total",
			metric.WithDescription("Files whose structured extraction failed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheHits, err = meter.Int64Counter(
			"safelist_cache_hits_total",
			metric.WithDescription("Files served from the result cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordExtractMetrics records one file extraction. A fallback counts as
// a failure of the structured extractor even though selectors were
// produced.
func recordExtractMetrics(ctx context.Context, kind Kind, duration time.Duration, result *Result, failed bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("kind", kind.String()),
		attribute.Bool("success", !failed),
	)

	extractLatency.Record(ctx, duration.Seconds(), attrs)
	extractTotal.Add(ctx, 1, attrs)

	kindAttr := metric.WithAttributes(attribute.String("kind", kind.String()))
	if failed {
		extractFailures.Add(ctx, 1, kindAttr)
	}
	if result == nil {
		return
	}
	selectorsExtracted.Record(ctx, int64(len(result.Selectors)), kindAttr)
	if result.Cached {
		cacheHits.Add(ctx, 1, kindAttr)
	}
}

// startExtractSpan creates a span for one file. The caller must End it.
func startExtractSpan(ctx context.Context, kind Kind, path string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Extractor.Extract",
		trace.WithAttributes(
			attribute.String("extract.kind", kind.String()),
			attribute.String("extract.file", path),
			attribute.Int("extract.content_size", contentSize),
		),
	)
}

// setExtractSpanResult sets the result attributes on an extraction span.
func setExtractSpanResult(span trace.Span, result *Result) {
	span.SetAttributes(
		attribute.Int("extract.selector_count", len(result.Selectors)),
		attribute.Bool("extract.cached", result.Cached),
		attribute.Bool("extract.fallback", result.Fallback),
	)
}
