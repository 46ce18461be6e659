// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/safelist/pkg/extract"
	"github.com/AleutianAI/safelist/pkg/telemetry"
	"github.com/AleutianAI/safelist/pkg/ux"
	"github.com/AleutianAI/safelist/pkg/watch"
)

type watchFlags struct {
	extractFlags
	debounce string
}

// watchCmd keeps the safelist current while files change.
//
// The full set is extracted once, then every debounced batch of changes
// re-extracts only the changed files and rewrites the output when the
// merged selector set differs. With --metrics-addr the Prometheus
// exporter is enabled and served at /metrics.
func (a *app) watchCmd() *cobra.Command {
	f := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-extract selectors whenever source files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, f, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.mode, "mode", "", "extraction mode: auto or regex")
	flags.StringVarP(&f.format, "format", "f", "", "output format: text, json or yaml")
	flags.StringVarP(&f.output, "output", "o", "", "output file (default stdout)")
	flags.IntVar(&f.concurrency, "concurrency", 0, "files extracted in parallel (0 = GOMAXPROCS)")
	flags.BoolVar(&f.failFast, "fail-fast", false, "stop watching at the first parse error")
	flags.BoolVar(&f.noCache, "no-cache", false, "bypass the result cache")
	flags.StringVar(&f.debounce, "debounce", "", "quiet period before re-extracting, e.g. 300ms")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, f *watchFlags, args []string) error {
	if cmd.Flags().Changed("debounce") {
		d, err := parseDuration(f.debounce)
		if err != nil {
			return fmt.Errorf("--debounce: %w", err)
		}
		a.cfg.Watch.Debounce = d
	}
	if err := a.applyExtractFlags(cmd, &f.extractFlags); err != nil {
		return err
	}

	ctx, cancel := context.WithCancelCause(cmd.Context())
	defer cancel(nil)

	ex, overrides, closeCache, err := a.buildExtractor()
	if err != nil {
		return err
	}
	defer closeCache()

	roots := a.roots(args)
	files, err := extract.Discover(roots, a.cfg.Ignore, overrides)
	if err != nil {
		return err
	}

	index := watch.NewIndex(ex, a.logger)
	if err := index.Load(ctx, files, a.cfg.Extract.Concurrency); err != nil {
		return err
	}
	emit := func() error {
		data, err := render(a.cfg.Output.Format, index.Selectors(), nil)
		if err != nil {
			return err
		}
		return writeOutput(a.stdout, a.cfg.Output.Path, data)
	}
	if err := emit(); err != nil {
		return err
	}
	ux.Summary(index.Len(), len(index.Selectors()), 0)

	if addr := a.cfg.Watch.MetricsAddr; addr != "" {
		go func() {
			if err := telemetry.Serve(ctx, addr); err != nil {
				a.logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		ux.Info("serving metrics at http://" + addr + "/metrics")
	}

	handler := func(changes []watch.Change) {
		changed, err := index.Apply(ctx, changes)
		if err != nil {
			cancel(err)
			return
		}
		a.logger.Debug("applied changes", "changes", len(changes), "changed", changed)
		if !changed {
			return
		}
		if err := emit(); err != nil {
			cancel(err)
			return
		}
		ux.Info(fmt.Sprintf("%d changed files, %d selectors", len(changes), len(index.Selectors())))
	}

	w, err := watch.New(roots, handler, &watch.Options{
		Debounce:       a.cfg.Watch.Debounce,
		IgnorePatterns: a.cfg.Ignore,
		Overrides:      overrides,
		Logger:         a.logger,
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	ux.Info(fmt.Sprintf("watching %d roots, press Ctrl+C to stop", len(roots)))

	<-ctx.Done()
	w.Stop()

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// parseDuration accepts Go duration syntax and bare milliseconds.
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	ms, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
