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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/safelist/cmd/safelist/config"
	"github.com/AleutianAI/safelist/pkg/extract"
	"github.com/AleutianAI/safelist/pkg/ux"
)

type extractFlags struct {
	mode        string
	format      string
	output      string
	concurrency int
	perFile     bool
	failFast    bool
	noCache     bool
}

// extractCmd extracts a safelist once.
//
// # Examples
//
//	safelist extract                      # Use include roots from safelist.yaml
//	safelist extract src/ index.html      # Explicit roots
//	safelist extract --format json -o safelist.json
//	safelist extract --mode regex         # Structure-blind extraction
//
// # Exit Codes
//
//	0 - Success
//	1 - A file failed to parse and --fail-fast was set
//	2 - Extraction failed
func (a *app) extractCmd() *cobra.Command {
	f := &extractFlags{}
	cmd := &cobra.Command{
		Use:   "extract [paths...]",
		Short: "Extract selectors from files and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd, f, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.mode, "mode", "", "extraction mode: auto or regex")
	flags.StringVarP(&f.format, "format", "f", "", "output format: text, json or yaml")
	flags.StringVarP(&f.output, "output", "o", "", "output file (default stdout)")
	flags.IntVar(&f.concurrency, "concurrency", 0, "files extracted in parallel (0 = GOMAXPROCS)")
	flags.BoolVar(&f.perFile, "per-file", false, "report selectors per file")
	flags.BoolVar(&f.failFast, "fail-fast", false, "stop at the first parse error instead of falling back to regex")
	flags.BoolVar(&f.noCache, "no-cache", false, "bypass the result cache")
	return cmd
}

// applyExtractFlags folds explicitly set flags into the loaded config.
func (a *app) applyExtractFlags(cmd *cobra.Command, f *extractFlags) error {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		a.cfg.Extract.Mode = f.mode
	}
	if flags.Changed("format") {
		a.cfg.Output.Format = f.format
	}
	if flags.Changed("output") {
		a.cfg.Output.Path = f.output
	}
	if flags.Changed("concurrency") {
		a.cfg.Extract.Concurrency = f.concurrency
	}
	if flags.Changed("fail-fast") {
		a.cfg.Extract.FailFast = f.failFast
	}
	if f.noCache {
		a.cfg.Cache.Enabled = false
	}
	return config.Validate(a.cfg)
}

func (a *app) runExtract(cmd *cobra.Command, f *extractFlags, args []string) error {
	if err := a.applyExtractFlags(cmd, f); err != nil {
		return err
	}
	ctx := cmd.Context()

	ex, overrides, closeCache, err := a.buildExtractor()
	if err != nil {
		return err
	}
	defer closeCache()

	files, err := extract.Discover(a.roots(args), a.cfg.Ignore, overrides)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errNoFiles
	}
	a.logger.Debug("discovered files", "count", len(files))

	results, err := ex.ExtractFiles(ctx, files, a.cfg.Extract.Concurrency)
	if err != nil {
		return err
	}

	fallbacks := reportFailures(results)
	selectors := extract.Merge(results)

	var perFile []*extract.Result
	if f.perFile {
		perFile = results
	}
	data, err := render(a.cfg.Output.Format, selectors, perFile)
	if err != nil {
		return err
	}
	if err := writeOutput(a.stdout, a.cfg.Output.Path, data); err != nil {
		return err
	}

	a.logger.Info("extraction complete",
		"files", len(files),
		"selectors", len(selectors),
		"fallbacks", fallbacks,
	)
	if a.cfg.Output.Path != "" && a.cfg.Output.Path != "-" {
		ux.Success(fmt.Sprintf("wrote %d selectors to %s", len(selectors), a.cfg.Output.Path))
	}
	ux.Summary(len(files), len(selectors), fallbacks)
	return nil
}

// reportFailures prints a status line per failed file and returns how many
// fell back to regex extraction.
func reportFailures(results []*extract.Result) int {
	fallbacks := 0
	for _, r := range extract.Failed(results) {
		if r.Fallback {
			fallbacks++
			ux.FileStatus(r.Path, ux.IconWarning, "regex fallback: "+r.Err.Error())
			continue
		}
		ux.FileStatus(r.Path, ux.IconError, r.Err.Error())
	}
	return fallbacks
}
