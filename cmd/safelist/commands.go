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
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/safelist/cmd/safelist/config"
	"github.com/AleutianAI/safelist/pkg/cache"
	"github.com/AleutianAI/safelist/pkg/extract"
	"github.com/AleutianAI/safelist/pkg/logging"
	"github.com/AleutianAI/safelist/pkg/selector"
	"github.com/AleutianAI/safelist/pkg/telemetry"
	"github.com/AleutianAI/safelist/pkg/ux"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // A file could not be parsed and fail-fast was set
	CLIExitError    = 2 // Operation failed
)

// annotationSkipConfig marks commands that run without loading a config.
const annotationSkipConfig = "safelist/skip-config"

// app carries the state shared by every command of one invocation.
type app struct {
	// Global flags
	configPath string
	logLevel   string
	uiMode     string

	// metricsAddr is set by the watch command's flag before setup runs.
	metricsAddr string

	cfg      config.SafelistConfig
	logger   *logging.Logger
	shutdown func(context.Context) error
	stdout   io.Writer
}

// execute runs the CLI with args and returns the process exit code.
func execute(ctx context.Context, args []string, stdout io.Writer) int {
	a := &app{stdout: stdout, logger: logging.Nop()}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)

	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		ux.Error(err.Error())
		return exitCode(err)
	}
	return CLIExitSuccess
}

func exitCode(err error) int {
	if selector.IsParseError(err) {
		return CLIExitFindings
	}
	return CLIExitError
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "safelist",
		Short: "Extract CSS selectors from markup, script and component templates",
		Long: `safelist scans source files for the class names, ids and attribute
tokens they reference and writes them as a CSS safelist.

Each file is handled by the extractor for its kind: plain markup, scripts,
TypeScript, component templates, or a structure-blind regex fallback.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default ./"+config.FileName+")")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&a.uiMode, "ui", "", "status output: full, minimal or machine")

	root.AddCommand(
		a.extractCmd(),
		a.watchCmd(),
		a.initCmd(),
	)
	return root
}

// setup loads configuration and initializes logging and telemetry.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.uiMode != "" {
		ux.SetMode(ux.ParseMode(a.uiMode))
	} else {
		ux.InitMode()
	}

	if cmd.Annotations[annotationSkipConfig] == "true" {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.metricsAddr != "" {
		cfg.Watch.MetricsAddr = a.metricsAddr
	}
	if cmd.Name() == "watch" && cfg.Watch.MetricsAddr != "" {
		cfg.Telemetry.MetricExporter = "prometheus"
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "safelist",
		JSON:    cfg.Logging.JSON,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdown = shutdown
	a.cfg = cfg
	return nil
}

// close flushes telemetry and closes the logger.
func (a *app) close() {
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", "error", err)
		}
		a.shutdown = nil
	}
	_ = a.logger.Close()
}

// buildExtractor configures an Extractor from the loaded config. The
// returned closer releases the cache, if one was opened.
func (a *app) buildExtractor() (*extract.Extractor, map[string]extract.Kind, func() error, error) {
	cfg := a.cfg
	overrides, err := extract.ParseOverrides(cfg.Extract.Extensions)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []extract.Option{
		extract.WithMaxFileSize(cfg.Extract.MaxFileSize),
		extract.WithReserved(cfg.Extract.Reserved...),
		extract.WithOverrides(overrides),
		extract.WithForceRegex(cfg.Extract.Mode == "regex"),
		extract.WithFailFast(cfg.Extract.FailFast),
		extract.WithInlineScripts(cfg.Extract.InlineScripts),
		extract.WithLogger(a.logger),
	}

	closer := func() error { return nil }
	if cfg.Cache.Enabled {
		store, err := cache.Open(cache.Config{
			Path:           cfg.Cache.Dir,
			TTL:            cfg.Cache.TTL,
			GCInterval:     5 * time.Minute,
			GCDiscardRatio: 0.5,
			Logger:         a.logger,
		})
		if err != nil {
			a.logger.Warn("cache unavailable, continuing without it", "dir", cfg.Cache.Dir, "error", err)
		} else {
			opts = append(opts, extract.WithCache(store))
			closer = store.Close
		}
	}

	return extract.NewExtractor(opts...), overrides, closer, nil
}

// roots returns args, or the configured include list when args is empty.
func (a *app) roots(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return a.cfg.Include
}

// errNoFiles is returned when discovery finds nothing to extract.
var errNoFiles = errors.New("no matching files found")
