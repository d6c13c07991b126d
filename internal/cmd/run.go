// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/aibor/dylibfix/internal/dylib"
	"github.com/aibor/dylibfix/internal/exitcode"
)

const localConfigFile = ".dylibfix-args"

// IO provides output details for the command.
type IO struct {
	Stdout io.Writer
	Stderr io.Writer
}

func newFlags(args []string, cfg IO) (*flags, error) {
	args, err := MergedArgs(args, os.DirFS("."), localConfigFile)
	if err != nil {
		return nil, err
	}

	flags, err := parseArgs(args, cfg.Stderr)
	if err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	return flags, nil
}

func run(ctx context.Context, flags *flags) error {
	resolver, err := flags.resolver()
	if err != nil {
		return &exitcode.Error{Code: exitcode.Usage, Err: err}
	}

	slog.Debug("Resolver",
		slog.String("executable", flags.ExecutablePath),
		slog.String("system_prefix", resolver.Classifier.SystemPrefix),
		slog.String("rpath_dir", resolver.Classifier.RPathDir),
		slog.Bool("dry_run", resolver.DryRun))

	report, err := resolver.Run(ctx, flags.ExecutablePath)
	if err != nil {
		code := exitcode.Failure
		if errors.Is(err, &dylib.PatchError{}) {
			code = exitcode.PatchFailure
		}

		return &exitcode.Error{Code: code, Err: err}
	}

	slog.Info("Done",
		slog.String("executable", flags.ExecutablePath),
		slog.Int("system", report.Count(dylib.System)),
		slog.Int("rpath", report.Count(dylib.RPath)),
		slog.Int("direct", report.Count(dylib.Direct)),
		slog.Int("rewritten", report.Rewritten()))

	return nil
}

func handleParseArgsError(err error) int {
	// [ErrHelp] is returned when help is requested. So exit without error
	// in this case.
	if errors.Is(err, ErrHelp) {
		return int(exitcode.Success)
	}

	// ParseArgs already prints errors, so we just exit without an error.
	if !errors.Is(err, &ParseArgsError{}) {
		slog.Error(err.Error())
	}

	return int(exitcode.Usage)
}

func handleRunError(err error) int {
	if err == nil {
		return int(exitcode.Success)
	}

	code := exitcode.From(err)

	slog.Error(err.Error(), slog.String("exit_status", code.String()))

	return int(code)
}

// Run is the main entry point for the CLI command. It returns the exit status.
func Run(ctx context.Context, args []string, cfg IO) int {
	setupLogging(cfg.Stderr, slog.LevelWarn)

	flags, err := newFlags(args, cfg)
	if err != nil {
		return handleParseArgsError(err)
	}

	setupLogging(cfg.Stderr, flags.logLevel())

	if flags.Version {
		buildInfo, err := getBuildInfo()
		if err != nil {
			slog.Error(err.Error())
			return int(exitcode.Failure)
		}

		fmt.Fprintf(cfg.Stdout, "Version: %s\n", buildInfo.Main.Version)

		return int(exitcode.Success)
	}

	return handleRunError(run(ctx, flags))
}

func getBuildInfo() (*debug.BuildInfo, error) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, ErrReadBuildInfo
	}

	return buildInfo, nil
}
