// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/aibor/dylibfix/internal/dylib"
)

const (
	name = "dylibfix"

	usageMessage = `Usage of 'dylibfix':
    dylibfix [flags...] executable

Copies the libraries the executable references into the executable's
directory and changes absolute references to @rpath references. Libraries
below the system prefix are left alone. @rpath references are copied from the
rpath directory.

Exit status is 1 for invalid invocations, 2 if listing or copying libraries
fails and 3 if changing a reference fails.

All dylibfix flags can also be provided via environment variable DYLIBFIX_ARGS:
	DYLIBFIX_ARGS="-rpath-dir=/opt/homebrew/lib -debug" dylibfix ./p-load

All dylibfix flags can also be provided via file ./.dylibfix-args, with one
argument per line.
`
)

type flags struct {
	ExecutablePath  string
	SystemPrefix    string
	RPathDir        string
	Inspector       string
	Otool           string
	InstallNameTool string

	DryRun  bool
	Verbose bool
	Debug   bool
	Version bool
}

func (f *flags) logLevel() slog.Level {
	switch {
	case f.Debug:
		return slog.LevelDebug
	case f.Verbose, f.DryRun:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func (f *flags) resolver() (*dylib.Resolver, error) {
	inspector, err := dylib.NewInspector(f.Inspector, f.Otool)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &dylib.Resolver{
		Classifier: dylib.Classifier{
			SystemPrefix: f.SystemPrefix,
			RPathDir:     f.RPathDir,
		},
		Inspector:    inspector,
		Patcher:      dylib.InstallNameTool{Executable: f.InstallNameTool},
		Materializer: dylib.LibraryCopier{},
		DryRun:       f.DryRun,
	}, nil
}

func newFlagSet(flags *flags, output io.Writer) *flag.FlagSet {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(flagSet.Output(), usageMessage)
		fmt.Fprintln(flagSet.Output(), "\nFlags:")
		flagSet.PrintDefaults()
	}

	flagSet.Var(
		(*FilePath)(&flags.SystemPrefix),
		"system-prefix",
		"references starting with this prefix are system libraries and left alone",
	)

	flagSet.Var(
		(*FilePath)(&flags.RPathDir),
		"rpath-dir",
		"directory @rpath libraries are copied from",
	)

	flagSet.StringVar(
		&flags.Inspector,
		"inspector",
		flags.Inspector,
		"how references are listed: otool, macho (no macOS tools needed)",
	)

	flagSet.StringVar(
		&flags.Otool,
		"otool",
		flags.Otool,
		"otool binary to use",
	)

	flagSet.StringVar(
		&flags.InstallNameTool,
		"install-name-tool",
		flags.InstallNameTool,
		"install_name_tool binary to use",
	)

	flagSet.BoolVar(
		&flags.DryRun,
		"dry-run",
		flags.DryRun,
		"only print what would be done",
	)

	flagSet.BoolVar(
		&flags.Verbose,
		"verbose",
		flags.Verbose,
		"print each copied library and changed reference",
	)

	flagSet.BoolVar(
		&flags.Debug,
		"debug",
		flags.Debug,
		"enable debug output",
	)

	flagSet.BoolVar(
		&flags.Version,
		"version",
		flags.Version,
		"show version and exit",
	)

	return flagSet
}

func parseArgs(args []string, output io.Writer) (*flags, error) {
	flags := &flags{
		SystemPrefix:    dylib.DefaultSystemPrefix,
		RPathDir:        dylib.DefaultRPathDir,
		Inspector:       "otool",
		Otool:           dylib.DefaultOtool,
		InstallNameTool: dylib.DefaultInstallNameTool,
	}

	flagSet := newFlagSet(flags, output)

	// fail fails like flag does. It prints the error first and then usage.
	fail := func(msg string, err error) error {
		err = &ParseArgsError{msg: msg, err: err}
		fmt.Fprintln(flagSet.Output(), err.Error())

		flagSet.Usage()

		return err
	}

	if len(args) > 0 {
		args = args[1:]
	}

	err := flagSet.Parse(args)
	if err != nil {
		if errors.Is(err, ErrHelp) {
			return nil, ErrHelp
		}

		return nil, &ParseArgsError{msg: "flag parse", err: err}
	}

	// Version does not need an executable.
	if flags.Version {
		return flags, nil
	}

	_, err = dylib.NewInspector(flags.Inspector, flags.Otool)
	if err != nil {
		return nil, fail("inspector", err)
	}

	positionalArgs := flagSet.Args()
	if len(positionalArgs) != 1 {
		return nil, fail(
			fmt.Sprintf("expected exactly one executable, got %d arguments",
				len(positionalArgs)),
			nil,
		)
	}

	flags.ExecutablePath, err = AbsoluteFilePath(positionalArgs[0])
	if err != nil {
		return nil, fail("executable path", err)
	}

	return flags, nil
}
