// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// EnvVarName is the environment variable dylibfix arguments are read from.
const EnvVarName = "DYLIBFIX_ARGS"

// EnvArgs returns dylibfix arguments from the environment.
func EnvArgs() []string {
	return strings.Fields(os.Getenv(EnvVarName))
}

// LocalConfigArgs returns dylibfix arguments from a local config file.
//
// The file's format is one argument per line. Environment variables may be used
// and are expanded with [os.ExpandEnv].
func LocalConfigArgs(fsys fs.FS, file string) ([]string, error) {
	conf, err := fs.ReadFile(fsys, file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read file: %w", err)
	}

	args := []string{}

	expandedConf := os.ExpandEnv(string(conf))
	for line := range strings.SplitSeq(expandedConf, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			args = append(args, line)
		}
	}

	return args, nil
}

// MergedArgs returns the program name followed by the arguments from the
// local config file, the environment and the command line, in that order.
// Later flags override earlier ones.
func MergedArgs(args []string, fsys fs.FS, configFile string) ([]string, error) {
	if len(args) == 0 {
		return nil, nil
	}

	configArgs, err := LocalConfigArgs(fsys, configFile)
	if err != nil {
		return nil, fmt.Errorf("local config: %w", err)
	}

	merged := make([]string, 0, len(args)+len(configArgs))
	merged = append(merged, args[0])
	merged = append(merged, configArgs...)
	merged = append(merged, EnvArgs()...)
	merged = append(merged, args[1:]...)

	return merged, nil
}
