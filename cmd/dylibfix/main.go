// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Command dylibfix prepares a macOS executable for distribution.
//
// It copies the shared libraries the executable references into the
// executable's directory and changes absolute references to "@rpath/"
// references. Do not run it more than once at a time for the same executable.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aibor/dylibfix/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	exitCode := cmd.Run(ctx, os.Args, cmd.IO{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})

	stop()
	os.Exit(exitCode)
}
