// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dylib

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultOtool is the otool executable used if none is set.
const DefaultOtool = "otool"

// Inspector lists the library references of an executable.
type Inspector interface {
	ListDependencies(ctx context.Context, path string) ([]string, error)
}

// Otool is an [Inspector] that invokes "otool -L".
type Otool struct {
	// Executable is the otool binary. [DefaultOtool] is used if empty.
	Executable string
}

// ListDependencies returns the library references of the file with the given
// path in the order otool prints them.
//
// If the file is a dylib, its own install name as printed by "otool -D" is
// not a dependency and is left out.
//
// It returns an [InspectionError] in case otool is not available or returned
// with a non-zero exit code.
func (o Otool) ListDependencies(ctx context.Context, file string) ([]string, error) {
	var names installNames

	err := o.run(ctx, "-D", file, func(r io.Reader) error {
		return names.parseFrom(r, file)
	})
	if err != nil {
		return nil, err
	}

	var entries otoolEntries

	err = o.run(ctx, "-L", file, entries.parseFrom)
	if err != nil {
		return nil, err
	}

	return entries.dependencies(names), nil
}

// run runs otool with the given flag on the file. Its output is passed to
// parse while otool is still running.
func (o Otool) run(
	ctx context.Context,
	flag string,
	file string,
	parse func(io.Reader) error,
) error {
	var (
		stderrBuf  bytes.Buffer
		parseGroup errgroup.Group
	)

	executable := o.Executable
	if executable == "" {
		executable = DefaultOtool
	}

	outR, outW := io.Pipe()

	cmd := exec.CommandContext(ctx, executable, flag, file)
	cmd.Stdout = outW
	cmd.Stderr = &stderrBuf

	parseGroup.Go(func() error {
		err := parse(outR)
		// Keep reading so otool never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, outR)

		return err
	})

	err := cmd.Run()
	_ = outW.CloseWithError(err)
	parseErr := parseGroup.Wait()

	if err != nil {
		return &InspectionError{
			Path:   file,
			Err:    err,
			Stderr: strings.TrimSpace(stderrBuf.String()),
		}
	}

	if parseErr != nil {
		return &InspectionError{
			Path: file,
			Err:  fmt.Errorf("parse otool %s output: %w", flag, parseErr),
		}
	}

	return nil
}

// installNames are the LC_ID_DYLIB names of a file, one per architecture.
type installNames map[string]bool

// parseFrom takes "otool -D" output of the given file. Every line that does
// not name the file itself is an install name.
func (n *installNames) parseFrom(output io.Reader, file string) error {
	if *n == nil {
		*n = make(installNames)
	}

	scanner := bufio.NewScanner(output)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "",
			line == file+":",
			strings.HasPrefix(line, file+" (architecture "),
			strings.HasPrefix(line, file+": "):
			continue
		}

		(*n)[line] = true
	}

	return scanner.Err() //nolint:wrapcheck
}

type otoolEntries []otoolEntry

// parseFrom takes otool output and adds an [otoolEntry] for each line.
func (l *otoolEntries) parseFrom(output io.Reader) error {
	scanner := bufio.NewScanner(output)
	for scanner.Scan() {
		var entry otoolEntry

		entry.parseFrom(scanner.Text())

		*l = append(*l, entry)
	}

	return scanner.Err() //nolint:wrapcheck
}

// dependencies returns the deduplicated references in the order they are
// listed.
//
// Header lines are skipped. Universal binaries have one header per
// architecture. otool prints the install name of a dylib as first entry
// after the header, so it is skipped if it is one of the given names.
func (l *otoolEntries) dependencies(self installNames) []string {
	var (
		refs        []string
		seen        = make(map[string]bool)
		afterHeader bool
	)

	for _, e := range *l {
		if e.header {
			afterHeader = true
			continue
		}

		if e.ref == "" {
			continue
		}

		isID := afterHeader && self[e.ref]
		afterHeader = false

		if isID || seen[e.ref] {
			continue
		}

		seen[e.ref] = true
		refs = append(refs, e.ref)
	}

	return refs
}

type otoolEntry struct {
	header bool
	ref    string
}

// parseFrom parses a single line of "otool -L" output.
func (e *otoolEntry) parseFrom(line string) {
	// Lines of references are indented with a tab:
	// "\t@rpath/libusb-1.0.0.dylib (compatibility version 6.0.0, ...)"
	// Everything else names the inspected file (and architecture).
	if !strings.HasPrefix(line, "\t") {
		e.header = strings.TrimSpace(line) != ""
		return
	}

	fields := strings.Fields(line)
	if len(fields) > 0 {
		e.ref = fields[0]
	}
}
