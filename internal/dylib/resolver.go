// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dylib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Result describes what has been done for a single [Reference].
type Result struct {
	Reference

	// Copy is the path of the copied library. Empty if nothing was copied.
	Copy string
	// Rewritten is true if the reference was replaced in the executable.
	Rewritten bool
}

// Report lists the [Result] of each reference in processing order.
type Report []Result

// Count returns the number of references with the given [Disposition].
func (r Report) Count(disposition Disposition) int {
	var count int

	for _, result := range r {
		if result.Disposition == disposition {
			count++
		}
	}

	return count
}

// Rewritten returns the number of rewritten references.
func (r Report) Rewritten() int {
	var count int

	for _, result := range r {
		if result.Rewritten {
			count++
		}
	}

	return count
}

// Resolver makes an executable self-contained.
type Resolver struct {
	Classifier   Classifier
	Inspector    Inspector
	Patcher      Patcher
	Materializer Materializer

	// DryRun only classifies the references. Nothing is copied or rewritten.
	DryRun bool
}

// NewResolver returns a [Resolver] that uses otool, install_name_tool and
// the given [Classifier].
func NewResolver(classifier Classifier) *Resolver {
	return &Resolver{
		Classifier:   classifier,
		Inspector:    Otool{},
		Patcher:      InstallNameTool{},
		Materializer: LibraryCopier{},
	}
}

// Run processes all library references of the given executable in the order
// the [Inspector] lists them.
//
// [System] references are skipped. [RPath] references are copied from
// [Classifier.RPathDir] into the executable's directory. [Direct] references
// are copied from their literal path and then replaced by their
// [Reference.Replacement].
//
// An [RPath] library that is missing in [Classifier.RPathDir] but already
// present next to the executable is kept and gets [LibraryMode]. This is the
// case for [Direct] references rewritten by an earlier run, so running
// again changes nothing.
//
// The first failing reference aborts the run. The returned [Report] contains
// all references processed so far, including the failed one. Errors are of
// type [InspectionError], [CopyError] or [PatchError], or report an invalid
// executable path.
func (r *Resolver) Run(ctx context.Context, executable string) (Report, error) {
	err := validateExecutable(executable)
	if err != nil {
		return nil, fmt.Errorf("executable: %w", err)
	}

	raws, err := r.Inspector.ListDependencies(ctx, executable)
	if err != nil {
		if !errors.Is(err, &InspectionError{}) {
			err = &InspectionError{Path: executable, Err: err}
		}

		return nil, err
	}

	slog.Debug("Listed library references",
		slog.String("executable", executable),
		slog.Int("count", len(raws)))

	destDir := filepath.Dir(executable)
	report := make(Report, 0, len(raws))

	for _, raw := range raws {
		result, err := r.process(ctx, executable, destDir, r.Classifier.Classify(raw))
		report = append(report, result)

		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func (r *Resolver) process(
	ctx context.Context,
	executable string,
	destDir string,
	ref Reference,
) (Result, error) {
	result := Result{Reference: ref}

	slog.Debug("Classified library reference",
		slog.String("reference", ref.Raw),
		slog.String("disposition", ref.Disposition.String()))

	if ref.Disposition == System {
		return result, nil
	}

	if existing, ok := existingCopy(ref, destDir); ok {
		return r.keep(result, existing)
	}

	if r.DryRun {
		slog.Info("Would copy library",
			slog.String("source", ref.Source),
			slog.String("destination", destDir))

		if replacement := ref.Replacement(); replacement != "" {
			slog.Info("Would change reference",
				slog.String("reference", ref.Raw),
				slog.String("replacement", replacement))
		}

		return result, nil
	}

	dest, err := r.Materializer.Materialize(ref.Source, destDir)
	if err != nil {
		if !errors.Is(err, &CopyError{}) {
			err = &CopyError{Source: ref.Source, Destination: destDir, Err: err}
		}

		return result, err
	}

	result.Copy = dest

	slog.Info("Copied library",
		slog.String("source", ref.Source),
		slog.String("destination", dest))

	replacement := ref.Replacement()
	if replacement == "" {
		return result, nil
	}

	err = r.Patcher.PatchReference(ctx, executable, ref.Raw, replacement)
	if err != nil {
		if !errors.Is(err, &PatchError{}) {
			err = &PatchError{
				Path: executable,
				Old:  ref.Raw,
				New:  replacement,
				Err:  err,
			}
		}

		return result, err
	}

	result.Rewritten = true

	slog.Info("Changed reference",
		slog.String("reference", ref.Raw),
		slog.String("replacement", replacement))

	return result, nil
}

// keep sets [LibraryMode] on an existing copy of the referenced library.
func (r *Resolver) keep(result Result, existing string) (Result, error) {
	if r.DryRun {
		slog.Info("Would keep library", slog.String("library", existing))
		return result, nil
	}

	err := os.Chmod(existing, LibraryMode)
	if err != nil {
		return result, &CopyError{
			Source:      result.Source,
			Destination: existing,
			Err:         err,
		}
	}

	result.Copy = existing

	slog.Info("Kept library", slog.String("library", existing))

	return result, nil
}

// existingCopy returns the path of the library in destDir if ref is an
// [RPath] reference whose source does not exist.
func existingCopy(ref Reference, destDir string) (string, bool) {
	if ref.Disposition != RPath {
		return "", false
	}

	_, err := os.Stat(ref.Source)
	if !errors.Is(err, os.ErrNotExist) {
		return "", false
	}

	existing := filepath.Join(destDir, ref.Basename)

	info, err := os.Stat(existing)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}

	return existing, true
}

func validateExecutable(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	info, err := os.Stat(path)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if !info.Mode().IsRegular() {
		return ErrNotRegularFile
	}

	return nil
}
