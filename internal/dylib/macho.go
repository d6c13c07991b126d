// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dylib

import (
	"context"
	"fmt"
	"os"

	"github.com/blacktop/go-macho"
)

// MachOInspector is an [Inspector] that reads the load commands of Mach-O
// files directly. It does not need any macOS tooling.
//
// Like "otool -L", it lists regular, weak, re-exported, upward and lazy
// loaded libraries. The file's own install name is not listed.
type MachOInspector struct{}

// ListDependencies returns the library references of the Mach-O file with the
// given path. For universal binaries, the references of all architectures are
// merged in architecture order without duplicates.
func (MachOInspector) ListDependencies(
	_ context.Context,
	path string,
) ([]string, error) {
	fat, err := macho.OpenFat(path)
	if err == nil {
		defer fat.Close()

		perArch := make([][]string, 0, len(fat.Arches))
		for _, arch := range fat.Arches {
			perArch = append(perArch, arch.ImportedLibraries())
		}

		return mergeReferences(perArch...), nil
	}

	// Not a universal binary, so try a thin one.
	file, err := macho.Open(path)
	if err != nil {
		// Missing files fail here as well, so only blame the format for
		// existing ones.
		if _, statErr := os.Stat(path); statErr == nil {
			err = fmt.Errorf("%w: %w", ErrNotMachO, err)
		}

		return nil, &InspectionError{Path: path, Err: err}
	}
	defer file.Close()

	return mergeReferences(file.ImportedLibraries()), nil
}

// mergeReferences concatenates the given lists and drops duplicates, keeping
// the first occurrence.
func mergeReferences(lists ...[]string) []string {
	var (
		merged []string
		seen   = make(map[string]bool)
	)

	for _, list := range lists {
		for _, ref := range list {
			if seen[ref] {
				continue
			}

			seen[ref] = true
			merged = append(merged, ref)
		}
	}

	return merged
}

// NewInspector returns the [Inspector] with the given name. Valid names are
// "otool" and "macho". The otool executable is only used for "otool".
func NewInspector(name, otool string) (Inspector, error) {
	switch name {
	case "", "otool":
		return Otool{Executable: otool}, nil
	case "macho":
		return MachOInspector{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInspectorUnknown, name)
	}
}
