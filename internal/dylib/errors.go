// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dylib

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPath is returned if an empty path is given.
	ErrEmptyPath = errors.New("path must not be empty")

	// ErrNotRegularFile is returned if the executable is not a regular file.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrNotMachO is returned if a file is neither a thin nor a universal
	// Mach-O file.
	ErrNotMachO = errors.New("not a Mach-O file")

	// ErrDestinationNotWritable is returned if libraries can not be written
	// into the destination directory.
	ErrDestinationNotWritable = errors.New("destination not writable")

	// ErrInspectorUnknown is returned for unsupported inspector names.
	ErrInspectorUnknown = errors.New("unknown inspector")
)

// InspectionError is returned if the library references of an executable
// can not be listed.
type InspectionError struct {
	Path   string
	Err    error
	Stderr string
}

// Error implements the [error] interface.
func (e *InspectionError) Error() string {
	msg := fmt.Sprintf("inspect %s: %v", e.Path, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

// Is implements the [errors.Is] interface.
func (*InspectionError) Is(other error) bool {
	_, ok := other.(*InspectionError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *InspectionError) Unwrap() error {
	return e.Err
}

// CopyError is returned if a library can not be copied into the executable's
// directory.
type CopyError struct {
	Source      string
	Destination string
	Err         error
}

// Error implements the [error] interface.
func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s to %s: %v", e.Source, e.Destination, e.Err)
}

// Is implements the [errors.Is] interface.
func (*CopyError) Is(other error) bool {
	_, ok := other.(*CopyError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *CopyError) Unwrap() error {
	return e.Err
}

// PatchError is returned if a library reference of an executable can not be
// rewritten.
type PatchError struct {
	Path   string
	Old    string
	New    string
	Err    error
	Stderr string
}

// Error implements the [error] interface.
func (e *PatchError) Error() string {
	msg := fmt.Sprintf("change %s to %s in %s: %v", e.Old, e.New, e.Path, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

// Is implements the [errors.Is] interface.
func (*PatchError) Is(other error) bool {
	_, ok := other.(*PatchError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *PatchError) Unwrap() error {
	return e.Err
}
