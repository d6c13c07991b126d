// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package exitcode defines the exit statuses of dylibfix.
package exitcode

import (
	"errors"
	"strconv"
)

// Code is a process exit status.
type Code int

const (
	// Success is returned if all references were handled or only help or
	// version information was requested.
	Success Code = 0

	// Usage is returned for invalid invocations.
	Usage Code = 1

	// Failure is returned if the run failed for any reason other than a
	// failed reference patch, e.g. a library could not be copied.
	Failure Code = 2

	// PatchFailure is returned if a reference could not be rewritten.
	PatchFailure Code = 3
)

func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case Usage:
		return "usage"
	case Failure:
		return "failure"
	case PatchFailure:
		return "patch failure"
	default:
		return strconv.Itoa(int(c))
	}
}

// Error attaches the exit status the process terminates with to an error.
type Error struct {
	Code Code
	Err  error
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(int(e.Code))
	}

	return e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*Error) Is(other error) bool {
	_, ok := other.(*Error)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *Error) Unwrap() error {
	return e.Err
}

// From returns the exit status for the given error.
//
// If the error is nil, it is [Success]. If the error is or wraps an [Error],
// it is its [Error.Code]. Otherwise it is [Failure].
func From(err error) Code {
	if err == nil {
		return Success
	}

	var exitErr *Error
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return Failure
}
