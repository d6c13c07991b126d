// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dylib makes a macOS executable self-contained for distribution.
//
// It lists the shared libraries an executable references, copies the ones
// that are not part of the operating system next to the executable and
// rewrites absolute references to the "@rpath/" form, so the executable and
// its libraries can be moved around together.
//
// Only the libraries the executable itself references are handled. Libraries
// referenced by copied libraries are not followed.
//
// A [Resolver] mutates the executable in place. Running more than one
// [Resolver] against the same executable at the same time is not safe.
package dylib
