// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !unix

package dylib

// Without access(2), creating the temporary file is the check.
func checkWritable(string) error {
	return nil
}
