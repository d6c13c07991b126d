// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build unix

package dylib

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func checkWritable(dir string) error {
	err := unix.Access(dir, unix.W_OK|unix.X_OK)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDestinationNotWritable, dir, err)
	}

	return nil
}
