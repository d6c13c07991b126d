// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/aibor/dylibfix/internal/dylib"
)

// FilePath is a [flag.Value] that stores absolute paths.
type FilePath string

func (f *FilePath) String() string {
	return string(*f)
}

func (f *FilePath) Set(s string) error {
	path, err := AbsoluteFilePath(s)
	if err != nil {
		return err
	}

	*f = FilePath(path)

	return nil
}

// AbsoluteFilePath returns the absolute path as resolved by [filepath.Abs].
//
// It returns [dylib.ErrEmptyPath] if the given path is empty.
func AbsoluteFilePath(path string) (string, error) {
	if path == "" {
		return "", dylib.ErrEmptyPath
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}

	return path, nil
}
