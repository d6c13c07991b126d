// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dylib

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
)

// LibraryMode is the file mode of every copied library, independent of the
// mode of the source file. Homebrew installs libraries read-only.
const LibraryMode fs.FileMode = 0o755

// Materializer places a copy of a library into a directory.
type Materializer interface {
	Materialize(source, destDir string) (string, error)
}

// LibraryCopier is a [Materializer] that copies library files.
type LibraryCopier struct{}

// Materialize copies the source file into destDir, keeping its basename, and
// sets [LibraryMode] on the copy. Symbolic links are followed. An existing
// file of the same name is replaced. It returns the path of the copy.
//
// The copy is written to a temporary file first and renamed, so the
// destination is never left half-written.
//
// It returns a [CopyError] if the source does not exist or destDir is not
// writable.
func (LibraryCopier) Materialize(source, destDir string) (string, error) {
	dest := filepath.Join(destDir, filepath.Base(source))

	err := materialize(source, destDir, dest)
	if err != nil {
		return "", &CopyError{
			Source:      source,
			Destination: dest,
			Err:         err,
		}
	}

	return dest, nil
}

func materialize(source, destDir, dest string) error {
	if source == "" || destDir == "" {
		return ErrEmptyPath
	}

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("source: %w", ErrNotRegularFile)
	}

	err = checkWritable(destDir)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(destDir, "."+filepath.Base(dest)+"-*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	success := false

	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	err = copy.Copy(source, tmpPath, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Deep
		},
		PermissionControl: copy.AddPermission(LibraryMode),
	})
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	// Source modes like 0777 survive AddPermission, so set it explicitly.
	err = os.Chmod(tmpPath, LibraryMode)
	if err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}

	err = os.Rename(tmpPath, dest)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	success = true

	return nil
}
