// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dylib

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultInstallNameTool is the install_name_tool executable used if none is
// set.
const DefaultInstallNameTool = "install_name_tool"

// Patcher rewrites a single library reference of an executable in place.
type Patcher interface {
	PatchReference(ctx context.Context, path, oldRef, newRef string) error
}

// InstallNameTool is a [Patcher] that invokes "install_name_tool -change".
type InstallNameTool struct {
	// Executable is the install_name_tool binary. [DefaultInstallNameTool] is
	// used if empty.
	Executable string
}

// PatchReference replaces the reference oldRef with newRef in the file with
// the given path. All other content of the file stays as is.
//
// It returns a [PatchError] if install_name_tool fails, e.g. because the file
// is not writable.
func (t InstallNameTool) PatchReference(
	ctx context.Context,
	path, oldRef, newRef string,
) error {
	var stderrBuf bytes.Buffer

	executable := t.Executable
	if executable == "" {
		executable = DefaultInstallNameTool
	}

	cmd := exec.CommandContext(ctx, executable, "-change", oldRef, newRef, path)
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	if err != nil {
		return &PatchError{
			Path:   path,
			Old:    oldRef,
			New:    newRef,
			Err:    err,
			Stderr: strings.TrimSpace(stderrBuf.String()),
		}
	}

	// Warns about invalidated code signatures, for example.
	if msg := strings.TrimSpace(stderrBuf.String()); msg != "" {
		slog.Warn("install_name_tool",
			slog.String("path", path),
			slog.String("output", msg))
	}

	return nil
}
