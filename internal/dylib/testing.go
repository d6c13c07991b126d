// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dylib

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Stand-ins for otool and install_name_tool that work on text files with
// one reference per line. See [WriteFakeExecutable].
const (
	fakeOtoolScript = `#!/bin/sh
[ -r "$2" ] || { echo "error: can't open file: $2" >&2; exit 1; }
echo "$2:"
case "$1" in
-L)
	while IFS= read -r ref; do
		printf '\t%s (compatibility version 1.0.0, current version 1.0.0)\n' "${ref#id:}"
	done < "$2"
	;;
-D)
	while IFS= read -r ref; do
		case "$ref" in id:*) echo "${ref#id:}" ;; esac
	done < "$2"
	;;
*)
	exit 64
	;;
esac
`

	fakeInstallNameToolScript = `#!/bin/sh
[ "$1" = "-change" ] || exit 64
tmp="$4.tmp"
while IFS= read -r ref; do
	if [ "$ref" = "$2" ]; then echo "$3"; else echo "$ref"; fi
done < "$4" > "$tmp" || exit 1
cat "$tmp" > "$4" && rm -f "$tmp"
`

	failingInstallNameToolScript = `#!/bin/sh
echo "error: input file: $4 is not writable" >&2
exit 1
`
)

// FakeTools holds the paths of otool and install_name_tool stand-ins.
type FakeTools struct {
	Otool                  string
	InstallNameTool        string
	FailingInstallNameTool string
}

// WriteFakeTools writes otool and install_name_tool stand-ins into a
// temporary directory. The test is skipped if shell scripts can not be run.
func WriteFakeTools(tb testing.TB) FakeTools {
	tb.Helper()

	if runtime.GOOS == "windows" {
		tb.Skip("shell scripts not supported")
	}

	dir := tb.TempDir()

	return FakeTools{
		Otool: writeScript(tb, dir, "otool", fakeOtoolScript),
		InstallNameTool: writeScript(tb, dir, "install_name_tool",
			fakeInstallNameToolScript),
		FailingInstallNameTool: writeScript(tb, dir, "install_name_tool_fail",
			failingInstallNameToolScript),
	}
}

func writeScript(tb testing.TB, dir, name, content string) string {
	tb.Helper()

	path := filepath.Join(dir, name)

	//nolint:gosec
	err := os.WriteFile(path, []byte(content), 0o755)
	if err != nil {
		tb.Fatalf("write %s: %v", name, err)
	}

	return path
}

// WriteFakeExecutable writes a file with one reference per line, as
// understood by the [WriteFakeTools] stand-ins. A reference prefixed with
// "id:" is the file's own install name and must come first.
func WriteFakeExecutable(tb testing.TB, path string, refs ...string) {
	tb.Helper()

	content := strings.Join(refs, "\n") + "\n"

	//nolint:gosec
	err := os.WriteFile(path, []byte(content), 0o755)
	if err != nil {
		tb.Fatalf("write fake executable: %v", err)
	}
}

// WriteLibrary writes a library file with the given mode, creating parent
// directories as needed.
func WriteLibrary(tb testing.TB, path string, mode os.FileMode) {
	tb.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		tb.Fatalf("create library dir: %v", err)
	}

	err = os.WriteFile(path, []byte("library "+filepath.Base(path)), mode)
	if err != nil {
		tb.Fatalf("write library: %v", err)
	}
}

// ReadFakeExecutable returns the references stored in a file written by
// [WriteFakeExecutable].
func ReadFakeExecutable(tb testing.TB, path string) []string {
	tb.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("read fake executable: %v", err)
	}

	return strings.Fields(string(content))
}
