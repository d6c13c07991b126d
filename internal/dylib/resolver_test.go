// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dylib_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/aibor/dylibfix/internal/dylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinary keeps the references of an executable in memory.
type fakeBinary struct {
	refs     []string
	listErr  error
	patchErr error
	patches  [][2]string
}

func (f *fakeBinary) ListDependencies(context.Context, string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	return slices.Clone(f.refs), nil
}

func (f *fakeBinary) PatchReference(_ context.Context, _, oldRef, newRef string) error {
	if f.patchErr != nil {
		return f.patchErr
	}

	f.patches = append(f.patches, [2]string{oldRef, newRef})

	for idx, ref := range f.refs {
		if ref == oldRef {
			f.refs[idx] = newRef
		}
	}

	return nil
}

// fixture mirrors a build machine: a system prefix, an rpath directory with
// libfoo, a package manager directory with libbar and the executable's
// distribution directory.
type fixture struct {
	systemDir string
	rpathDir  string
	brewDir   string
	distDir   string
	exe       string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	root := t.TempDir()
	fix := fixture{
		systemDir: filepath.Join(root, "usr", "lib"),
		rpathDir:  filepath.Join(root, "usr", "local", "lib"),
		brewDir:   filepath.Join(root, "opt", "homebrew", "lib"),
		distDir:   filepath.Join(root, "dist", "bin"),
	}
	fix.exe = filepath.Join(fix.distDir, "p-load")

	dylib.WriteLibrary(t, filepath.Join(fix.systemDir, "libSystem.B.dylib"), 0o444)
	dylib.WriteLibrary(t, filepath.Join(fix.rpathDir, "libfoo.1.dylib"), 0o444)
	dylib.WriteLibrary(t, filepath.Join(fix.brewDir, "libbar.2.dylib"), 0o444)
	dylib.WriteLibrary(t, fix.exe, 0o755)

	return fix
}

func (f fixture) classifier() dylib.Classifier {
	return dylib.Classifier{
		SystemPrefix: f.systemDir,
		RPathDir:     f.rpathDir,
	}
}

func (f fixture) refs() []string {
	return []string{
		filepath.Join(f.systemDir, "libSystem.B.dylib"),
		"@rpath/libfoo.1.dylib",
		filepath.Join(f.brewDir, "libbar.2.dylib"),
	}
}

func (f fixture) resolver(binary *fakeBinary) *dylib.Resolver {
	return &dylib.Resolver{
		Classifier:   f.classifier(),
		Inspector:    binary,
		Patcher:      binary,
		Materializer: dylib.LibraryCopier{},
	}
}

func (f fixture) distFiles(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(f.distDir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names
}

func TestResolver_Run(t *testing.T) {
	fix := newFixture(t)
	binary := &fakeBinary{refs: fix.refs()}

	report, err := fix.resolver(binary).Run(t.Context(), fix.exe)
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"p-load", "libfoo.1.dylib", "libbar.2.dylib"},
		fix.distFiles(t))

	assertLibraryCopy(t, filepath.Join(fix.distDir, "libfoo.1.dylib"),
		"library libfoo.1.dylib")
	assertLibraryCopy(t, filepath.Join(fix.distDir, "libbar.2.dylib"),
		"library libbar.2.dylib")

	expectedRefs := []string{
		filepath.Join(fix.systemDir, "libSystem.B.dylib"),
		"@rpath/libfoo.1.dylib",
		"@rpath/libbar.2.dylib",
	}
	assert.Equal(t, expectedRefs, binary.refs)

	expectedPatches := [][2]string{
		{filepath.Join(fix.brewDir, "libbar.2.dylib"), "@rpath/libbar.2.dylib"},
	}
	assert.Equal(t, expectedPatches, binary.patches)

	require.Len(t, report, 3)
	assert.Equal(t, 1, report.Count(dylib.System))
	assert.Equal(t, 1, report.Count(dylib.RPath))
	assert.Equal(t, 1, report.Count(dylib.Direct))
	assert.Equal(t, 1, report.Rewritten())

	assert.Empty(t, report[0].Copy, "system library must not be copied")
	assert.Equal(t, filepath.Join(fix.distDir, "libfoo.1.dylib"), report[1].Copy)
	assert.False(t, report[1].Rewritten)
	assert.Equal(t, filepath.Join(fix.distDir, "libbar.2.dylib"), report[2].Copy)
	assert.True(t, report[2].Rewritten)
}

func TestResolver_RunIdempotent(t *testing.T) {
	fix := newFixture(t)
	binary := &fakeBinary{refs: fix.refs()}
	resolver := fix.resolver(binary)

	_, err := resolver.Run(t.Context(), fix.exe)
	require.NoError(t, err)

	refsAfterFirstRun := slices.Clone(binary.refs)
	binary.patches = nil

	report, err := resolver.Run(t.Context(), fix.exe)
	require.NoError(t, err)

	assert.Equal(t, refsAfterFirstRun, binary.refs)
	assert.Empty(t, binary.patches, "no further rewrites")
	assert.Equal(t, 2, report.Count(dylib.RPath))
	assert.Equal(t, 0, report.Count(dylib.Direct))
	assert.ElementsMatch(t,
		[]string{"p-load", "libfoo.1.dylib", "libbar.2.dylib"},
		fix.distFiles(t))
}

func TestResolver_RunKeepsCopiedDirectLibrary(t *testing.T) {
	fix := newFixture(t)
	binary := &fakeBinary{refs: fix.refs()}
	resolver := fix.resolver(binary)
	copied := filepath.Join(fix.distDir, "libbar.2.dylib")

	require.NoFileExists(t, filepath.Join(fix.rpathDir, "libbar.2.dylib"))

	_, err := resolver.Run(t.Context(), fix.exe)
	require.NoError(t, err)
	require.Contains(t, binary.refs, "@rpath/libbar.2.dylib")
	require.NoError(t, os.Chmod(copied, 0o600))

	t.Run("dry run", func(t *testing.T) {
		resolver := fix.resolver(binary)
		resolver.DryRun = true

		report, err := resolver.Run(t.Context(), fix.exe)
		require.NoError(t, err)
		require.Len(t, report, 3)
		assert.Empty(t, report[2].Copy)

		info, err := os.Stat(copied)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("run", func(t *testing.T) {
		report, err := resolver.Run(t.Context(), fix.exe)
		require.NoError(t, err)
		require.Len(t, report, 3)

		assert.Equal(t, dylib.RPath, report[2].Disposition)
		assert.Equal(t, copied, report[2].Copy)
		assert.False(t, report[2].Rewritten)
		assertLibraryCopy(t, copied, "library libbar.2.dylib")
	})
}

func TestResolver_RunSystemOnly(t *testing.T) {
	fix := newFixture(t)
	binary := &fakeBinary{refs: fix.refs()[:1]}

	report, err := fix.resolver(binary).Run(t.Context(), fix.exe)
	require.NoError(t, err)

	assert.Equal(t, []string{"p-load"}, fix.distFiles(t))
	assert.Empty(t, binary.patches)
	assert.Equal(t, 1, report.Count(dylib.System))
}

func TestResolver_RunDryRun(t *testing.T) {
	fix := newFixture(t)
	binary := &fakeBinary{refs: fix.refs()}

	resolver := fix.resolver(binary)
	resolver.DryRun = true

	report, err := resolver.Run(t.Context(), fix.exe)
	require.NoError(t, err)

	assert.Equal(t, []string{"p-load"}, fix.distFiles(t))
	assert.Equal(t, fix.refs(), binary.refs)
	assert.Empty(t, binary.patches)
	assert.Len(t, report, 3)
	assert.Equal(t, 0, report.Rewritten())
}

func TestResolver_RunMissingDirectSource(t *testing.T) {
	fix := newFixture(t)
	missing := filepath.Join(fix.brewDir, "libmissing.3.dylib")
	binary := &fakeBinary{refs: append(fix.refs(), missing)}

	report, err := fix.resolver(binary).Run(t.Context(), fix.exe)
	require.ErrorIs(t, err, &dylib.CopyError{})
	require.ErrorIs(t, err, os.ErrNotExist)

	assert.Contains(t, binary.refs, missing, "reference must not be rewritten")
	assert.NotContains(t, binary.patches, [2]string{missing, "@rpath/libmissing.3.dylib"})
	assert.NotContains(t, fix.distFiles(t), "libmissing.3.dylib")

	require.Len(t, report, 4)
	assert.Equal(t, missing, report[3].Raw)
	assert.False(t, report[3].Rewritten)
}

func TestResolver_RunMissingRPathSource(t *testing.T) {
	fix := newFixture(t)
	binary := &fakeBinary{refs: []string{
		"@rpath/libmissing.1.dylib",
		filepath.Join(fix.brewDir, "libbar.2.dylib"),
	}}

	_, err := fix.resolver(binary).Run(t.Context(), fix.exe)
	require.ErrorIs(t, err, &dylib.CopyError{})

	assert.Empty(t, binary.patches, "run must abort on first failure")
	assert.Equal(t, []string{"p-load"}, fix.distFiles(t))
}

func TestResolver_RunPatchError(t *testing.T) {
	fix := newFixture(t)
	binary := &fakeBinary{
		refs:     fix.refs(),
		patchErr: assert.AnError,
	}

	_, err := fix.resolver(binary).Run(t.Context(), fix.exe)

	var patchErr *dylib.PatchError

	require.ErrorAs(t, err, &patchErr)
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, fix.exe, patchErr.Path)
	assert.Equal(t, filepath.Join(fix.brewDir, "libbar.2.dylib"), patchErr.Old)
	assert.Equal(t, "@rpath/libbar.2.dylib", patchErr.New)
}

func TestResolver_RunInspectionError(t *testing.T) {
	fix := newFixture(t)
	binary := &fakeBinary{listErr: assert.AnError}

	report, err := fix.resolver(binary).Run(t.Context(), fix.exe)
	require.ErrorIs(t, err, &dylib.InspectionError{})
	require.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, report)
}

func TestResolver_RunInvalidExecutable(t *testing.T) {
	fix := newFixture(t)
	binary := &fakeBinary{refs: fix.refs()}
	resolver := fix.resolver(binary)

	_, err := resolver.Run(t.Context(), "")
	require.ErrorIs(t, err, dylib.ErrEmptyPath)

	_, err = resolver.Run(t.Context(), fix.distDir)
	require.ErrorIs(t, err, dylib.ErrNotRegularFile)

	_, err = resolver.Run(t.Context(), filepath.Join(fix.distDir, "nonexistent"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolver_RunWithTools(t *testing.T) {
	fix := newFixture(t)
	tools := dylib.WriteFakeTools(t)

	dylib.WriteFakeExecutable(t, fix.exe, fix.refs()...)

	resolver := dylib.NewResolver(fix.classifier())
	resolver.Inspector = dylib.Otool{Executable: tools.Otool}
	resolver.Patcher = dylib.InstallNameTool{Executable: tools.InstallNameTool}

	_, err := resolver.Run(t.Context(), fix.exe)
	require.NoError(t, err)

	expectedRefs := []string{
		filepath.Join(fix.systemDir, "libSystem.B.dylib"),
		"@rpath/libfoo.1.dylib",
		"@rpath/libbar.2.dylib",
	}
	assert.Equal(t, expectedRefs, dylib.ReadFakeExecutable(t, fix.exe))
	assert.ElementsMatch(t,
		[]string{"p-load", "libfoo.1.dylib", "libbar.2.dylib"},
		fix.distFiles(t))

	// Second run finds only rpath references and changes nothing.
	_, err = resolver.Run(t.Context(), fix.exe)
	require.NoError(t, err)
	assert.Equal(t, expectedRefs, dylib.ReadFakeExecutable(t, fix.exe))
}
