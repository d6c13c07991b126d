// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package dylib

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	// RPathToken is the prefix of references that are resolved relative to
	// the search paths embedded in the executable.
	RPathToken = "@rpath/"

	// DefaultSystemPrefix is the directory of libraries that are present on
	// every macOS system.
	DefaultSystemPrefix = "/usr/lib"

	// DefaultRPathDir is the directory "@rpath/" references are expected in
	// on the build machine.
	DefaultRPathDir = "/usr/local/lib"
)

// Disposition determines how a [Reference] is handled.
type Disposition int

const (
	// System references are left untouched.
	System Disposition = iota
	// RPath references are copied from the rpath source directory.
	RPath
	// Direct references are copied from their literal path and rewritten.
	Direct
)

func (d Disposition) String() string {
	switch d {
	case System:
		return "system"
	case RPath:
		return "rpath"
	case Direct:
		return "direct"
	default:
		return "unknown"
	}
}

// Reference is a single library reference of an executable.
type Reference struct {
	// Raw is the reference as stored in the executable.
	Raw string
	// Basename is the file name of the referenced library.
	Basename    string
	Disposition Disposition
	// Source is the file to copy. Empty for [System] references.
	Source string
}

// Replacement returns the reference that replaces [Reference.Raw] in the
// executable. It is empty if the reference does not need to be rewritten.
func (r Reference) Replacement() string {
	if r.Disposition != Direct {
		return ""
	}

	return RPathToken + r.Basename
}

// Classifier assigns a [Disposition] to raw library references.
type Classifier struct {
	// SystemPrefix is the prefix of references to system libraries. Empty
	// prefix matches nothing.
	SystemPrefix string
	// RPathDir is the directory "@rpath/" references are copied from.
	RPathDir string
}

// DefaultClassifier returns a [Classifier] with the macOS defaults.
func DefaultClassifier() Classifier {
	return Classifier{
		SystemPrefix: DefaultSystemPrefix,
		RPathDir:     DefaultRPathDir,
	}
}

// Classify returns the [Reference] for the given raw reference string.
//
// The first matching rule wins: references with the system prefix are
// [System], references with the [RPathToken] are [RPath] and everything else
// is [Direct].
func (c Classifier) Classify(raw string) Reference {
	// References are stored with forward slashes independent of the host.
	ref := Reference{
		Raw:      raw,
		Basename: path.Base(raw),
	}

	switch {
	case c.SystemPrefix != "" && strings.HasPrefix(raw, c.SystemPrefix):
		ref.Disposition = System
	case strings.HasPrefix(raw, RPathToken):
		ref.Disposition = RPath
		ref.Source = filepath.Join(c.RPathDir, ref.Basename)
	default:
		ref.Disposition = Direct
		ref.Source = raw
	}

	return ref
}
