// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/foldseek-fetch/internal/toolexec"
	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

const binFoldseek = "foldseek"

// DefaultSearchRoot is where the recursive lookup starts when foldseek is
// neither on PATH nor installed next to conda.
const DefaultSearchRoot = "/usr/local"

// Locator finds the foldseek executable.
type Locator struct {
	Exec toolexec.Executor

	// CondaExe is the value of $CONDA_EXE; foldseek installed with conda
	// lives in the same bin directory.
	CondaExe string

	// SearchRoot is walked for <...>/bin/<...>/foldseek/bin/foldseek.
	SearchRoot string
}

// Locate tries, in order: a PATH lookup, the conda bin directory, and a
// recursive search under SearchRoot. It returns an error wrapping
// types.ErrSearchUnavailable when all three fail.
func (l Locator) Locate() (string, error) {
	if l.Exec != nil {
		if p, err := l.Exec.LookPath(binFoldseek); err == nil {
			return p, nil
		}
	}

	if l.CondaExe != "" {
		p := filepath.Join(filepath.Dir(l.CondaExe), binFoldseek)
		if isExecutable(p) {
			return p, nil
		}
	}

	root := l.SearchRoot
	if root == "" {
		root = DefaultSearchRoot
	}
	if p := findInstall(root); p != "" {
		return p, nil
	}

	return "", fmt.Errorf("%w: %s not found on PATH, next to conda, or under %s",
		types.ErrSearchUnavailable, binFoldseek, root)
}

// findInstall walks root for an unpacked foldseek release, i.e. a directory
// named foldseek somewhere below a bin directory that holds bin/foldseek.
// Unreadable directories are skipped.
func findInstall(root string) string {
	var found string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() || d.Name() != binFoldseek {
			return nil
		}
		if !underBin(root, path) {
			return nil
		}
		candidate := filepath.Join(path, "bin", binFoldseek)
		if isExecutable(candidate) {
			found = candidate
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// underBin reports whether a directory between root and path is named bin.
func underBin(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "bin" {
			return true
		}
	}
	return filepath.Base(root) == "bin"
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// errNotExecutable is returned when an explicitly configured path is unusable.
var errNotExecutable = errors.New("not an executable file")

// checkExplicit validates a user-configured executable path.
func checkExplicit(path string) error {
	if !isExecutable(path) {
		return fmt.Errorf("%w: %s: %w", types.ErrSearchUnavailable, path, errNotExecutable)
	}
	return nil
}
