// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	queryDir   = "query"
	resultsDir = "search-results"
	tmpDir     = "tmp"
	hitsDir    = "hits"
)

// Layout describes the output tree of a run. Each retrieval task writes to a
// uniquely named file inside it, so the tree needs no locking.
type Layout struct {
	Root string
	Mode SearchMode
}

func (l Layout) QueryDir() string   { return filepath.Join(l.Root, queryDir) }
func (l Layout) ResultsDir() string { return filepath.Join(l.Root, resultsDir) }
func (l Layout) TmpDir() string     { return filepath.Join(l.Root, tmpDir) }
func (l Layout) HitsDir() string    { return filepath.Join(l.Root, hitsDir) }

// Dirs returns the directories the layout's search mode needs. Only the
// local backend uses a scratch directory.
func (l Layout) Dirs() []string {
	dirs := []string{l.QueryDir(), l.ResultsDir(), l.HitsDir()}
	if l.Mode != ModeRemote {
		dirs = append(dirs, l.TmpDir())
	}
	return dirs
}

// Ensure creates the layout directories. It is idempotent and never removes
// anything, so a failed run leaves a consistent tree behind.
func (l Layout) Ensure() error {
	for _, dir := range l.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}
