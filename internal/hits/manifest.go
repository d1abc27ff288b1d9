// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hits

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one (primary id, chain) pair of a retrieval batch.
type Entry struct {
	PrimaryID string
	ChainID   string
}

// ManifestPath returns the path of the hit manifest for name in dir.
func ManifestPath(dir, name string) string {
	return filepath.Join(dir, name+"_hits")
}

// RsyncListPath returns the path of the bulk-transfer file list for name in dir.
func RsyncListPath(dir, name string) string {
	return filepath.Join(dir, name+"_hits_rslist")
}

// RsyncName is the name of an entry's compressed file on the wwPDB mirror.
func RsyncName(primaryID string) string {
	return "pdb" + strings.ToLower(primaryID) + ".ent.gz"
}

// WriteManifest writes the hit manifest: a blank first line, then one
// " <primary>   <chain>" line per entry.
func WriteManifest(dir, name string, entries []Entry) (string, error) {
	path := ManifestPath(dir, name)
	err := writeLines(path, func(w *bufio.Writer) {
		w.WriteString("\n")
		for _, e := range entries {
			fmt.Fprintf(w, " %s   %s\n", e.PrimaryID, e.ChainID)
		}
	})
	return path, err
}

// WriteRsyncList writes the --files-from list for a bulk transfer.
func WriteRsyncList(dir, name string, entries []Entry) (string, error) {
	path := RsyncListPath(dir, name)
	err := writeLines(path, func(w *bufio.Writer) {
		for _, e := range entries {
			w.WriteString(RsyncName(e.PrimaryID) + "\n")
		}
	})
	return path, err
}

func writeLines(path string, fill func(*bufio.Writer)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	fill(w)
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
