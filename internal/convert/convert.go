// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert rewrites structure files from the secondary download
// format (mmCIF) into the primary one (PDB) with pluggable backends.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

// Converter transforms an mmCIF file into a PDB file. Different backends
// (native atom_site writer, gemmi) implement this interface.
type Converter interface {
	// Convert reads cifPath and writes the PDB rendering to pdbPath.
	// Errors wrap types.ErrFormatConversion.
	Convert(ctx context.Context, cifPath, pdbPath string) error
}

// Backend names a converter implementation in configuration.
type Backend string

const (
	BackendNative Backend = "native"
	BackendGemmi  Backend = "gemmi"
)

// PDBPath returns the primary-format path next to a secondary-format file:
// "hits/3_5xyz.cif" becomes "hits/3_5xyz.pdb".
func PDBPath(cifPath string) string {
	return strings.TrimSuffix(cifPath, filepath.Ext(cifPath)) + ".pdb"
}

// writeAtomic writes data to path through a temporary file in the same
// directory, so a failed conversion never leaves a partial PDB behind.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".convert-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", types.ErrFormatConversion, err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing %s: %w", types.ErrFormatConversion, path, firstErr(writeErr, closeErr))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: renaming temp file: %w", types.ErrFormatConversion, err)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
