// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package repair fixes column alignment in predicted-structure PDB files
// whose atom names are left-justified one column too early.
package repair

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

// BackupSuffix is appended to the original file before the first rewrite.
const BackupSuffix = ".orig"

// misaligned matches an ATOM record whose one-letter-element atom name
// starts in column 13 instead of column 14.
var misaligned = regexp.MustCompile(`(?m)^(ATOM  [ 0-9]{5} )([CNOS][A-Z0-9' ]{2}) `)

// Bytes returns data with misaligned atom names shifted one column right.
// Already aligned records are left untouched, so Bytes(Bytes(x)) == Bytes(x).
func Bytes(data []byte) []byte {
	return misaligned.ReplaceAll(data, []byte("${1} ${2}"))
}

// NeedsRepair reports whether the file at path has misaligned records.
func NeedsRepair(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return misaligned.Match(data), nil
}

// File repairs path in place and reports whether it changed. The original
// content is copied to path+BackupSuffix once; later runs keep that backup.
func File(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	fixed := Bytes(data)
	if bytes.Equal(fixed, data) {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	backup := path + BackupSuffix
	if _, err := os.Stat(backup); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(backup, data, info.Mode().Perm()); err != nil {
			return false, fmt.Errorf("writing backup %s: %w", backup, err)
		}
	} else if err != nil {
		return false, err
	}

	if err := replace(path, fixed, info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

// replace writes data to path via a temp file and rename.
func replace(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".repair-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
