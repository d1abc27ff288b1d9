// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExtractTarGz unpacks the regular files of a .tar.gz archive into dir and
// returns their paths in archive order. Entry names are rooted at dir, so
// "../" components cannot escape it.
func ExtractTarGz(archive, dir string) ([]string, error) {
	f, err := os.Open(archive)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	var files []string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		target := filepath.Join(dir, filepath.Clean("/"+hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return nil, fmt.Errorf("archive entry %q escapes %s", hdr.Name, dir)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
		}
		if err := writeEntry(target, tr); err != nil {
			return nil, err
		}
		files = append(files, target)
	}
	return files, nil
}

func writeEntry(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	_, copyErr := io.Copy(out, r)
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf("writing %s: %w", path, copyErr)
	}
	return closeErr
}

// FindResult picks the result table for serverDB among the files of a
// result archive. The server names them alis_<db>.m8; any other .m8 file
// mentioning the database name is accepted as a fallback.
func FindResult(files []string, serverDB string) (string, error) {
	want := "alis_" + serverDB + ".m8"
	var fallback string
	for _, f := range files {
		base := filepath.Base(f)
		if base == want {
			return f, nil
		}
		if fallback == "" && strings.HasSuffix(base, ".m8") && strings.Contains(base, serverDB) {
			fallback = f
		}
	}
	if fallback != "" {
		return fallback, nil
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	sort.Strings(names)
	return "", fmt.Errorf("no result for database %s in archive (found: %s)", serverDB, strings.Join(names, ", "))
}
