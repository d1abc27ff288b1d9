// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/pdiddy/foldseek-fetch/internal/hits"
)

// wwPDB rsync mirror defaults.
const (
	DefaultRsyncHost   = "rsync.wwpdb.org"
	DefaultRsyncPort   = 33444
	DefaultRsyncModule = "ftp/data/structures/all/pdb/"

	binRsync = "rsync"
)

// RsyncArgs returns the rsync arguments that mirror the entries listed in
// listPath into dir.
func (e *Executor) RsyncArgs(listPath, dir string) []string {
	return []string{
		"-rlptL", "-v", "-z", "--delete", "--relative",
		"--files-from=" + listPath,
		"--port=" + strconv.Itoa(e.cfg.RsyncPort),
		e.cfg.RsyncHost + "::" + e.cfg.RsyncModule,
		dir + string(filepath.Separator),
	}
}

// bulk mirrors the batch with rsync and unpacks every entry that arrived.
// Tasks it completes are marked in done; a failed transfer only logs, so
// the remaining tasks go through per-file retrieval.
func (e *Executor) bulk(ctx context.Context, dir, name string, tasks []Task, outcomes []Outcome, done []bool) {
	entries := make([]hits.Entry, len(tasks))
	for i, t := range tasks {
		entries[i] = hits.Entry{PrimaryID: t.PrimaryID, ChainID: t.ChainID}
	}
	listPath, err := hits.WriteRsyncList(dir, name, entries)
	if err != nil {
		e.logger.Warn("bulk transfer skipped", zap.Error(err))
		return
	}

	bin, err := e.exec.LookPath(binRsync)
	if err != nil {
		e.logger.Warn("bulk transfer skipped: rsync not found", zap.Error(err))
		return
	}
	args := e.RsyncArgs(listPath, dir)
	e.logger.Info("bulk transfer", zap.Int("entries", len(tasks)), zap.String("host", e.cfg.RsyncHost))
	res, err := e.exec.Run(ctx, bin, args...)
	switch {
	case err != nil:
		e.logger.Warn("rsync failed to run", zap.Error(err))
	case !res.Success():
		// Partial transfers exit non-zero; whatever arrived is still used.
		e.logger.Warn("rsync exited with errors", zap.Int("exit_code", res.ExitCode), zap.String("stderr", res.Stderr))
	default:
		e.logger.Debug("rsync finished", zap.String("stdout", res.Stdout))
	}

	for i, t := range tasks {
		gz := filepath.Join(dir, hits.RsyncName(t.PrimaryID))
		pdbPath := FilePath(dir, t.Index, t.PrimaryID, "pdb")
		ok, err := gunzip(gz, pdbPath)
		if err != nil {
			e.logger.Warn("unpacking mirrored entry", zap.String("id", t.PrimaryID), zap.Error(err))
			continue
		}
		if !ok {
			e.logger.Debug("entry not mirrored, fetching per file", zap.String("id", t.PrimaryID))
			continue
		}
		outcomes[i] = Outcome{Index: t.Index, PrimaryID: t.PrimaryID, Kind: Fetched, Path: pdbPath}
		done[i] = true
	}
}

// gunzip decompresses src into dest and removes src. It reports false
// without error when src does not exist.
func gunzip(src, dest string) (bool, error) {
	f, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", src, err)
	}
	defer zr.Close()

	if err := writeTemp(dest, zr); err != nil {
		return false, err
	}
	f.Close()
	if err := os.Remove(src); err != nil {
		return true, fmt.Errorf("removing %s: %w", src, err)
	}
	return true, nil
}
