// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/foldseek-fetch/internal/toolexec"
	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

// DefaultDatabaseDir is where the original installation kept its databases.
const DefaultDatabaseDir = "/usr/local/bin/foldseek"

// LocalProvider runs "foldseek easy-search" against a local database.
type LocalProvider struct {
	exec    toolexec.Executor
	cfg     types.LocalSearchConfig
	locator Locator
	logger  *zap.Logger
}

// NewLocalProvider creates a provider that runs foldseek through exec.
func NewLocalProvider(exec toolexec.Executor, cfg types.LocalSearchConfig, logger *zap.Logger) *LocalProvider {
	if cfg.DatabaseDir == "" {
		cfg.DatabaseDir = DefaultDatabaseDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalProvider{
		exec: exec,
		cfg:  cfg,
		locator: Locator{
			Exec:       exec,
			CondaExe:   os.Getenv("CONDA_EXE"),
			SearchRoot: cfg.SearchRoot,
		},
		logger: logger,
	}
}

// Name returns the backend identifier.
func (p *LocalProvider) Name() string { return string(types.ModeLocal) }

// Search runs the query against the local database for req.Source and parses
// the header-less result table.
func (p *LocalProvider) Search(ctx context.Context, req Request) (types.Table, Metadata, error) {
	bin, err := p.executable()
	if err != nil {
		return types.Table{}, Metadata{}, err
	}

	meta := Metadata{Backend: p.Name()}
	version, err := DetectVersion(ctx, p.exec, bin)
	if err != nil {
		p.logger.Warn("could not determine foldseek version", zap.String("path", bin), zap.Error(err))
	} else {
		meta.Version = version
		p.logger.Info("using foldseek", zap.String("version", version), zap.String("path", bin))
	}

	queryPath, err := req.writeQuery()
	if err != nil {
		return types.Table{}, meta, err
	}

	outPath := filepath.Join(req.Layout.ResultsDir(), strings.TrimSuffix(req.QueryName, "_fsquery")+"_aln")
	db := filepath.Join(p.cfg.DatabaseDir, req.Source.LocalDB())
	args := p.args(queryPath, db, outPath, req.Layout.TmpDir(), version, req.Options)
	meta.Command = toolexec.CommandLine(bin, args...)
	meta.ResultPath = outPath

	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		return types.Table{}, meta, fmt.Errorf("removing stale result %s: %w", outPath, err)
	}

	p.logger.Info("running foldseek", zap.String("command", meta.Command))
	res, err := p.exec.Run(ctx, bin, args...)
	if err != nil {
		return types.Table{}, meta, fmt.Errorf("%w: %w", types.ErrSearchExecution, err)
	}
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line != "" {
			p.logger.Debug("foldseek", zap.String("stdout", line))
		}
	}

	if !res.Success() {
		return types.Table{}, meta, fmt.Errorf("%w: foldseek exited with status %d: %s",
			types.ErrSearchExecution, res.ExitCode, lastLine(res.Stderr))
	}
	if _, err := os.Stat(outPath); err != nil {
		return types.Table{}, meta, fmt.Errorf("%w: foldseek produced no result file %s",
			types.ErrSearchExecution, outPath)
	}

	table, err := readTableFile(outPath, types.VariantLocal)
	if err != nil {
		return types.Table{}, meta, fmt.Errorf("%w: parsing %s: %w", types.ErrSearchExecution, outPath, err)
	}
	if table.Len() == 0 {
		return types.Table{}, meta, fmt.Errorf("%w: %s is empty", types.ErrNoHomologs, outPath)
	}
	return table, meta, nil
}

// args builds the easy-search argument list. The memory-efficient prefilter
// flag is only added when the version is known to support it.
func (p *LocalProvider) args(query, db, out, tmp, version string, extra []string) []string {
	args := []string{"easy-search", query, db, out, tmp, "--remove-tmp-files", "true"}
	if SupportsPrefilterMode(version) {
		args = append(args, "--prefilter-mode", "1")
	}
	args = append(args, p.cfg.Options...)
	return append(args, extra...)
}

func (p *LocalProvider) executable() (string, error) {
	if p.cfg.Executable != "" {
		if err := checkExplicit(p.cfg.Executable); err != nil {
			return "", err
		}
		return p.cfg.Executable, nil
	}
	return p.locator.Locate()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
