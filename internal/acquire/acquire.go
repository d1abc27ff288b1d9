// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire retrieves structure files for a normalized hit list. PDB
// batches above the bulk threshold are mirrored with rsync first; everything
// else, and anything rsync missed, is downloaded per file with an mmCIF
// fallback. A failing task never aborts the batch.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/foldseek-fetch/internal/convert"
	"github.com/pdiddy/foldseek-fetch/internal/source"
	"github.com/pdiddy/foldseek-fetch/internal/toolexec"
	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

const (
	// DefaultBulkThreshold is the task count above which bulk transfer is used.
	DefaultBulkThreshold = 20

	// DefaultConcurrency bounds parallel per-file downloads.
	DefaultConcurrency = 4
)

// Task is one structure to retrieve. Index is the 1-based position of the
// hit in the normalized list and prefixes the on-disk file name.
type Task struct {
	Index int
	source.Resolved
}

// OutcomeKind classifies the result of a task.
type OutcomeKind int

const (
	FetchFailed OutcomeKind = iota
	Fetched
	FetchedViaFallbackFormat
)

var outcomeNames = map[OutcomeKind]string{
	FetchFailed:              "failed",
	Fetched:                  "fetched",
	FetchedViaFallbackFormat: "fetched-via-fallback",
}

func (k OutcomeKind) String() string {
	if s, ok := outcomeNames[k]; ok {
		return s
	}
	return "OutcomeKind(" + strconv.Itoa(int(k)) + ")"
}

// MarshalYAML writes the kind by name.
func (k OutcomeKind) MarshalYAML() (any, error) { return k.String(), nil }

// UnmarshalYAML reads a kind written by MarshalYAML.
func (k *OutcomeKind) UnmarshalYAML(value *yaml.Node) error {
	for kind, name := range outcomeNames {
		if value.Value == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown outcome kind %q", value.Value)
}

// Outcome is the result of one task. Path is set for successful kinds;
// Err and Reason are set for FetchFailed.
type Outcome struct {
	Index     int         `yaml:"index"`
	PrimaryID string      `yaml:"primary_id"`
	Kind      OutcomeKind `yaml:"kind"`
	Path      string      `yaml:"path,omitempty"`
	Reason    string      `yaml:"reason,omitempty"`
	Err       error       `yaml:"-"`
}

// OK reports whether the task produced a file.
func (o Outcome) OK() bool { return o.Kind != FetchFailed }

// Failed builds a FetchFailed outcome for t. Errors that do not already
// carry ErrFetchFailed are wrapped with it.
func Failed(t Task, err error) Outcome {
	if !errors.Is(err, types.ErrFetchFailed) {
		err = fmt.Errorf("%w: %w", types.ErrFetchFailed, err)
	}
	return Outcome{Index: t.Index, PrimaryID: t.PrimaryID, Kind: FetchFailed, Reason: err.Error(), Err: err}
}

// FilePath returns "<dir>/<index>_<primary>.<ext>".
func FilePath(dir string, index int, primaryID, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%d_%s.%s", index, primaryID, ext))
}

// Executor runs retrieval batches. The HTTP client, process executor and
// format converter are injected so tests can substitute fakes.
type Executor struct {
	client    *http.Client
	exec      toolexec.Executor
	converter convert.Converter
	cfg       types.RetrievalConfig
	logger    *zap.Logger
}

// NewExecutor creates an Executor, filling zero config fields with defaults.
func NewExecutor(client *http.Client, exec toolexec.Executor, converter convert.Converter, cfg types.RetrievalConfig, logger *zap.Logger) *Executor {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if converter == nil {
		converter = convert.AtomSiteConverter{}
	}
	if cfg.BulkThreshold <= 0 {
		cfg.BulkThreshold = DefaultBulkThreshold
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RsyncHost == "" {
		cfg.RsyncHost = DefaultRsyncHost
	}
	if cfg.RsyncPort == 0 {
		cfg.RsyncPort = DefaultRsyncPort
	}
	if cfg.RsyncModule == "" {
		cfg.RsyncModule = DefaultRsyncModule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{client: client, exec: exec, converter: converter, cfg: cfg, logger: logger}
}

// UsesBulk reports whether a batch of n tasks from src is mirrored with
// rsync before per-file downloads.
func (e *Executor) UsesBulk(src source.Source, n int) bool {
	return src.BulkCapable() && n > e.cfg.BulkThreshold
}

// FetchAll retrieves every task into dir and returns outcomes aligned with
// tasks. name prefixes the bulk-transfer file list. Tasks left unfinished by
// a cancelled ctx are reported as FetchFailed.
func (e *Executor) FetchAll(ctx context.Context, dir, name string, tasks []Task) []Outcome {
	outcomes := make([]Outcome, len(tasks))
	done := make([]bool, len(tasks))

	if len(tasks) > 0 && e.UsesBulk(tasks[0].Source, len(tasks)) {
		e.bulk(ctx, dir, name, tasks, outcomes, done)
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i := range tasks {
		if done[i] {
			continue
		}
		g.Go(func() error {
			outcomes[i] = e.fetchOne(ctx, dir, tasks[i])
			return nil
		})
	}
	g.Wait()

	for _, o := range outcomes {
		if o.Kind == FetchFailed {
			e.logger.Warn("retrieval failed",
				zap.Int("index", o.Index), zap.String("id", o.PrimaryID), zap.String("reason", o.Reason))
		}
	}
	return outcomes
}

// fetchOne downloads t in the primary format, falling back to mmCIF plus
// conversion when the primary format is missing (HTTP 404).
func (e *Executor) fetchOne(ctx context.Context, dir string, t Task) Outcome {
	if err := ctx.Err(); err != nil {
		return Failed(t, err)
	}
	pdbPath := FilePath(dir, t.Index, t.PrimaryID, "pdb")

	url := t.URL("pdb")
	status, err := e.download(ctx, url, pdbPath)
	if err != nil {
		return Failed(t, err)
	}
	switch status {
	case http.StatusOK:
		e.logger.Debug("fetched", zap.Int("index", t.Index), zap.String("url", url))
		return Outcome{Index: t.Index, PrimaryID: t.PrimaryID, Kind: Fetched, Path: pdbPath}
	case http.StatusNotFound:
	default:
		return Failed(t, fmt.Errorf("status code %d from %s", status, url))
	}

	url = t.URL("cif")
	cifPath := FilePath(dir, t.Index, t.PrimaryID, "cif")
	status, err = e.download(ctx, url, cifPath)
	if err != nil {
		return Failed(t, err)
	}
	if status != http.StatusOK {
		return Failed(t, fmt.Errorf("status code %d from %s", status, url))
	}
	if err := e.converter.Convert(ctx, cifPath, pdbPath); err != nil {
		return Failed(t, err)
	}
	e.logger.Debug("fetched via fallback format", zap.Int("index", t.Index), zap.String("url", url))
	return Outcome{Index: t.Index, PrimaryID: t.PrimaryID, Kind: FetchedViaFallbackFormat, Path: pdbPath}
}

// download fetches url to destPath using a temporary file. Non-200
// responses leave nothing on disk and are reported by status code only.
func (e *Executor) download(ctx context.Context, url, destPath string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if e.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.UserAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := writeTemp(destPath, resp.Body); err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

// writeTemp copies r to destPath through a temporary file and rename.
func writeTemp(destPath string, r io.Reader) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".acquire-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, r)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
