// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one homolog retrieval: search, normalize the hit
// list, resolve download locations, fetch, repair and hand each file to a
// loader. Search failures abort the run; per-hit failures are recorded in
// the report and never stop the batch.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/foldseek-fetch/internal/acquire"
	"github.com/pdiddy/foldseek-fetch/internal/hits"
	"github.com/pdiddy/foldseek-fetch/internal/repair"
	"github.com/pdiddy/foldseek-fetch/internal/search"
	"github.com/pdiddy/foldseek-fetch/internal/source"
	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

// Loader receives every retrieved file once repair has finished.
type Loader interface {
	Load(ctx context.Context, file types.RetrievedFile) error
}

// Fetcher retrieves a batch of tasks into dir. *acquire.Executor
// implements it.
type Fetcher interface {
	FetchAll(ctx context.Context, dir, name string, tasks []acquire.Task) []acquire.Outcome
}

// Pipeline wires the stages of a run. Loader and Out are optional.
type Pipeline struct {
	Provider search.Provider
	Fetcher  Fetcher
	Loader   Loader

	// Repair enables column repair for sources that need it.
	Repair bool

	Logger *zap.Logger

	// Out receives per-hit status lines and the batch summary.
	Out io.Writer
}

// Report is the record of a run, persisted next to the layout directories.
type Report struct {
	Query     string                `yaml:"query"`
	Source    string                `yaml:"source"`
	Requested int                   `yaml:"requested"`
	Search    search.Metadata       `yaml:"search"`
	Manifest  string                `yaml:"manifest"`
	Hits      []string              `yaml:"hits"`
	Outcomes  []acquire.Outcome     `yaml:"outcomes"`
	Files     []types.RetrievedFile `yaml:"files"`
	Summary   acquire.BatchResult   `yaml:"summary"`
	StartedAt time.Time             `yaml:"started_at"`
	Duration  time.Duration         `yaml:"duration"`
}

// ReportPath returns "<root>/<name>_report.yaml".
func ReportPath(root, name string) string {
	return filepath.Join(root, name+"_report.yaml")
}

// Run executes the pipeline for req, retrieving up to count hits (hits.All
// for every hit). The error is non-nil only for failures that end the run:
// layout creation, search and an empty hit list.
func (p *Pipeline) Run(ctx context.Context, req search.Request, count int) (*Report, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := p.Out
	if out == nil {
		out = io.Discard
	}
	logger = logger.With(zap.String("query", req.QueryName), zap.Stringer("source", req.Source))

	report := &Report{
		Query:     req.QueryName,
		Source:    req.Source.String(),
		Requested: count,
		StartedAt: time.Now(),
	}

	if err := req.Layout.Ensure(); err != nil {
		return nil, err
	}

	logger.Info("searching", zap.String("backend", p.Provider.Name()))
	table, meta, err := p.Provider.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	report.Search = meta
	logger.Info("search finished", zap.Int("rows", table.Len()), zap.String("results", meta.ResultPath))

	ids, err := hits.Normalize(table, count)
	if err != nil {
		return nil, err
	}
	report.Hits = ids

	// Unresolvable identifiers fail in place; the rest form the batch.
	outcomes := make([]acquire.Outcome, len(ids))
	resolved := make([]source.Resolved, len(ids))
	var (
		tasks   []acquire.Task
		slots   []int
		entries []hits.Entry
	)
	for i, id := range ids {
		r, err := source.Resolve(id, req.Source)
		if err != nil {
			outcomes[i] = acquire.Failed(acquire.Task{Index: i + 1, Resolved: source.Resolved{PrimaryID: id}}, err)
			continue
		}
		resolved[i] = r
		tasks = append(tasks, acquire.Task{Index: i + 1, Resolved: r})
		slots = append(slots, i)
		entries = append(entries, hits.Entry{PrimaryID: r.PrimaryID, ChainID: r.ChainID})
	}

	hitsDir := req.Layout.HitsDir()
	manifest, err := hits.WriteManifest(hitsDir, req.QueryName, entries)
	if err != nil {
		logger.Warn("writing hit manifest", zap.Error(err))
	}
	report.Manifest = manifest

	logger.Info("retrieving", zap.Int("tasks", len(tasks)))
	for k, o := range p.Fetcher.FetchAll(ctx, hitsDir, req.QueryName, tasks) {
		outcomes[slots[k]] = o
	}
	report.Outcomes = outcomes

	for i, o := range outcomes {
		if !o.OK() {
			continue
		}
		t := resolved[i]
		file := types.RetrievedFile{
			Index:       o.Index,
			PrimaryID:   t.PrimaryID,
			ChainID:     t.ChainID,
			Source:      t.Source.String(),
			Path:        o.Path,
			ViaFallback: o.Kind == acquire.FetchedViaFallbackFormat,
		}
		if p.Repair && t.Source.NeedsRepair() {
			changed, err := repair.File(o.Path)
			if err != nil {
				logger.Warn("repair failed", zap.String("path", o.Path), zap.Error(err))
			}
			file.Repaired = changed
		}
		report.Files = append(report.Files, file)
	}

	if p.Loader != nil {
		for _, f := range report.Files {
			if err := p.Loader.Load(ctx, f); err != nil {
				logger.Warn("loading structure", zap.Int("index", f.Index), zap.String("path", f.Path), zap.Error(err))
			}
		}
	}

	report.Summary = acquire.Report(out, outcomes)
	report.Duration = time.Since(report.StartedAt)
	if err := WriteReport(ReportPath(req.Layout.Root, req.QueryName), report); err != nil {
		logger.Warn("writing report", zap.Error(err))
	}
	return report, nil
}

// WriteReport writes report to path as YAML.
func WriteReport(path string, report *Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport reads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &report, nil
}
