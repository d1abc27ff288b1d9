// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs a Foldseek structural similarity search and returns the
// raw hit table. Two providers implement the same contract: LocalProvider
// drives an installed foldseek executable and RemoteProvider submits a job
// to the Foldseek web server and polls it to completion.
package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/foldseek-fetch/internal/source"
	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

// Provider executes a similarity search. Errors wrap one of
// types.ErrSearchUnavailable, types.ErrSearchExecution, types.ErrNoHomologs
// or types.ErrSearchTimedOut.
type Provider interface {
	Name() string
	Search(ctx context.Context, req Request) (types.Table, Metadata, error)
}

// Request is one search invocation. Build it with NewRequest and do not
// modify it afterwards.
type Request struct {
	// Query is the query structure in PDB format.
	Query []byte

	// QueryName names every file the run derives from the query.
	QueryName string

	// Source is the database to search.
	Source source.Source

	// Options are extra backend flags (local tool only).
	Options []string

	Layout types.Layout
}

// NewRequest builds a Request. queryPath is only used to derive the query
// name; pass "" or "-" for a query read from stdin to get a generated name.
func NewRequest(query []byte, queryPath string, src source.Source, layout types.Layout, options []string) Request {
	return Request{
		Query:     query,
		QueryName: QueryName(queryPath),
		Source:    src,
		Options:   append([]string(nil), options...),
		Layout:    layout,
	}
}

// QueryName derives the query name from its file path: "1abc.pdb" becomes
// "1abc_fsquery".
func QueryName(queryPath string) string {
	base := strings.TrimSuffix(filepath.Base(queryPath), filepath.Ext(queryPath))
	if queryPath == "" || queryPath == "-" || base == "" || base == "." {
		base = "query-" + uuid.NewString()[:8]
	}
	return base + "_fsquery"
}

// QueryPath is where the query structure is saved.
func (r Request) QueryPath() string {
	return filepath.Join(r.Layout.QueryDir(), r.QueryName+".pdb")
}

// writeQuery saves the query structure into the layout's query directory.
func (r Request) writeQuery() (string, error) {
	if len(r.Query) == 0 {
		return "", fmt.Errorf("%w: empty query structure", types.ErrSearchExecution)
	}
	path := r.QueryPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating query directory: %w", err)
	}
	if err := os.WriteFile(path, r.Query, 0o644); err != nil {
		return "", fmt.Errorf("writing query %s: %w", path, err)
	}
	return path, nil
}

// Metadata describes how a search was executed.
type Metadata struct {
	Backend    string `json:"backend" yaml:"backend"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
	Command    string `json:"command,omitempty" yaml:"command,omitempty"`
	JobID      string `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Polls      int    `json:"polls,omitempty" yaml:"polls,omitempty"`
	ResultPath string `json:"result_path" yaml:"result_path"`
}
