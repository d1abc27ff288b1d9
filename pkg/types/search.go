// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the foldseek-fetch pipeline:
// search tables and hits, retrieved structure files, stage configuration, and
// the error kinds every stage reports through.
package types

// TableVariant identifies which backend produced a hit table. The column
// schema differs between variants but the target column is always present.
type TableVariant string

const (
	VariantLocal  TableVariant = "local"
	VariantRemote TableVariant = "remote"
)

// TargetColumn is the column carrying the hit identifier in every variant.
const TargetColumn = "target"

// LocalColumns is the fixed header-less column order of foldseek easy-search
// output in its default (BLAST-tab like) format.
var LocalColumns = []string{
	"query", "target", "fident", "alnlen", "mismatch", "gapopen",
	"qstart", "qend", "tstart", "tend", "evalue", "bits",
}

// RemoteColumns is the column order of the .m8 files bundled in a Foldseek
// web server result archive.
var RemoteColumns = []string{
	"query", "target", "fident", "alnlen", "mismatch", "gapopen",
	"qstart", "qend", "tstart", "tend", "prob", "evalue", "bits",
	"qlen", "tlen", "qaln", "taln", "tca", "tseq", "taxid", "taxname",
}

// Hit is one row of backend output.
type Hit struct {
	// Target is the target identifier exactly as the backend returned it.
	Target string `json:"target" yaml:"target"`

	// Fields maps every column name to its raw string value, Target included.
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Table is the implementation-neutral raw result of a search: rows in
// backend order.
type Table struct {
	Variant TableVariant
	Columns []string
	Rows    []Hit
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Targets returns the target column in row order.
func (t Table) Targets() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Target
	}
	return out
}
