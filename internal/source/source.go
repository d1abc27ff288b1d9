// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source maps hit identifiers to download locations. Each database a
// search can run against is a Source variant that carries its own endpoint,
// identifier-splitting rule and transfer capabilities. Nothing in this
// package performs I/O.
package source

import (
	"fmt"
	"strconv"
	"strings"
)

// Source is one of the closed set of databases a search can target.
type Source int

const (
	Unknown Source = iota
	PDB
	AFSwissProt
	AFUniProt50
	AFProteome
	CATH
	ESMAtlas
)

// Download endpoints. Declared as vars so tests can substitute httptest servers.
var (
	PDBFileBase       = "https://files.rcsb.org/view"
	AlphaFoldFileBase = "https://alphafold.ebi.ac.uk/files"
	ESMAtlasFileBase  = "https://api.esmatlas.com/fetchPredictedStructure"
)

type variant struct {
	name     string
	localDB  string // database stem under the local database directory
	serverDB string // database name on the Foldseek web server
	aliases  []string
	split    splitRule
	bulk     bool
	repair   bool
	endpoint func() string
}

type splitRule int

const (
	splitUnderscore splitRule = iota
	splitVerbatim
	splitDotSuffix
)

var variants = map[Source]variant{
	PDB: {
		name: "pdb", localDB: "pd", serverDB: "pdb100",
		aliases:  []string{"pdb100", "1"},
		split:    splitUnderscore,
		bulk:     true,
		endpoint: func() string { return PDBFileBase },
	},
	AFSwissProt: {
		name: "afdb-swissprot", localDB: "sp", serverDB: "afdb-swissprot",
		aliases:  []string{"swissprot", "sp", "2"},
		split:    splitVerbatim,
		endpoint: func() string { return AlphaFoldFileBase },
	},
	AFUniProt50: {
		name: "afdb50", localDB: "up50", serverDB: "afdb50",
		aliases:  []string{"uniprot50", "up50", "3"},
		split:    splitVerbatim,
		endpoint: func() string { return AlphaFoldFileBase },
	},
	AFProteome: {
		name: "afdb-proteome", localDB: "proteome", serverDB: "afdb-proteome",
		aliases:  []string{"proteome", "4"},
		split:    splitVerbatim,
		endpoint: func() string { return AlphaFoldFileBase },
	},
	CATH: {
		name: "cath50", localDB: "cath", serverDB: "cath50",
		aliases:  []string{"cath", "5"},
		split:    splitVerbatim,
		endpoint: func() string { return AlphaFoldFileBase },
	},
	ESMAtlas: {
		name: "mgnify-esm30", localDB: "esm", serverDB: "mgnify_esm30",
		aliases:  []string{"esm", "esmatlas", "mgnify_esm30", "6"},
		split:    splitDotSuffix,
		repair:   true,
		endpoint: func() string { return ESMAtlasFileBase },
	},
}

// All lists every supported source in menu order.
func All() []Source {
	return []Source{PDB, AFSwissProt, AFUniProt50, AFProteome, CATH, ESMAtlas}
}

func (s Source) String() string {
	if v, ok := variants[s]; ok {
		return v.name
	}
	return "unknown"
}

// LocalDB returns the database stem used by a local foldseek installation.
func (s Source) LocalDB() string { return variants[s].localDB }

// ServerDB returns the database name used by the Foldseek web server.
func (s Source) ServerDB() string { return variants[s].serverDB }

// Endpoint returns the base URL structure files are downloaded from.
func (s Source) Endpoint() string {
	v, ok := variants[s]
	if !ok {
		return ""
	}
	return v.endpoint()
}

// BulkCapable reports whether entries of this source can be mirrored with rsync.
func (s Source) BulkCapable() bool { return variants[s].bulk }

// NeedsRepair reports whether files from this source need column repair.
func (s Source) NeedsRepair() bool { return variants[s].repair }

// Parse maps a database name, alias, or 1-based menu index to a Source.
func Parse(name string) (Source, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, s := range All() {
		v := variants[s]
		if n == v.name {
			return s, nil
		}
		for _, a := range v.aliases {
			if n == a {
				return s, nil
			}
		}
	}
	if i, err := strconv.Atoi(n); err == nil {
		return Unknown, fmt.Errorf("database index %d out of range 1-%d", i, len(All()))
	}
	return Unknown, fmt.Errorf("unknown database %q", name)
}
