// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"fmt"
	"strings"
)

// DefaultChain is the chain assigned to single-chain predicted models.
const DefaultChain = "A"

// Resolved is the download plan for one hit identifier.
type Resolved struct {
	PrimaryID string
	ChainID   string
	Source    Source
}

// URL returns the download URL of the entry in the given file format
// extension ("pdb" or "cif").
func (r Resolved) URL(ext string) string {
	return fmt.Sprintf("%s/%s.%s", strings.TrimRight(r.Source.Endpoint(), "/"), r.PrimaryID, ext)
}

// Resolve derives the primary identifier and chain of a hit for src.
//
// PDB identifiers look like "5xyz_A"; web server results may decorate the
// entry part ("5xyz-assembly1.cif.gz_A"), which is dropped. AlphaFold family
// identifiers are used verbatim with chain A. ESM Atlas identifiers lose
// their trailing ".suffix".
func Resolve(identifier string, src Source) (Resolved, error) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return Resolved{}, fmt.Errorf("empty identifier")
	}
	v, ok := variants[src]
	if !ok {
		return Resolved{}, fmt.Errorf("unsupported source %v", src)
	}

	r := Resolved{ChainID: DefaultChain, Source: src}
	switch v.split {
	case splitUnderscore:
		entry, chain, found := strings.Cut(id, "_")
		if i := strings.IndexAny(entry, "-."); i > 0 {
			entry = entry[:i]
		}
		r.PrimaryID = entry
		if found && chain != "" {
			r.ChainID = chain
		}
	case splitVerbatim:
		r.PrimaryID = id
	case splitDotSuffix:
		r.PrimaryID = id
		if i := strings.LastIndex(id, "."); i > 0 {
			r.PrimaryID = id[:i]
		}
	}

	if r.PrimaryID == "" {
		return Resolved{}, fmt.Errorf("identifier %q has no entry part", identifier)
	}
	return r, nil
}
