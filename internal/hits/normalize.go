// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package hits turns a raw search table into the ordered list of unique hit
// identifiers to retrieve, and writes the hit manifests of a retrieval batch.
package hits

import (
	"fmt"
	"strings"

	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

// All requests every unique hit instead of a fixed count.
const All = -1

// Normalize extracts the target column of table, drops a stray header row,
// strips the annotation the web server appends to identifiers, removes
// duplicates keeping the first occurrence, and truncates to count (unless
// count is All). It fails with types.ErrNoHomologs when nothing is left.
func Normalize(table types.Table, count int) ([]string, error) {
	if count != All && count < 1 {
		return nil, fmt.Errorf("requested count must be positive or All, got %d", count)
	}

	targets := table.Targets()
	if len(targets) > 0 && targets[0] == types.TargetColumn {
		targets = targets[1:]
	}

	seen := make(map[string]struct{}, len(targets))
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		if table.Variant == types.VariantRemote {
			t = stripAnnotation(t)
		}
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		ids = append(ids, t)
	}

	if count != All && len(ids) > count {
		ids = ids[:count]
	}
	if len(ids) == 0 {
		return nil, types.ErrNoHomologs
	}
	return ids, nil
}

// stripAnnotation keeps the identifier of a "<id> <description>" target.
func stripAnnotation(target string) string {
	id, _, _ := strings.Cut(strings.TrimSpace(target), " ")
	return id
}
