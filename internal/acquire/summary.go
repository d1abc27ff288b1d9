// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"io"
)

// BatchResult counts the outcomes of a retrieval batch.
type BatchResult struct {
	Fetched  int `yaml:"fetched"`
	Fallback int `yaml:"fallback"`
	Failed   int `yaml:"failed"`
}

// Total returns the number of tasks processed.
func (r BatchResult) Total() int {
	return r.Fetched + r.Fallback + r.Failed
}

// HasFailures reports whether any task failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Summarize counts outcomes by kind.
func Summarize(outcomes []Outcome) BatchResult {
	var r BatchResult
	for _, o := range outcomes {
		switch o.Kind {
		case Fetched:
			r.Fetched++
		case FetchedViaFallbackFormat:
			r.Fallback++
		default:
			r.Failed++
		}
	}
	return r
}

// Report writes one status line per outcome followed by the batch summary.
func Report(w io.Writer, outcomes []Outcome) BatchResult {
	for _, o := range outcomes {
		switch o.Kind {
		case Fetched:
			fmt.Fprintf(w, "fetched:  %d %s\n", o.Index, o.PrimaryID)
		case FetchedViaFallbackFormat:
			fmt.Fprintf(w, "fetched:  %d %s (converted from mmCIF)\n", o.Index, o.PrimaryID)
		default:
			fmt.Fprintf(w, "failed:   %d %s (%s)\n", o.Index, o.PrimaryID, o.Reason)
		}
	}
	r := Summarize(outcomes)
	fmt.Fprintf(w, "\nBatch summary: %d fetched, %d via fallback, %d failed (total: %d)\n",
		r.Fetched, r.Fallback, r.Failed, r.Total())
	return r
}
