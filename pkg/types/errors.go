// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error kinds shared by the pipeline stages. Stages wrap these with context
// using fmt.Errorf("...: %w", ...) so callers can classify with errors.Is.
var (
	// ErrSearchUnavailable means no backend could be located or reached.
	ErrSearchUnavailable = errors.New("search backend unavailable")

	// ErrSearchExecution means the backend ran but signalled failure.
	ErrSearchExecution = errors.New("search execution failed")

	// ErrNoHomologs means the backend succeeded with zero usable hits.
	ErrNoHomologs = errors.New("no homologs found")

	// ErrSearchTimedOut means remote job polling exceeded its bound.
	ErrSearchTimedOut = errors.New("search timed out")

	// ErrFetchFailed marks a per-task retrieval failure.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrFormatConversion marks a failed fallback-format conversion. It is
	// always reported as a cause of ErrFetchFailed.
	ErrFormatConversion = errors.New("format conversion failed")
)

// IsFatal reports whether err belongs to a kind that terminates a run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSearchUnavailable) ||
		errors.Is(err, ErrSearchExecution) ||
		errors.Is(err, ErrNoHomologs) ||
		errors.Is(err, ErrSearchTimedOut)
}
