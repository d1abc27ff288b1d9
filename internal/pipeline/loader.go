// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

// WriterLoader hands files to an external viewer by listing them on W, one
// "<index>\t<path>\t<chain>" line per file.
type WriterLoader struct {
	W io.Writer

	mu sync.Mutex
}

// Load implements Loader.
func (l *WriterLoader) Load(ctx context.Context, f types.RetrievedFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintf(l.W, "%d\t%s\t%s\n", f.Index, f.Path, f.ChainID)
	return err
}
