// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"

	"github.com/pdiddy/foldseek-fetch/internal/toolexec"
	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

const binGemmi = "gemmi"

// GemmiConverter converts files by running "gemmi convert". It depends on a
// toolexec.Executor injected at construction time.
type GemmiConverter struct {
	exec toolexec.Executor
	bin  string
}

// NewGemmiConverter creates a converter that runs gemmi through exec. It
// verifies that gemmi is on PATH before returning.
func NewGemmiConverter(exec toolexec.Executor) (*GemmiConverter, error) {
	bin, err := exec.LookPath(binGemmi)
	if err != nil {
		return nil, fmt.Errorf("gemmi not available: %w", err)
	}
	return &GemmiConverter{exec: exec, bin: bin}, nil
}

// Convert runs gemmi convert --to=pdb on cifPath.
func (g *GemmiConverter) Convert(ctx context.Context, cifPath, pdbPath string) error {
	res, err := g.exec.Run(ctx, g.bin, "convert", "--to=pdb", cifPath, pdbPath)
	if err != nil {
		return fmt.Errorf("%w: running gemmi on %s: %w", types.ErrFormatConversion, cifPath, err)
	}
	if !res.Success() {
		return fmt.Errorf("%w: gemmi exited with status %d on %s: %s",
			types.ErrFormatConversion, res.ExitCode, cifPath, res.Stderr)
	}
	if info, err := os.Stat(pdbPath); err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: gemmi produced no output for %s", types.ErrFormatConversion, cifPath)
	}
	return nil
}

// New returns the converter for backend. Unknown names fall back to the
// native converter.
func New(backend Backend, exec toolexec.Executor) (Converter, error) {
	if backend == BackendGemmi {
		return NewGemmiConverter(exec)
	}
	return AtomSiteConverter{}, nil
}
