// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

func TestWriterLoader(t *testing.T) {
	var buf bytes.Buffer
	l := &WriterLoader{W: &buf}
	require.NoError(t, l.Load(context.Background(), types.RetrievedFile{Index: 2, Path: "hits/2_6abc.pdb", ChainID: "B"}))
	assert.Equal(t, "2\thits/2_6abc.pdb\tB\n", buf.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Load(ctx, types.RetrievedFile{}), context.Canceled)
}
