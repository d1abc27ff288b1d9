// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/foldseek-fetch/internal/source"
	"github.com/pdiddy/foldseek-fetch/internal/toolexec"
	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

const fakeQueryPDB = "ATOM      1  CA  MET A   1      11.104  13.207   2.100  1.00 20.00           C\nEND\n"

// fakeFoldseek simulates a foldseek binary: "-h" prints help with version,
// "easy-search" writes output to its fourth argument.
func fakeFoldseek(version, output string, exitCode int) *toolexec.Fake {
	return &toolexec.Fake{
		Paths: map[string]string{"foldseek": "/usr/bin/foldseek"},
		Handler: func(name string, args []string) (toolexec.Result, error) {
			if len(args) > 0 && args[0] == "-h" {
				if version == "" {
					return toolexec.Result{Stdout: "usage: foldseek"}, nil
				}
				return toolexec.Result{Stdout: "foldseek Version: " + version + "\n"}, nil
			}
			if exitCode != 0 {
				return toolexec.Result{ExitCode: exitCode, Stderr: "Error: database not found\n"}, nil
			}
			if err := os.WriteFile(args[3], []byte(output), 0o644); err != nil {
				return toolexec.Result{}, err
			}
			return toolexec.Result{Stdout: "Time for processing: 0h 0m 1s\n"}, nil
		},
	}
}

func localRequest(t *testing.T, src source.Source) Request {
	t.Helper()
	layout := types.Layout{Root: t.TempDir(), Mode: types.ModeLocal}
	require.NoError(t, layout.Ensure())
	return NewRequest([]byte(fakeQueryPDB), "/data/1abc.pdb", src, layout, []string{"--exhaustive-search", "1"})
}

func newTestLocal(t *testing.T, exec toolexec.Executor) *LocalProvider {
	t.Setenv("CONDA_EXE", "")
	return NewLocalProvider(exec, types.LocalSearchConfig{
		DatabaseDir: "/dbs",
		SearchRoot:  t.TempDir(),
	}, zaptest.NewLogger(t))
}

func TestLocalSearch(t *testing.T) {
	fake := fakeFoldseek("9.427df8a", sampleLocalAln, 0)
	p := newTestLocal(t, fake)
	req := localRequest(t, source.PDB)

	table, meta, err := p.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, types.VariantLocal, table.Variant)
	assert.Equal(t, "local", meta.Backend)
	assert.Equal(t, "9.427df8a", meta.Version)
	assert.Equal(t, filepath.Join(req.Layout.ResultsDir(), "1abc_aln"), meta.ResultPath)

	// Query was saved for the tool.
	data, err := os.ReadFile(req.QueryPath())
	require.NoError(t, err)
	assert.Equal(t, fakeQueryPDB, string(data))

	assert.True(t, fake.Called("easy-search", req.QueryPath(), "/dbs/pd", "--remove-tmp-files true",
		"--prefilter-mode 1", "--exhaustive-search 1"))
	assert.Contains(t, meta.Command, "easy-search")
}

func TestLocalSearchOldVersionOmitsPrefilter(t *testing.T) {
	for _, version := range []string{"5.53465f0", ""} {
		fake := fakeFoldseek(version, sampleLocalAln, 0)
		p := newTestLocal(t, fake)

		_, _, err := p.Search(context.Background(), localRequest(t, source.AFSwissProt))
		require.NoError(t, err)
		assert.False(t, fake.Called("--prefilter-mode"), "version %q", version)
		assert.True(t, fake.Called("easy-search", "/dbs/sp"))
	}
}

func TestLocalSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		exec    *toolexec.Fake
		wantErr error
	}{
		{
			name:    "tool missing",
			exec:    &toolexec.Fake{},
			wantErr: types.ErrSearchUnavailable,
		},
		{
			name:    "non-zero exit",
			exec:    fakeFoldseek("9.1", "", 1),
			wantErr: types.ErrSearchExecution,
		},
		{
			name:    "no homologs",
			exec:    fakeFoldseek("9.1", "", 0),
			wantErr: types.ErrNoHomologs,
		},
		{
			name: "output file missing",
			exec: &toolexec.Fake{
				Paths: map[string]string{"foldseek": "/usr/bin/foldseek"},
			},
			wantErr: types.ErrSearchExecution,
		},
		{
			name: "process could not start",
			exec: &toolexec.Fake{
				Paths: map[string]string{"foldseek": "/usr/bin/foldseek"},
				Handler: func(name string, args []string) (toolexec.Result, error) {
					if args[0] == "-h" {
						return toolexec.Result{}, nil
					}
					return toolexec.Result{}, errors.New("exec format error")
				},
			},
			wantErr: types.ErrSearchExecution,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestLocal(t, tt.exec)
			_, _, err := p.Search(context.Background(), localRequest(t, source.PDB))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLocalSearchStaleResultRemoved(t *testing.T) {
	// The tool "succeeds" without writing output; a result left over from
	// an earlier run must not be mistaken for this run's output.
	fake := &toolexec.Fake{Paths: map[string]string{"foldseek": "/usr/bin/foldseek"}}
	p := newTestLocal(t, fake)
	req := localRequest(t, source.PDB)
	stale := filepath.Join(req.Layout.ResultsDir(), "1abc_aln")
	require.NoError(t, os.WriteFile(stale, []byte(sampleLocalAln), 0o644))

	_, _, err := p.Search(context.Background(), req)
	assert.ErrorIs(t, err, types.ErrSearchExecution)
}

func TestLocalSearchExplicitExecutable(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "foldseek")
	writeExecutable(t, bin)

	fake := fakeFoldseek("9.1", sampleLocalAln, 0)
	fake.Paths = nil
	t.Setenv("CONDA_EXE", "")
	p := NewLocalProvider(fake, types.LocalSearchConfig{Executable: bin, DatabaseDir: "/dbs"}, nil)

	_, _, err := p.Search(context.Background(), localRequest(t, source.PDB))
	require.NoError(t, err)
	assert.True(t, fake.Called(bin, "easy-search"))

	p = NewLocalProvider(fake, types.LocalSearchConfig{Executable: bin + ".missing"}, nil)
	_, _, err = p.Search(context.Background(), localRequest(t, source.PDB))
	assert.ErrorIs(t, err, types.ErrSearchUnavailable)
}

func TestQueryName(t *testing.T) {
	assert.Equal(t, "1abc_fsquery", QueryName("/data/1abc.pdb"))
	assert.Equal(t, "model_fsquery", QueryName("model"))

	gen := QueryName("-")
	assert.True(t, strings.HasPrefix(gen, "query-"), gen)
	assert.True(t, strings.HasSuffix(gen, "_fsquery"), gen)
	assert.NotEqual(t, gen, QueryName(""), "generated names are unique")
}

func TestNewRequestCopiesOptions(t *testing.T) {
	opts := []string{"-e", "0.001"}
	req := NewRequest([]byte("x"), "q.pdb", source.PDB, types.Layout{}, opts)
	opts[0] = "--changed"
	assert.Equal(t, []string{"-e", "0.001"}, req.Options)
}
