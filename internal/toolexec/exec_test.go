// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package toolexec

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	sh, err := OS{}.LookPath("sh")
	if err != nil {
		t.Skip("sh not on PATH")
	}
	return sh
}

func TestOSRun(t *testing.T) {
	sh := requireShell(t)

	tests := []struct {
		name       string
		script     string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"success", "echo hello", 0, "hello\n", ""},
		{"stderr captured", "echo oops >&2", 0, "", "oops\n"},
		{"non-zero exit is not an error", "echo partial; exit 3", 3, "partial\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := OS{}.Run(context.Background(), sh, "-c", tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, res.ExitCode)
			assert.Equal(t, tt.wantStdout, res.Stdout)
			assert.Equal(t, tt.wantStderr, res.Stderr)
			assert.Equal(t, tt.wantCode == 0, res.Success())
		})
	}
}

func TestOSRunMissingBinary(t *testing.T) {
	_, err := OS{}.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	assert.Error(t, err)
}

func TestOSRunContextCancelled(t *testing.T) {
	sh := requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := OS{}.Run(ctx, sh, "-c", "sleep 5")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCommandLine(t *testing.T) {
	got := CommandLine("foldseek", "easy-search", "q.pdb", "my db", "")
	assert.Equal(t, `foldseek easy-search q.pdb "my db" ""`, got)
}
