// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package toolexec

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Fake is an in-memory Executor for tests. Paths maps binary names to the
// path LookPath returns; Handler, when set, produces the Result for Run.
// Every Run call is recorded in Calls.
type Fake struct {
	Paths   map[string]string
	Handler func(name string, args []string) (Result, error)

	mu    sync.Mutex
	Calls [][]string
}

func (f *Fake) LookPath(file string) (string, error) {
	if p, ok := f.Paths[file]; ok {
		return p, nil
	}
	return "", errors.New("executable file not found: " + file)
}

func (f *Fake) Run(ctx context.Context, name string, args ...string) (Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, append([]string{name}, args...))
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if f.Handler == nil {
		return Result{}, nil
	}
	return f.Handler(name, args)
}

// Called reports whether any recorded call contains all of the given
// substrings in its joined command line.
func (f *Fake) Called(parts ...string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		line := strings.Join(c, " ")
		ok := true
		for _, p := range parts {
			if !strings.Contains(line, p) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
