// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pdiddy/foldseek-fetch/internal/toolexec"
)

// versionPattern matches the "Version: 9.427df8a" line of foldseek -h.
var versionPattern = regexp.MustCompile(`Version:\s*(\S+)`)

// prefilterModeSince is the first major release with --prefilter-mode.
const prefilterModeSince = 6

// ParseVersion extracts the version string from foldseek help output.
func ParseVersion(help string) (string, bool) {
	m := versionPattern.FindStringSubmatch(help)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// DetectVersion runs "<bin> -h" and parses the version it reports.
func DetectVersion(ctx context.Context, exec toolexec.Executor, bin string) (string, error) {
	res, err := exec.Run(ctx, bin, "-h")
	if err != nil {
		return "", err
	}
	if v, ok := ParseVersion(res.Stdout); ok {
		return v, nil
	}
	if v, ok := ParseVersion(res.Stderr); ok {
		return v, nil
	}
	return "", fmt.Errorf("no version in %s -h output", bin)
}

// SupportsPrefilterMode reports whether a foldseek version accepts the
// memory-efficient "--prefilter-mode 1" flag. Release versions start with a
// major number; builds from source report a "b"-prefixed hash and are recent
// enough. Anything unparseable is treated as unsupported.
func SupportsPrefilterMode(version string) bool {
	if version == "" {
		return false
	}
	if version[0] == 'b' {
		return true
	}
	end := 0
	for end < len(version) && version[end] >= '0' && version[end] <= '9' {
		end++
	}
	if end == 0 {
		return false
	}
	major, err := strconv.Atoi(version[:end])
	if err != nil {
		return false
	}
	return major >= prefilterModeSince
}
