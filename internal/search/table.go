// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

// maxLineSize bounds a single result line. Remote rows carry full target
// sequences and alignments.
const maxLineSize = 16 << 20

// ParseTable reads tab-separated foldseek output. Columns are named by the
// variant's fixed schema; rows shorter than the schema keep what they have.
// Blank lines are skipped. A row without a target column is an error.
func ParseTable(r io.Reader, variant types.TableVariant) (types.Table, error) {
	columns := types.LocalColumns
	if variant == types.VariantRemote {
		columns = types.RemoteColumns
	}
	table := types.Table{Variant: variant, Columns: columns}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		values := strings.Split(text, "\t")
		if len(values) < 2 {
			return types.Table{}, fmt.Errorf("line %d: expected at least 2 columns, got %d", line, len(values))
		}
		fields := make(map[string]string, len(values))
		for i, v := range values {
			if i >= len(columns) {
				break
			}
			fields[columns[i]] = v
		}
		table.Rows = append(table.Rows, types.Hit{
			Target: fields[types.TargetColumn],
			Fields: fields,
		})
	}
	if err := sc.Err(); err != nil {
		return types.Table{}, fmt.Errorf("reading results: %w", err)
	}
	return table, nil
}

// readTableFile opens path and parses it as a result table.
func readTableFile(path string, variant types.TableVariant) (types.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Table{}, err
	}
	defer f.Close()
	return ParseTable(f, variant)
}
