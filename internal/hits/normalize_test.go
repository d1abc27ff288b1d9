// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hits

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

func table(variant types.TableVariant, targets ...string) types.Table {
	t := types.Table{Variant: variant}
	for _, id := range targets {
		t.Rows = append(t.Rows, types.Hit{Target: id, Fields: map[string]string{"target": id}})
	}
	return t
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		table types.Table
		count int
		want  []string
	}{
		{
			name:  "header row dropped then truncated",
			table: table(types.VariantLocal, "target", "5XYZ_A", "5XYZ_A", "1ABC_B"),
			count: 1,
			want:  []string{"5XYZ_A"},
		},
		{
			name:  "dedupe keeps first occurrence order",
			table: table(types.VariantLocal, "b", "a", "b", "c", "a"),
			count: 10,
			want:  []string{"b", "a", "c"},
		},
		{
			name:  "all keeps everything",
			table: table(types.VariantLocal, "1abc_A", "2def_B", "1abc_A", "3ghi_C"),
			count: All,
			want:  []string{"1abc_A", "2def_B", "3ghi_C"},
		},
		{
			name:  "target only removed in first row",
			table: table(types.VariantLocal, "x_A", "target"),
			count: All,
			want:  []string{"x_A", "target"},
		},
		{
			name:  "remote annotations stripped before dedupe",
			table: table(types.VariantRemote, "6vxx_B Spike glycoprotein", "6vxx_B Spike", "AF-P0DTC2-F1-model_v4 Spike"),
			count: All,
			want:  []string{"6vxx_B", "AF-P0DTC2-F1-model_v4"},
		},
		{
			name:  "local identifiers keep spaces untouched",
			table: table(types.VariantLocal, "odd id"),
			count: All,
			want:  []string{"odd id"},
		},
		{
			name:  "count larger than unique",
			table: table(types.VariantLocal, "a", "a"),
			count: 5,
			want:  []string{"a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.table, tt.count)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeNoHomologs(t *testing.T) {
	for _, tbl := range []types.Table{
		table(types.VariantLocal),
		table(types.VariantLocal, "target"),
		table(types.VariantRemote, "   "),
	} {
		_, err := Normalize(tbl, All)
		assert.ErrorIs(t, err, types.ErrNoHomologs)
	}
}

func TestNormalizeInvalidCount(t *testing.T) {
	_, err := Normalize(table(types.VariantLocal, "a"), 0)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrNoHomologs)
}

// Randomized check of the dedup and truncation properties.
func TestNormalizeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(40)
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("%d_A", rng.Intn(12))
		}

		var firstSeen []string
		seen := map[string]bool{}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				firstSeen = append(firstSeen, id)
			}
		}

		count := 1 + rng.Intn(15)
		got, err := Normalize(table(types.VariantLocal, ids...), count)
		require.NoError(t, err)
		assert.Len(t, got, min(count, len(firstSeen)))
		assert.Equal(t, firstSeen[:len(got)], got)

		all, err := Normalize(table(types.VariantLocal, ids...), All)
		require.NoError(t, err)
		assert.Equal(t, firstSeen, all)
	}
}
