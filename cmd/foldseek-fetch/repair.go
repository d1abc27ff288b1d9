// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/foldseek-fetch/internal/repair"
)

var repairCmd = &cobra.Command{
	Use:   "repair <file.pdb>...",
	Short: "Fix misaligned atom names in predicted structure files",
	Long: `Repair shifts left-justified one-letter-element atom names of ATOM records
into column 14, as emitted by some ESM Atlas files. The original is kept as
<file>.orig. Running it again on a repaired file changes nothing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().Bool("check", false, "only report files that need repair")
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	check, _ := cmd.Flags().GetBool("check")
	w := cmd.OutOrStdout()

	failed := 0
	for _, path := range args {
		var (
			changed bool
			err     error
		)
		if check {
			changed, err = repair.NeedsRepair(path)
		} else {
			changed, err = repair.File(path)
		}
		switch {
		case err != nil:
			logger.Warn("repair failed", zap.String("path", path), zap.Error(err))
			fmt.Fprintf(w, "failed:   %s (%v)\n", path, err)
			failed++
		case changed && check:
			fmt.Fprintf(w, "needs repair: %s\n", path)
		case changed:
			fmt.Fprintf(w, "repaired: %s\n", path)
		default:
			fmt.Fprintf(w, "ok:       %s\n", path)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) could not be processed", failed)
	}
	return nil
}
