// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/foldseek-fetch/internal/source"
)

var databasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "List the databases a search can target",
	RunE: func(cmd *cobra.Command, args []string) error {
		listDatabases(cmd.OutOrStdout(), viper.GetString(keyDatabaseDir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(databasesCmd)
}

func listDatabases(w io.Writer, dbDir string) {
	fmt.Fprintf(w, "%-3s %-15s %-15s %-40s %s\n", "#", "NAME", "SERVER DB", "LOCAL DB", "NOTES")
	for i, s := range source.All() {
		notes := ""
		if s.BulkCapable() {
			notes = "rsync above threshold"
		}
		if s.NeedsRepair() {
			notes = "column repair"
		}
		fmt.Fprintf(w, "%-3d %-15s %-15s %-40s %s\n",
			i+1, s, s.ServerDB(), filepath.Join(dbDir, s.LocalDB()), notes)
	}
}
