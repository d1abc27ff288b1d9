// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/foldseek-fetch/internal/acquire"
	"github.com/pdiddy/foldseek-fetch/internal/convert"
	"github.com/pdiddy/foldseek-fetch/internal/pipeline"
	"github.com/pdiddy/foldseek-fetch/internal/search"
	"github.com/pdiddy/foldseek-fetch/internal/source"
	"github.com/pdiddy/foldseek-fetch/internal/toolexec"
	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <query.pdb|->",
	Short: "Search a query structure and download its homologs",
	Long: `Fetch runs a Foldseek search for the query structure (a PDB file, or "-"
for stdin) against the selected database and downloads the top hits into
<output>/hits. A report of the run is written to <output>/<query>_report.yaml.

Databases: pdb, afdb-swissprot, afdb50, afdb-proteome, cath50, mgnify-esm30
(or their index 1-6). Individual download failures are reported but do not
stop the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.StringP("database", "d", "pdb", "database to search")
	f.StringP("count", "n", "10", `number of structures to retrieve, or "all"`)
	f.StringP("output", "o", ".", "output directory")
	f.String("mode", string(types.ModeLocal), "search backend: local or remote")
	f.String("foldseek", "", "path to the foldseek executable (default: locate it)")
	f.String("db-dir", search.DefaultDatabaseDir, "directory with the local foldseek databases")
	f.StringSlice("option", nil, "extra easy-search flag (repeatable)")
	f.String("converter", string(convert.BackendNative), "mmCIF to PDB converter: native or gemmi")
	f.Bool("repair", true, "repair misaligned atom names in ESM Atlas files")
	f.Duration("timeout", defaultTimeout, "HTTP request timeout")
	f.Duration("max-wait", 0, "give up on a server search after this long (0: no limit)")
	f.Bool("list", false, "print retrieved files as index, path and chain")

	for key, flag := range map[string]string{
		keyDatabase:     "database",
		keyCount:        "count",
		keyOutputDir:    "output",
		keySearchMode:   "mode",
		keyExecutable:   "foldseek",
		keyDatabaseDir:  "db-dir",
		keyLocalOptions: "option",
		keyConverter:    "converter",
		keyRepair:       "repair",
		keyTimeout:      "timeout",
		keyMaxWait:      "max-wait",
	} {
		if err := viper.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	src, err := source.Parse(cfg.Database)
	if err != nil {
		return err
	}
	query, err := readQuery(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	exec := toolexec.OS{}
	conv, err := convert.New(convert.Backend(viper.GetString(keyConverter)), exec)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: cfg.Retrieval.Timeout}

	var provider search.Provider
	if cfg.Search.Mode == types.ModeRemote {
		provider = search.NewRemoteProvider(client, cfg.Search.Remote, logger)
	} else {
		provider = search.NewLocalProvider(exec, cfg.Search.Local, logger)
	}

	p := &pipeline.Pipeline{
		Provider: provider,
		Fetcher:  acquire.NewExecutor(client, exec, conv, cfg.Retrieval, logger),
		Repair:   cfg.Retrieval.Repair,
		Logger:   logger,
		Out:      cmd.OutOrStdout(),
	}
	if list, _ := cmd.Flags().GetBool("list"); list {
		p.Loader = &pipeline.WriterLoader{W: cmd.OutOrStdout()}
	}

	layout := types.Layout{Root: cfg.OutputDir, Mode: cfg.Search.Mode}
	req := search.NewRequest(query, args[0], src, layout, nil)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting run",
		zap.String("query", req.QueryName),
		zap.Stringer("database", src),
		zap.String("mode", string(cfg.Search.Mode)),
		zap.Int("count", cfg.Count))
	report, err := p.Run(ctx, req, cfg.Count)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", pipeline.ReportPath(layout.Root, req.QueryName))
	if len(report.Files) == 0 {
		return fmt.Errorf("none of the %d hits could be retrieved", len(report.Hits))
	}
	return nil
}

// readQuery reads the query structure from path, or from stdin for "-".
func readQuery(stdin io.Reader, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading query structure: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("query structure %s is empty", path)
	}
	return data, nil
}
