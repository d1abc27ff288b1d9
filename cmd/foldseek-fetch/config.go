// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/foldseek-fetch/internal/acquire"
	"github.com/pdiddy/foldseek-fetch/internal/convert"
	"github.com/pdiddy/foldseek-fetch/internal/hits"
	"github.com/pdiddy/foldseek-fetch/internal/search"
	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "foldseek-fetch/0.1"
)

// Configuration keys. Nested keys map to FOLDSEEK_FETCH_SEARCH_MODE style
// environment variables.
const (
	keyOutputDir     = "output_dir"
	keyDatabase      = "database"
	keyCount         = "count"
	keyConverter     = "converter"
	keySearchMode    = "search.mode"
	keyExecutable    = "search.local.executable"
	keyDatabaseDir   = "search.local.database_dir"
	keySearchRoot    = "search.local.search_root"
	keyLocalOptions  = "search.local.options"
	keyServerURL     = "search.remote.base_url"
	keyServerMode    = "search.remote.mode"
	keyPollInterval  = "search.remote.poll_interval"
	keyMaxWait       = "search.remote.max_wait"
	keyMaxPolls      = "search.remote.max_polls"
	keyTimeout       = "http.timeout"
	keyUserAgent     = "http.user_agent"
	keyBulkThreshold = "retrieval.bulk_threshold"
	keyConcurrency   = "retrieval.concurrency"
	keyRsyncHost     = "retrieval.rsync_host"
	keyRsyncPort     = "retrieval.rsync_port"
	keyRsyncModule   = "retrieval.rsync_module"
	keyRepair        = "retrieval.repair"
)

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyOutputDir, ".")
	v.SetDefault(keyDatabase, "pdb")
	v.SetDefault(keyCount, "10")
	v.SetDefault(keyConverter, string(convert.BackendNative))
	v.SetDefault(keySearchMode, string(types.ModeLocal))
	v.SetDefault(keyDatabaseDir, search.DefaultDatabaseDir)
	v.SetDefault(keySearchRoot, search.DefaultSearchRoot)
	v.SetDefault(keyServerURL, search.DefaultRemoteBase)
	v.SetDefault(keyServerMode, search.DefaultRemoteMode)
	v.SetDefault(keyPollInterval, search.DefaultPollInterval)
	v.SetDefault(keyTimeout, defaultTimeout)
	v.SetDefault(keyUserAgent, defaultUserAgent)
	v.SetDefault(keyBulkThreshold, acquire.DefaultBulkThreshold)
	v.SetDefault(keyConcurrency, acquire.DefaultConcurrency)
	v.SetDefault(keyRsyncHost, acquire.DefaultRsyncHost)
	v.SetDefault(keyRsyncPort, acquire.DefaultRsyncPort)
	v.SetDefault(keyRsyncModule, acquire.DefaultRsyncModule)
	v.SetDefault(keyRepair, true)
}

// loadConfig assembles the run configuration from v.
func loadConfig(v *viper.Viper) (types.PipelineConfig, error) {
	count, err := parseCount(v.GetString(keyCount))
	if err != nil {
		return types.PipelineConfig{}, err
	}
	mode := types.SearchMode(strings.ToLower(v.GetString(keySearchMode)))
	if mode != types.ModeLocal && mode != types.ModeRemote {
		return types.PipelineConfig{}, fmt.Errorf("search mode must be %q or %q, got %q", types.ModeLocal, types.ModeRemote, mode)
	}
	httpCfg := types.HTTPConfig{
		Timeout:   v.GetDuration(keyTimeout),
		UserAgent: v.GetString(keyUserAgent),
	}

	return types.PipelineConfig{
		OutputDir: v.GetString(keyOutputDir),
		Database:  v.GetString(keyDatabase),
		Count:     count,
		Search: types.SearchConfig{
			Mode: mode,
			Local: types.LocalSearchConfig{
				Executable:  v.GetString(keyExecutable),
				DatabaseDir: v.GetString(keyDatabaseDir),
				SearchRoot:  v.GetString(keySearchRoot),
				Options:     v.GetStringSlice(keyLocalOptions),
			},
			Remote: types.RemoteSearchConfig{
				HTTPConfig:   httpCfg,
				BaseURL:      v.GetString(keyServerURL),
				Mode:         v.GetString(keyServerMode),
				PollInterval: v.GetDuration(keyPollInterval),
				MaxWait:      v.GetDuration(keyMaxWait),
				MaxPolls:     v.GetInt(keyMaxPolls),
			},
		},
		Retrieval: types.RetrievalConfig{
			HTTPConfig:    httpCfg,
			BulkThreshold: v.GetInt(keyBulkThreshold),
			Concurrency:   v.GetInt(keyConcurrency),
			RsyncHost:     v.GetString(keyRsyncHost),
			RsyncPort:     v.GetInt(keyRsyncPort),
			RsyncModule:   v.GetString(keyRsyncModule),
			Repair:        v.GetBool(keyRepair),
		},
	}, nil
}

// parseCount accepts a positive number or "all".
func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return hits.All, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("count must be a positive number or \"all\", got %q", s)
	}
	return n, nil
}

// describeError turns run-ending error kinds into a user-facing message.
func describeError(err error) string {
	switch {
	case errors.Is(err, types.ErrSearchUnavailable):
		return "Foldseek is not available: install it or use --mode remote (" + err.Error() + ")"
	case errors.Is(err, types.ErrSearchTimedOut):
		return "the Foldseek server did not finish the search in time (" + err.Error() + ")"
	case errors.Is(err, types.ErrNoHomologs):
		return "the search found no homologs"
	case errors.Is(err, types.ErrSearchExecution):
		return "Foldseek failed to run the search (" + err.Error() + ")"
	default:
		return err.Error()
	}
}
