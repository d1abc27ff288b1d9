package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "foldseek-fetch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchMode selects the search backend. A run uses exactly one.
type SearchMode string

const (
	ModeLocal  SearchMode = "local"
	ModeRemote SearchMode = "remote"
)

// LocalSearchConfig holds settings for running the foldseek executable.
type LocalSearchConfig struct {
	// Executable is an explicit path to foldseek. Empty means locate it.
	Executable string `json:"executable,omitempty" yaml:"executable,omitempty"`

	// DatabaseDir contains the local foldseek databases (pd, sp, up50, ...).
	DatabaseDir string `json:"database_dir" yaml:"database_dir"`

	// SearchRoot is the directory walked when foldseek is neither on PATH
	// nor next to the conda executable (default /usr/local).
	SearchRoot string `json:"search_root" yaml:"search_root"`

	// Options are extra flags appended to the easy-search invocation.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// RemoteSearchConfig holds settings for the Foldseek web server job API.
type RemoteSearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the API root, e.g. "https://search.foldseek.com/api".
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Mode is the server search mode ("3diaa" or "tmalign").
	Mode string `json:"mode" yaml:"mode"`

	// PollInterval is the delay between job status checks (default 10s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// MaxWait bounds the total polling time. Zero means unbounded.
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait"`

	// MaxPolls bounds the number of status checks. Zero means unbounded.
	MaxPolls int `json:"max_polls" yaml:"max_polls"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	// Mode picks the local or remote backend. It replaces any "run online
	// next time" state remembered between runs.
	Mode SearchMode `json:"mode" yaml:"mode"`

	Local  LocalSearchConfig  `json:"local" yaml:"local"`
	Remote RemoteSearchConfig `json:"remote" yaml:"remote"`
}

// RetrievalConfig holds settings for the retrieval stage.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline"`

	// BulkThreshold is the task count above which PDB entries are fetched
	// with rsync first (default 20).
	BulkThreshold int `json:"bulk_threshold" yaml:"bulk_threshold"`

	// Concurrency is the number of parallel per-file downloads (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// RsyncHost, RsyncPort and RsyncModule address the wwPDB mirror.
	RsyncHost   string `json:"rsync_host" yaml:"rsync_host"`
	RsyncPort   int    `json:"rsync_port" yaml:"rsync_port"`
	RsyncModule string `json:"rsync_module" yaml:"rsync_module"`

	// Repair enables column repair for sources known to need it.
	Repair bool `json:"repair" yaml:"repair"`
}

// PipelineConfig groups all stage configurations for a run.
type PipelineConfig struct {
	// OutputDir is the root of the run layout (query/, search-results/, hits/).
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Database is the selected database name (see source.Parse).
	Database string `json:"database" yaml:"database"`

	// Count is the number of structures to retrieve; -1 retrieves all.
	Count int `json:"count" yaml:"count"`

	Search    SearchConfig    `json:"search" yaml:"search"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
}
