// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RetrievedFile is an on-disk structure file produced by the retrieval stage.
// It is keyed by (Index, PrimaryID) and never mutated after repair.
type RetrievedFile struct {
	// Index is the 1-based position of the hit in the normalized hit list.
	Index int `json:"index" yaml:"index"`

	// PrimaryID is the entry identifier used for download (e.g. "5xyz").
	PrimaryID string `json:"primary_id" yaml:"primary_id"`

	// ChainID is the chain the hit refers to; "A" for single-chain models.
	ChainID string `json:"chain_id" yaml:"chain_id"`

	// Source names the database the file was fetched from.
	Source string `json:"source" yaml:"source"`

	// Path is the local filesystem path of the structure file.
	Path string `json:"path" yaml:"path"`

	// ViaFallback is true when the file was converted from the secondary format.
	ViaFallback bool `json:"via_fallback,omitempty" yaml:"via_fallback,omitempty"`

	// Repaired is true when column repair rewrote the file.
	Repaired bool `json:"repaired,omitempty" yaml:"repaired,omitempty"`
}
