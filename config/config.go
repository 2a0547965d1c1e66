// Package config loads the TOML conversion-parameters file that drives a
// run: which SVN paths are branches and tags, how they're renamed, whether
// deleted refs are kept, merge-detection options, and message templates.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const DefaultHead = "trunk"

// BranchRev names a specific SVN path at a specific revision, used to
// silence a merge-detection false positive.
type BranchRev struct {
	Path string `toml:"path"`
	Rev  uint32 `toml:"rev"`
}

// ConvParams is the full set of user-supplied conversion parameters.
type ConvParams struct {
	Branches            []string          `toml:"branches"`
	RenameBranches      map[string]string `toml:"rename-branches"`
	KeepDeletedBranches bool              `toml:"keep-deleted-branches"`

	Tags            []string          `toml:"tags"`
	RenameTags      map[string]string `toml:"rename-tags"`
	KeepDeletedTags bool              `toml:"keep-deleted-tags"`

	// PartialBranches/PartialTags name branch/tag roots (by the same glob
	// syntax as Branches/Tags) that are expected to be created by copying
	// from somewhere inside another branch rather than that branch's own
	// root. A branch matching one of these has its tree built by merging
	// its own content into the copy source's branch tree at the copied
	// sub-path, instead of standing alone as just that sub-path.
	PartialBranches []string `toml:"partial-branches"`
	PartialTags     []string `toml:"partial-tags"`

	Head           string `toml:"head"`
	UnbranchedName string `toml:"unbranched-name"`

	EnableMerges             bool        `toml:"enable-merges"`
	MergeOptional            []string    `toml:"merge-optional"`
	AvoidFullyRevertedMerges bool        `toml:"avoid-fully-reverted-merges"`
	IgnoreMerges             []BranchRev `toml:"ignore-merges"`

	GenerateGitignore bool     `toml:"generate-gitignore"`
	DeleteFiles       []string `toml:"delete-files"`

	UserMapFile          string `toml:"user-map-file"`
	UserFallbackTemplate string `toml:"user-fallback-template"`
	CommitMsgTemplate    string `toml:"commit-msg-template"`
	TagMsgTemplate       string `toml:"tag-msg-template"`
}

// defaults returns a ConvParams populated with the documented defaults,
// matching what every field in spec.md §6's Configuration list falls back
// to when absent from the TOML file.
func defaults() *ConvParams {
	return &ConvParams{
		RenameBranches:      make(map[string]string),
		KeepDeletedBranches: true,
		RenameTags:          make(map[string]string),
		KeepDeletedTags:     true,
		Head:                DefaultHead,
		EnableMerges:        true,
		GenerateGitignore:   true,
	}
}

// Unmarshal parses TOML content into a ConvParams, applying defaults first.
func Unmarshal(content []byte) (*ConvParams, error) {
	cfg := defaults()
	meta, err := toml.Decode(string(content), cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("invalid configuration: unknown key %q", undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads and parses a ConvParams TOML file from disk.
func LoadFile(filename string) (*ConvParams, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}
	cfg, err := Unmarshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}
	return cfg, nil
}

func (c *ConvParams) validate() error {
	if len(c.Branches) == 0 {
		c.Branches = []string{"branches/*"}
	}
	if len(c.Tags) == 0 {
		c.Tags = []string{"tags/*"}
	}
	for _, br := range c.IgnoreMerges {
		if br.Path == "" {
			return fmt.Errorf("invalid configuration: ignore-merges entry missing path")
		}
	}
	return nil
}
