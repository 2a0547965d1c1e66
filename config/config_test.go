package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalConfig = `
head = "trunk"
`

const fullConfig = `
branches = ["branches/*", "dev/*"]
tags = ["tags/*"]
head = "main"
unbranched-name = "unbranched"
enable-merges = true
generate-gitignore = false
delete-files = ["vendor/**"]

[rename-branches]
"dev/old" = "legacy"

[[ignore-merges]]
path = "branches/spike"
rev = 42
`

func TestUnmarshalAppliesDefaults(t *testing.T) {
	cfg, err := Unmarshal([]byte(minimalConfig))
	require.NoError(t, err)
	require.Equal(t, "trunk", cfg.Head)
	require.True(t, cfg.KeepDeletedBranches)
	require.True(t, cfg.KeepDeletedTags)
	require.True(t, cfg.EnableMerges)
	require.True(t, cfg.GenerateGitignore)
	require.Equal(t, []string{"branches/*"}, cfg.Branches)
	require.Equal(t, []string{"tags/*"}, cfg.Tags)
}

func TestUnmarshalFullConfig(t *testing.T) {
	cfg, err := Unmarshal([]byte(fullConfig))
	require.NoError(t, err)
	require.Equal(t, []string{"branches/*", "dev/*"}, cfg.Branches)
	require.Equal(t, "main", cfg.Head)
	require.Equal(t, "unbranched", cfg.UnbranchedName)
	require.False(t, cfg.GenerateGitignore)
	require.Equal(t, "legacy", cfg.RenameBranches["dev/old"])
	require.Len(t, cfg.IgnoreMerges, 1)
	require.Equal(t, "branches/spike", cfg.IgnoreMerges[0].Path)
	require.EqualValues(t, 42, cfg.IgnoreMerges[0].Rev)
}

func TestUnmarshalRejectsUnknownKey(t *testing.T) {
	_, err := Unmarshal([]byte("bogus-key = true\n"))
	require.Error(t, err)
}

func TestUnmarshalRejectsIgnoreMergeWithoutPath(t *testing.T) {
	bad := `
[[ignore-merges]]
rev = 1
`
	_, err := Unmarshal([]byte(bad))
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/conv-params.toml")
	require.Error(t, err)
}
