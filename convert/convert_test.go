package convert

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rcowham/svn2git/config"
	"github.com/stretchr/testify/require"
)

// propBlock renders an svn dump property block for the given ordered
// key/value pairs, returning the block text and its byte length.
func propBlock(pairs ...[2]string) (string, int) {
	var b strings.Builder
	for _, kv := range pairs {
		b.WriteString("K " + strconv.Itoa(len(kv[0])) + "\n" + kv[0] + "\n")
		b.WriteString("V " + strconv.Itoa(len(kv[1])) + "\n" + kv[1] + "\n")
	}
	b.WriteString("PROPS-END\n")
	return b.String(), b.Len()
}

func writeDump(t *testing.T) string {
	t.Helper()
	rev1Props, rev1Len := propBlock([2]string{"svn:author", "alice"}, [2]string{"svn:log", "initial import"}, [2]string{"svn:date", "2020-01-01T00:00:00.000000Z"})

	var b strings.Builder
	b.WriteString("SVN-fs-dump-format-version: 2\n\n")
	b.WriteString("UUID: 11111111-1111-1111-1111-111111111111\n\n")
	b.WriteString("Revision-number: 0\n")
	b.WriteString("Prop-content-length: 10\n")
	b.WriteString("Content-length: 10\n\n")
	b.WriteString("PROPS-END\n")
	b.WriteString("\n")
	b.WriteString("Revision-number: 1\n")
	b.WriteString("Prop-content-length: " + strconv.Itoa(rev1Len) + "\n")
	b.WriteString("Content-length: " + strconv.Itoa(rev1Len) + "\n\n")
	b.WriteString(rev1Props)
	b.WriteString("\n")
	b.WriteString("Node-path: trunk\n")
	b.WriteString("Node-kind: dir\n")
	b.WriteString("Node-action: add\n")
	b.WriteString("Content-length: 0\n\n")
	b.WriteString("Node-path: trunk/hello.txt\n")
	b.WriteString("Node-kind: file\n")
	b.WriteString("Node-action: add\n")
	b.WriteString("Prop-content-length: 10\n")
	b.WriteString("Text-content-length: 5\n")
	b.WriteString("Content-length: 15\n\n")
	b.WriteString("PROPS-END\nhello")

	path := filepath.Join(t.TempDir(), "repo.dump")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunProducesPackAndRefsForMinimalDump(t *testing.T) {
	dumpPath := writeDump(t)
	destDir := t.TempDir()

	cfg := &config.ConvParams{
		Branches:            []string{"branches/*"},
		Tags:                []string{"tags/*"},
		Head:                "trunk",
		KeepDeletedBranches: true,
		KeepDeletedTags:     true,
		EnableMerges:        true,
		GenerateGitignore:   false,
		RenameBranches:      map[string]string{},
		RenameTags:          map[string]string{},
	}

	res, err := Run(Options{
		Cfg:           cfg,
		DumpPath:      dumpPath,
		DestDir:       destDir,
		ObjCacheBytes: 1 << 20,
	})
	require.NoError(t, err)
	require.Len(t, res.PackSha, 40)
	require.Equal(t, "refs/heads/trunk", res.HeadRef)
	require.Len(t, res.Refs, 1)

	_, err = os.Stat(filepath.Join(destDir, "objects", "pack", "pack-"+res.PackSha+".pack"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(destDir, "HEAD"))
	require.NoError(t, err)

	head, err := os.ReadFile(filepath.Join(destDir, "HEAD"))
	require.NoError(t, err)
	require.Equal(t, "ref: refs/heads/trunk\n", string(head))
}
