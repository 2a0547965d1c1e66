package dumpsource

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpenRawFilePassesThroughUnchanged(t *testing.T) {
	content := []byte("SVN-fs-dump-format-version: 2\n\n")
	path := writeTemp(t, "dump.raw", content)

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	got, err := io.ReadAll(src.Stream())
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestOpenGzipFileDecompresses(t *testing.T) {
	content := []byte("SVN-fs-dump-format-version: 2\n\n")
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(content)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	path := writeTemp(t, "dump.gz", buf.Bytes())

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	got, err := io.ReadAll(src.Stream())
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestOpenMissingFileReturnsStatError(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	require.Equal(t, ErrStat, openErr.Kind)
}
