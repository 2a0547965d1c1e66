package metamaker

import (
	"strings"
	"testing"

	"github.com/rcowham/svn2git/usermap"
	"github.com/stretchr/testify/require"
)

func newMetaMaker(t *testing.T) *MetaMaker {
	t.Helper()
	um, err := usermap.Parse(strings.NewReader("alice = Alice Example <alice@example.com>\n"))
	require.NoError(t, err)

	m, err := New(um,
		"{{ .SVNAuthor }} <{{ .SVNAuthor }}@unknown>",
		"{{ .SVNLog }}",
		"tag: {{ .SVNLog }}",
	)
	require.NoError(t, err)
	return m
}

func TestMakeCommitMetaMappedAuthor(t *testing.T) {
	m := newMetaMaker(t)
	meta, err := m.MakeCommitMeta("uuid-1", 5, "trunk", map[string]string{
		"svn:author": "alice",
		"svn:log":    "did a thing",
		"svn:date":   "2020-01-02T03:04:05.000000Z",
	})
	require.NoError(t, err)
	require.Equal(t, "Alice Example", meta.Author.Name)
	require.Equal(t, "alice@example.com", meta.Author.Email)
	require.Equal(t, meta.Author, meta.Committer)
	require.Equal(t, "did a thing", meta.Message)
	require.Equal(t, int64(1577934245), meta.Author.Time.Unix())
}

func TestMakeCommitMetaFallbackAuthor(t *testing.T) {
	m := newMetaMaker(t)
	meta, err := m.MakeCommitMeta("uuid-1", 6, "trunk", map[string]string{
		"svn:author": "bob",
		"svn:log":    "other thing",
	})
	require.NoError(t, err)
	require.Equal(t, "bob", meta.Author.Name)
	require.Equal(t, "bob@unknown", meta.Author.Email)
}

func TestMakeCommitMetaMissingDateDefaultsEpoch(t *testing.T) {
	m := newMetaMaker(t)
	meta, err := m.MakeCommitMeta("uuid-1", 1, "trunk", map[string]string{"svn:author": "alice"})
	require.NoError(t, err)
	require.Equal(t, int64(0), meta.Author.Time.Unix())
}

func TestMakeTagMeta(t *testing.T) {
	m := newMetaMaker(t)
	meta, err := m.MakeTagMeta("uuid-1", 9, "tags/v1", map[string]string{
		"svn:author": "alice",
		"svn:log":    "release",
	})
	require.NoError(t, err)
	require.NotNil(t, meta.Tagger)
	require.Equal(t, "Alice Example", meta.Tagger.Name)
	require.Equal(t, "tag: release", meta.Message)
}

func TestFallbackAuthorBadFormatErrors(t *testing.T) {
	um := usermap.New()
	m, err := New(um, "not-a-valid-identity", "{{ .SVNLog }}", "{{ .SVNLog }}")
	require.NoError(t, err)
	_, err = m.MakeCommitMeta("uuid-1", 1, "trunk", map[string]string{"svn:author": "nobody"})
	require.Error(t, err)
}
