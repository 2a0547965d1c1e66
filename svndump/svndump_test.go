package svndump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDump() string {
	var b strings.Builder
	b.WriteString("SVN-fs-dump-format-version: 2\n\n")
	b.WriteString("UUID: 11111111-1111-1111-1111-111111111111\n\n")
	b.WriteString("Revision-number: 0\n")
	b.WriteString("Prop-content-length: 10\n")
	b.WriteString("Content-length: 10\n\n")
	b.WriteString("PROPS-END\n")
	b.WriteString("\n")
	b.WriteString("Revision-number: 1\n")
	b.WriteString("Prop-content-length: 0\n")
	b.WriteString("Content-length: 0\n\n")
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
	return b.String()
}

func TestReaderParsesAllRecordTypes(t *testing.T) {
	r, err := NewReader(strings.NewReader(sampleDump()))
	require.NoError(t, err)

	rec, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "11111111-1111-1111-1111-111111111111", rec.UUID)

	rec, err = r.Next()
	require.NoError(t, err)
	require.NotNil(t, rec.Rev)
	require.EqualValues(t, 0, rec.Rev.RevNo)

	rec, err = r.Next()
	require.NoError(t, err)
	require.NotNil(t, rec.Rev)
	require.EqualValues(t, 1, rec.Rev.RevNo)

	rec, err = r.Next()
	require.NoError(t, err)
	require.NotNil(t, rec.Node)
	require.Equal(t, "trunk", rec.Node.Path)
	require.Equal(t, ActionAdd, rec.Node.Action)
	require.Equal(t, KindDir, rec.Node.Kind)

	rec, err = r.Next()
	require.NoError(t, err)
	require.NotNil(t, rec.Node)
	require.Equal(t, "trunk/hello.txt", rec.Node.Path)
	require.True(t, rec.Node.HasText)
	require.EqualValues(t, 5, r.RemainingTextLen())

	buf := make([]byte, 5)
	require.NoError(t, r.ReadText(buf))
	require.Equal(t, "hello", string(buf))

	rec, err = r.Next()
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestReaderRejectsBadVersion(t *testing.T) {
	_, err := NewReader(strings.NewReader("SVN-fs-dump-format-version: 9\n\n"))
	require.Error(t, err)
	re, ok := err.(*ReadError)
	require.True(t, ok)
	require.Equal(t, ErrInvalidVersion, re.Kind)
}

func TestReaderRejectsMismatchedContentLength(t *testing.T) {
	dump := "SVN-fs-dump-format-version: 2\n\n" +
		"Revision-number: 1\n" +
		"Prop-content-length: 5\n" +
		"Content-length: 10\n\n"
	r, err := NewReader(strings.NewReader(dump))
	require.NoError(t, err)
	_, err = r.Next()
	require.Error(t, err)
	re, ok := err.(*ReadError)
	require.True(t, ok)
	require.Equal(t, ErrMismatchedContentLen, re.Kind)
}
