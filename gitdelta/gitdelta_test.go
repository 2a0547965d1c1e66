package gitdelta

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPatchInlineOnly(t *testing.T) {
	base := []byte("")
	delta := []byte{0x00, 0x05, 0x05, 'h', 'e', 'l', 'l', 'o'}
	out, err := Patch(base, delta)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), out)
}

func TestPatchCopyAndInsert(t *testing.T) {
	base := []byte("aaaaaaaabbbbbbbbcccccccc")
	target := []byte("aaaaaaaaddddddddcccccccc")
	delta := Diff(base, target, 2)
	require.NotNil(t, delta)
	out, err := Patch(base, delta)
	require.NoError(t, err)
	require.Equal(t, target, out)
}

func TestDiffRoundTrip(t *testing.T) {
	base := []byte("aaaaaaaaaaaaaaaaaaaaXXXXXXXXXXXXXXXXbbbbbbbbbbbbbbbbbbbb")
	target := []byte("aaaaaaaaaaaaaaaaaaaaYYYYbbbbbbbbbbbbbbbbbbbb")

	delta := Diff(base, target, 4)
	require.NotNil(t, delta)

	out, err := Patch(base, delta)
	require.NoError(t, err)
	require.True(t, bytes.Equal(out, target))
}

func TestDiffNoBenefit(t *testing.T) {
	base := []byte("short")
	target := []byte("totallydifferentcontent")
	delta := Diff(base, target, 4)
	if delta != nil {
		out, err := Patch(base, delta)
		require.NoError(t, err)
		require.True(t, bytes.Equal(out, target))
	}
}

func TestDiffTargetTooSmall(t *testing.T) {
	base := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	target := []byte("short")
	delta := Diff(base, target, 4)
	require.Nil(t, delta)
}

func TestDiffExceedsMaxCopyChunk(t *testing.T) {
	base := bytes.Repeat([]byte{'a'}, 0x1000000+64)
	target := append([]byte{}, base...)
	target = append(target, []byte("tail-marker-bytes-to-force-a-trailing-insert")...)

	delta := Diff(base, target, 6)
	require.NotNil(t, delta)

	out, err := Patch(base, delta)
	require.NoError(t, err)
	require.True(t, bytes.Equal(out, target))
}

func TestPatchRejectsWrongBaseSize(t *testing.T) {
	base := []byte("aaaa")
	delta := []byte{0x08, 0x00}
	_, err := Patch(base, delta)
	require.Error(t, err)
	pe, ok := err.(*PatchError)
	require.True(t, ok)
	require.Equal(t, ErrUnexpectedBaseSize, pe.Kind)
}

func TestPatchRejectsBadOpcode(t *testing.T) {
	base := []byte("")
	delta := []byte{0x00, 0x00, 0x00}
	_, err := Patch(base, delta)
	require.Error(t, err)
	pe, ok := err.(*PatchError)
	require.True(t, ok)
	require.Equal(t, ErrInvalidOpcode, pe.Kind)
}
