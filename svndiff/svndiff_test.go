package svndiff

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyExactVector(t *testing.T) {
	source := []byte("aaaabbbbcccc")
	delta := []byte{
		'S', 'V', 'N', 0x00,
		0x00,
		0x0C,
		0x10,
		0x07,
		0x01,
		0x04, 0x00,
		0x04, 0x08,
		0x81, 0x47, 0x08,
		'd',
	}

	target, err := Apply(source, delta)
	require.NoError(t, err)
	require.Equal(t, []byte("aaaaccccdddddddd"), target)
}

func TestApplyRejectsBadMagic(t *testing.T) {
	_, err := Apply([]byte("x"), []byte{'X', 'V', 'N', 0})
	require.Error(t, err)
	ae, ok := err.(*ApplyError)
	require.True(t, ok)
	require.Equal(t, ErrBadMagic, ae.Kind)
}

func TestApplyEmptySource(t *testing.T) {
	delta := []byte{
		'S', 'V', 'N', 0x00,
		0x00,
		0x00,
		0x05,
		0x01,
		0x05,
		0x85,
		'h', 'e', 'l', 'l', 'o',
	}
	target, err := Apply(nil, delta)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), target)
}
