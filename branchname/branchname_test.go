package branchname

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLegalizeStripsIllegalChars(t *testing.T) {
	require.Equal(t, "feature/foo_bar", Legalize("feature/foo bar"))
	require.Equal(t, "release-1.0", Legalize("release-1.0"))
}

func TestLegalizeTrimsSlashesAndDots(t *testing.T) {
	require.Equal(t, "foo", Legalize("/foo/."))
}

func TestLegalizeCollapsesDoubleDots(t *testing.T) {
	require.Equal(t, "foo.bar", Legalize("foo..bar"))
}

func TestUniquifierAppendsSuffix(t *testing.T) {
	u := NewUniquifier()
	require.Equal(t, "trunk", u.Unique("trunk"))
	require.Equal(t, "trunk_1", u.Unique("trunk"))
	require.Equal(t, "trunk_2", u.Unique("trunk"))
}
