package pathpattern

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchLiteral(t *testing.T) {
	p := Compile("trunk")
	require.True(t, p.Match("trunk"))
	require.False(t, p.Match("trunk/sub"))
}

func TestMatchStar(t *testing.T) {
	p := Compile("branches/*")
	require.True(t, p.Match("branches/foo"))
	require.False(t, p.Match("branches/foo/bar"))
}

func TestMatchDoubleStar(t *testing.T) {
	p := Compile("branches/**")
	require.True(t, p.Match("branches"))
	require.True(t, p.Match("branches/foo"))
	require.True(t, p.Match("branches/foo/bar/baz"))
}

func TestMatchPrefix(t *testing.T) {
	p := Compile("branches/*")
	ok, sub := p.MatchPrefix("branches/foo/src/main.c")
	require.True(t, ok)
	require.Equal(t, "src/main.c", sub)
}

func TestMatchPrefixNoMatch(t *testing.T) {
	p := Compile("branches/*")
	ok, _ := p.MatchPrefix("trunk/src/main.c")
	require.False(t, ok)
}
