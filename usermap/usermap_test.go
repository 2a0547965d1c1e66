package usermap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBasicMapping(t *testing.T) {
	um, err := Parse(strings.NewReader("user = User Name <user@email>\n"))
	require.NoError(t, err)
	name, email, ok := um.Get("user", 1)
	require.True(t, ok)
	require.Equal(t, "User Name", name)
	require.Equal(t, "user@email", email)
}

func TestParseTightSpacing(t *testing.T) {
	um, err := Parse(strings.NewReader("user=User Name<user@email>\n"))
	require.NoError(t, err)
	_, _, ok := um.Get("user", 1)
	require.True(t, ok)
}

func TestParseSingleRevision(t *testing.T) {
	um, err := Parse(strings.NewReader("user @1 = User Name <user@email>\n"))
	require.NoError(t, err)
	_, _, ok := um.Get("user", 1)
	require.True(t, ok)
	_, _, ok = um.Get("user", 2)
	require.False(t, ok)
}

func TestParseRevisionRange(t *testing.T) {
	um, err := Parse(strings.NewReader("user @1:2 = User Name <user@email>\n"))
	require.NoError(t, err)
	_, _, ok := um.Get("user", 1)
	require.True(t, ok)
	_, _, ok = um.Get("user", 2)
	require.True(t, ok)
	_, _, ok = um.Get("user", 3)
	require.False(t, ok)
}

func TestParseSkipsBlankLines(t *testing.T) {
	um, err := Parse(strings.NewReader("\n\nuser = User Name <user@email>\n\n"))
	require.NoError(t, err)
	_, _, ok := um.Get("user", 1)
	require.True(t, ok)
}

func TestParseRejectsBadLine(t *testing.T) {
	_, err := Parse(strings.NewReader("not a valid mapping line\n"))
	require.Error(t, err)
}

func TestGetLastMatchingRangeWins(t *testing.T) {
	um, err := Parse(strings.NewReader(
		"user @1:10 = Old Name <old@email>\n" +
			"user @5:10 = New Name <new@email>\n",
	))
	require.NoError(t, err)
	name, email, ok := um.Get("user", 7)
	require.True(t, ok)
	require.Equal(t, "New Name", name)
	require.Equal(t, "new@email", email)
}

func TestGetUnknownUser(t *testing.T) {
	um := New()
	_, _, ok := um.Get("nobody", 1)
	require.False(t, ok)
}
