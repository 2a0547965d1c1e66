package classifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testSpecs() []BranchSpec {
	return []BranchSpec{
		{Pattern: "trunk", Key: "trunk"},
		{Pattern: "branches/*", Key: "branches"},
		{Pattern: "tags/*", Key: "tags", IsTag: true},
	}
}

func TestClassifyUnbranchedPath(t *testing.T) {
	c, err := New(testSpecs())
	require.NoError(t, err)
	r := c.Classify("README.md")
	require.Equal(t, Unbranched, r.Class)
}

func TestClassifyBranchParent(t *testing.T) {
	c, err := New(testSpecs())
	require.NoError(t, err)
	r := c.Classify("branches")
	require.Equal(t, BranchParent, r.Class)

	r = c.Classify("")
	require.Equal(t, BranchParent, r.Class)
}

func TestClassifyTrunkRoot(t *testing.T) {
	c, err := New(testSpecs())
	require.NoError(t, err)
	r := c.Classify("trunk")
	require.Equal(t, BranchClass, r.Class)
	require.Equal(t, "trunk", r.BranchKey)
	require.Equal(t, "", r.SubPath)
	require.False(t, r.IsTag)
}

func TestClassifyTrunkSubPath(t *testing.T) {
	c, err := New(testSpecs())
	require.NoError(t, err)
	r := c.Classify("trunk/src/main.c")
	require.Equal(t, BranchClass, r.Class)
	require.Equal(t, "src/main.c", r.SubPath)
}

func TestClassifyWildcardBranch(t *testing.T) {
	c, err := New(testSpecs())
	require.NoError(t, err)
	r := c.Classify("branches/release-1.0/src/main.c")
	require.Equal(t, BranchClass, r.Class)
	require.Equal(t, "branches", r.BranchKey)
	require.False(t, r.IsTag)
	require.Equal(t, "src/main.c", r.SubPath)
}

func TestClassifyTagWildcard(t *testing.T) {
	c, err := New(testSpecs())
	require.NoError(t, err)
	r := c.Classify("tags/v1.0")
	require.Equal(t, BranchClass, r.Class)
	require.True(t, r.IsTag)
	require.Equal(t, "", r.SubPath)
}

func TestClassifyDoubleStar(t *testing.T) {
	c, err := New([]BranchSpec{{Pattern: "vendor/**", Key: "vendor"}})
	require.NoError(t, err)
	r := c.Classify("vendor/foo/bar/baz.c")
	require.Equal(t, BranchClass, r.Class)
	require.Equal(t, "foo/bar/baz.c", r.SubPath)
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New([]BranchSpec{{Pattern: "", Key: "empty"}})
	require.Error(t, err)
}

func TestNewRejectsLeadingSlash(t *testing.T) {
	_, err := New([]BranchSpec{{Pattern: "/trunk", Key: "trunk"}})
	require.Error(t, err)
}

func TestNewRejectsTrailingSlash(t *testing.T) {
	_, err := New([]BranchSpec{{Pattern: "trunk/", Key: "trunk"}})
	require.Error(t, err)
}

func TestNewRejectsConflictingBranches(t *testing.T) {
	_, err := New([]BranchSpec{
		{Pattern: "trunk", Key: "trunk"},
		{Pattern: "trunk/sub", Key: "trunk-sub"},
	})
	require.Error(t, err)
}

func TestNewRejectsDuplicateBranch(t *testing.T) {
	_, err := New([]BranchSpec{
		{Pattern: "trunk", Key: "trunk"},
		{Pattern: "trunk", Key: "trunk-again"},
	})
	require.Error(t, err)
}

func TestNewRejectsDuplicateWildcard(t *testing.T) {
	_, err := New([]BranchSpec{
		{Pattern: "branches/*", Key: "branches"},
		{Pattern: "branches/*", Key: "branches-again"},
	})
	require.Error(t, err)
}

func TestNewRejectsDoubleStarThenLiteral(t *testing.T) {
	_, err := New([]BranchSpec{
		{Pattern: "tags/**", Key: "tags-catchall"},
		{Pattern: "tags/special", Key: "tags-special"},
	})
	require.Error(t, err)
}

func TestNewRejectsLiteralThenDoubleStar(t *testing.T) {
	_, err := New([]BranchSpec{
		{Pattern: "tags/special", Key: "tags-special"},
		{Pattern: "tags/**", Key: "tags-catchall"},
	})
	require.Error(t, err)
}
