package svntree

import (
	"testing"

	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/treebuilder"
	"github.com/stretchr/testify/require"
)

type fakeGit struct {
	trees map[objstore.Oid][]treebuilder.TreeEntry
	blobs map[objstore.Oid][]byte
}

func newFakeGit() *fakeGit {
	return &fakeGit{trees: make(map[objstore.Oid][]treebuilder.TreeEntry), blobs: make(map[objstore.Oid][]byte)}
}

func (g *fakeGit) PutTree(entries []treebuilder.TreeEntry, baseOid objstore.Oid) (objstore.Oid, error) {
	data := treebuilder.Encode(entries)
	oid := objstore.HashObject(objstore.KindTree, data)
	g.trees[oid] = entries
	return oid, nil
}

func (g *fakeGit) PutBlob(data []byte) (objstore.Oid, error) {
	oid := objstore.HashObject(objstore.KindBlob, data)
	g.blobs[oid] = data
	return oid, nil
}

func TestProjectorDropsDeletedFilesAndEmptyDirs(t *testing.T) {
	store := newMemStore()
	b := New(objstore.Oid{})

	require.NoError(t, b.ModOid("src/keep.c", SpecialNone, false, fileOid(1), store))
	require.NoError(t, b.ModOid("src/drop.o", SpecialNone, false, fileOid(2), store))
	require.NoError(t, b.ModOid("obj/only.o", SpecialNone, false, fileOid(3), store))
	rootOid, err := b.Materialize(store)
	require.NoError(t, err)

	git := newFakeGit()
	proj := NewProjector(store, git, false)
	treeOid, ok, err := proj.Project(rootOid, []string{"*.o"})
	require.NoError(t, err)
	require.True(t, ok)

	entries := git.trees[treeOid]
	require.Len(t, entries, 1)
	require.Equal(t, "src", entries[0].Name)

	srcEntries := git.trees[entries[0].Oid]
	require.Len(t, srcEntries, 1)
	require.Equal(t, "keep.c", srcEntries[0].Name)
}

func TestProjectorSynthesizesGitignoreFromProps(t *testing.T) {
	store := newMemStore()
	b := New(objstore.Oid{})
	require.NoError(t, b.ModOid("a.txt", SpecialNone, false, fileOid(1), store))

	propsOid, err := store.PutBlob(EncodeProps(map[string]string{"svn:ignore": "*.log\nbuild"}))
	require.NoError(t, err)
	require.NoError(t, b.ModMetadata("", propsOid, store))

	rootOid, err := b.Materialize(store)
	require.NoError(t, err)

	git := newFakeGit()
	proj := NewProjector(store, git, true)
	treeOid, ok, err := proj.Project(rootOid, nil)
	require.NoError(t, err)
	require.True(t, ok)

	entries := git.trees[treeOid]
	var found bool
	for _, e := range entries {
		if e.Name == ".gitignore" {
			found = true
			require.Equal(t, "/*.log\n/build\n", string(git.blobs[e.Oid]))
		}
	}
	require.True(t, found)
}

func TestProjectorEmptyTreeReturnsNotOk(t *testing.T) {
	store := newMemStore()
	b := New(objstore.Oid{})
	require.NoError(t, b.ModOid("x.o", SpecialNone, false, fileOid(1), store))
	rootOid, err := b.Materialize(store)
	require.NoError(t, err)

	git := newFakeGit()
	proj := NewProjector(store, git, false)
	_, ok, err := proj.Project(rootOid, []string{"*.o"})
	require.NoError(t, err)
	require.False(t, ok)
}
