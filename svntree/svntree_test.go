package svntree

import (
	"testing"

	"github.com/rcowham/svn2git/objstore"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	nodes map[objstore.Oid]Node
	blobs map[objstore.Oid][]byte
	next  byte
}

func newMemStore() *memStore {
	return &memStore{nodes: make(map[objstore.Oid]Node), blobs: make(map[objstore.Oid][]byte)}
}

func (m *memStore) GetNode(oid objstore.Oid) (Node, error) { return m.nodes[oid], nil }

func (m *memStore) PutNode(n Node) (objstore.Oid, error) {
	m.next++
	var oid objstore.Oid
	oid[0] = m.next
	m.nodes[oid] = n
	return oid, nil
}

func (m *memStore) PutBlob(data []byte) (objstore.Oid, error) {
	m.next++
	var oid objstore.Oid
	oid[0] = m.next
	m.blobs[oid] = data
	return oid, nil
}

func (m *memStore) GetBlob(oid objstore.Oid) ([]byte, error) { return m.blobs[oid], nil }

func fileOid(b byte) objstore.Oid {
	var o objstore.Oid
	o[19] = b
	return o
}

func TestNodeEncodeDecodeRoundTrip(t *testing.T) {
	n := Node{
		Metadata: fileOid(1),
		Entries: []Entry{
			{Name: "dir", IsDir: true, Dir: fileOid(2)},
			{Name: "file.txt", Special: SpecialNone, Executable: true, FileOid: fileOid(3)},
			{Name: "link", Special: SpecialLink, FileOid: fileOid(4)},
		},
	}
	data := Encode(n)
	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, n.Metadata, decoded.Metadata)
	require.Len(t, decoded.Entries, 3)
}

func TestBuilderModLsRm(t *testing.T) {
	store := newMemStore()
	b := New(objstore.Oid{})

	require.NoError(t, b.ModOid("trunk/src/main.c", SpecialNone, false, fileOid(1), store))
	_, _, oid, ok, err := b.LsFile("trunk/src/main.c", store)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fileOid(1), oid)

	require.NoError(t, b.ModMetadata("trunk", fileOid(9), store))
	meta, ok, err := b.LsMetadata("trunk", store)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fileOid(9), meta)

	removed, err := b.Rm("trunk/src/main.c", store)
	require.NoError(t, err)
	require.True(t, removed)

	exists, err := b.Exists("trunk/src/main.c", store)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestBuilderMaterializeRoundTrip(t *testing.T) {
	store := newMemStore()
	b := New(objstore.Oid{})
	require.NoError(t, b.ModOid("a/b.txt", SpecialNone, false, fileOid(1), store))

	rootOid, err := b.Materialize(store)
	require.NoError(t, err)

	b2 := WithBase(rootOid)
	_, _, oid, ok, err := b2.LsFile("a/b.txt", store)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fileOid(1), oid)
}
