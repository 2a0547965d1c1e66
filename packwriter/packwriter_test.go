package packwriter

import (
	"os"
	"testing"
	"time"

	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/treebuilder"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	data map[objstore.Oid][]byte
	kind map[objstore.Oid]objstore.Kind
	info map[objstore.Oid]objstore.ObjectInfo
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		data: make(map[objstore.Oid][]byte),
		kind: make(map[objstore.Oid]objstore.Kind),
		info: make(map[objstore.Oid]objstore.ObjectInfo),
	}
}

func (f *fakeReader) GetRaw(oid objstore.Oid) ([]byte, objstore.Kind, error) {
	return f.data[oid], f.kind[oid], nil
}

func (f *fakeReader) Info(oid objstore.Oid) (objstore.ObjectInfo, bool) {
	info, ok := f.info[oid]
	return info, ok
}

func (f *fakeReader) put(kind objstore.Kind, data []byte) objstore.Oid {
	oid := objstore.HashObject(kind, data)
	f.data[oid] = data
	f.kind[oid] = kind
	f.info[oid] = objstore.ObjectInfo{Offset: uint64(len(f.info)), Kind: kind}
	return oid
}

func TestWriteProducesPackAndIdx(t *testing.T) {
	r := newFakeReader()

	blobOid := r.put(objstore.KindBlob, []byte("hello world\n"))
	treeData := treebuilder.Encode([]treebuilder.TreeEntry{{Name: "a.txt", Mode: treebuilder.ModeFile, Oid: blobOid}})
	treeOid := r.put(objstore.KindTree, treeData)

	commitData := EncodeCommit(treeOid, nil, Signature{Name: "A", Email: "a@x.com", When: time.Unix(1000, 0)}, Signature{Name: "A", Email: "a@x.com", When: time.Unix(1000, 0)}, "initial\n")
	commitOid := r.put(objstore.KindCommit, commitData)

	dir := t.TempDir()
	sha, err := Write(dir, r, []Ref{{Name: "refs/heads/main", Oid: commitOid}}, "refs/heads/main")
	require.NoError(t, err)
	require.Len(t, sha, 40)

	packBytes, err := os.ReadFile(dir + "/objects/pack/pack-" + sha + ".pack")
	require.NoError(t, err)
	require.Equal(t, "PACK", string(packBytes[:4]))

	idxBytes, err := os.ReadFile(dir + "/objects/pack/pack-" + sha + ".idx")
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 't', 'O', 'c'}, idxBytes[:4])

	head, err := os.ReadFile(dir + "/HEAD")
	require.NoError(t, err)
	require.Equal(t, "ref: refs/heads/main\n", string(head))

	refs, err := os.ReadFile(dir + "/packed-refs")
	require.NoError(t, err)
	require.Contains(t, string(refs), "refs/heads/main")

	for _, dir2 := range []string{"hooks", "branches", "info", "refs/heads", "refs/tags", "objects/info"} {
		info, err := os.Stat(dir + "/" + dir2)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
	cfg, err := os.ReadFile(dir + "/config")
	require.NoError(t, err)
	require.Contains(t, string(cfg), "bare = true")
}

func TestGatherReachableSkipsUnreferencedObjects(t *testing.T) {
	r := newFakeReader()
	usedBlob := r.put(objstore.KindBlob, []byte("used"))
	_ = r.put(objstore.KindBlob, []byte("unused"))
	treeData := treebuilder.Encode([]treebuilder.TreeEntry{{Name: "f", Mode: treebuilder.ModeFile, Oid: usedBlob}})
	treeOid := r.put(objstore.KindTree, treeData)
	commitData := EncodeCommit(treeOid, nil, Signature{Name: "A", Email: "a@x.com"}, Signature{Name: "A", Email: "a@x.com"}, "msg\n")
	commitOid := r.put(objstore.KindCommit, commitData)

	reachable, err := gatherReachable(r, []Ref{{Name: "refs/heads/main", Oid: commitOid}})
	require.NoError(t, err)
	require.Len(t, reachable, 3)
	require.True(t, reachable[usedBlob])
}

func TestEncodeObjHeaderTerminatesMultiByteSize(t *testing.T) {
	hdr := encodeObjHeader(objBlob, 4000)
	require.True(t, len(hdr) >= 2)
	require.Equal(t, byte(0), hdr[len(hdr)-1]&0x80)
}
