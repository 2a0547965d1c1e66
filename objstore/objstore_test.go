package objstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "objects.tmp"), 1<<20)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	data := []byte("hello, world")

	oid, err := s.InsertRaw(KindBlob, data, Oid{})
	require.NoError(t, err)

	got, kind, err := s.GetRaw(oid)
	require.NoError(t, err)
	require.Equal(t, KindBlob, kind)
	require.Equal(t, data, got)
}

func TestInsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	data := []byte("same content")

	oid1, err := s.InsertRaw(KindBlob, data, Oid{})
	require.NoError(t, err)
	oid2, err := s.InsertRaw(KindBlob, data, Oid{})
	require.NoError(t, err)

	require.Equal(t, oid1, oid2)
	require.Equal(t, 1, s.NumObjects())
}

func TestDeltaChainResolvesAcrossBase(t *testing.T) {
	s := newTestStore(t)
	base := make([]byte, 4096)
	for i := range base {
		base[i] = byte(i % 251)
	}
	baseOid, err := s.InsertRaw(KindBlob, base, Oid{})
	require.NoError(t, err)

	derived := append([]byte{}, base...)
	derived[100] = 0xFF
	derived[200] = 0xEE
	derivedOid, err := s.InsertRaw(KindBlob, derived, baseOid)
	require.NoError(t, err)

	got, _, err := s.GetRaw(derivedOid)
	require.NoError(t, err)
	require.Equal(t, derived, got)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.GetRaw(Oid{1, 2, 3})
	require.Error(t, err)
	se, ok := err.(*StoreError)
	require.True(t, ok)
	require.Equal(t, ErrNotFound, se.Kind)
}

func TestWriterInsertAndFinish(t *testing.T) {
	s := newTestStore(t)
	w := NewWriter(s, 4, 64)

	oids := make([]Oid, 0, 8)
	for i := 0; i < 8; i++ {
		data := []byte{byte(i), byte(i + 1), byte(i + 2)}
		oids = append(oids, w.Insert(KindBlob, data, Oid{}))
	}

	store, err := w.Finish()
	require.NoError(t, err)

	for i, oid := range oids {
		data, kind, err := store.GetRaw(oid)
		require.NoError(t, err)
		require.Equal(t, KindBlob, kind)
		require.Equal(t, []byte{byte(i), byte(i + 1), byte(i + 2)}, data)
	}
}
