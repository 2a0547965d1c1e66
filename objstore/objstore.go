// Package objstore implements a spill-to-disk, LZ4-compressed, optionally
// delta-chained, content-addressed (SHA-1) temporary object store used
// while a conversion is in progress: every Git blob/tree/commit/tag
// produced by the earlier pipeline stages lands here first, and only the
// final reachability closure is ever copied into a pack file.
package objstore

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/h2non/filetype"
	"github.com/pierrec/lz4/v4"

	"github.com/rcowham/svn2git/gitdelta"
)

// Oid is a Git object id (SHA-1 of the canonical "<kind> <size>\0<data>"
// byte sequence).
type Oid [20]byte

func (o Oid) String() string { return hex.EncodeToString(o[:]) }

func (o Oid) IsZero() bool { return o == Oid{} }

// Kind is a Git object kind.
type Kind int

const (
	KindBlob Kind = iota
	KindTree
	KindCommit
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindTree:
		return "tree"
	case KindCommit:
		return "commit"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// ErrKind classifies store failures.
type ErrKind int

const (
	ErrIO ErrKind = iota
	ErrNotFound
	ErrKindMismatch
	ErrDeltaChainTooDeep
	ErrCorrupt
)

type StoreError struct {
	Kind ErrKind
	Oid  Oid
	Err  error
}

func (e *StoreError) Error() string {
	switch e.Kind {
	case ErrIO:
		return fmt.Sprintf("objstore: io error: %v", e.Err)
	case ErrNotFound:
		return fmt.Sprintf("objstore: object not found: %s", e.Oid)
	case ErrKindMismatch:
		return fmt.Sprintf("objstore: unexpected object kind for %s", e.Oid)
	case ErrDeltaChainTooDeep:
		return fmt.Sprintf("objstore: delta chain too deep for %s", e.Oid)
	case ErrCorrupt:
		return fmt.Sprintf("objstore: corrupt object %s", e.Oid)
	default:
		return "objstore: store error"
	}
}

func (e *StoreError) Unwrap() error { return e.Err }

const maxDeltaDepth = 50

// HashObject computes the Git object id for kind/data without storing it.
func HashObject(kind Kind, data []byte) Oid {
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", kind, len(data))
	h.Write(data)
	var oid Oid
	copy(oid[:], h.Sum(nil))
	return oid
}

type objInfo struct {
	offset     uint64 // sentinel: ^uint64(0) means "insert in progress"
	kind       Kind
	size       int
	deltaDepth int
	deltaBase  *Oid
	compLen    int
}

const pendingOffset = ^uint64(0)

// Store is the spill-to-disk object store: a single append-only file of
// compressed (optionally delta-chained) object bodies, indexed in memory
// by oid, fronted by a byte-budgeted LRU cache of decompressed bodies.
type Store struct {
	mu       sync.Mutex
	cond     *sync.Cond
	file     *os.File
	path     string
	writeOff uint64
	info     map[Oid]*objInfo
	cache    *byteLRU
}

// Open creates (or truncates) the backing file at path and returns a Store
// whose in-memory cache is budgeted to cacheBytes of decompressed content.
func Open(path string, cacheBytes int) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, &StoreError{Kind: ErrIO, Err: err}
	}
	s := &Store{
		file:  f,
		path:  path,
		info:  make(map[Oid]*objInfo),
		cache: newByteLRU(cacheBytes),
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Close closes and removes the backing temp file.
func (s *Store) Close() error {
	err := s.file.Close()
	os.Remove(s.path)
	return err
}

// NumObjects reports how many objects have been inserted (or are being
// inserted) so far.
func (s *Store) NumObjects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.info)
}

// Has reports whether oid is already present (or in-flight).
func (s *Store) Has(oid Oid) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.info[oid]
	return ok
}

// InsertRaw stores data under its content-derived oid and returns that oid.
// If deltaBase is non-zero, data is diffed against the base's own content
// and stored as a delta when that's smaller and the resulting chain depth
// stays under the limit; otherwise the full body is stored. Re-inserting an
// oid that is already present (or in flight) is a no-op.
func (s *Store) InsertRaw(kind Kind, data []byte, deltaBase Oid) (Oid, error) {
	oid := HashObject(kind, data)

	s.mu.Lock()
	for {
		existing, ok := s.info[oid]
		if !ok {
			// Not present, or a concurrent insert of this oid just failed
			// and cleared its placeholder: become the inserter ourselves.
			break
		}
		if existing.offset != pendingOffset {
			s.mu.Unlock()
			return oid, nil
		}
		s.cond.Wait()
	}
	s.info[oid] = &objInfo{offset: pendingOffset}
	s.mu.Unlock()

	payload := data
	depth := 0
	var base *Oid

	if !deltaBase.IsZero() && !skipDelta(data) {
		s.mu.Lock()
		baseInfo, ok := s.info[deltaBase]
		for ok && baseInfo.offset == pendingOffset {
			s.cond.Wait()
			baseInfo, ok = s.info[deltaBase]
		}
		s.mu.Unlock()

		if ok && baseInfo.kind == kind && baseInfo.deltaDepth < maxDeltaDepth {
			baseData, _, err := s.GetRaw(deltaBase)
			if err == nil {
				if d := gitdelta.Diff(baseData, data, 4); d != nil {
					payload = d
					depth = baseInfo.deltaDepth + 1
					b := deltaBase
					base = &b
				}
			}
		}
	}

	compressed, err := compress(payload)
	if err != nil {
		s.failInsert(oid)
		return Oid{}, err
	}

	s.mu.Lock()
	offset := s.writeOff
	if _, err := s.file.WriteAt(compressed, int64(offset)); err != nil {
		s.mu.Unlock()
		s.failInsert(oid)
		return Oid{}, &StoreError{Kind: ErrIO, Err: err}
	}
	s.writeOff += uint64(len(compressed))
	s.info[oid] = &objInfo{
		offset:     offset,
		kind:       kind,
		size:       len(data),
		deltaDepth: depth,
		deltaBase:  base,
		compLen:    len(compressed),
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	s.cache.put(oid, data)
	return oid, nil
}

func (s *Store) failInsert(oid Oid) {
	s.mu.Lock()
	delete(s.info, oid)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// GetRaw returns the decompressed, fully-resolved (delta-applied) body and
// kind for oid.
func (s *Store) GetRaw(oid Oid) ([]byte, Kind, error) {
	if data, ok := s.cache.get(oid); ok {
		s.mu.Lock()
		info := s.info[oid]
		s.mu.Unlock()
		return data, info.kind, nil
	}
	return s.resolve(oid, 0)
}

// ObjectInfo reports the bookkeeping packwriter needs to choose pack write
// order and OfsDelta bases without resolving an object's content: its
// append order in the temp file (offset), kind, and delta base (if any).
type ObjectInfo struct {
	Offset    uint64
	Kind      Kind
	DeltaBase Oid
	HasDelta  bool
}

// Info returns bookkeeping for oid, or ok=false if it is unknown.
func (s *Store) Info(oid Oid) (ObjectInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.info[oid]
	if !ok || info.offset == pendingOffset {
		return ObjectInfo{}, false
	}
	out := ObjectInfo{Offset: info.offset, Kind: info.kind}
	if info.deltaBase != nil {
		out.DeltaBase = *info.deltaBase
		out.HasDelta = true
	}
	return out, true
}

func (s *Store) resolve(oid Oid, depth int) ([]byte, Kind, error) {
	if depth > maxDeltaDepth {
		return nil, 0, &StoreError{Kind: ErrDeltaChainTooDeep, Oid: oid}
	}

	s.mu.Lock()
	info, ok := s.info[oid]
	for ok && info.offset == pendingOffset {
		s.cond.Wait()
		info, ok = s.info[oid]
	}
	s.mu.Unlock()
	if !ok {
		return nil, 0, &StoreError{Kind: ErrNotFound, Oid: oid}
	}

	buf := make([]byte, info.compLen)
	if _, err := s.file.ReadAt(buf, int64(info.offset)); err != nil {
		return nil, 0, &StoreError{Kind: ErrIO, Err: err}
	}
	payload, err := decompress(buf)
	if err != nil {
		return nil, 0, &StoreError{Kind: ErrCorrupt, Oid: oid, Err: err}
	}

	if info.deltaBase == nil {
		s.cache.put(oid, payload)
		return payload, info.kind, nil
	}

	baseData, _, err := s.resolve(*info.deltaBase, depth+1)
	if err != nil {
		return nil, 0, err
	}
	data, err := gitdelta.Patch(baseData, payload)
	if err != nil {
		return nil, 0, &StoreError{Kind: ErrCorrupt, Oid: oid, Err: err}
	}
	s.cache.put(oid, data)
	return data, info.kind, nil
}

// skipDelta reports whether content looks like an already-compressed
// format (image/video/archive/audio) not worth delta-diffing, the same
// heuristic the teacher applies before gzip-compressing a blob.
func skipDelta(data []byte) bool {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return false
	}
	return filetype.IsImage(data) || filetype.IsVideo(data) ||
		filetype.IsArchive(data) || filetype.IsAudio(data)
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, &StoreError{Kind: ErrIO, Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &StoreError{Kind: ErrIO, Err: err}
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}
