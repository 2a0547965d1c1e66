package packwriter

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"

	"github.com/rcowham/svn2git/gitdelta"
	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/treebuilder"
)

// Reader is the object-access seam pack assembly needs from the temp
// store: fully-resolved content plus per-object bookkeeping (Info). Pack
// assembly recomputes each OfsDelta with gitdelta.Diff against the base's
// resolved content.
type Reader interface {
	GetRaw(oid objstore.Oid) ([]byte, objstore.Kind, error)
	Info(oid objstore.Oid) (objstore.ObjectInfo, bool)
}

// Ref names a ref and the commit or tag oid it should point at.
type Ref struct {
	Name string
	Oid  objstore.Oid
}

const (
	objCommit   = 1
	objTree     = 2
	objBlob     = 3
	objTag      = 4
	objOfsDelta = 6
)

func packKind(k objstore.Kind) int {
	switch k {
	case objstore.KindCommit:
		return objCommit
	case objstore.KindTree:
		return objTree
	case objstore.KindBlob:
		return objBlob
	case objstore.KindTag:
		return objTag
	default:
		return objBlob
	}
}

// gatherReachable walks every ref's tip object and everything it
// references (trees → entries, commits → tree + parents, tags → target),
// returning the full set of reachable oids.
func gatherReachable(store Reader, refs []Ref) (map[objstore.Oid]bool, error) {
	seen := make(map[objstore.Oid]bool)
	var queue []objstore.Oid
	for _, r := range refs {
		queue = append(queue, r.Oid)
	}

	for len(queue) > 0 {
		oid := queue[0]
		queue = queue[1:]
		if oid.IsZero() || seen[oid] {
			continue
		}
		seen[oid] = true

		data, kind, err := store.GetRaw(oid)
		if err != nil {
			return nil, err
		}
		switch kind {
		case objstore.KindCommit:
			tree, parents, err := parseCommitRefs(data)
			if err != nil {
				return nil, err
			}
			queue = append(queue, tree)
			queue = append(queue, parents...)
		case objstore.KindTag:
			target, err := parseTagTarget(data)
			if err != nil {
				return nil, err
			}
			queue = append(queue, target)
		case objstore.KindTree:
			entries, err := treebuilder.Decode(data)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				queue = append(queue, e.Oid)
			}
		case objstore.KindBlob:
			// no further references
		}
	}
	return seen, nil
}

// orderForWrite sorts reachable oids by their temp-store insertion offset
// so that an object always appears after any delta base it might reuse.
func orderForWrite(store Reader, reachable map[objstore.Oid]bool) []objstore.Oid {
	ordered := make([]objstore.Oid, 0, len(reachable))
	for oid := range reachable {
		ordered = append(ordered, oid)
	}
	sort.Slice(ordered, func(i, j int) bool {
		infoI, _ := store.Info(ordered[i])
		infoJ, _ := store.Info(ordered[j])
		return infoI.Offset < infoJ.Offset
	})
	return ordered
}

// InitBareRepo scaffolds destDir as a bare git repository: "config" with
// core.bare=true, "HEAD" pointing at headRef, the hooks/branches/info
// directories git expects a repo to carry, and objects/pack,
// objects/info for the pack Write assembles next. Safe to call against
// an existing directory; it never touches anything it doesn't create.
func InitBareRepo(destDir, headRef string) error {
	for _, dir := range []string{"hooks", "branches", "info", "refs/heads", "refs/tags", "objects/info", "objects/pack"} {
		if err := os.MkdirAll(filepath.Join(destDir, dir), 0o755); err != nil {
			return err
		}
	}

	exclude := filepath.Join(destDir, "info", "exclude")
	if err := os.WriteFile(exclude, []byte("# git ls-files --others --exclude-from=.git/info/exclude\n"), 0o644); err != nil {
		return err
	}

	config := "[core]\n" +
		"\trepositoryformatversion = 0\n" +
		"\tfilemode = true\n" +
		"\tbare = true\n"
	if err := os.WriteFile(filepath.Join(destDir, "config"), []byte(config), 0o644); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(destDir, "HEAD"), []byte(fmt.Sprintf("ref: %s\n", headRef)), 0o644)
}

// Write assembles the pack + idx files for the object closure reachable
// from refs into destDir/objects/pack, named "pack-<sha>.pack"/".idx",
// scaffolding destDir as a bare repository first and writing "HEAD" (a
// symbolic ref to headRef) and "packed-refs" after. It returns the
// pack's sha1 hex string.
func Write(destDir string, store Reader, refs []Ref, headRef string) (string, error) {
	if err := InitBareRepo(destDir, headRef); err != nil {
		return "", err
	}

	reachable, err := gatherReachable(store, refs)
	if err != nil {
		return "", err
	}
	ordered := orderForWrite(store, reachable)

	packData, offsets, crcs, err := encodePack(store, ordered)
	if err != nil {
		return "", err
	}

	sum := sha1.Sum(packData)
	packData = append(packData, sum[:]...)
	packSha := fmt.Sprintf("%x", sum)

	idxData, err := encodeIndex(ordered, offsets, crcs, sum)
	if err != nil {
		return "", err
	}

	packDir := filepath.Join(destDir, "objects", "pack")
	packPath := filepath.Join(packDir, fmt.Sprintf("pack-%s.pack", packSha))
	idxPath := filepath.Join(packDir, fmt.Sprintf("pack-%s.idx", packSha))
	if err := os.WriteFile(packPath, packData, 0o644); err != nil {
		return "", err
	}
	if err := os.WriteFile(idxPath, idxData, 0o644); err != nil {
		return "", err
	}

	if err := writeRefs(destDir, refs); err != nil {
		return "", err
	}

	return packSha, nil
}

// encodePack writes the pack header and every object entry in order,
// preferring an OfsDelta against a base that's already been written
// earlier in the same pack. Returns the pack bytes (without the trailing
// sha, appended by the caller), each oid's pack offset, and its entry's
// CRC32 (header + compressed payload, as pack-idx v2 requires).
func encodePack(store Reader, ordered []objstore.Oid) ([]byte, map[objstore.Oid]int64, map[objstore.Oid]uint32, error) {
	var buf bytes.Buffer
	buf.WriteString("PACK")
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], 2)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(ordered)))
	buf.Write(hdr[:])

	offsets := make(map[objstore.Oid]int64, len(ordered))
	crcs := make(map[objstore.Oid]uint32, len(ordered))

	for _, oid := range ordered {
		data, kind, err := store.GetRaw(oid)
		if err != nil {
			return nil, nil, nil, err
		}
		info, _ := store.Info(oid)

		entryOffset := int64(buf.Len())
		offsets[oid] = entryOffset

		var payload []byte
		entryType := packKind(kind)
		if info.HasDelta {
			if baseOffset, ok := offsets[info.DeltaBase]; ok {
				baseData, _, err := store.GetRaw(info.DeltaBase)
				if err == nil {
					if delta := gitdelta.Diff(baseData, data, 4); delta != nil {
						payload = delta
						entryType = objOfsDelta
						distance := entryOffset - baseOffset
						startLen := buf.Len()
						buf.Write(encodeObjHeader(entryType, len(delta)))
						buf.Write(encodeOfsDeltaDistance(distance))
						compressed, err := zlibCompress(payload)
						if err != nil {
							return nil, nil, nil, err
						}
						buf.Write(compressed)
						crcs[oid] = crc32.ChecksumIEEE(buf.Bytes()[startLen:])
						continue
					}
				}
			}
		}

		startLen := buf.Len()
		buf.Write(encodeObjHeader(packKind(kind), len(data)))
		compressed, err := zlibCompress(data)
		if err != nil {
			return nil, nil, nil, err
		}
		buf.Write(compressed)
		crcs[oid] = crc32.ChecksumIEEE(buf.Bytes()[startLen:])
	}

	return buf.Bytes(), offsets, crcs, nil
}

func zlibCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeObjHeader builds a pack object's variable-length (type, size)
// header: the low 4 bits of the first byte hold size bits 0-3 and bits
// 4-6 hold the type, with further size bits following 7 per byte,
// continuation indicated by the high bit.
func encodeObjHeader(kind int, size int) []byte {
	var out []byte
	b := byte(kind<<4) | byte(size&0x0f)
	size >>= 4
	for size != 0 {
		out = append(out, b|0x80)
		b = byte(size & 0x7f)
		size >>= 7
	}
	out = append(out, b)
	return out
}

// encodeOfsDeltaDistance encodes an OfsDelta base distance per Git's
// offset-delta varint: base-128, most significant group first, with an
// implicit "-1" applied to every group after the first.
func encodeOfsDeltaDistance(distance int64) []byte {
	var tmp [10]byte
	i := len(tmp)
	i--
	tmp[i] = byte(distance & 0x7f)
	distance >>= 7
	for distance > 0 {
		distance--
		i--
		tmp[i] = byte(0x80 | (distance & 0x7f))
		distance >>= 7
	}
	return tmp[i:]
}
