package packwriter

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rcowham/svn2git/objstore"
)

// encodeIndex builds a pack-idx v2 file for the given (already
// offset-sorted by pack position, but re-sorted here by oid) objects.
func encodeIndex(oids []objstore.Oid, offsets map[objstore.Oid]int64, crcs map[objstore.Oid]uint32, packSha [20]byte) ([]byte, error) {
	sorted := append([]objstore.Oid(nil), oids...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })

	var buf bytes.Buffer
	buf.WriteString("\xfftOc")
	var verBuf [4]byte
	binary.BigEndian.PutUint32(verBuf[:], 2)
	buf.Write(verBuf[:])

	var fanout [256]uint32
	for _, oid := range sorted {
		for b := int(oid[0]); b < 256; b++ {
			fanout[b]++
		}
	}
	for _, count := range fanout {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], count)
		buf.Write(b[:])
	}

	for _, oid := range sorted {
		buf.Write(oid[:])
	}

	for _, oid := range sorted {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], crcs[oid])
		buf.Write(b[:])
	}

	var large []int64
	for _, oid := range sorted {
		offset := offsets[oid]
		var b [4]byte
		if offset > 0x7fffffff {
			idx := uint32(len(large)) | 0x80000000
			binary.BigEndian.PutUint32(b[:], idx)
			large = append(large, offset)
		} else {
			binary.BigEndian.PutUint32(b[:], uint32(offset))
		}
		buf.Write(b[:])
	}
	for _, offset := range large {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(offset))
		buf.Write(b[:])
	}

	buf.Write(packSha[:])

	idxSha := sha1.Sum(buf.Bytes())
	buf.Write(idxSha[:])

	return buf.Bytes(), nil
}

// writeRefs writes "packed-refs" into a bare repository directory. HEAD
// is scaffolded separately by InitBareRepo.
func writeRefs(destDir string, refs []Ref) error {
	sorted := append([]Ref(nil), refs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var buf bytes.Buffer
	buf.WriteString("# pack-refs with: peeled fully-peeled sorted\n")
	for _, r := range sorted {
		fmt.Fprintf(&buf, "%s %s\n", r.Oid, r.Name)
	}
	return os.WriteFile(filepath.Join(destDir, "packed-refs"), buf.Bytes(), 0o644)
}
