// Package svntree models the per-revision SVN virtual tree: unlike a Git
// tree, every directory carries a metadata blob (svn:ignore, raw
// properties, mergeinfo, ...) alongside its entries, so SVN-side tree
// nodes are serialized in a private format rather than as Git tree objects.
// Component I (SVN→Git projection) is what turns these into real Git trees.
package svntree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/rcowham/svn2git/objstore"
)

// FileSpecial marks a file entry's non-regular nature.
type FileSpecial int

const (
	SpecialNone FileSpecial = iota
	SpecialLink
)

// Entry is one child of an SVN tree Node.
type Entry struct {
	Name       string
	IsDir      bool
	Dir        objstore.Oid // valid if IsDir
	Special    FileSpecial  // valid if !IsDir
	Executable bool         // valid if !IsDir
	FileOid    objstore.Oid // valid if !IsDir
}

// Node is a directory: its metadata blob oid plus its sorted children.
type Node struct {
	Metadata objstore.Oid
	Entries  []Entry
}

// Encode serializes a Node into this package's private binary format
// (not a Git tree): metadata oid, entry count, then per entry a
// length-prefixed name and a type tag.
func Encode(n Node) []byte {
	sorted := append([]Entry(nil), n.Entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var buf bytes.Buffer
	buf.Write(n.Metadata[:])

	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], uint64(len(sorted)))
	buf.Write(countBuf[:])

	for _, e := range sorted {
		var nameLen [4]byte
		binary.LittleEndian.PutUint32(nameLen[:], uint32(len(e.Name)))
		buf.Write(nameLen[:])
		buf.WriteString(e.Name)

		if e.IsDir {
			buf.WriteByte(0)
			buf.Write(e.Dir[:])
		} else {
			buf.WriteByte(1)
			buf.WriteByte(byte(e.Special))
			if e.Executable {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
			buf.Write(e.FileOid[:])
		}
	}
	return buf.Bytes()
}

// Decode parses a Node previously produced by Encode.
func Decode(data []byte) (Node, error) {
	if len(data) < 28 {
		return Node{}, fmt.Errorf("svntree: truncated node")
	}
	var n Node
	copy(n.Metadata[:], data[:20])
	data = data[20:]

	count := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]

	n.Entries = make([]Entry, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(data) < 4 {
			return Node{}, fmt.Errorf("svntree: truncated entry name length")
		}
		nameLen := binary.LittleEndian.Uint32(data[:4])
		data = data[4:]
		if uint64(len(data)) < uint64(nameLen)+1 {
			return Node{}, fmt.Errorf("svntree: truncated entry name")
		}
		name := string(data[:nameLen])
		data = data[nameLen:]

		tag := data[0]
		data = data[1:]

		var e Entry
		e.Name = name
		switch tag {
		case 0:
			if len(data) < 20 {
				return Node{}, fmt.Errorf("svntree: truncated dir oid")
			}
			e.IsDir = true
			copy(e.Dir[:], data[:20])
			data = data[20:]
		case 1:
			if len(data) < 22 {
				return Node{}, fmt.Errorf("svntree: truncated file entry")
			}
			e.Special = FileSpecial(data[0])
			e.Executable = data[1] != 0
			copy(e.FileOid[:], data[2:22])
			data = data[22:]
		default:
			return Node{}, fmt.Errorf("svntree: invalid entry tag %d", tag)
		}
		n.Entries = append(n.Entries, e)
	}
	return n, nil
}
