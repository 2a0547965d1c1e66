// Package treebuilder implements the Git tree object's binary encoding and
// a lazy, path-addressed, mutable overlay on top of it: callers can
// mod/rm/ls arbitrarily deep paths without eagerly loading every
// intermediate subtree, and only the subtrees actually touched are
// re-serialized when the overlay is materialized back into an object id.
package treebuilder

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/rcowham/svn2git/objstore"
)

// EntryMode is a Git tree entry's file mode.
type EntryMode uint32

const (
	ModeFile    EntryMode = 0o100644
	ModeExec    EntryMode = 0o100755
	ModeSymlink EntryMode = 0o120000
	ModeTree    EntryMode = 0o040000
	ModeSubmod  EntryMode = 0o160000
)

func (m EntryMode) IsTree() bool { return m == ModeTree }

// TreeEntry is one decoded entry of a Git tree object.
type TreeEntry struct {
	Name string
	Mode EntryMode
	Oid  objstore.Oid
}

// sortKey reproduces Git's tree entry ordering: entries are compared as if
// directory names had a trailing '/', so a tree named "foo" (compared as
// "foo/") sorts after both "foo-bar" and "foo.c".
func sortKey(e TreeEntry) string {
	if e.Mode.IsTree() {
		return e.Name + "/"
	}
	return e.Name
}

// Encode serializes entries (which need not already be sorted) into a Git
// tree object's canonical byte form.
func Encode(entries []TreeEntry) []byte {
	sorted := append([]TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sortKey(sorted[i]) < sortKey(sorted[j]) })

	var buf bytes.Buffer
	for _, e := range sorted {
		fmt.Fprintf(&buf, "%s %s\x00", strconv.FormatInt(int64(e.Mode), 8), e.Name)
		buf.Write(e.Oid[:])
	}
	return buf.Bytes()
}

// Decode parses a Git tree object's canonical byte form.
func Decode(data []byte) ([]TreeEntry, error) {
	var entries []TreeEntry
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("treebuilder: malformed tree entry (no mode separator)")
		}
		mode, err := strconv.ParseUint(string(data[:sp]), 8, 32)
		if err != nil {
			return nil, fmt.Errorf("treebuilder: malformed tree entry mode: %w", err)
		}
		data = data[sp+1:]

		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("treebuilder: malformed tree entry (no name terminator)")
		}
		name := string(data[:nul])
		data = data[nul+1:]

		if len(data) < 20 {
			return nil, fmt.Errorf("treebuilder: truncated tree entry oid")
		}
		var oid objstore.Oid
		copy(oid[:], data[:20])
		data = data[20:]

		entries = append(entries, TreeEntry{Name: name, Mode: EntryMode(mode), Oid: oid})
	}
	return entries, nil
}
