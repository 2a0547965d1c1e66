package svntree

import (
	"strings"

	"github.com/rcowham/svn2git/objstore"
)

// Lookup resolves path against a stored (already-materialized) root node
// oid, without going through a Builder overlay — used to read another
// revision's SVN-tree snapshot (copy-from sources, branch subtree
// extraction).
func Lookup(store Store, rootOid objstore.Oid, path string) (Entry, bool, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return Entry{Name: "", IsDir: true, Dir: rootOid}, true, nil
	}

	cur := rootOid
	comps := strings.Split(path, "/")
	for i, comp := range comps {
		node, err := store.GetNode(cur)
		if err != nil {
			return Entry{}, false, err
		}
		var found *Entry
		for j := range node.Entries {
			if node.Entries[j].Name == comp {
				found = &node.Entries[j]
				break
			}
		}
		if found == nil {
			return Entry{}, false, nil
		}
		if i == len(comps)-1 {
			return *found, true, nil
		}
		if !found.IsDir {
			return Entry{}, false, nil
		}
		cur = found.Dir
	}
	return Entry{}, false, nil
}

// LookupMetadata returns the metadata blob oid of the directory at path
// (path == "" for the root).
func LookupMetadata(store Store, rootOid objstore.Oid, path string) (objstore.Oid, bool, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		node, err := store.GetNode(rootOid)
		if err != nil {
			return objstore.Oid{}, false, err
		}
		return node.Metadata, true, nil
	}
	e, ok, err := Lookup(store, rootOid, path)
	if err != nil || !ok || !e.IsDir {
		return objstore.Oid{}, false, err
	}
	node, err := store.GetNode(e.Dir)
	if err != nil {
		return objstore.Oid{}, false, err
	}
	return node.Metadata, true, nil
}
