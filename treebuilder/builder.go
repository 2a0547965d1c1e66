package treebuilder

import (
	"fmt"
	"strings"

	"github.com/rcowham/svn2git/objstore"
)

// Store is the object-access seam a Builder needs: read an existing tree's
// entries, and write back a (possibly base-relative) tree.
type Store interface {
	GetTree(oid objstore.Oid) ([]TreeEntry, error)
	// PutTree stores entries as a tree object. baseOid, if non-zero, names
	// the tree this one is a small edit of, letting the backing store try
	// a delta against it instead of storing the full body.
	PutTree(entries []TreeEntry, baseOid objstore.Oid) (objstore.Oid, error)
}

// WriterStore adapts an *objstore.Writer to the Store interface, encoding/
// decoding Git tree objects on the way in and out.
type WriterStore struct {
	W *objstore.Writer
}

func (s WriterStore) GetTree(oid objstore.Oid) ([]TreeEntry, error) {
	data, kind, err := s.W.Get(oid)
	if err != nil {
		return nil, err
	}
	if kind != objstore.KindTree {
		return nil, fmt.Errorf("treebuilder: object %s is not a tree", oid)
	}
	return Decode(data)
}

func (s WriterStore) PutTree(entries []TreeEntry, baseOid objstore.Oid) (objstore.Oid, error) {
	data := Encode(entries)
	return s.W.Insert(objstore.KindTree, data, baseOid), nil
}

// PutBlob stores blob content under its content-addressed oid.
func (s WriterStore) PutBlob(blob []byte) (objstore.Oid, error) {
	return s.W.Insert(objstore.KindBlob, blob, objstore.Oid{}), nil
}

// node is a lazily-expanded directory: until something beneath it is
// touched, it's just a reference to an already-stored tree's oid.
type node struct {
	expanded bool
	baseOid  objstore.Oid
	children map[string]*child
	modified bool
}

type child struct {
	mode EntryMode
	oid  objstore.Oid // authoritative when sub == nil or sub is unmodified
	sub  *node        // non-nil once this tree entry has been descended into
}

// Builder is a mutable overlay over a Git tree, rooted either at an empty
// tree or at an existing tree oid (via Reset).
type Builder struct {
	root *node
}

// New returns a Builder rooted at an empty tree.
func New() *Builder {
	return &Builder{root: &node{expanded: true, children: make(map[string]*child)}}
}

// Reset rebases the builder onto an existing tree oid, discarding any
// uncommitted edits.
func (b *Builder) Reset(oid objstore.Oid) {
	if oid.IsZero() {
		b.root = &node{expanded: true, children: make(map[string]*child)}
		return
	}
	b.root = &node{baseOid: oid}
}

func expand(n *node, store Store) error {
	if n.expanded {
		return nil
	}
	n.children = make(map[string]*child)
	if !n.baseOid.IsZero() {
		entries, err := store.GetTree(n.baseOid)
		if err != nil {
			return err
		}
		for _, e := range entries {
			n.children[e.Name] = &child{mode: e.Mode, oid: e.Oid}
		}
	}
	n.expanded = true
	return nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// descend walks to the parent directory of path's last component,
// returning that parent node, the last component's name, and the chain of
// ancestor nodes walked (for marking `modified`). If create is false and an
// intermediate component is missing, ok is false.
func (b *Builder) descend(path string, create bool, store Store) (parent *node, last string, chain []*node, ok bool, err error) {
	comps := splitPath(path)
	if len(comps) == 0 {
		return nil, "", nil, false, fmt.Errorf("treebuilder: empty path")
	}
	last = comps[len(comps)-1]
	comps = comps[:len(comps)-1]

	cur := b.root
	if err := expand(cur, store); err != nil {
		return nil, "", nil, false, err
	}
	chain = append(chain, cur)

	for _, comp := range comps {
		c, exists := cur.children[comp]
		if !exists {
			if !create {
				return nil, "", nil, false, nil
			}
			c = &child{mode: ModeTree, sub: &node{expanded: true, children: make(map[string]*child)}}
			cur.children[comp] = c
		}
		if !c.mode.IsTree() {
			if create {
				return nil, "", nil, false, fmt.Errorf("treebuilder: %q is not a directory", comp)
			}
			return nil, "", nil, false, nil
		}
		if c.sub == nil {
			c.sub = &node{baseOid: c.oid}
		}
		if err := expand(c.sub, store); err != nil {
			return nil, "", nil, false, err
		}
		cur = c.sub
		chain = append(chain, cur)
	}
	return cur, last, chain, true, nil
}

func markModified(chain []*node) {
	for _, n := range chain {
		n.modified = true
	}
}

// ModOid sets path to (mode, oid), creating intermediate directories.
func (b *Builder) ModOid(path string, mode EntryMode, oid objstore.Oid, store Store) error {
	parent, last, chain, ok, err := b.descend(path, true, store)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("treebuilder: could not create path %q", path)
	}
	parent.children[last] = &child{mode: mode, oid: oid}
	markModified(chain)
	return nil
}

// ModInline stores blob under a content-addressed oid via store and sets
// path to reference it.
func (b *Builder) ModInline(path string, mode EntryMode, blob []byte, store interface {
	Store
	PutBlob([]byte) (objstore.Oid, error)
}) error {
	oid, err := store.PutBlob(blob)
	if err != nil {
		return err
	}
	return b.ModOid(path, mode, oid, store)
}

// Rm removes path, reporting whether it existed.
func (b *Builder) Rm(path string, store Store) (bool, error) {
	parent, last, chain, ok, err := b.descend(path, false, store)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if _, exists := parent.children[last]; !exists {
		return false, nil
	}
	delete(parent.children, last)
	markModified(chain)
	return true, nil
}

// Ls reports the (mode, oid) currently stored at path, materializing any
// modified-but-not-yet-flattened subtree along the way.
func (b *Builder) Ls(path string, store Store) (EntryMode, objstore.Oid, bool, error) {
	parent, last, _, ok, err := b.descend(path, false, store)
	if err != nil {
		return 0, objstore.Oid{}, false, err
	}
	if !ok {
		return 0, objstore.Oid{}, false, nil
	}
	c, exists := parent.children[last]
	if !exists {
		return 0, objstore.Oid{}, false, nil
	}
	if c.mode.IsTree() && c.sub != nil && c.sub.modified {
		oid, empty, err := materializeNode(c.sub, store)
		if err != nil {
			return 0, objstore.Oid{}, false, err
		}
		if empty {
			return 0, objstore.Oid{}, false, nil
		}
		c.oid = oid
		c.sub.modified = false
	}
	return c.mode, c.oid, true, nil
}

// ReplaceSubtree returns the oid of baseOid with path's entry replaced by
// (mode, oid) — or removed entirely, if oid is zero — reusing every
// untouched sibling subtree from baseOid unchanged. Used to splice a
// partial branch's own content back into its copy source's full tree at
// the path it was copied from.
func ReplaceSubtree(store Store, baseOid objstore.Oid, path string, mode EntryMode, oid objstore.Oid) (objstore.Oid, error) {
	b := New()
	b.Reset(baseOid)
	if oid.IsZero() {
		if _, err := b.Rm(path, store); err != nil {
			return objstore.Oid{}, err
		}
	} else if err := b.ModOid(path, mode, oid, store); err != nil {
		return objstore.Oid{}, err
	}
	return b.Materialize(store)
}

// Materialize flattens every modified subtree (depth-first) and returns the
// resulting root tree oid.
func (b *Builder) Materialize(store Store) (objstore.Oid, error) {
	oid, empty, err := materializeNode(b.root, store)
	if err != nil {
		return objstore.Oid{}, err
	}
	if empty {
		oid, err = store.PutTree(nil, objstore.Oid{})
		if err != nil {
			return objstore.Oid{}, err
		}
	}
	b.root = &node{baseOid: oid}
	return oid, nil
}

// materializeNode returns (oid, isEmpty). An unmodified, never-expanded
// node is short-circuited to its base oid without touching the store.
func materializeNode(n *node, store Store) (objstore.Oid, bool, error) {
	if !n.expanded {
		return n.baseOid, n.baseOid.IsZero(), nil
	}
	if !n.modified && !n.baseOid.IsZero() {
		return n.baseOid, false, nil
	}

	var entries []TreeEntry
	for name, c := range n.children {
		if c.mode.IsTree() && c.sub != nil {
			oid, empty, err := materializeNode(c.sub, store)
			if err != nil {
				return objstore.Oid{}, false, err
			}
			if empty {
				continue
			}
			c.oid = oid
		}
		entries = append(entries, TreeEntry{Name: name, Mode: c.mode, Oid: c.oid})
	}

	if len(entries) == 0 {
		return objstore.Oid{}, true, nil
	}
	baseOid := objstore.Oid{}
	if !n.baseOid.IsZero() {
		baseOid = n.baseOid
	}
	oid, err := store.PutTree(entries, baseOid)
	if err != nil {
		return objstore.Oid{}, false, err
	}
	n.baseOid = oid
	n.modified = false
	return oid, false, nil
}
