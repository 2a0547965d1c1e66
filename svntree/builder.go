package svntree

import (
	"fmt"
	"strings"

	"github.com/rcowham/svn2git/objstore"
)

// Store is the object-access seam a Builder needs.
type Store interface {
	GetNode(oid objstore.Oid) (Node, error)
	PutNode(n Node) (objstore.Oid, error)
	PutBlob(data []byte) (objstore.Oid, error)
	GetBlob(oid objstore.Oid) ([]byte, error)
}

// WriterStore adapts an *objstore.Writer to Store.
type WriterStore struct {
	W *objstore.Writer
}

func (s WriterStore) GetNode(oid objstore.Oid) (Node, error) {
	data, _, err := s.W.Get(oid)
	if err != nil {
		return Node{}, err
	}
	return Decode(data)
}

func (s WriterStore) PutNode(n Node) (objstore.Oid, error) {
	return s.W.Insert(objstore.KindBlob, Encode(n), objstore.Oid{}), nil
}

func (s WriterStore) PutBlob(data []byte) (objstore.Oid, error) {
	return s.W.Insert(objstore.KindBlob, data, objstore.Oid{}), nil
}

func (s WriterStore) GetBlob(oid objstore.Oid) ([]byte, error) {
	data, _, err := s.W.Get(oid)
	if err != nil {
		return nil, err
	}
	return data, nil
}

type dirNode struct {
	expanded bool
	baseOid  objstore.Oid
	metadata objstore.Oid
	children map[string]*dirChild
	modified bool
}

type dirChild struct {
	isDir      bool
	sub        *dirNode // non-nil once descended into, if isDir
	oid        objstore.Oid
	special    FileSpecial
	executable bool
}

// Builder is a mutable, lazily-expanded overlay over an svntree Node graph.
type Builder struct {
	root *dirNode
}

func New(rootMetadata objstore.Oid) *Builder {
	return &Builder{root: &dirNode{expanded: true, metadata: rootMetadata, children: make(map[string]*dirChild)}}
}

// WithBase rebases the builder onto an existing stored root node.
func WithBase(base objstore.Oid) *Builder {
	return &Builder{root: &dirNode{baseOid: base}}
}

func expandDir(n *dirNode, store Store) error {
	if n.expanded {
		return nil
	}
	n.children = make(map[string]*dirChild)
	if !n.baseOid.IsZero() {
		node, err := store.GetNode(n.baseOid)
		if err != nil {
			return err
		}
		n.metadata = node.Metadata
		for _, e := range node.Entries {
			if e.IsDir {
				n.children[e.Name] = &dirChild{isDir: true, oid: e.Dir}
			} else {
				n.children[e.Name] = &dirChild{oid: e.FileOid, special: e.Special, executable: e.Executable}
			}
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

func (b *Builder) descendDirs(path string, create bool, store Store) (dirs []*dirNode, err error) {
	cur := b.root
	if err := expandDir(cur, store); err != nil {
		return nil, err
	}
	dirs = append(dirs, cur)

	for _, comp := range splitPath(path) {
		c, exists := cur.children[comp]
		if !exists {
			if !create {
				return nil, nil
			}
			c = &dirChild{isDir: true, sub: &dirNode{expanded: true, children: make(map[string]*dirChild)}}
			cur.children[comp] = c
		}
		if !c.isDir {
			if create {
				return nil, fmt.Errorf("svntree: %q is not a directory", comp)
			}
			return nil, nil
		}
		if c.sub == nil {
			c.sub = &dirNode{baseOid: c.oid}
		}
		if err := expandDir(c.sub, store); err != nil {
			return nil, err
		}
		cur = c.sub
		dirs = append(dirs, cur)
	}
	return dirs, nil
}

func markModified(dirs []*dirNode) {
	for _, d := range dirs {
		d.modified = true
	}
}

// Mkdir ensures every directory along path exists, creating metadata-free
// new directories as needed, and marks the whole chain modified.
func (b *Builder) Mkdir(path string, store Store) error {
	dirs, err := b.descendDirs(path, true, store)
	if err != nil {
		return err
	}
	markModified(dirs)
	return nil
}

// ModOid sets a file entry at path.
func (b *Builder) ModOid(path string, special FileSpecial, executable bool, oid objstore.Oid, store Store) error {
	dirPath, name := splitDirBase(path)
	dirs, err := b.descendDirs(dirPath, true, store)
	if err != nil {
		return err
	}
	parent := dirs[len(dirs)-1]
	parent.children[name] = &dirChild{oid: oid, special: special, executable: executable}
	markModified(dirs)
	return nil
}

// ModInline stores blob content and sets the file entry at path to it.
func (b *Builder) ModInline(path string, special FileSpecial, executable bool, blob []byte, store Store) (objstore.Oid, error) {
	oid, err := store.PutBlob(blob)
	if err != nil {
		return objstore.Oid{}, err
	}
	return oid, b.ModOid(path, special, executable, oid, store)
}

// ModMetadata sets the directory metadata blob oid for path ("" for the
// root), creating any missing directories along path first.
func (b *Builder) ModMetadata(path string, metadata objstore.Oid, store Store) error {
	dirs, err := b.descendDirs(path, true, store)
	if err != nil {
		return err
	}
	dirs[len(dirs)-1].metadata = metadata
	markModified(dirs)
	return nil
}

// SetDir sets a directory entry at path to reference an existing node oid
// without descending into it — the shape an `svn copy` of a whole subtree
// takes, since the copy source is never walked entry by entry.
func (b *Builder) SetDir(path string, oid objstore.Oid, store Store) error {
	dirPath, name := splitDirBase(path)
	dirs, err := b.descendDirs(dirPath, true, store)
	if err != nil {
		return err
	}
	parent := dirs[len(dirs)-1]
	parent.children[name] = &dirChild{isDir: true, oid: oid}
	markModified(dirs)
	return nil
}

// RootMetadata returns the metadata blob oid at "" (the tree root).
func (b *Builder) RootMetadata(store Store) (objstore.Oid, error) {
	if err := expandDir(b.root, store); err != nil {
		return objstore.Oid{}, err
	}
	return b.root.metadata, nil
}

// Rm removes path (file or directory), reporting whether it existed.
func (b *Builder) Rm(path string, store Store) (bool, error) {
	dirPath, name := splitDirBase(path)
	dirs, err := b.descendDirs(dirPath, false, store)
	if err != nil {
		return false, err
	}
	if dirs == nil {
		return false, nil
	}
	parent := dirs[len(dirs)-1]
	if _, exists := parent.children[name]; !exists {
		return false, nil
	}
	delete(parent.children, name)
	markModified(dirs)
	return true, nil
}

// LsFile reports the file entry at path, if any.
func (b *Builder) LsFile(path string, store Store) (special FileSpecial, executable bool, oid objstore.Oid, ok bool, err error) {
	dirPath, name := splitDirBase(path)
	dirs, err := b.descendDirs(dirPath, false, store)
	if err != nil || dirs == nil {
		return 0, false, objstore.Oid{}, false, err
	}
	c, exists := dirs[len(dirs)-1].children[name]
	if !exists || c.isDir {
		return 0, false, objstore.Oid{}, false, nil
	}
	return c.special, c.executable, c.oid, true, nil
}

// LsMetadata returns the metadata blob oid for the directory at path.
func (b *Builder) LsMetadata(path string, store Store) (objstore.Oid, bool, error) {
	dirs, err := b.descendDirs(path, false, store)
	if err != nil || dirs == nil {
		return objstore.Oid{}, false, err
	}
	return dirs[len(dirs)-1].metadata, true, nil
}

// Exists reports whether path (file or directory) currently exists.
func (b *Builder) Exists(path string, store Store) (bool, error) {
	dirPath, name := splitDirBase(path)
	dirs, err := b.descendDirs(dirPath, false, store)
	if err != nil {
		return false, err
	}
	if dirs == nil {
		return false, nil
	}
	_, exists := dirs[len(dirs)-1].children[name]
	return exists, nil
}

func splitDirBase(path string) (dir, base string) {
	comps := splitPath(path)
	if len(comps) == 0 {
		return "", ""
	}
	return strings.Join(comps[:len(comps)-1], "/"), comps[len(comps)-1]
}

// Materialize flattens every modified directory and returns the new root
// node oid.
func (b *Builder) Materialize(store Store) (objstore.Oid, error) {
	oid, err := materializeDir(b.root, store)
	if err != nil {
		return objstore.Oid{}, err
	}
	b.root = &dirNode{baseOid: oid}
	return oid, nil
}

func materializeDir(n *dirNode, store Store) (objstore.Oid, error) {
	if !n.expanded {
		return n.baseOid, nil
	}
	if !n.modified && !n.baseOid.IsZero() {
		return n.baseOid, nil
	}

	var entries []Entry
	for name, c := range n.children {
		if c.isDir {
			if c.sub != nil {
				oid, err := materializeDir(c.sub, store)
				if err != nil {
					return objstore.Oid{}, err
				}
				c.oid = oid
			}
			entries = append(entries, Entry{Name: name, IsDir: true, Dir: c.oid})
		} else {
			entries = append(entries, Entry{Name: name, Special: c.special, Executable: c.executable, FileOid: c.oid})
		}
	}

	oid, err := store.PutNode(Node{Metadata: n.metadata, Entries: entries})
	if err != nil {
		return objstore.Oid{}, err
	}
	n.baseOid = oid
	n.modified = false
	return oid, nil
}
