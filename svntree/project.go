package svntree

import (
	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/pathpattern"
	"github.com/rcowham/svn2git/treebuilder"
)

// GitStore is the subset of treebuilder.Store a Projector needs, plus blob
// insertion for synthesized .gitignore content.
type GitStore interface {
	treebuilder.Store
	PutBlob(data []byte) (objstore.Oid, error)
}

// Projector turns SVN-tree node oids into Git tree oids: dropping the
// metadata sidecar, filtering configured delete_files globs, optionally
// synthesizing a .gitignore from svn:ignore/svn:global-ignores, and
// memoizing by SVN-tree node oid so a subtree shared across revisions (the
// common case — most of a tree is untouched between commits) is projected
// only once.
type Projector struct {
	store        Store
	git          GitStore
	genGitignore bool
	cache        map[objstore.Oid]objstore.Oid
}

// NewProjector builds a Projector.
func NewProjector(store Store, git GitStore, genGitignore bool) *Projector {
	return &Projector{
		store:        store,
		git:          git,
		genGitignore: genGitignore,
		cache:        make(map[objstore.Oid]objstore.Oid),
	}
}

func matchAny(name string, pats []string) bool {
	for _, raw := range pats {
		if pathpattern.Compile(raw).Match(name) {
			return true
		}
	}
	return false
}

// Project converts the SVN-tree rooted at nodeOid into a Git tree, caching
// the result by nodeOid. A zero nodeOid, or a subtree that projects to no
// entries at all, returns ok=false so the caller can omit it entirely.
func (p *Projector) Project(nodeOid objstore.Oid, deleteFiles []string) (objstore.Oid, bool, error) {
	if nodeOid.IsZero() {
		return objstore.Oid{}, false, nil
	}
	if cached, ok := p.cache[nodeOid]; ok {
		return cached, !cached.IsZero(), nil
	}

	node, err := p.store.GetNode(nodeOid)
	if err != nil {
		return objstore.Oid{}, false, err
	}

	var entries []treebuilder.TreeEntry
	for _, e := range node.Entries {
		if !e.IsDir && len(deleteFiles) > 0 && matchAny(e.Name, deleteFiles) {
			continue
		}
		if e.IsDir {
			subOid, ok, err := p.Project(e.Dir, deleteFiles)
			if err != nil {
				return objstore.Oid{}, false, err
			}
			if !ok {
				continue
			}
			entries = append(entries, treebuilder.TreeEntry{Name: e.Name, Mode: treebuilder.ModeTree, Oid: subOid})
			continue
		}
		mode := treebuilder.ModeFile
		if e.Executable {
			mode = treebuilder.ModeExec
		}
		if e.Special == SpecialLink {
			mode = treebuilder.ModeSymlink
		}
		entries = append(entries, treebuilder.TreeEntry{Name: e.Name, Mode: mode, Oid: e.FileOid})
	}

	if p.genGitignore && !hasEntry(entries, ".gitignore") && !node.Metadata.IsZero() {
		if propsBlob, err := p.store.GetBlob(node.Metadata); err == nil {
			if props, err := DecodeProps(propsBlob); err == nil {
				if content, ok := GitignoreFromProps(props); ok {
					blobOid, err := p.git.PutBlob([]byte(content))
					if err != nil {
						return objstore.Oid{}, false, err
					}
					entries = append(entries, treebuilder.TreeEntry{Name: ".gitignore", Mode: treebuilder.ModeFile, Oid: blobOid})
				}
			}
		}
	}

	if len(entries) == 0 {
		p.cache[nodeOid] = objstore.Oid{}
		return objstore.Oid{}, false, nil
	}

	treeOid, err := p.git.PutTree(entries, objstore.Oid{})
	if err != nil {
		return objstore.Oid{}, false, err
	}
	p.cache[nodeOid] = treeOid
	return treeOid, true, nil
}

func hasEntry(entries []treebuilder.TreeEntry, name string) bool {
	for _, e := range entries {
		if e.Name == name {
			return true
		}
	}
	return false
}
