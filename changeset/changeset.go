// Package changeset accumulates a flat, path-keyed set of tree edits
// (set an entry, remove an entry) and applies them in one pass against an
// existing Git tree, producing a new tree oid without re-walking or
// re-serializing any subtree the edits didn't touch. Where treebuilder's
// Builder is a long-lived overlay mutated incrementally as a revision is
// ingested, a ChangeSet is a smaller, throwaway set of edits applied once
// onto a base tree.
package changeset

import (
	"strings"

	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/treebuilder"
)

type changeKind int

const (
	chRemove changeKind = iota
	chChange
	chChangeTree
	chNewTree
)

type entryChange struct {
	kind    changeKind
	mode    treebuilder.EntryMode
	oid     objstore.Oid
	sub     map[string]*entryChange
	origOid objstore.Oid
	hasOrig bool
}

// ChangeSet is a set of pending path edits against an (optional) original
// tree oid.
type ChangeSet struct {
	hasOrig bool
	orig    objstore.Oid
	root    map[string]*entryChange
}

// New starts a ChangeSet against orig. If hasOrig is false the changeset
// is building a tree from scratch.
func New(orig objstore.Oid, hasOrig bool) *ChangeSet {
	return &ChangeSet{hasOrig: hasOrig, orig: orig, root: make(map[string]*entryChange)}
}

// Remove marks path for removal from the resulting tree.
func (cs *ChangeSet) Remove(path string) {
	cs.setEntry(path, &entryChange{kind: chRemove})
}

// Change sets path to (mode, oid) in the resulting tree.
func (cs *ChangeSet) Change(path string, mode treebuilder.EntryMode, oid objstore.Oid) {
	cs.setEntry(path, &entryChange{kind: chChange, mode: mode, oid: oid})
}

func (cs *ChangeSet) setEntry(path string, value *entryChange) {
	comps := strings.Split(strings.Trim(path, "/"), "/")
	last := comps[len(comps)-1]

	cur := cs.root
	for _, comp := range comps[:len(comps)-1] {
		entry, ok := cur[comp]
		if !ok {
			entry = &entryChange{kind: chChangeTree, sub: make(map[string]*entryChange)}
			cur[comp] = entry
			cur = entry.sub
			continue
		}
		switch entry.kind {
		case chChangeTree, chNewTree:
			// already a subtree in progress
		case chChange:
			if entry.mode.IsTree() {
				entry.kind = chNewTree
				entry.origOid = entry.oid
				entry.hasOrig = true
			} else {
				entry.kind = chNewTree
				entry.hasOrig = false
			}
			entry.sub = make(map[string]*entryChange)
		case chRemove:
			entry.kind = chNewTree
			entry.hasOrig = false
			entry.sub = make(map[string]*entryChange)
		}
		cur = entry.sub
	}
	cur[last] = value
}

// Apply flattens the pending edits against the original tree (reading
// subtrees lazily through store) and returns the new root tree oid. ok is
// false if the resulting tree has no entries at all, in which case the
// root should be pruned by the caller rather than stored.
func (cs *ChangeSet) Apply(store treebuilder.Store) (oid objstore.Oid, ok bool, err error) {
	return applyTree(cs.root, cs.orig, cs.hasOrig, store)
}

func applyTree(changes map[string]*entryChange, origOid objstore.Oid, hasOrig bool, store treebuilder.Store) (objstore.Oid, bool, error) {
	entries := make(map[string]treebuilder.TreeEntry)
	if hasOrig {
		orig, err := store.GetTree(origOid)
		if err != nil {
			return objstore.Oid{}, false, err
		}
		for _, e := range orig {
			entries[e.Name] = e
		}
	}

	for name, change := range changes {
		switch change.kind {
		case chRemove:
			delete(entries, name)
		case chChange:
			entries[name] = treebuilder.TreeEntry{Name: name, Mode: change.mode, Oid: change.oid}
		case chChangeTree:
			var subOid objstore.Oid
			var subHasOrig bool
			if e, present := entries[name]; present && e.Mode.IsTree() {
				subOid, subHasOrig = e.Oid, true
			}
			oid, present, err := applyTree(change.sub, subOid, subHasOrig, store)
			if err != nil {
				return objstore.Oid{}, false, err
			}
			if present {
				entries[name] = treebuilder.TreeEntry{Name: name, Mode: treebuilder.ModeTree, Oid: oid}
			} else {
				delete(entries, name)
			}
		case chNewTree:
			oid, present, err := applyTree(change.sub, change.origOid, change.hasOrig, store)
			if err != nil {
				return objstore.Oid{}, false, err
			}
			if present {
				entries[name] = treebuilder.TreeEntry{Name: name, Mode: treebuilder.ModeTree, Oid: oid}
			} else {
				delete(entries, name)
			}
		}
	}

	if len(entries) == 0 {
		return objstore.Oid{}, false, nil
	}

	list := make([]treebuilder.TreeEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}

	base := objstore.Oid{}
	if hasOrig {
		base = origOid
	}
	oid, err := store.PutTree(list, base)
	if err != nil {
		return objstore.Oid{}, false, err
	}
	return oid, true, nil
}
