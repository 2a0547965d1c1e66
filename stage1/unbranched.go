package stage1

import (
	"github.com/rcowham/svn2git/classifier"
	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/svntree"
	"github.com/rcowham/svn2git/treebuilder"
)

// projectUnbranched projects everything in the revision's SVN-tree that is
// NOT inside a configured branch/tag: it walks the tree itself (rather than
// delegating whole subtrees to svntree.Projector) so it can skip any
// BranchClass-classified subtree entirely, recursing only through
// Unbranched and BranchParent directories. A directory with nothing left
// after pruning is omitted, matching svntree.Projector's own empty-subtree
// pruning.
func (e *Engine) projectUnbranched(nodeOid objstore.Oid, path string) (objstore.Oid, bool, error) {
	if nodeOid.IsZero() {
		return objstore.Oid{}, false, nil
	}
	res := e.classifier.Classify(path)
	if res.Class == classifier.BranchClass {
		return objstore.Oid{}, false, nil
	}
	if res.Class == classifier.Unbranched {
		return e.projector.Project(nodeOid, e.cfg.DeleteFiles)
	}

	node, err := e.treeStore.GetNode(nodeOid)
	if err != nil {
		return objstore.Oid{}, false, err
	}

	var entries []treebuilder.TreeEntry
	for _, child := range node.Entries {
		if !child.IsDir {
			// A BranchParent directory (by definition, per the classifier)
			// contains no direct file content of its own in any real
			// configuration; a stray file here is carried through as
			// ordinary unbranched content.
			mode := treebuilder.ModeFile
			if child.Executable {
				mode = treebuilder.ModeExec
			}
			if child.Special == svntree.SpecialLink {
				mode = treebuilder.ModeSymlink
			}
			entries = append(entries, treebuilder.TreeEntry{Name: child.Name, Mode: mode, Oid: child.FileOid})
			continue
		}
		childPath := path
		if childPath != "" {
			childPath += "/"
		}
		childPath += child.Name
		subOid, ok, err := e.projectUnbranched(child.Dir, childPath)
		if err != nil {
			return objstore.Oid{}, false, err
		}
		if !ok {
			continue
		}
		entries = append(entries, treebuilder.TreeEntry{Name: child.Name, Mode: treebuilder.ModeTree, Oid: subOid})
	}

	if len(entries) == 0 {
		return objstore.Oid{}, false, nil
	}
	treeOid, err := e.gitStore.PutTree(entries, objstore.Oid{})
	if err != nil {
		return objstore.Oid{}, false, err
	}
	return treeOid, true, nil
}
