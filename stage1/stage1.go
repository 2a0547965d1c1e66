// Package stage1 ingests an SVN dump stream revision by revision, keeping
// one running root SVN-tree (the "virtual working copy") and projecting
// each revision onto zero or more logical Git branches via a configured
// path classifier. Its output is a flat branch-rev graph: per-branch
// revision nodes stage2 turns into Git commits, plus a parallel history of
// the plain (non-branch) tree content.
package stage1

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcowham/svn2git/classifier"
	"github.com/rcowham/svn2git/config"
	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/pathpattern"
	"github.com/rcowham/svn2git/svndump"
	"github.com/rcowham/svn2git/svntree"
	"github.com/rcowham/svn2git/treebuilder"
)

// BranchRev is one revision of one logical Git branch or tag, as produced
// by the engine: a node in the branch-rev graph stage2 turns into commits.
type BranchRev struct {
	Branch         string // configured branch/tag root path, e.g. "branches/foo"
	Rev            uint32
	TreeOid        objstore.Oid
	Parent         int // index into Engine.BranchRevs, -1 if none
	IsTag          bool
	Deleted        bool
	DemotedFromTag bool   // a tag path touched again after its creation revision, so converted as a branch
	PartialSubPath string // nonempty if this is a partial branch/tag: TreeOid is the copy source's tree with this sub-path spliced in
	AddedMerges    []int
	RemovedMerges  []int
}

// UnbranchedRev is one revision of the plain (non-branch) tree content.
type UnbranchedRev struct {
	Rev     uint32
	TreeOid objstore.Oid
	Parent  int // index into Engine.UnbranchedRevs, -1 if none
}

// RevisionResult reports what a single ProcessRevision call touched.
type RevisionResult struct {
	Rev             uint32
	UnbranchedIndex int // -1 if unbranched content wasn't touched
	BranchIndices   []int
	Warnings        []string
}

// NodeInput is one SVN dump node record plus its fully-read text content
// (nil if the record carries no text block).
type NodeInput struct {
	Record *svndump.NodeRecord
	Text   []byte
}

type branchState struct {
	isTag       bool
	live        bool
	tipIndex    int
	createdOnce bool

	// partial marks a branch/tag created by copying from inside another
	// branch rather than that branch's own root, when configured as a
	// partial branch: partialSubPath is where the copy landed inside the
	// source, and partialBaseTree is the source branch's tree at the copy
	// point, into which this branch's own evolving content is re-spliced
	// on every touch.
	partial         bool
	partialSubPath  string
	partialBaseTree objstore.Oid
}

// copyOrigin records where a directory node touched this revision was
// copied from, so a brand new branch/tag can parent its first commit off
// the source branch's commit at the copy point instead of starting a
// disconnected history.
type copyOrigin struct {
	srcPath string
	srcRev  uint32
}

// Engine is stage1's per-conversion state: the running root SVN-tree, the
// per-revision snapshot history copy-from needs, and every branch/tag's
// live state.
type Engine struct {
	cfg        *config.ConvParams
	classifier *classifier.Classifier
	treeStore  svntree.Store
	gitStore   svntree.GitStore
	projector  *svntree.Projector
	tree       *svntree.Builder

	revRoots    map[uint32]objstore.Oid
	lastRootOid objstore.Oid

	branches               map[string]*branchState
	revIndexByBranch       map[string]map[uint32]int
	lastMergeInfoSnapshot  map[string]map[string][]mergeRange
	pendingCopyOrigins     map[string]copyOrigin

	partialBranchPats []*pathpattern.Pattern
	partialTagPats    []*pathpattern.Pattern

	BranchRevs     []BranchRev
	UnbranchedRevs []UnbranchedRev

	hasUnbranchedTip bool
	unbranchedTipIdx int
}

// New creates an Engine. treeStore backs the svn-tree graph; gitStore backs
// the projected Git trees/blobs the projector writes.
func New(cfg *config.ConvParams, specs []classifier.BranchSpec, treeStore svntree.Store, gitStore svntree.GitStore) (*Engine, error) {
	cls, err := classifier.New(specs)
	if err != nil {
		return nil, err
	}
	partialBranchPats := make([]*pathpattern.Pattern, len(cfg.PartialBranches))
	for i, p := range cfg.PartialBranches {
		partialBranchPats[i] = pathpattern.Compile(p)
	}
	partialTagPats := make([]*pathpattern.Pattern, len(cfg.PartialTags))
	for i, p := range cfg.PartialTags {
		partialTagPats[i] = pathpattern.Compile(p)
	}
	return &Engine{
		cfg:               cfg,
		classifier:        cls,
		treeStore:         treeStore,
		gitStore:          gitStore,
		projector:         svntree.NewProjector(treeStore, gitStore, cfg.GenerateGitignore),
		tree:              svntree.New(objstore.Oid{}),
		revRoots:          make(map[uint32]objstore.Oid),
		branches:          make(map[string]*branchState),
		revIndexByBranch:  make(map[string]map[uint32]int),
		partialBranchPats: partialBranchPats,
		partialTagPats:    partialTagPats,
		unbranchedTipIdx:  -1,
	}, nil
}

// isPartialBranch reports whether root is configured as a partial branch or
// tag: one expected to be created by copying from inside another branch
// rather than that branch's own root.
func (e *Engine) isPartialBranch(root string, isTag bool) bool {
	pats := e.partialBranchPats
	if isTag {
		pats = e.partialTagPats
	}
	for _, p := range pats {
		if p.Match(root) {
			return true
		}
	}
	return false
}

// ProcessRevision applies every node op in dump order, reclassifies every
// touched path, materializes the new root SVN-tree, and emits a new
// unbranched tree revision and/or per-branch tree revisions for whatever
// was touched.
func (e *Engine) ProcessRevision(rev uint32, nodes []NodeInput) (RevisionResult, error) {
	result := RevisionResult{Rev: rev, UnbranchedIndex: -1}

	touchedPaths := make([]string, 0, len(nodes))
	e.pendingCopyOrigins = map[string]copyOrigin{}
	for _, n := range nodes {
		path, err := e.applyNode(n.Record, n.Text)
		if err != nil {
			return RevisionResult{}, err
		}
		touchedPaths = append(touchedPaths, path)
		if n.Record.HasKind && n.Record.Kind == svndump.KindDir && n.Record.CopyFrom != nil {
			e.pendingCopyOrigins[path] = copyOrigin{srcPath: strings.Trim(n.Record.CopyFrom.Path, "/"), srcRev: n.Record.CopyFrom.Rev}
		}
	}

	touchedBranches := map[string]classifier.Result{}
	touchedUnbranched := false
	var parentPaths []string

	for _, path := range touchedPaths {
		res := e.classifier.Classify(path)
		switch res.Class {
		case classifier.Unbranched:
			touchedUnbranched = true
		case classifier.BranchParent:
			touchedUnbranched = true
			parentPaths = append(parentPaths, path)
		case classifier.BranchClass:
			root := branchRootPath(path, res.SubPath)
			touchedBranches[root] = res
		}
	}

	rootOid, err := e.tree.Materialize(e.treeStore)
	if err != nil {
		return RevisionResult{}, err
	}
	prevRootOid := e.lastRootOid
	e.revRoots[rev] = rootOid

	for _, p := range parentPaths {
		if err := e.findBranchesUnder(prevRootOid, p, touchedBranches); err != nil {
			return RevisionResult{}, err
		}
		if err := e.findBranchesUnder(rootOid, p, touchedBranches); err != nil {
			return RevisionResult{}, err
		}
	}

	if touchedUnbranched {
		unbrOid, _, err := e.projectUnbranched(rootOid, "")
		if err != nil {
			return RevisionResult{}, err
		}
		idx := len(e.UnbranchedRevs)
		parent := -1
		if e.hasUnbranchedTip {
			parent = e.unbranchedTipIdx
		}
		e.UnbranchedRevs = append(e.UnbranchedRevs, UnbranchedRev{Rev: rev, TreeOid: unbrOid, Parent: parent})
		e.unbranchedTipIdx = idx
		e.hasUnbranchedTip = true
		result.UnbranchedIndex = idx
	}

	roots := make([]string, 0, len(touchedBranches))
	for k := range touchedBranches {
		roots = append(roots, k)
	}
	sort.Strings(roots)

	for _, root := range roots {
		idx, warn, err := e.applyBranchTouch(rev, root, touchedBranches[root], rootOid)
		if err != nil {
			return RevisionResult{}, err
		}
		if idx >= 0 {
			result.BranchIndices = append(result.BranchIndices, idx)
		}
		if warn != "" {
			result.Warnings = append(result.Warnings, warn)
		}
	}

	e.lastRootOid = rootOid
	return result, nil
}

// branchRootPath recovers the branch/tag's true identity (its actual root
// path, e.g. "branches/foo") from a classified path and the SubPath the
// classifier reported beneath it — the classifier's own Key only names the
// configured pattern ("branches/*"), not which wildcard match produced it.
func branchRootPath(path, subPath string) string {
	path = trimSlashes(path)
	subPath = trimSlashes(subPath)
	if subPath == "" {
		return path
	}
	if len(path) > len(subPath) {
		return path[:len(path)-len(subPath)-1]
	}
	return ""
}

func trimSlashes(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// findBranchesUnder looks up prefix inside root and, if it resolves to a
// directory, walks it looking for configured branch/tag roots beneath it —
// used when a BranchParent-classified path is deleted or copied wholesale,
// since that implicitly deletes/creates every branch underneath it without
// an explicit per-branch node op.
func (e *Engine) findBranchesUnder(root objstore.Oid, prefix string, out map[string]classifier.Result) error {
	if root.IsZero() {
		return nil
	}
	entry, found, err := svntree.Lookup(e.treeStore, root, prefix)
	if err != nil || !found || !entry.IsDir {
		return err
	}
	return e.walkForBranches(entry.Dir, trimSlashes(prefix), out)
}

func (e *Engine) walkForBranches(dirOid objstore.Oid, path string, out map[string]classifier.Result) error {
	res := e.classifier.Classify(path)
	switch res.Class {
	case classifier.BranchClass:
		out[branchRootPath(path, res.SubPath)] = res
		return nil
	case classifier.Unbranched:
		return nil
	}
	node, err := e.treeStore.GetNode(dirOid)
	if err != nil {
		return err
	}
	for _, child := range node.Entries {
		if !child.IsDir {
			continue
		}
		childPath := path
		if childPath != "" {
			childPath += "/"
		}
		childPath += child.Name
		if err := e.walkForBranches(child.Dir, childPath, out); err != nil {
			return err
		}
	}
	return nil
}

// applyBranchTouch resolves root's subtree inside svnRootOid and records a
// new BranchRev: a deletion if the path is now gone, otherwise a projected
// tree. Tags are demoted to branches (with a warning) if touched a second
// time after their one allowed creation revision.
func (e *Engine) applyBranchTouch(rev uint32, root string, cls classifier.Result, svnRootOid objstore.Oid) (idx int, warning string, err error) {
	st, exists := e.branches[root]
	entry, found, err := svntree.Lookup(e.treeStore, svnRootOid, root)
	if err != nil {
		return -1, "", err
	}

	if !found || !entry.IsDir {
		if exists && st.live {
			idx = len(e.BranchRevs)
			e.BranchRevs = append(e.BranchRevs, BranchRev{
				Branch: root, Rev: rev, Parent: st.tipIndex, IsTag: st.isTag, Deleted: true,
			})
			st.live = false
			st.tipIndex = idx
			e.recordBranchRevAt(root, rev, idx)
			return idx, "", nil
		}
		return -1, "", nil
	}

	treeOid, ok, err := e.projector.Project(entry.Dir, e.cfg.DeleteFiles)
	if err != nil {
		return -1, "", err
	}
	if !ok {
		treeOid = objstore.Oid{}
	}

	if !exists {
		parentIdx, partialSubPath, partialBaseTree := e.resolveCopyOrigin(root, cls.IsTag)
		st = &branchState{tipIndex: parentIdx}
		if partialSubPath != "" {
			st.partial = true
			st.partialSubPath = partialSubPath
			st.partialBaseTree = partialBaseTree
		}
		e.branches[root] = st
	}

	if st.partial {
		merged, err := treebuilder.ReplaceSubtree(e.gitStore, st.partialBaseTree, st.partialSubPath, treebuilder.ModeTree, treeOid)
		if err != nil {
			return -1, "", err
		}
		treeOid = merged
	}

	isTag := cls.IsTag
	if isTag && st.createdOnce {
		isTag = false
		warning = fmt.Sprintf("stage1: %q configured as a tag but modified again at r%d; demoted to a branch", root, rev)
	}
	if cls.IsTag && !st.createdOnce {
		st.createdOnce = true
	}

	br := BranchRev{
		Branch: root, Rev: rev, TreeOid: treeOid, Parent: st.tipIndex,
		IsTag: isTag, DemotedFromTag: warning != "", PartialSubPath: st.partialSubPath,
	}

	if e.cfg.EnableMerges {
		added, removed := e.diffMergeInfo(root, entry.Dir, rev)
		br.AddedMerges = added
		br.RemovedMerges = removed
	}

	idx = len(e.BranchRevs)
	e.BranchRevs = append(e.BranchRevs, br)
	st.isTag = isTag
	st.live = true
	st.tipIndex = idx
	e.recordBranchRevAt(root, rev, idx)
	return idx, warning, nil
}

// resolveCopyOrigin looks up root's recorded copy origin (if this revision
// created it via a whole-subtree copy) and resolves it to the source
// branch's BranchRevs index at or before the copy-from revision, so the new
// branch's first commit parents off shared history. Returns -1 (a
// disconnected root commit) if root wasn't created by a copy, or the copy
// source isn't itself beneath a tracked branch root.
//
// When the copy source sits inside an existing branch rather than at that
// branch's own root (cls.SubPath is nonempty) and root is configured as a
// partial branch/tag, the copy is a partial branch: partialSubPath and
// partialBaseTree report where inside the source tree this branch's own
// content must be re-spliced on every subsequent touch, per applyBranchTouch.
func (e *Engine) resolveCopyOrigin(root string, isTag bool) (parentIdx int, partialSubPath string, partialBaseTree objstore.Oid) {
	origin, ok := e.pendingCopyOrigins[root]
	if !ok {
		return -1, "", objstore.Oid{}
	}
	cls := e.classifier.Classify(origin.srcPath)
	if cls.Class != classifier.BranchClass {
		return -1, "", objstore.Oid{}
	}
	srcRoot := branchRootPath(origin.srcPath, cls.SubPath)
	idx, ok := e.nearestBranchRevAtOrBefore(srcRoot, origin.srcRev)
	if !ok {
		return -1, "", objstore.Oid{}
	}
	if cls.SubPath != "" && e.isPartialBranch(root, isTag) {
		return idx, cls.SubPath, e.BranchRevs[idx].TreeOid
	}
	return idx, "", objstore.Oid{}
}

func (e *Engine) recordBranchRevAt(root string, rev uint32, idx int) {
	m, ok := e.revIndexByBranch[root]
	if !ok {
		m = make(map[uint32]int)
		e.revIndexByBranch[root] = m
	}
	m[rev] = idx
}

// nearestBranchRevAtOrBefore returns the BranchRevs index of the latest
// recorded revision of branchRoot at or before rev, for translating a
// merged source-branch revision range endpoint into a concrete BranchRev.
func (e *Engine) nearestBranchRevAtOrBefore(branchRoot string, rev uint32) (int, bool) {
	m, ok := e.revIndexByBranch[branchRoot]
	if !ok {
		return -1, false
	}
	best, bestRev, found := -1, uint32(0), false
	for r, idx := range m {
		if r <= rev && (!found || r > bestRev) {
			best, bestRev, found = idx, r, true
		}
	}
	return best, found
}
