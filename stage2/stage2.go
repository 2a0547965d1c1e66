// Package stage2 turns stage1's flat branch-rev graph into actual Git
// commit/tag objects plus the ref set a bare repository needs: it resolves
// which BranchRevs are reachable from a live tip, names every surviving
// branch/tag as a legal, collision-free Git ref, synthesizes merge parents
// out of SVN mergeinfo where the merge source's own history is already
// present, and finally reports the ref list and HEAD target for the pack
// finalizer (packwriter.Write) to consume.
package stage2

import (
	"fmt"

	"github.com/rcowham/svn2git/config"
	"github.com/rcowham/svn2git/metamaker"
	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/packwriter"
	"github.com/rcowham/svn2git/progress"
	"github.com/rcowham/svn2git/stage1"
)

// RevProps looks up the SVN revision properties (svn:author, svn:log,
// svn:date, ...) recorded for a dump revision number.
type RevProps func(rev uint32) map[string]string

// Inserter is the write seam stage2 needs to hand commit/tag object bytes
// to the object store, matching objstore.Writer.Insert's signature.
type Inserter interface {
	Insert(kind objstore.Kind, data []byte, deltaBase objstore.Oid) objstore.Oid
}

// Input bundles stage1's output with everything stage2 needs to turn it
// into Git objects and refs.
type Input struct {
	Cfg            *config.ConvParams
	SVNUUID        string
	RevProps       RevProps
	BranchRevs     []stage1.BranchRev
	UnbranchedRevs []stage1.UnbranchedRev
}

// Output is what the pack finalizer (packwriter.Write) needs: the final
// ref set and which one HEAD should point at.
type Output struct {
	Refs    []packwriter.Ref
	HeadRef string
}

type branchGitData struct {
	commitOid   objstore.Oid
	merges      map[int]bool
	cherrypicks map[int]bool
}

type runner struct {
	in      Input
	meta    *metamaker.MetaMaker
	writer  Inserter
	sink    progress.Sink
	gitData map[int]*branchGitData
	unbrOid []objstore.Oid
}

// Run emits every reachable commit/tag object into writer and returns the
// ref list plus HEAD target for the pack finalizer.
func Run(in Input, meta *metamaker.MetaMaker, writer Inserter, sink progress.Sink) (Output, error) {
	if sink == nil {
		sink = progress.NopSink{}
	}
	r := &runner{in: in, meta: meta, writer: writer, sink: sink, gitData: make(map[int]*branchGitData)}
	return r.run()
}

func (r *runner) run() (Output, error) {
	reachable := gatherReachable(r.in.Cfg, r.in.BranchRevs)
	unbranchedName, refNames := calculateGitNames(r.in.Cfg, r.in.BranchRevs, len(r.in.UnbranchedRevs) > 0)

	var refs []packwriter.Ref

	r.sink.Report("emitting unbranched commits")
	r.unbrOid = make([]objstore.Oid, len(r.in.UnbranchedRevs))
	for i := range r.in.UnbranchedRevs {
		oid, err := r.makeUnbranchedCommit(i)
		if err != nil {
			return Output{}, err
		}
		r.unbrOid[i] = oid
	}
	if unbranchedName != "" && len(r.in.UnbranchedRevs) > 0 {
		refs = append(refs, packwriter.Ref{Name: unbranchedName, Oid: r.unbrOid[len(r.unbrOid)-1]})
	}

	r.sink.Report("emitting branch commits and tags")
	for _, idx := range reachable {
		br := r.in.BranchRevs[idx]
		var oid objstore.Oid
		var err error
		if br.IsTag {
			oid, err = r.makeBranchTag(idx, refNames)
		} else {
			oid, err = r.makeBranchCommit(idx, reachable)
		}
		if err != nil {
			return Output{}, err
		}
		if name, ok := refNames[idx]; ok {
			if !br.Deleted || (br.IsTag && r.in.Cfg.KeepDeletedTags) || (!br.IsTag && r.in.Cfg.KeepDeletedBranches) {
				refs = append(refs, packwriter.Ref{Name: name, Oid: oid})
			}
		}
	}

	head, err := r.resolveHead(unbranchedName, refNames)
	if err != nil {
		return Output{}, err
	}

	return Output{Refs: refs, HeadRef: head}, nil
}

// resolveHead finds the tip BranchRev matching the configured head path
// (the same "latest revision of this branch path" tip calculateGitNames
// uses) and returns its final ref name, falling back to the unbranched
// ref if nothing matches.
func (r *runner) resolveHead(unbranchedName string, refNames map[int]string) (string, error) {
	headPath := r.in.Cfg.Head
	for _, idx := range tipsByBranch(r.in.BranchRevs) {
		if r.in.BranchRevs[idx].Branch == headPath {
			if name, ok := refNames[idx]; ok {
				return name, nil
			}
			break
		}
	}
	if unbranchedName != "" {
		return unbranchedName, nil
	}
	return "", fmt.Errorf("stage2: head path %q does not match any surviving branch", headPath)
}

func (r *runner) makeUnbranchedCommit(i int) (objstore.Oid, error) {
	rev := r.in.UnbranchedRevs[i]
	meta, err := r.meta.MakeCommitMeta(r.in.SVNUUID, rev.Rev, "", r.in.RevProps(rev.Rev))
	if err != nil {
		return objstore.Oid{}, err
	}

	var parents []objstore.Oid
	if rev.Parent >= 0 {
		parents = []objstore.Oid{r.unbrOid[rev.Parent]}
	}

	data := packwriter.EncodeCommit(rev.TreeOid, parents,
		packwriter.Signature{Name: meta.Author.Name, Email: meta.Author.Email, When: meta.Author.Time},
		packwriter.Signature{Name: meta.Committer.Name, Email: meta.Committer.Email, When: meta.Committer.Time},
		meta.Message)
	return r.writer.Insert(objstore.KindCommit, data, objstore.Oid{}), nil
}
