package stage2

import (
	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/packwriter"
)

func (r *runner) makeBranchCommit(idx int, reachable []int) (objstore.Oid, error) {
	br := r.in.BranchRevs[idx]

	newMerges, newCherrypicks := r.analyzeMerges(reachable, idx)

	var mergeParentOids []objstore.Oid
	if len(newMerges) > 0 {
		if len(newCherrypicks) > 0 {
			newMerges = nil
		} else {
			for _, m := range newMerges {
				mergeParentOids = append(mergeParentOids, r.gitData[m].commitOid)
			}
		}
	}

	meta, err := r.meta.MakeCommitMeta(r.in.SVNUUID, br.Rev, br.Branch, r.in.RevProps(br.Rev))
	if err != nil {
		return objstore.Oid{}, err
	}

	var parents []objstore.Oid
	if br.Parent >= 0 {
		parents = append(parents, r.gitData[br.Parent].commitOid)
	}
	parents = append(parents, mergeParentOids...)

	data := packwriter.EncodeCommit(br.TreeOid, parents,
		packwriter.Signature{Name: meta.Author.Name, Email: meta.Author.Email, When: meta.Author.Time},
		packwriter.Signature{Name: meta.Committer.Name, Email: meta.Committer.Email, When: meta.Committer.Time},
		meta.Message)
	oid := r.writer.Insert(objstore.KindCommit, data, objstore.Oid{})

	mergeSet := make(map[int]bool, len(newMerges))
	for _, m := range newMerges {
		mergeSet[m] = true
	}
	cherrypickSet := make(map[int]bool, len(newCherrypicks))
	for _, c := range newCherrypicks {
		cherrypickSet[c] = true
	}
	r.gitData[idx] = &branchGitData{commitOid: oid, merges: mergeSet, cherrypicks: cherrypickSet}

	return oid, nil
}

func (r *runner) makeBranchTag(idx int, refNames map[int]string) (objstore.Oid, error) {
	br := r.in.BranchRevs[idx]

	meta, err := r.meta.MakeTagMeta(r.in.SVNUUID, br.Rev, br.Branch, r.in.RevProps(br.Rev))
	if err != nil {
		return objstore.Oid{}, err
	}

	var targetOid objstore.Oid
	if br.Parent >= 0 {
		targetOid = r.gitData[br.Parent].commitOid
	}

	var tagger *packwriter.Signature
	if meta.Tagger != nil {
		tagger = &packwriter.Signature{Name: meta.Tagger.Name, Email: meta.Tagger.Email, When: meta.Tagger.Time}
	}

	name := refNames[idx]
	shortName := name
	const tagsPrefix = "refs/tags/"
	if len(name) > len(tagsPrefix) {
		shortName = name[len(tagsPrefix):]
	}

	data := packwriter.EncodeTag(targetOid, shortName, tagger, meta.Message)
	tagOid := r.writer.Insert(objstore.KindTag, data, objstore.Oid{})

	// The branch-rev graph's commit oid for a tag revision is its target
	// commit, so a later branch derived from this tag (copy-from) parents
	// correctly off the commit rather than the tag object.
	r.gitData[idx] = &branchGitData{commitOid: targetOid, merges: map[int]bool{}, cherrypicks: map[int]bool{}}

	return tagOid, nil
}
