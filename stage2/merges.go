package stage2

import (
	"sort"

	"github.com/rcowham/svn2git/pathpattern"
	"github.com/rcowham/svn2git/stage1"
)

// analyzeMerges decides, for the branch rev at idx, which of its
// AddedMerges can become real Git merge parents (the merge source's own
// history is already reachable from idx's parent) versus must stay plain
// cherry-picks (a gap exists). If any cherry-picks survive alongside
// would-be merges, the merges are dropped for this revision — a commit
// can't partially acknowledge a merge.
//
// This mirrors stage2.rs's analyze_merges, simplified to match stage1's
// own simplified mergeinfo model: there is no "tail" (unrelated-history)
// tracking and no per-commit required-in-mergeinfo flag recorded on
// BranchRev itself. Instead, config.MergeOptional names source branch
// paths whose intermediate commits never count as a gap, and
// config.IgnoreMerges silences analysis entirely for one (path, rev) pair.
func (r *runner) analyzeMerges(reachable []int, idx int) (merges, cherrypicks []int) {
	br := r.in.BranchRevs[idx]
	if !r.in.Cfg.EnableMerges || br.Parent < 0 || len(br.AddedMerges) == 0 {
		return nil, nil
	}
	if r.ignoreMerges(br) {
		return nil, nil
	}

	mergedHistory := map[int]bool{}
	inhCherrypicks := map[int]bool{}

	var visit []int
	visit = append(visit, br.Parent)
	for len(visit) > 0 {
		some := visit[0]
		visit = visit[1:]
		for {
			if mergedHistory[some] {
				break
			}
			mergedHistory[some] = true
			if gd := r.gitData[some]; gd != nil {
				for c := range gd.cherrypicks {
					inhCherrypicks[c] = true
				}
				for m := range gd.merges {
					visit = append(visit, m)
				}
			}
			parent := r.in.BranchRevs[some].Parent
			if parent < 0 {
				break
			}
			some = parent
		}
	}

	optional := make([]*pathpattern.Pattern, len(r.in.Cfg.MergeOptional))
	for i, p := range r.in.Cfg.MergeOptional {
		optional[i] = pathpattern.Compile(p)
	}

	newMerges := map[int]bool{}
	newCherrypicks := map[int]bool{}

	for _, svnMerge := range br.AddedMerges {
		if mergedHistory[svnMerge] {
			continue
		}

		merged := r.walkForGap(svnMerge, mergedHistory, optional)

		if merged {
			newMerges[svnMerge] = true
			mergedHistory[svnMerge] = true
			if gd := r.gitData[svnMerge]; gd != nil {
				for c := range gd.cherrypicks {
					inhCherrypicks[c] = true
				}
			}
			var drain []int
			drain = append(drain, r.in.BranchRevs[svnMerge].Parent)
			if gd := r.gitData[svnMerge]; gd != nil {
				for m := range gd.merges {
					drain = append(drain, m)
				}
			}
			for len(drain) > 0 {
				some := drain[0]
				drain = drain[1:]
				for {
					if some < 0 || mergedHistory[some] {
						delete(newMerges, some)
						break
					}
					mergedHistory[some] = true
					delete(newMerges, some)
					if gd := r.gitData[some]; gd != nil {
						for c := range gd.cherrypicks {
							inhCherrypicks[c] = true
						}
					}
					some = r.in.BranchRevs[some].Parent
				}
			}
		} else {
			newCherrypicks[svnMerge] = true
		}
	}

	for c := range inhCherrypicks {
		delete(newCherrypicks, c)
	}
	for m := range mergedHistory {
		delete(newCherrypicks, m)
	}

	return setToSlice(newMerges), setToSlice(newCherrypicks)
}

// walkForGap climbs from svnMerge's parent toward the root, returning true
// if it reaches a commit already in mergedHistory without hitting a gap.
func (r *runner) walkForGap(svnMerge int, mergedHistory map[int]bool, optional []*pathpattern.Pattern) bool {
	parent := r.in.BranchRevs[svnMerge].Parent
	for {
		if parent < 0 {
			return false
		}
		if mergedHistory[parent] {
			return true
		}
		if matchesAny(optional, r.in.BranchRevs[parent].Branch) {
			parent = r.in.BranchRevs[parent].Parent
			continue
		}
		gd := r.gitData[parent]
		isMergeCommit := gd != nil && (len(gd.merges) > 0 || len(gd.cherrypicks) > 0)
		if isMergeCommit && subsetOf(gd.merges, mergedHistory) && subsetOf(gd.cherrypicks, mergedHistory) {
			parent = r.in.BranchRevs[parent].Parent
			continue
		}
		return false
	}
}

func (r *runner) ignoreMerges(br stage1.BranchRev) bool {
	for _, ig := range r.in.Cfg.IgnoreMerges {
		if ig.Path == br.Branch && ig.Rev == br.Rev {
			return true
		}
	}
	return false
}

func matchesAny(pats []*pathpattern.Pattern, branch string) bool {
	for _, p := range pats {
		if p.Match(branch) {
			return true
		}
	}
	return false
}

func subsetOf(set map[int]bool, of map[int]bool) bool {
	for k := range set {
		if !of[k] {
			return false
		}
	}
	return true
}

func setToSlice(s map[int]bool) []int {
	out := make([]int, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
