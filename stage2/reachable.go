package stage2

import (
	"sort"

	"github.com/rcowham/svn2git/config"
	"github.com/rcowham/svn2git/stage1"
)

// gatherReachable walks the BranchRev graph from every live branch/tag tip
// (plus deleted tips whose kind is configured to be kept), following
// Parent and AddedMerges edges, and returns the reached indices in
// ascending order so parents are always emitted before children.
func gatherReachable(cfg *config.ConvParams, revs []stage1.BranchRev) []int {
	tips := tipsByBranch(revs)

	reached := make(map[int]bool)
	var queue []int
	for _, idx := range tips {
		br := revs[idx]
		keep := !br.Deleted
		if br.Deleted {
			if br.IsTag {
				keep = cfg.KeepDeletedTags
			} else {
				keep = cfg.KeepDeletedBranches
			}
		}
		if keep {
			queue = append(queue, idx)
		}
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if idx < 0 || reached[idx] {
			continue
		}
		reached[idx] = true
		br := revs[idx]
		if br.Parent >= 0 {
			queue = append(queue, br.Parent)
		}
		queue = append(queue, br.AddedMerges...)
	}

	out := make([]int, 0, len(reached))
	for idx := range reached {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// tipsByBranch returns, for each distinct branch/tag path, the index of
// its last (highest-rev) BranchRev.
func tipsByBranch(revs []stage1.BranchRev) []int {
	latest := make(map[string]int)
	for i, br := range revs {
		if cur, ok := latest[br.Branch]; !ok || revs[cur].Rev < br.Rev {
			latest[br.Branch] = i
		}
	}
	out := make([]int, 0, len(latest))
	for _, idx := range latest {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
