package stage1

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rcowham/svn2git/classifier"
	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/svntree"
)

// mergeRange is one "start-end[*]" entry from an svn:mergeinfo/
// svnmerge-integrated property value.
type mergeRange struct {
	Start, End     uint32
	NonInheritable bool
}

// parseMergeInfo parses the "path: ranges" line format svn:mergeinfo and
// svnmerge-integrated both use, keyed by source path with its leading
// slash trimmed.
func parseMergeInfo(raw string) map[string][]mergeRange {
	out := make(map[string][]mergeRange)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			continue
		}
		path := strings.TrimPrefix(strings.TrimSpace(line[:idx]), "/")
		var ranges []mergeRange
		for _, part := range strings.Split(line[idx+1:], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			nonInh := strings.HasSuffix(part, "*")
			part = strings.TrimSuffix(part, "*")
			var start, end uint32
			if i := strings.IndexByte(part, '-'); i >= 0 {
				s, errS := strconv.ParseUint(part[:i], 10, 32)
				e, errE := strconv.ParseUint(part[i+1:], 10, 32)
				if errS != nil || errE != nil {
					continue
				}
				start, end = uint32(s), uint32(e)
			} else {
				v, err := strconv.ParseUint(part, 10, 32)
				if err != nil {
					continue
				}
				start, end = uint32(v), uint32(v)
			}
			ranges = append(ranges, mergeRange{Start: start, End: end, NonInheritable: nonInh})
		}
		if len(ranges) > 0 {
			out[path] = ranges
		}
	}
	return out
}

func rangeSetEqual(a, b []mergeRange) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[mergeRange]bool, len(a))
	for _, r := range a {
		seen[r] = true
	}
	for _, r := range b {
		if !seen[r] {
			return false
		}
	}
	return true
}

// lastMergeInfoFor reads the raw svn:mergeinfo (or, failing that,
// svnmerge-integrated) value from dirOid's directory metadata (empty
// string if neither is set).
func (e *Engine) lastMergeInfoFor(dirOid objstore.Oid) (string, error) {
	node, err := e.treeStore.GetNode(dirOid)
	if err != nil {
		return "", err
	}
	if node.Metadata.IsZero() {
		return "", nil
	}
	raw, err := e.treeStore.GetBlob(node.Metadata)
	if err != nil {
		return "", err
	}
	props, err := svntree.DecodeProps(raw)
	if err != nil {
		return "", err
	}
	if v, ok := props["svn:mergeinfo"]; ok {
		return v, nil
	}
	return props["svnmerge-integrated"], nil
}

// diffMergeInfo compares branchRoot's previously recorded mergeinfo against
// dirOid's current mergeinfo property and returns the BranchRevs indices
// newly implied as merge parents (added) or no longer claimed (removed).
// Range granularity is whole-entry, not sub-range: a merge range is either
// wholly new/gone or unchanged, which is simpler than the full interval
// reconciliation a byte-exact port would need but captures the common
// case (a merge adds or removes one contiguous range per source branch).
func (e *Engine) diffMergeInfo(branchRoot string, dirOid objstore.Oid, rev uint32) (added, removed []int) {
	st := e.branches[branchRoot]
	if st == nil {
		return nil, nil
	}

	raw, err := e.lastMergeInfoFor(dirOid)
	if err != nil {
		return nil, nil
	}
	newInfo := parseMergeInfo(raw)

	old := e.lastMergeInfoSnapshot[branchRoot]
	if e.lastMergeInfoSnapshot == nil {
		e.lastMergeInfoSnapshot = make(map[string]map[string][]mergeRange)
	}

	srcPaths := make([]string, 0, len(newInfo)+len(old))
	for srcPath := range newInfo {
		srcPaths = append(srcPaths, srcPath)
	}
	for srcPath := range old {
		if _, ok := newInfo[srcPath]; !ok {
			srcPaths = append(srcPaths, srcPath)
		}
	}
	sort.Strings(srcPaths)

	for _, srcPath := range srcPaths {
		ranges := newInfo[srcPath]
		oldRanges := old[srcPath]
		if rangeSetEqual(oldRanges, ranges) {
			continue
		}
		cls := e.classifier.Classify(srcPath)
		if cls.Class != classifier.BranchClass {
			continue
		}
		srcRoot := branchRootPath(srcPath, cls.SubPath)
		if srcRoot == branchRoot {
			continue
		}
		for _, r := range ranges {
			if !containsRange(oldRanges, r) {
				if idx, ok := e.nearestBranchRevAtOrBefore(srcRoot, r.End); ok {
					added = append(added, idx)
				}
			}
		}
		for _, r := range oldRanges {
			if !containsRange(ranges, r) {
				if idx, ok := e.nearestBranchRevAtOrBefore(srcRoot, r.End); ok {
					removed = append(removed, idx)
				}
			}
		}
	}

	e.lastMergeInfoSnapshot[branchRoot] = newInfo
	return added, removed
}

func containsRange(ranges []mergeRange, target mergeRange) bool {
	for _, r := range ranges {
		if r == target {
			return true
		}
	}
	return false
}
