package stage2

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcowham/svn2git/branchname"
	"github.com/rcowham/svn2git/config"
	"github.com/rcowham/svn2git/stage1"
)

type namedEntry struct {
	name     string
	branchIx int // -1 for the unbranched pseudo-entry
}

// calculateGitNames assigns every surviving branch/tag a legal, unique
// ref name: rename rules, then Legalize, then a "deleted/" prefix for
// kept-but-deleted refs, then de-duplication by "_N" suffix, then a final
// pass removing ref-path prefix collisions (Git refuses "a" and "a/b"
// coexisting). Returns the unbranched content's ref name (if any) and a
// branch-rev-index -> full ref name ("refs/heads/..."/"refs/tags/...")
// map.
func calculateGitNames(cfg *config.ConvParams, revs []stage1.BranchRev, haveUnbranched bool) (string, map[int]string) {
	var entries []namedEntry

	if haveUnbranched && cfg.UnbranchedName != "" {
		entries = append(entries, namedEntry{name: cfg.UnbranchedName, branchIx: -1})
	}

	latest := tipsByBranch(revs)
	sort.Slice(latest, func(i, j int) bool { return revs[latest[i]].Branch < revs[latest[j]].Branch })

	for _, idx := range latest {
		br := revs[idx]
		if br.Deleted {
			if br.IsTag && !cfg.KeepDeletedTags {
				continue
			}
			if !br.IsTag && !cfg.KeepDeletedBranches {
				continue
			}
		}

		renamer := cfg.RenameBranches
		if br.IsTag {
			renamer = cfg.RenameTags
		}
		preGitName := applyRename(renamer, br.Branch)
		gitName := branchname.Legalize(preGitName)
		if br.Deleted {
			gitName = "deleted/" + gitName
		}

		gitName = dedupe(entries, gitName)
		entries = append(entries, namedEntry{name: gitName, branchIx: idx})
	}

	entries = avoidPrefixCollisions(entries)

	unbranchedName := ""
	refNames := make(map[int]string, len(entries))
	for _, e := range entries {
		if e.branchIx < 0 {
			unbranchedName = "refs/heads/" + e.name
			continue
		}
		if revs[e.branchIx].IsTag {
			refNames[e.branchIx] = "refs/tags/" + e.name
		} else {
			refNames[e.branchIx] = "refs/heads/" + e.name
		}
	}
	return unbranchedName, refNames
}

// applyRename rewrites svnPath per renamer's exact-match and trailing "/*"
// suffix-wildcard rules, returning svnPath unchanged if nothing matches.
func applyRename(renamer map[string]string, svnPath string) string {
	if to, ok := renamer[svnPath]; ok {
		return to
	}
	var bestFrom, bestTo string
	bestLen := -1
	for from, to := range renamer {
		if !strings.HasSuffix(from, "/*") {
			continue
		}
		prefix := strings.TrimSuffix(from, "*")
		if strings.HasPrefix(svnPath, prefix) && len(prefix) > bestLen {
			bestFrom, bestTo, bestLen = from, to, len(prefix)
		}
	}
	if bestLen < 0 {
		return svnPath
	}
	suffix := strings.TrimPrefix(svnPath, strings.TrimSuffix(bestFrom, "*"))
	return strings.TrimSuffix(bestTo, "*") + suffix
}

func dedupe(existing []namedEntry, name string) string {
	taken := make(map[string]bool, len(existing))
	for _, e := range existing {
		taken[e.name] = true
	}
	if !taken[name] {
		return name
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// avoidPrefixCollisions renames any entry whose ref path is itself a
// directory prefix of another entry's ref path, since Git can't have a
// ref "a" coexist with a ref "a/b".
func avoidPrefixCollisions(entries []namedEntry) []namedEntry {
	for i := range entries {
		name := entries[i].name
		for tries := 0; ; {
			collision := false
			for j := range entries {
				if i == j {
					continue
				}
				if isPathPrefix(name, entries[j].name) {
					collision = true
					break
				}
			}
			if !collision {
				break
			}
			tries++
			name = fmt.Sprintf("%s_%d", entries[i].name, tries)
		}
		entries[i].name = name
	}
	return entries
}

// isPathPrefix reports whether prefix is a "/"-delimited path prefix of s
// (equal counts as a collision too).
func isPathPrefix(prefix, s string) bool {
	if prefix == s {
		return true
	}
	return strings.HasPrefix(s, prefix+"/")
}
