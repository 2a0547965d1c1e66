// Package pathpattern implements the glob syntax used to configure branch
// and tag path matching: '*' matches a single path component, '**' matches
// any number of components (including zero), and literal components match
// exactly.
package pathpattern

import "strings"

// Pattern is a compiled path glob, split into components at '/'.
type Pattern struct {
	raw        string
	components []string
}

// Compile parses a glob pattern. Patterns are always matched against a
// slash-separated, leading/trailing-slash-free path.
func Compile(pattern string) *Pattern {
	pattern = strings.Trim(pattern, "/")
	var comps []string
	if pattern != "" {
		comps = strings.Split(pattern, "/")
	}
	return &Pattern{raw: pattern, components: comps}
}

func (p *Pattern) String() string { return p.raw }

// Match reports whether path (slash-separated, no leading/trailing slash)
// matches the pattern in full.
func (p *Pattern) Match(path string) bool {
	var comps []string
	if path != "" {
		comps = strings.Split(strings.Trim(path, "/"), "/")
	}
	return matchComponents(p.components, comps)
}

// MatchPrefix reports whether the pattern matches some leading run of
// path's components (path is at or inside a match), returning the rest of
// path below that match as subPath.
func (p *Pattern) MatchPrefix(path string) (matched bool, subPath string) {
	var comps []string
	if path != "" {
		comps = strings.Split(strings.Trim(path, "/"), "/")
	}
	return matchPrefixComponents(p.components, comps)
}

func matchComponents(pat, path []string) bool {
	if len(pat) == 0 {
		return len(path) == 0
	}
	if pat[0] == "**" {
		for i := 0; i <= len(path); i++ {
			if matchComponents(pat[1:], path[i:]) {
				return true
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	if pat[0] != "*" && pat[0] != path[0] {
		return false
	}
	return matchComponents(pat[1:], path[1:])
}

// matchPrefixComponents reports whether pat matches some prefix of path,
// returning the remaining (unconsumed) components as a joined sub-path.
func matchPrefixComponents(pat, path []string) (bool, string) {
	if len(pat) == 0 {
		return true, strings.Join(path, "/")
	}
	if pat[0] == "**" {
		if len(pat) == 1 {
			return true, ""
		}
		for i := 0; i <= len(path); i++ {
			if ok, sub := matchPrefixComponents(pat[1:], path[i:]); ok {
				return true, sub
			}
		}
		return false, ""
	}
	if len(path) == 0 {
		return false, ""
	}
	if pat[0] != "*" && pat[0] != path[0] {
		return false, ""
	}
	return matchPrefixComponents(pat[1:], path[1:])
}
