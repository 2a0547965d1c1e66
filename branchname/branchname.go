// Package branchname legalizes SVN branch/tag paths into valid, unique Git
// ref names, per the ref-name rules in Git's check-ref-format.
package branchname

import (
	"fmt"
	"strings"
)

// Legalize rewrites name into a string that is a legal Git ref component:
// no control characters, no space, '~', '^', ':', '?', '*', '[', '\\', no
// consecutive dots, no leading/trailing '/', no component ending in
// ".lock", no component equal to "@", no "@{" sequence, doesn't start with
// '-' or end with '.'.
func Legalize(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case strings.ContainsRune(" ~^:?*[\\", r):
			b.WriteByte('_')
		case r == '.' && i > 0 && runes[i-1] == '.':
			// collapse ".." into a single '.'
		default:
			b.WriteRune(r)
		}
	}

	s := b.String()
	s = strings.Trim(s, "/.")
	s = strings.ReplaceAll(s, "@{", "_{")

	var comps []string
	for _, c := range strings.Split(s, "/") {
		if c == "" {
			continue
		}
		if c == "@" {
			c = "_"
		}
		if strings.HasSuffix(c, ".lock") {
			c = c[:len(c)-len(".lock")] + "_lock"
		}
		c = strings.TrimPrefix(c, "-")
		comps = append(comps, c)
	}
	if len(comps) == 0 {
		comps = []string{"_"}
	}
	return strings.Join(comps, "/")
}

// Uniquifier hands out collision-free ref names for a given ref namespace
// ("refs/heads" or "refs/tags"), appending "_N" (N counting up from 1)
// when the same legalized name is requested again.
type Uniquifier struct {
	seen map[string]int
}

func NewUniquifier() *Uniquifier {
	return &Uniquifier{seen: make(map[string]int)}
}

func (u *Uniquifier) Unique(name string) string {
	n, ok := u.seen[name]
	if !ok {
		u.seen[name] = 1
		return name
	}
	for {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if _, exists := u.seen[candidate]; !exists {
			u.seen[name] = n + 1
			u.seen[candidate] = 1
			return candidate
		}
		n++
	}
}
