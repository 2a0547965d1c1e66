// Package usermap parses the "svn-user [@rev[:rev]] = Name <email>" user
// map file format used to translate SVN commit authors into Git author
// identities, with the last entry whose revision range contains the
// revision in question winning.
package usermap

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// entry is one parsed line: a name/email valid over an inclusive
// revision range.
type entry struct {
	minRev uint32
	maxRev uint32
	name   string
	email  string
}

// UserMap maps SVN usernames, optionally scoped by revision, to Git
// author identities.
type UserMap struct {
	entries map[string][]entry
}

// lineRe matches "user[ @rev[:rev]] = Name <email>", tolerating the
// whitespace variations the format allows around '@', ':' and '='.
var lineRe = regexp.MustCompile(`^\s*([^\s@=]+)\s*(?:@\s*(\d+)\s*(?::\s*(\d+)\s*)?)?=\s*([^<]*)<([^>]*)>\s*$`)

// New returns an empty UserMap.
func New() *UserMap {
	return &UserMap{entries: make(map[string][]entry)}
}

// Parse reads a user map file, one mapping per line; blank lines are
// ignored. A line that is neither blank nor a valid mapping is an error
// naming its 1-based line number.
func Parse(r io.Reader) (*UserMap, error) {
	um := New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("usermap: bad line %d: %q", lineNo, line)
		}

		user := m[1]
		minRev, maxRev := uint32(0), uint32(4294967295)
		if m[2] != "" {
			v, err := strconv.ParseUint(m[2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("usermap: bad line %d: %q", lineNo, line)
			}
			minRev = uint32(v)
			maxRev = minRev
			if m[3] != "" {
				v, err := strconv.ParseUint(m[3], 10, 32)
				if err != nil {
					return nil, fmt.Errorf("usermap: bad line %d: %q", lineNo, line)
				}
				maxRev = uint32(v)
			}
		}

		um.entries[user] = append(um.entries[user], entry{
			minRev: minRev,
			maxRev: maxRev,
			name:   strings.TrimSpace(m[4]),
			email:  m[5],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("usermap: %w", err)
	}
	return um, nil
}

// Get looks up user's Git identity at rev. The last entry for user whose
// revision range contains rev is returned.
func (um *UserMap) Get(user string, rev uint32) (name, email string, ok bool) {
	for _, e := range um.entries[user] {
		if rev >= e.minRev && rev <= e.maxRev {
			name, email, ok = e.name, e.email, true
		}
	}
	return
}
