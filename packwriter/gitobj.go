// Package packwriter assembles the reachable object closure behind a set
// of refs into a Git pack v2 file plus its v2 index, and writes the
// accompanying HEAD/packed-refs files a bare repository needs.
package packwriter

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rcowham/svn2git/objstore"
)

// Signature is a Git commit/tag author or committer line.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func (s Signature) encode() string {
	return fmt.Sprintf("%s <%s> %d +0000", s.Name, s.Email, s.When.Unix())
}

// EncodeCommit builds a commit object's canonical text form.
func EncodeCommit(tree objstore.Oid, parents []objstore.Oid, author, committer Signature, message string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", tree)
	for _, p := range parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", author.encode())
	fmt.Fprintf(&buf, "committer %s\n", committer.encode())
	buf.WriteByte('\n')
	buf.WriteString(message)
	return buf.Bytes()
}

// EncodeTag builds an annotated tag object's canonical text form. tagger
// may be nil (a lightweight-style annotated tag with no tagger line).
func EncodeTag(target objstore.Oid, name string, tagger *Signature, message string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", target)
	fmt.Fprintf(&buf, "type commit\n")
	fmt.Fprintf(&buf, "tag %s\n", name)
	if tagger != nil {
		fmt.Fprintf(&buf, "tagger %s\n", tagger.encode())
	}
	buf.WriteByte('\n')
	buf.WriteString(message)
	return buf.Bytes()
}

// parseCommitRefs extracts a commit's tree oid and parent oids without
// fully parsing the rest of the object.
func parseCommitRefs(data []byte) (tree objstore.Oid, parents []objstore.Oid, err error) {
	lines := bytes.Split(data, []byte("\n"))
	haveTree := false
	for _, line := range lines {
		if len(line) == 0 {
			break
		}
		switch {
		case bytes.HasPrefix(line, []byte("tree ")):
			tree, err = parseOid(line[len("tree "):])
			if err != nil {
				return objstore.Oid{}, nil, err
			}
			haveTree = true
		case bytes.HasPrefix(line, []byte("parent ")):
			p, err := parseOid(line[len("parent "):])
			if err != nil {
				return objstore.Oid{}, nil, err
			}
			parents = append(parents, p)
		}
	}
	if !haveTree {
		return objstore.Oid{}, nil, fmt.Errorf("packwriter: commit object missing tree line")
	}
	return tree, parents, nil
}

// parseTagTarget extracts an annotated tag's target oid.
func parseTagTarget(data []byte) (objstore.Oid, error) {
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 || !bytes.HasPrefix(data, []byte("object ")) {
		return objstore.Oid{}, fmt.Errorf("packwriter: tag object missing object line")
	}
	return parseOid(data[len("object "):nl])
}

func parseOid(hex []byte) (objstore.Oid, error) {
	var oid objstore.Oid
	if len(hex) != 40 {
		return oid, fmt.Errorf("packwriter: malformed oid %q", hex)
	}
	for i := 0; i < 20; i++ {
		hi, ok1 := hexVal(hex[i*2])
		lo, ok2 := hexVal(hex[i*2+1])
		if !ok1 || !ok2 {
			return oid, fmt.Errorf("packwriter: malformed oid %q", hex)
		}
		oid[i] = hi<<4 | lo
	}
	return oid, nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
