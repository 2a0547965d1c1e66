package svntree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// EncodeProps serializes a directory's raw SVN properties (svn:ignore,
// svn:global-ignores, svn:mergeinfo, svnmerge-integrated, ...) into the
// metadata sidecar blob referenced by Node.Metadata.
func EncodeProps(props map[string]string) []byte {
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(names)))
	buf.Write(countBuf[:])
	for _, name := range names {
		writeLenPrefixed(&buf, name)
		writeLenPrefixed(&buf, props[name])
	}
	return buf.Bytes()
}

func writeLenPrefixed(buf *bytes.Buffer, s string) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

func readLenPrefixed(data []byte) (string, []byte, error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("svntree: truncated property length")
	}
	n := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(len(data)) < uint64(n) {
		return "", nil, fmt.Errorf("svntree: truncated property value")
	}
	return string(data[:n]), data[n:], nil
}

// DecodeProps parses a blob produced by EncodeProps.
func DecodeProps(data []byte) (map[string]string, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("svntree: truncated property table")
	}
	count := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	props := make(map[string]string, count)
	for i := uint32(0); i < count; i++ {
		name, rest, err := readLenPrefixed(data)
		if err != nil {
			return nil, err
		}
		data = rest
		value, rest, err := readLenPrefixed(data)
		if err != nil {
			return nil, err
		}
		data = rest
		props[name] = value
	}
	return props, nil
}

// GitignoreFromProps translates svn:ignore (per-directory, non-recursive
// patterns) and svn:global-ignores (recursive patterns, applied with a
// leading "**/") into the content of a single .gitignore blob, or ok=false
// if neither property is set.
func GitignoreFromProps(props map[string]string) (content string, ok bool) {
	var lines []string
	if v, present := props["svn:ignore"]; present {
		for _, line := range strings.Split(v, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				lines = append(lines, "/"+line)
			}
		}
	}
	if v, present := props["svn:global-ignores"]; present {
		for _, field := range strings.Fields(v) {
			lines = append(lines, "**/"+field)
		}
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n") + "\n", true
}
