// Package dumpsource opens an SVN dump as a byte stream, either by
// invoking "svnadmin dump -q" against a repository directory or by
// sniffing and transparently decompressing a dump file's magic bytes
// (gzip, bzip2, xz, zstd, lz4).
package dumpsource

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// ErrKind classifies an Open failure.
type ErrKind int

const (
	ErrStat ErrKind = iota
	ErrOpen
	ErrSpawn
	ErrDecompress
)

// OpenError is returned by Open.
type OpenError struct {
	Kind ErrKind
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	switch e.Kind {
	case ErrStat:
		return fmt.Sprintf("dumpsource: failed to stat %s: %v", e.Path, e.Err)
	case ErrOpen:
		return fmt.Sprintf("dumpsource: failed to open %s: %v", e.Path, e.Err)
	case ErrSpawn:
		return fmt.Sprintf("dumpsource: failed to spawn dump command for %s: %v", e.Path, e.Err)
	case ErrDecompress:
		return fmt.Sprintf("dumpsource: failed to set up decompressor for %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("dumpsource: %v", e.Err)
	}
}

func (e *OpenError) Unwrap() error { return e.Err }

var (
	zstdMagic  = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic  = []byte{0x1F, 0x8B}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
	lz4Magic   = []byte{0x04, 0x22, 0x4D, 0x18}
)

const headerSize = 6

// Source is an open SVN dump stream.
type Source struct {
	reader *bufio.Reader
	file   *os.File
	closer io.Closer
	cmd    *exec.Cmd
}

// Open opens path: a directory is dumped live via "svnadmin dump -q path";
// a file is opened and its leading bytes sniffed for a known compression
// format, which is transparently unwrapped.
func Open(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &OpenError{Kind: ErrStat, Path: path, Err: err}
	}

	if info.IsDir() {
		return openCommand(path, "svnadmin", "dump", path, "-q")
	}
	return openFile(path)
}

// OpenRemote dumps url live via "svnrdump dump -q url", for converting a
// repository reachable only over a network protocol (http/https/svn)
// rather than a local repository directory.
func OpenRemote(url string) (*Source, error) {
	return openCommand(url, "svnrdump", "dump", url, "-q")
}

func openCommand(path, name string, arg ...string) (*Source, error) {
	cmd := exec.Command(name, arg...)
	cmd.Stdin = nil
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &OpenError{Kind: ErrSpawn, Path: path, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &OpenError{Kind: ErrSpawn, Path: path, Err: err}
	}
	return &Source{reader: bufio.NewReader(stdout), cmd: cmd}, nil
}

func openFile(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Kind: ErrOpen, Path: path, Err: err}
	}

	header := make([]byte, headerSize)
	n, _ := io.ReadFull(file, header)
	header = header[:n]
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, &OpenError{Kind: ErrOpen, Path: path, Err: err}
	}

	var r io.Reader
	var closer io.Closer

	switch {
	case bytes.HasPrefix(header, zstdMagic):
		zr, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, &OpenError{Kind: ErrDecompress, Path: path, Err: err}
		}
		r, closer = zr, zstdCloser{zr}
	case bytes.HasPrefix(header, gzipMagic):
		gr, err := newGzipReader(file)
		if err != nil {
			file.Close()
			return nil, &OpenError{Kind: ErrDecompress, Path: path, Err: err}
		}
		r, closer = gr, gr
	case bytes.HasPrefix(header, bzip2Magic):
		r = newBzip2Reader(file)
	case bytes.HasPrefix(header, xzMagic):
		xr, err := xz.NewReader(file)
		if err != nil {
			file.Close()
			return nil, &OpenError{Kind: ErrDecompress, Path: path, Err: err}
		}
		r = xr
	case bytes.HasPrefix(header, lz4Magic):
		r = lz4.NewReader(file)
	default:
		r = file
	}

	return &Source{reader: bufio.NewReader(r), file: file, closer: closer}, nil
}

// Stream returns the buffered reader carrying dump record bytes.
func (s *Source) Stream() *bufio.Reader {
	return s.reader
}

// Close releases the source: waiting for the svnadmin/svnrdump process to
// exit (and reporting a non-zero exit code as an error), or closing the
// decompressor and underlying file.
func (s *Source) Close() error {
	if s.cmd != nil {
		if err := s.cmd.Wait(); err != nil {
			return fmt.Errorf("dumpsource: %s dump failed: %w", s.cmd.Args[0], err)
		}
		return nil
	}
	var closeErr error
	if s.closer != nil {
		closeErr = s.closer.Close()
	}
	if err := s.file.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	return closeErr
}

type zstdCloser struct{ r *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.r.Close()
	return nil
}
