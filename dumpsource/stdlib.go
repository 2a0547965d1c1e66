package dumpsource

import (
	"compress/bzip2"
	"compress/gzip"
	"io"
)

func newGzipReader(r io.Reader) (*gzip.Reader, error) {
	return gzip.NewReader(r)
}

func newBzip2Reader(r io.Reader) io.Reader {
	return bzip2.NewReader(r)
}
