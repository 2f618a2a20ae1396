package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Zlib compresses chunks with zlib (RFC 1950). This is the framing the
// standard "zlib" compressor id of the chunk layout refers to; it is not
// interchangeable with gzip.
type Zlib struct{}

// Name returns the stable compressor id.
func (Zlib) Name() string { return "zlib" }

// Compress encodes src as a zlib stream.
func (Zlib) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress decodes a zlib stream.
func (Zlib) Decompress(src []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
