package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Gzip compresses chunks with gzip (DEFLATE).
type Gzip struct{}

// Name returns the stable compressor id.
func (Gzip) Name() string { return "gzip" }

// Compress encodes src as a gzip stream.
func (Gzip) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress decodes a gzip stream.
func (Gzip) Decompress(src []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
