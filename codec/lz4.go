package codec

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4 compresses chunks with the LZ4 frame format.
type LZ4 struct{}

// Name returns the stable compressor id.
func (LZ4) Name() string { return "lz4" }

// Compress encodes src as an lz4 frame.
func (LZ4) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress decodes an lz4 frame.
func (LZ4) Decompress(src []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
}
