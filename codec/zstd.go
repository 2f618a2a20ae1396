package codec

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Zstd compresses chunks with Zstandard.
//
// Encoder and decoder are shared package-wide; both are concurrency-safe in
// EncodeAll/DecodeAll mode.
type Zstd struct{}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
)

func zstdInit() {
	var err error
	zstdEnc, err = zstd.NewWriter(nil)
	if err != nil {
		panic(err)
	}
	zstdDec, err = zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
}

// Name returns the stable compressor id.
func (Zstd) Name() string { return "zstd" }

// Compress encodes src as a zstd frame.
func (Zstd) Compress(src []byte) ([]byte, error) {
	zstdOnce.Do(zstdInit)
	return zstdEnc.EncodeAll(src, nil), nil
}

// Decompress decodes a zstd frame.
func (Zstd) Decompress(src []byte) ([]byte, error) {
	zstdOnce.Do(zstdInit)
	return zstdDec.DecodeAll(src, nil)
}
