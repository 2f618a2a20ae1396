// Package codec centralizes chunk compression.
//
// A dataset manifest names the compressor applied to every chunk of a
// variable; codec selection is therefore a compatibility boundary: chunks
// written by an unknown codec cannot be decoded, and manifest parsing rejects
// compressor ids this package does not know.
package codec

import "fmt"

// Codec compresses and decompresses chunk payloads.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Compress returns the encoded form of src.
	Compress(src []byte) ([]byte, error)
	// Decompress returns the decoded form of src.
	Decompress(src []byte) ([]byte, error)
	// Name returns the stable compressor id used in manifests.
	Name() string
}

// Default is the codec used when a manifest declares no compressor.
var Default Codec = Raw{}

// ByName returns a built-in codec by its stable manifest id.
func ByName(name string) (Codec, bool) {
	switch name {
	case "", "raw":
		return Raw{}, true
	case "zstd":
		return Zstd{}, true
	case "gzip":
		return Gzip{}, true
	case "zlib":
		return Zlib{}, true
	case "lz4":
		return LZ4{}, true
	default:
		return nil, false
	}
}

// Raw is the identity codec for uncompressed chunks.
type Raw struct{}

// Name returns the stable compressor id.
func (Raw) Name() string { return "raw" }

// Compress returns src unchanged.
func (Raw) Compress(src []byte) ([]byte, error) { return src, nil }

// Decompress returns src unchanged.
func (Raw) Decompress(src []byte) ([]byte, error) { return src, nil }

// MustCompress is a helper for internal tests and fixtures.
func MustCompress(c Codec, src []byte) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Compress(src)
	if err != nil {
		panic(fmt.Errorf("codec %s compress failed: %w", c.Name(), err))
	}
	return b
}
