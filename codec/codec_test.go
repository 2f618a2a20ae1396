package codec

import (
	"bytes"
	stdzlib "compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("chunk payload 0123456789"), 64)

	for _, name := range []string{"raw", "zstd", "gzip", "zlib", "lz4"} {
		t.Run(name, func(t *testing.T) {
			c, ok := ByName(name)
			require.True(t, ok)
			require.Equal(t, name, c.Name())

			enc, err := c.Compress(payload)
			require.NoError(t, err)

			dec, err := c.Decompress(enc)
			require.NoError(t, err)
			require.Equal(t, payload, dec)
		})
	}
}

func TestByName(t *testing.T) {
	c, ok := ByName("")
	require.True(t, ok)
	assert.Equal(t, "raw", c.Name())

	_, ok = ByName("blosc")
	assert.False(t, ok)
}

func TestZlibFraming(t *testing.T) {
	// Chunks written by standard zlib tooling carry an RFC 1950 stream,
	// not gzip; the "zlib" id must decode them.
	payload := bytes.Repeat([]byte("zlib framed chunk"), 32)

	var buf bytes.Buffer
	w := stdzlib.NewWriter(&buf)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	c, ok := ByName("zlib")
	require.True(t, ok)

	dec, err := c.Decompress(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, payload, dec)

	// The two framings stay distinct.
	_, err = Gzip{}.Decompress(buf.Bytes())
	assert.Error(t, err)
}

func TestDecompressGarbage(t *testing.T) {
	for _, name := range []string{"zstd", "gzip", "zlib"} {
		t.Run(name, func(t *testing.T) {
			c, ok := ByName(name)
			require.True(t, ok)

			_, err := c.Decompress([]byte("definitely not a frame"))
			require.Error(t, err)
		})
	}
}
