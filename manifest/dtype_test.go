package manifest

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDType(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		size int
		ord  binary.ByteOrder
	}{
		{"<f4", KindFloat, 4, binary.LittleEndian},
		{"<f8", KindFloat, 8, binary.LittleEndian},
		{">f8", KindFloat, 8, binary.BigEndian},
		{"<i2", KindInt, 2, binary.LittleEndian},
		{">i8", KindInt, 8, binary.BigEndian},
		{"|i1", KindInt, 1, binary.LittleEndian},
		{"|u1", KindUint, 1, binary.LittleEndian},
		{"<u4", KindUint, 4, binary.LittleEndian},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			dt, err := ParseDType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, dt.Kind)
			assert.Equal(t, tt.size, dt.Size)
			assert.Equal(t, tt.ord, dt.Order)
		})
	}
}

func TestParseDTypeInvalid(t *testing.T) {
	for _, in := range []string{"", "f8", "<x4", "<f3", "<f2", "~f8", "<f16"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDType(in)
			assert.Error(t, err)
		})
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		dtype  string
		values []float64
	}{
		{"<f4", []float64{0, 1, -1, 2.5, 100, -127}},
		{"<f8", []float64{0, 1, -1, 2.5, math.Pi, -127}},
		{">f8", []float64{0, 1, -1, 2.5, math.Pi, -127}},
		{"<i2", []float64{0, 1, -1, 2, 100, -127}},
		{">i4", []float64{0, 1, -1, 2, 100, -127}},
		{"|i1", []float64{0, 1, -1, 2, 100, -127}},
		{"<u2", []float64{0, 1, 2, 100, 65535}},
	}
	for _, tt := range tests {
		t.Run(tt.dtype, func(t *testing.T) {
			dt, err := ParseDType(tt.dtype)
			require.NoError(t, err)

			data := dt.EncodeFloat64s(tt.values)
			require.Len(t, data, len(tt.values)*dt.Size)

			got := make([]float64, len(tt.values))
			require.NoError(t, dt.DecodeFloat64s(got, data))
			assert.Equal(t, tt.values, got)
		})
	}
}

func TestDecodeShortChunk(t *testing.T) {
	dt, err := ParseDType("<f8")
	require.NoError(t, err)

	dst := make([]float64, 4)
	err = dt.DecodeFloat64s(dst, make([]byte, 8))
	assert.Error(t, err)
}
