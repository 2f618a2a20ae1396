package manifest

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind is the numeric class of an element type.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindUint
	KindFloat
)

// DType is an element type parsed from a manifest dtype string,
// e.g. "<f4" (little-endian float32) or ">i8" (big-endian int64).
type DType struct {
	Kind  Kind
	Size  int // bytes per element
	Order binary.ByteOrder
}

// String renders the dtype in manifest notation.
func (d DType) String() string {
	var kind byte
	switch d.Kind {
	case KindInt:
		kind = 'i'
	case KindUint:
		kind = 'u'
	case KindFloat:
		kind = 'f'
	}
	prefix := byte('<')
	if d.Order == binary.BigEndian {
		prefix = '>'
	}
	if d.Size == 1 {
		prefix = '|'
	}
	return fmt.Sprintf("%c%c%d", prefix, kind, d.Size)
}

// ParseDType parses a manifest dtype string.
func ParseDType(s string) (DType, error) {
	if len(s) != 3 {
		return DType{}, fmt.Errorf("unsupported dtype %q", s)
	}

	var order binary.ByteOrder
	switch s[0] {
	case '<', '|':
		order = binary.LittleEndian
	case '>':
		order = binary.BigEndian
	default:
		return DType{}, fmt.Errorf("unsupported byte order in dtype %q", s)
	}

	var kind Kind
	switch s[1] {
	case 'i':
		kind = KindInt
	case 'u':
		kind = KindUint
	case 'f':
		kind = KindFloat
	default:
		return DType{}, fmt.Errorf("unsupported kind in dtype %q", s)
	}

	var size int
	switch s[2] {
	case '1':
		size = 1
	case '2':
		size = 2
	case '4':
		size = 4
	case '8':
		size = 8
	default:
		return DType{}, fmt.Errorf("unsupported size in dtype %q", s)
	}

	if kind == KindFloat && size < 4 {
		return DType{}, fmt.Errorf("unsupported float size in dtype %q", s)
	}

	return DType{Kind: kind, Size: size, Order: order}, nil
}

// DecodeFloat64s decodes len(dst) elements from data into dst.
// data must hold at least len(dst) elements.
func (d DType) DecodeFloat64s(dst []float64, data []byte) error {
	if len(data) < len(dst)*d.Size {
		return fmt.Errorf("short chunk: need %d bytes, have %d", len(dst)*d.Size, len(data))
	}

	bo := d.Order
	for i := range dst {
		p := data[i*d.Size:]
		switch d.Kind {
		case KindFloat:
			if d.Size == 4 {
				dst[i] = float64(math.Float32frombits(bo.Uint32(p)))
			} else {
				dst[i] = math.Float64frombits(bo.Uint64(p))
			}
		case KindInt:
			switch d.Size {
			case 1:
				dst[i] = float64(int8(p[0]))
			case 2:
				dst[i] = float64(int16(bo.Uint16(p)))
			case 4:
				dst[i] = float64(int32(bo.Uint32(p)))
			case 8:
				dst[i] = float64(int64(bo.Uint64(p)))
			}
		case KindUint:
			switch d.Size {
			case 1:
				dst[i] = float64(p[0])
			case 2:
				dst[i] = float64(bo.Uint16(p))
			case 4:
				dst[i] = float64(bo.Uint32(p))
			case 8:
				dst[i] = float64(bo.Uint64(p))
			}
		}
	}
	return nil
}

// EncodeFloat64s encodes src into manifest byte layout. Used by fixtures.
func (d DType) EncodeFloat64s(src []float64) []byte {
	out := make([]byte, len(src)*d.Size)
	bo := d.Order
	for i, v := range src {
		p := out[i*d.Size:]
		switch d.Kind {
		case KindFloat:
			if d.Size == 4 {
				bo.PutUint32(p, math.Float32bits(float32(v)))
			} else {
				bo.PutUint64(p, math.Float64bits(v))
			}
		case KindInt:
			switch d.Size {
			case 1:
				p[0] = byte(int8(v))
			case 2:
				bo.PutUint16(p, uint16(int16(v)))
			case 4:
				bo.PutUint32(p, uint32(int32(v)))
			case 8:
				bo.PutUint64(p, uint64(int64(v)))
			}
		case KindUint:
			switch d.Size {
			case 1:
				p[0] = byte(v)
			case 2:
				bo.PutUint16(p, uint16(v))
			case 4:
				bo.PutUint32(p, uint32(v))
			case 8:
				bo.PutUint64(p, uint64(v))
			}
		}
	}
	return out
}
