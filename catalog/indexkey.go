package catalog

import (
	"math"

	"github.com/quilldb/quill/sql/kernel"
)

// EncodeKey builds the order-preserving byte key an ART secondary index
// stores for row row of batch, over the named columns in order. Composite
// keys concatenate each column's encoding; variable-length String columns
// escape embedded 0x00 bytes so concatenation never creates an ambiguous
// boundary between columns.
//
// Decimal columns fall back to their decimal string form, which sorts
// correctly only within a fixed scale and sign -- a known limitation of
// this reference index, not a full arbitrary-precision order-preserving
// encoding.
func EncodeKey(arrays []kernel.AnyArray, row int) []byte {
	var out []byte
	for _, arr := range arrays {
		out = append(out, encodeOne(arr, row)...)
	}
	return out
}

func encodeOne(arr kernel.AnyArray, row int) []byte {
	if arr.IsNull(row) {
		return []byte{0x00, 0x00}
	}
	switch a := arr.(type) {
	case *kernel.BoolArray:
		v, _ := a.Get(row)
		if v {
			return []byte{0x01, 0x01}
		}
		return []byte{0x01, 0x00}
	case *kernel.Int64Array:
		v, _ := a.Get(row)
		return encodeInt64(v)
	case *kernel.Float64Array:
		v, _ := a.Get(row)
		return encodeFloat64(v)
	case *kernel.DateArray:
		v, _ := a.Get(row)
		return encodeInt64(int64(v))
	case *kernel.TimestampArray:
		v, _ := a.Get(row)
		return encodeInt64(v)
	case *kernel.DecimalArray:
		v, _ := a.Get(row)
		return escapeString(v.String())
	case *kernel.StringArray:
		v, _ := a.Get(row)
		return escapeString(v)
	default:
		panic("catalog: EncodeKey: unsupported array type")
	}
}

// encodeInt64 flips the sign bit so two's-complement ordering matches
// unsigned byte-string ordering: negative numbers then compare less than
// positive ones lexicographically.
func encodeInt64(v int64) []byte {
	u := uint64(v) ^ (1 << 63)
	return beUint64(u)
}

// encodeFloat64 maps IEEE-754 bits onto an order-preserving unsigned
// representation: flip the sign bit for positive numbers, invert every
// bit for negative ones.
func encodeFloat64(v float64) []byte {
	bits := math.Float64bits(v)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return beUint64(bits)
}

func beUint64(u uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(u)
		u >>= 8
	}
	return b
}

// escapeString replaces every 0x00 byte with 0x00 0xFF and appends a 0x00
// 0x00 terminator, so concatenated composite keys never misparse a
// string's length boundary.
func escapeString(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		if s[i] == 0x00 {
			out = append(out, 0x00, 0xFF)
		} else {
			out = append(out, s[i])
		}
	}
	out = append(out, 0x00, 0x00)
	return out
}
