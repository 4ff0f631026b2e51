package kernel

import (
	"math"
	"time"

	"github.com/cespare/xxhash"
	"github.com/shopspring/decimal"
)

// AnyArray is the polymorphic handle over one typed, nullable column of
// values. Every concrete array type (BoolArray, Int64Array, ...)
// implements it. Bounds violations and type mismatches on these methods
// are programmer errors and panic rather than return an error.
type AnyArray interface {
	// Len returns the number of rows, including nulls.
	Len() int
	// DataType identifies the primitive type carried by this array.
	DataType() Type
	// IsNull reports whether row i is SQL NULL.
	IsNull(i int) bool
	// NewEmpty returns a new, empty array of the same type with capacity hinted.
	NewEmpty(capacity int) AnyArray
	// AppendFrom copies row i of src (same DataType) onto the end of this array.
	AppendFrom(src AnyArray, i int)
	// AppendNull appends a single SQL NULL.
	AppendNull()
	// Gather returns a new array containing row indices[k] at position k.
	// A negative index gathers a NULL (used to pad unmatched outer-join rows).
	Gather(indices []int) AnyArray
	// Slice returns the half-open row range [lo, hi) as a new array.
	Slice(lo, hi int) AnyArray
	// HashInto folds this array's per-row hash into the running hash acc,
	// which must have length Len(). NULL hashes to a fixed sentinel so
	// that NULL = NULL under group-by/hash-join equality semantics.
	HashInto(acc []uint64)
	// EqualAt reports whether row i of this array equals row j of other,
	// under SQL group-by equality (NULL = NULL here; this is NOT the
	// three-valued scalar-evaluator semantics used for = in a WHERE clause).
	EqualAt(i int, other AnyArray, j int) bool
	// CompareAt returns -1/0/1 comparing row i of this array to row j of
	// other for ORDER BY purposes. NULLs sort first.
	CompareAt(i int, other AnyArray, j int) int
}

const nullHashSentinel uint64 = 0x9e3779b97f4a7c15

func hashBytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// --- BoolArray ---

type BoolArray struct {
	data  []bool
	valid []bool
}

func NewBoolArray(capacity int) *BoolArray {
	return &BoolArray{data: make([]bool, 0, capacity), valid: make([]bool, 0, capacity)}
}

func (a *BoolArray) Len() int       { return len(a.data) }
func (a *BoolArray) DataType() Type { return Bool }
func (a *BoolArray) IsNull(i int) bool {
	return !a.valid[i]
}
func (a *BoolArray) Get(i int) (bool, bool) {
	return a.data[i], a.valid[i]
}
func (a *BoolArray) Push(v bool, ok bool) {
	a.data = append(a.data, v)
	a.valid = append(a.valid, ok)
}
func (a *BoolArray) AppendNull() { a.Push(false, false) }
func (a *BoolArray) NewEmpty(capacity int) AnyArray {
	return NewBoolArray(capacity)
}
func (a *BoolArray) AppendFrom(src AnyArray, i int) {
	s := src.(*BoolArray)
	v, ok := s.Get(i)
	a.Push(v, ok)
}
func (a *BoolArray) Gather(indices []int) AnyArray {
	out := NewBoolArray(len(indices))
	for _, idx := range indices {
		if idx < 0 {
			out.AppendNull()
			continue
		}
		out.Push(a.data[idx], a.valid[idx])
	}
	return out
}
func (a *BoolArray) Slice(lo, hi int) AnyArray {
	out := NewBoolArray(hi - lo)
	out.data = append(out.data, a.data[lo:hi]...)
	out.valid = append(out.valid, a.valid[lo:hi]...)
	return out
}
func (a *BoolArray) HashInto(acc []uint64) {
	for i := range a.data {
		var h uint64
		if !a.valid[i] {
			h = nullHashSentinel
		} else if a.data[i] {
			h = 1
		} else {
			h = 2
		}
		acc[i] = combineHash(acc[i], h)
	}
}
func (a *BoolArray) EqualAt(i int, other AnyArray, j int) bool {
	o := other.(*BoolArray)
	if a.valid[i] != o.valid[j] {
		return false
	}
	if !a.valid[i] {
		return true
	}
	return a.data[i] == o.data[j]
}
func (a *BoolArray) CompareAt(i int, other AnyArray, j int) int {
	o := other.(*BoolArray)
	return compareNullable(!a.valid[i], !o.valid[j], func() int {
		return boolCompare(a.data[i], o.data[j])
	})
}

func boolCompare(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

// combineHash folds h into acc the way hash_all folds per-column hashes
// into a single per-row hash.
func combineHash(acc, h uint64) uint64 {
	acc ^= h + 0x9e3779b9 + (acc << 6) + (acc >> 2)
	return acc
}

// compareNullable centralizes the "NULLs sort first" rule shared by every
// CompareAt implementation.
func compareNullable(iNull, jNull bool, cmp func() int) int {
	switch {
	case iNull && jNull:
		return 0
	case iNull:
		return -1
	case jNull:
		return 1
	default:
		return cmp()
	}
}

// --- Int64Array ---

type Int64Array struct {
	data  []int64
	valid []bool
}

func NewI64Array(capacity int) *Int64Array {
	return &Int64Array{data: make([]int64, 0, capacity), valid: make([]bool, 0, capacity)}
}

func Zeros(n int) *Int64Array {
	a := NewI64Array(n)
	for i := 0; i < n; i++ {
		a.Push(0, true)
	}
	return a
}

func (a *Int64Array) Len() int       { return len(a.data) }
func (a *Int64Array) DataType() Type { return Int64 }
func (a *Int64Array) IsNull(i int) bool {
	return !a.valid[i]
}
func (a *Int64Array) Get(i int) (int64, bool) { return a.data[i], a.valid[i] }
func (a *Int64Array) Push(v int64, ok bool) {
	a.data = append(a.data, v)
	a.valid = append(a.valid, ok)
}
func (a *Int64Array) AppendNull() { a.Push(0, false) }
func (a *Int64Array) NewEmpty(capacity int) AnyArray {
	return NewI64Array(capacity)
}
func (a *Int64Array) AppendFrom(src AnyArray, i int) {
	s := src.(*Int64Array)
	v, ok := s.Get(i)
	a.Push(v, ok)
}
func (a *Int64Array) Gather(indices []int) AnyArray {
	out := NewI64Array(len(indices))
	for _, idx := range indices {
		if idx < 0 {
			out.AppendNull()
			continue
		}
		out.Push(a.data[idx], a.valid[idx])
	}
	return out
}
func (a *Int64Array) Slice(lo, hi int) AnyArray {
	out := NewI64Array(hi - lo)
	out.data = append(out.data, a.data[lo:hi]...)
	out.valid = append(out.valid, a.valid[lo:hi]...)
	return out
}
func (a *Int64Array) HashInto(acc []uint64) {
	for i := range a.data {
		var h uint64
		if !a.valid[i] {
			h = nullHashSentinel
		} else {
			h = hashBytes(int64Bytes(a.data[i]))
		}
		acc[i] = combineHash(acc[i], h)
	}
}
func (a *Int64Array) EqualAt(i int, other AnyArray, j int) bool {
	o := other.(*Int64Array)
	if a.valid[i] != o.valid[j] {
		return false
	}
	if !a.valid[i] {
		return true
	}
	return a.data[i] == o.data[j]
}
func (a *Int64Array) CompareAt(i int, other AnyArray, j int) int {
	o := other.(*Int64Array)
	return compareNullable(!a.valid[i], !o.valid[j], func() int {
		switch {
		case a.data[i] < o.data[j]:
			return -1
		case a.data[i] > o.data[j]:
			return 1
		default:
			return 0
		}
	})
}

func int64Bytes(v int64) []byte {
	var b [8]byte
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	return b[:]
}

// --- Float64Array ---

type Float64Array struct {
	data  []float64
	valid []bool
}

func NewF64Array(capacity int) *Float64Array {
	return &Float64Array{data: make([]float64, 0, capacity), valid: make([]bool, 0, capacity)}
}

func (a *Float64Array) Len() int       { return len(a.data) }
func (a *Float64Array) DataType() Type { return Float64 }
func (a *Float64Array) IsNull(i int) bool {
	return !a.valid[i]
}
func (a *Float64Array) Get(i int) (float64, bool) { return a.data[i], a.valid[i] }
func (a *Float64Array) Push(v float64, ok bool) {
	a.data = append(a.data, v)
	a.valid = append(a.valid, ok)
}
func (a *Float64Array) AppendNull() { a.Push(0, false) }
func (a *Float64Array) NewEmpty(capacity int) AnyArray {
	return NewF64Array(capacity)
}
func (a *Float64Array) AppendFrom(src AnyArray, i int) {
	s := src.(*Float64Array)
	v, ok := s.Get(i)
	a.Push(v, ok)
}
func (a *Float64Array) Gather(indices []int) AnyArray {
	out := NewF64Array(len(indices))
	for _, idx := range indices {
		if idx < 0 {
			out.AppendNull()
			continue
		}
		out.Push(a.data[idx], a.valid[idx])
	}
	return out
}
func (a *Float64Array) Slice(lo, hi int) AnyArray {
	out := NewF64Array(hi - lo)
	out.data = append(out.data, a.data[lo:hi]...)
	out.valid = append(out.valid, a.valid[lo:hi]...)
	return out
}

// HashInto transmutes each float to its u64 bit pattern before hashing,
// per spec: "IEEE-754-safe hashing for f64 (transmute to u64 for equality)".
func (a *Float64Array) HashInto(acc []uint64) {
	for i := range a.data {
		var h uint64
		if !a.valid[i] {
			h = nullHashSentinel
		} else {
			h = hashBytes(int64Bytes(int64(math.Float64bits(a.data[i]))))
		}
		acc[i] = combineHash(acc[i], h)
	}
}
func (a *Float64Array) EqualAt(i int, other AnyArray, j int) bool {
	o := other.(*Float64Array)
	if a.valid[i] != o.valid[j] {
		return false
	}
	if !a.valid[i] {
		return true
	}
	return math.Float64bits(a.data[i]) == math.Float64bits(o.data[j])
}
func (a *Float64Array) CompareAt(i int, other AnyArray, j int) int {
	o := other.(*Float64Array)
	return compareNullable(!a.valid[i], !o.valid[j], func() int {
		switch {
		case a.data[i] < o.data[j]:
			return -1
		case a.data[i] > o.data[j]:
			return 1
		default:
			return 0
		}
	})
}

// --- DecimalArray ---

type DecimalArray struct {
	data  []decimal.Decimal
	valid []bool
}

func NewDecimalArray(capacity int) *DecimalArray {
	return &DecimalArray{data: make([]decimal.Decimal, 0, capacity), valid: make([]bool, 0, capacity)}
}

func (a *DecimalArray) Len() int       { return len(a.data) }
func (a *DecimalArray) DataType() Type { return Decimal }
func (a *DecimalArray) IsNull(i int) bool {
	return !a.valid[i]
}
func (a *DecimalArray) Get(i int) (decimal.Decimal, bool) { return a.data[i], a.valid[i] }
func (a *DecimalArray) Push(v decimal.Decimal, ok bool) {
	a.data = append(a.data, v)
	a.valid = append(a.valid, ok)
}
func (a *DecimalArray) AppendNull() { a.Push(decimal.Zero, false) }
func (a *DecimalArray) NewEmpty(capacity int) AnyArray {
	return NewDecimalArray(capacity)
}
func (a *DecimalArray) AppendFrom(src AnyArray, i int) {
	s := src.(*DecimalArray)
	v, ok := s.Get(i)
	a.Push(v, ok)
}
func (a *DecimalArray) Gather(indices []int) AnyArray {
	out := NewDecimalArray(len(indices))
	for _, idx := range indices {
		if idx < 0 {
			out.AppendNull()
			continue
		}
		out.Push(a.data[idx], a.valid[idx])
	}
	return out
}
func (a *DecimalArray) Slice(lo, hi int) AnyArray {
	out := NewDecimalArray(hi - lo)
	out.data = append(out.data, a.data[lo:hi]...)
	out.valid = append(out.valid, a.valid[lo:hi]...)
	return out
}
func (a *DecimalArray) HashInto(acc []uint64) {
	for i := range a.data {
		var h uint64
		if !a.valid[i] {
			h = nullHashSentinel
		} else {
			h = hashBytes([]byte(a.data[i].String()))
		}
		acc[i] = combineHash(acc[i], h)
	}
}
func (a *DecimalArray) EqualAt(i int, other AnyArray, j int) bool {
	o := other.(*DecimalArray)
	if a.valid[i] != o.valid[j] {
		return false
	}
	if !a.valid[i] {
		return true
	}
	return a.data[i].Equal(o.data[j])
}
func (a *DecimalArray) CompareAt(i int, other AnyArray, j int) int {
	o := other.(*DecimalArray)
	return compareNullable(!a.valid[i], !o.valid[j], func() int {
		return a.data[i].Cmp(o.data[j])
	})
}

// --- DateArray (days since epoch) ---

type DateArray struct {
	data  []int32
	valid []bool
}

func NewDateArray(capacity int) *DateArray {
	return &DateArray{data: make([]int32, 0, capacity), valid: make([]bool, 0, capacity)}
}

func (a *DateArray) Len() int       { return len(a.data) }
func (a *DateArray) DataType() Type { return Date }
func (a *DateArray) IsNull(i int) bool {
	return !a.valid[i]
}
func (a *DateArray) Get(i int) (int32, bool) { return a.data[i], a.valid[i] }
func (a *DateArray) Push(v int32, ok bool) {
	a.data = append(a.data, v)
	a.valid = append(a.valid, ok)
}
func (a *DateArray) AppendNull() { a.Push(0, false) }
func (a *DateArray) NewEmpty(capacity int) AnyArray {
	return NewDateArray(capacity)
}
func (a *DateArray) AppendFrom(src AnyArray, i int) {
	s := src.(*DateArray)
	v, ok := s.Get(i)
	a.Push(v, ok)
}
func (a *DateArray) Gather(indices []int) AnyArray {
	out := NewDateArray(len(indices))
	for _, idx := range indices {
		if idx < 0 {
			out.AppendNull()
			continue
		}
		out.Push(a.data[idx], a.valid[idx])
	}
	return out
}
func (a *DateArray) Slice(lo, hi int) AnyArray {
	out := NewDateArray(hi - lo)
	out.data = append(out.data, a.data[lo:hi]...)
	out.valid = append(out.valid, a.valid[lo:hi]...)
	return out
}
func (a *DateArray) HashInto(acc []uint64) {
	for i := range a.data {
		var h uint64
		if !a.valid[i] {
			h = nullHashSentinel
		} else {
			h = hashBytes(int64Bytes(int64(a.data[i])))
		}
		acc[i] = combineHash(acc[i], h)
	}
}
func (a *DateArray) EqualAt(i int, other AnyArray, j int) bool {
	o := other.(*DateArray)
	if a.valid[i] != o.valid[j] {
		return false
	}
	if !a.valid[i] {
		return true
	}
	return a.data[i] == o.data[j]
}
func (a *DateArray) CompareAt(i int, other AnyArray, j int) int {
	o := other.(*DateArray)
	return compareNullable(!a.valid[i], !o.valid[j], func() int {
		switch {
		case a.data[i] < o.data[j]:
			return -1
		case a.data[i] > o.data[j]:
			return 1
		default:
			return 0
		}
	})
}

// EpochDay converts t to the days-since-epoch representation DateArray stores.
func EpochDay(t time.Time) int32 {
	return int32(t.UTC().Truncate(24*time.Hour).Unix() / 86400)
}

// --- TimestampArray (microseconds since epoch) ---

type TimestampArray struct {
	data  []int64
	valid []bool
}

func NewTimestampArray(capacity int) *TimestampArray {
	return &TimestampArray{data: make([]int64, 0, capacity), valid: make([]bool, 0, capacity)}
}

func (a *TimestampArray) Len() int       { return len(a.data) }
func (a *TimestampArray) DataType() Type { return Timestamp }
func (a *TimestampArray) IsNull(i int) bool {
	return !a.valid[i]
}
func (a *TimestampArray) Get(i int) (int64, bool) { return a.data[i], a.valid[i] }
func (a *TimestampArray) Push(v int64, ok bool) {
	a.data = append(a.data, v)
	a.valid = append(a.valid, ok)
}
func (a *TimestampArray) AppendNull() { a.Push(0, false) }
func (a *TimestampArray) NewEmpty(capacity int) AnyArray {
	return NewTimestampArray(capacity)
}
func (a *TimestampArray) AppendFrom(src AnyArray, i int) {
	s := src.(*TimestampArray)
	v, ok := s.Get(i)
	a.Push(v, ok)
}
func (a *TimestampArray) Gather(indices []int) AnyArray {
	out := NewTimestampArray(len(indices))
	for _, idx := range indices {
		if idx < 0 {
			out.AppendNull()
			continue
		}
		out.Push(a.data[idx], a.valid[idx])
	}
	return out
}
func (a *TimestampArray) Slice(lo, hi int) AnyArray {
	out := NewTimestampArray(hi - lo)
	out.data = append(out.data, a.data[lo:hi]...)
	out.valid = append(out.valid, a.valid[lo:hi]...)
	return out
}
func (a *TimestampArray) HashInto(acc []uint64) {
	for i := range a.data {
		var h uint64
		if !a.valid[i] {
			h = nullHashSentinel
		} else {
			h = hashBytes(int64Bytes(a.data[i]))
		}
		acc[i] = combineHash(acc[i], h)
	}
}
func (a *TimestampArray) EqualAt(i int, other AnyArray, j int) bool {
	o := other.(*TimestampArray)
	if a.valid[i] != o.valid[j] {
		return false
	}
	if !a.valid[i] {
		return true
	}
	return a.data[i] == o.data[j]
}
func (a *TimestampArray) CompareAt(i int, other AnyArray, j int) int {
	o := other.(*TimestampArray)
	return compareNullable(!a.valid[i], !o.valid[j], func() int {
		switch {
		case a.data[i] < o.data[j]:
			return -1
		case a.data[i] > o.data[j]:
			return 1
		default:
			return 0
		}
	})
}

// --- StringArray ---

type StringArray struct {
	data  []string
	valid []bool
}

func NewStringArray(capacity int) *StringArray {
	return &StringArray{data: make([]string, 0, capacity), valid: make([]bool, 0, capacity)}
}

func (a *StringArray) Len() int       { return len(a.data) }
func (a *StringArray) DataType() Type { return String }
func (a *StringArray) IsNull(i int) bool {
	return !a.valid[i]
}
func (a *StringArray) Get(i int) (string, bool) { return a.data[i], a.valid[i] }
func (a *StringArray) Push(v string, ok bool) {
	a.data = append(a.data, v)
	a.valid = append(a.valid, ok)
}
func (a *StringArray) AppendNull() { a.Push("", false) }
func (a *StringArray) NewEmpty(capacity int) AnyArray {
	return NewStringArray(capacity)
}
func (a *StringArray) AppendFrom(src AnyArray, i int) {
	s := src.(*StringArray)
	v, ok := s.Get(i)
	a.Push(v, ok)
}
func (a *StringArray) Gather(indices []int) AnyArray {
	out := NewStringArray(len(indices))
	for _, idx := range indices {
		if idx < 0 {
			out.AppendNull()
			continue
		}
		out.Push(a.data[idx], a.valid[idx])
	}
	return out
}
func (a *StringArray) Slice(lo, hi int) AnyArray {
	out := NewStringArray(hi - lo)
	out.data = append(out.data, a.data[lo:hi]...)
	out.valid = append(out.valid, a.valid[lo:hi]...)
	return out
}
func (a *StringArray) HashInto(acc []uint64) {
	for i := range a.data {
		var h uint64
		if !a.valid[i] {
			h = nullHashSentinel
		} else {
			h = hashBytes([]byte(a.data[i]))
		}
		acc[i] = combineHash(acc[i], h)
	}
}
func (a *StringArray) EqualAt(i int, other AnyArray, j int) bool {
	o := other.(*StringArray)
	if a.valid[i] != o.valid[j] {
		return false
	}
	if !a.valid[i] {
		return true
	}
	return a.data[i] == o.data[j]
}
func (a *StringArray) CompareAt(i int, other AnyArray, j int) int {
	o := other.(*StringArray)
	return compareNullable(!a.valid[i], !o.valid[j], func() int {
		switch {
		case a.data[i] < o.data[j]:
			return -1
		case a.data[i] > o.data[j]:
			return 1
		default:
			return 0
		}
	})
}

// NewArray allocates an empty array of the given type, reserving room
// for capacity values.
func NewArray(t Type, capacity int) AnyArray {
	switch t {
	case Bool:
		return NewBoolArray(capacity)
	case Int64:
		return NewI64Array(capacity)
	case Float64:
		return NewF64Array(capacity)
	case Decimal:
		return NewDecimalArray(capacity)
	case Date:
		return NewDateArray(capacity)
	case Timestamp:
		return NewTimestampArray(capacity)
	case String:
		return NewStringArray(capacity)
	default:
		panic("kernel: NewArray: invalid type " + t.String())
	}
}
