package kernel

import (
	"fmt"
	"sort"
)

// Column is one (name, typed array) pair inside a RecordBatch.
type Column struct {
	Name  string
	Array AnyArray
}

// RecordBatch is an ordered sequence of named, equal-length typed arrays
// flowing between executor operators. Batches are immutable after
// construction; every operator below emits a new batch rather than
// mutating its input.
type RecordBatch struct {
	Columns []Column
}

// NewRecordBatch validates that every column has the same length.
func NewRecordBatch(columns []Column) *RecordBatch {
	if len(columns) > 0 {
		n := columns[0].Array.Len()
		for _, c := range columns[1:] {
			if c.Array.Len() != n {
				panic(fmt.Sprintf("kernel: RecordBatch: column %q has length %d, want %d", c.Name, c.Array.Len(), n))
			}
		}
	}
	return &RecordBatch{Columns: columns}
}

// NumRows returns the number of rows in the batch, 0 for a batch with no columns.
func (b *RecordBatch) NumRows() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return b.Columns[0].Array.Len()
}

// Find returns the index of the named column, or -1 if absent.
func (b *RecordBatch) Find(name string) int {
	for i, c := range b.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Array is a convenience wrapper around Find for callers that already
// know the column must be present.
func (b *RecordBatch) Array(name string) AnyArray {
	i := b.Find(name)
	if i < 0 {
		panic("kernel: RecordBatch.Array: no such column " + name)
	}
	return b.Columns[i].Array
}

// Rename returns a new batch with columns renamed according to names,
// which maps old name to new name. Columns not present in names keep
// their original name.
func (b *RecordBatch) Rename(names map[string]string) *RecordBatch {
	out := make([]Column, len(b.Columns))
	for i, c := range b.Columns {
		name := c.Name
		if n, ok := names[name]; ok {
			name = n
		}
		out[i] = Column{Name: name, Array: c.Array}
	}
	return &RecordBatch{Columns: out}
}

// Compress returns the rows for which mask is true and defined (non-null
// entries of mask that evaluate false, and every null entry, are dropped).
func (b *RecordBatch) Compress(mask *BoolArray) *RecordBatch {
	indices := make([]int, 0, mask.Len())
	for i := 0; i < mask.Len(); i++ {
		if v, ok := mask.Get(i); ok && v {
			indices = append(indices, i)
		}
	}
	return b.Gather(indices)
}

// Gather materializes the rows named by indices, in order. A negative
// index gathers a row of NULLs in every column (used to pad unmatched
// build-side rows for outer joins).
func (b *RecordBatch) Gather(indices []int) *RecordBatch {
	out := make([]Column, len(b.Columns))
	for i, c := range b.Columns {
		out[i] = Column{Name: c.Name, Array: c.Array.Gather(indices)}
	}
	return &RecordBatch{Columns: out}
}

// Slice returns the half-open row range [lo, hi).
func (b *RecordBatch) Slice(lo, hi int) *RecordBatch {
	out := make([]Column, len(b.Columns))
	for i, c := range b.Columns {
		out[i] = Column{Name: c.Name, Array: c.Array.Slice(lo, hi)}
	}
	return &RecordBatch{Columns: out}
}

// Sort returns the permutation of row indices that stably orders the
// batch by its columns, one descending flag per column.
func (b *RecordBatch) Sort(desc []bool) []int {
	n := b.NumRows()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(x, y int) bool {
		i, j := indices[x], indices[y]
		for k, c := range b.Columns {
			cmp := c.Array.CompareAt(i, c.Array, j)
			if k < len(desc) && desc[k] {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	return indices
}

// Cat concatenates batches with identical schemas into one batch.
func Cat(batches []*RecordBatch) *RecordBatch {
	if len(batches) == 0 {
		return &RecordBatch{}
	}
	first := batches[0]
	out := make([]Column, len(first.Columns))
	for i, c := range first.Columns {
		out[i] = Column{Name: c.Name, Array: c.Array.NewEmpty(0)}
	}
	for _, batch := range batches {
		for i := range out {
			for row := 0; row < batch.NumRows(); row++ {
				out[i].Array.AppendFrom(batch.Columns[i].Array, row)
			}
		}
	}
	return &RecordBatch{Columns: out}
}

// Zip concatenates the columns of a and b row-for-row; both must have
// the same row count. Used to splice an index-scan's probe row back
// onto its matches when include_existing is requested.
func Zip(a, b *RecordBatch) *RecordBatch {
	if a.NumRows() != b.NumRows() {
		panic(fmt.Sprintf("kernel: Zip: mismatched row counts %d vs %d", a.NumRows(), b.NumRows()))
	}
	out := make([]Column, 0, len(a.Columns)+len(b.Columns))
	out = append(out, a.Columns...)
	out = append(out, b.Columns...)
	return &RecordBatch{Columns: out}
}

// Schema returns the (name, type) pairs describing this batch's shape.
func (b *RecordBatch) Schema() []NamedType {
	out := make([]NamedType, len(b.Columns))
	for i, c := range b.Columns {
		out[i] = NamedType{Name: c.Name, Type: c.Array.DataType()}
	}
	return out
}

// NamedType pairs a column name with its type, used for schema reporting.
type NamedType struct {
	Name string
	Type Type
}
