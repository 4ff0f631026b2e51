package kernel

// HashAll produces a per-row hash for a set of columns by combining each
// column's per-row hash. Two rows hash equal iff they are equal under
// group-by equality (SQL NULL = NULL in this context, unlike scalar
// three-valued comparison).
func HashAll(columns []AnyArray) *Int64Array {
	if len(columns) == 0 {
		return NewI64Array(0)
	}
	n := columns[0].Len()
	acc := make([]uint64, n)
	for _, col := range columns {
		col.HashInto(acc)
	}
	out := NewI64Array(n)
	for _, h := range acc {
		out.Push(int64(h), true)
	}
	return out
}
