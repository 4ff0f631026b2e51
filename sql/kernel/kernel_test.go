package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func i64Column(name string, vals []int64, valid []bool) Column {
	a := NewI64Array(len(vals))
	for i, v := range vals {
		a.Push(v, valid[i])
	}
	return Column{Name: name, Array: a}
}

func strColumn(name string, vals []string) Column {
	a := NewStringArray(len(vals))
	for _, v := range vals {
		a.Push(v, true)
	}
	return Column{Name: name, Array: a}
}

func TestRecordBatchGatherPadsNullOnNegativeIndex(t *testing.T) {
	b := NewRecordBatch([]Column{
		i64Column("x", []int64{10, 20, 30}, []bool{true, true, true}),
	})
	out := b.Gather([]int{2, -1, 0})
	require.Equal(t, 3, out.NumRows())
	arr := out.Array("x").(*Int64Array)
	v, ok := arr.Get(0)
	require.True(t, ok)
	require.Equal(t, int64(30), v)
	_, ok = arr.Get(1)
	require.False(t, ok)
	v, ok = arr.Get(2)
	require.True(t, ok)
	require.Equal(t, int64(10), v)
}

func TestRecordBatchCompressDropsFalseAndNull(t *testing.T) {
	b := NewRecordBatch([]Column{
		i64Column("x", []int64{1, 2, 3, 4}, []bool{true, true, true, true}),
	})
	mask := NewBoolArray(4)
	mask.Push(true, true)
	mask.Push(false, true)
	mask.Push(false, false) // null mask entry, must be dropped like false
	mask.Push(true, true)

	out := b.Compress(mask)
	require.Equal(t, 2, out.NumRows())
	arr := out.Array("x").(*Int64Array)
	v0, _ := arr.Get(0)
	v1, _ := arr.Get(1)
	require.Equal(t, int64(1), v0)
	require.Equal(t, int64(4), v1)
}

func TestRecordBatchSortStableByMultipleColumns(t *testing.T) {
	b := NewRecordBatch([]Column{
		i64Column("a", []int64{1, 1, 0, 0}, []bool{true, true, true, true}),
		i64Column("b", []int64{2, 1, 2, 1}, []bool{true, true, true, true}),
	})
	perm := b.Sort([]bool{false, false})
	sorted := b.Gather(perm)
	a := sorted.Array("a").(*Int64Array)
	bb := sorted.Array("b").(*Int64Array)
	var got [][2]int64
	for i := 0; i < sorted.NumRows(); i++ {
		av, _ := a.Get(i)
		bv, _ := bb.Get(i)
		got = append(got, [2]int64{av, bv})
	}
	require.Equal(t, [][2]int64{{0, 1}, {0, 2}, {1, 1}, {1, 2}}, got)
}

func TestCatConcatenatesColumns(t *testing.T) {
	b1 := NewRecordBatch([]Column{i64Column("x", []int64{1, 2}, []bool{true, true})})
	b2 := NewRecordBatch([]Column{i64Column("x", []int64{3}, []bool{true})})
	out := Cat([]*RecordBatch{b1, b2})
	require.Equal(t, 3, out.NumRows())
	arr := out.Array("x").(*Int64Array)
	for i, want := range []int64{1, 2, 3} {
		v, ok := arr.Get(i)
		require.True(t, ok)
		require.Equal(t, want, v)
	}
}

func TestHashAllNullEqualsNullUnderGroupBySemantics(t *testing.T) {
	a := NewI64Array(3)
	a.Push(1, true)
	a.Push(0, false)
	a.Push(0, false)

	hashes := HashAll([]AnyArray{a})
	h1, _ := hashes.Get(1)
	h2, _ := hashes.Get(2)
	require.Equal(t, h1, h2, "two NULLs must hash identically for group-by/hash-join equality")

	h0, _ := hashes.Get(0)
	require.NotEqual(t, h0, h1)
}

func TestFloat64ArrayIEEESafeHashAndEquality(t *testing.T) {
	a := NewF64Array(4)
	a.Push(0.0, true)
	a.Push(math.Copysign(0, -1), true) // negative zero
	a.Push(math.NaN(), true)
	a.Push(math.NaN(), true)

	require.False(t, a.EqualAt(0, a, 1), "0.0 and -0.0 have different bit patterns, so they are distinct group-by keys")

	hashes := HashAll([]AnyArray{a})
	h0, _ := hashes.Get(0)
	h1, _ := hashes.Get(1)
	require.NotEqual(t, h0, h1, "0.0 and -0.0 hash by bit pattern, so they hash differently")

	require.True(t, a.EqualAt(2, a, 3), "NaN must equal NaN under group-by equality")
}

func TestFloat64ArrayOrderingNullsFirst(t *testing.T) {
	a := NewF64Array(3)
	a.Push(1.5, true)
	a.AppendNull()
	a.Push(-2.5, true)

	require.Equal(t, -1, a.CompareAt(1, a, 0), "NULL sorts before any value")
	require.Equal(t, 1, a.CompareAt(0, a, 2))
}

func TestStringArraySliceAndGather(t *testing.T) {
	c := strColumn("s", []string{"a", "b", "c", "d"})
	arr := c.Array.(*StringArray)
	sliced := arr.Slice(1, 3)
	require.Equal(t, 2, sliced.Len())

	gathered := arr.Gather([]int{3, -1, 0})
	require.Equal(t, 3, gathered.Len())
	require.True(t, gathered.IsNull(1))
}

func TestNewRecordBatchPanicsOnMismatchedColumnLengths(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r, "constructing a batch from unequal-length columns must panic")
	}()
	NewRecordBatch([]Column{
		i64Column("x", []int64{1, 2}, []bool{true, true}),
		i64Column("y", []int64{1}, []bool{true}),
	})
}
