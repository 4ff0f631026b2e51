package memheap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/storage"
)

func testSchema() sql.Schema {
	return sql.Schema{{ID: sql.NewColumnID(), Name: "x", Type: kernel.Int64}}
}

func batchOf(vals ...int64) *kernel.RecordBatch {
	a := kernel.NewI64Array(len(vals))
	for _, v := range vals {
		a.Push(v, true)
	}
	return kernel.NewRecordBatch([]kernel.Column{{Name: "x", Array: a}})
}

func drainScan(t *testing.T, it kernel.BatchIter) *kernel.RecordBatch {
	t.Helper()
	var batches []*kernel.RecordBatch
	for {
		b, err := it.Next()
		if err == kernel.ErrDone {
			break
		}
		require.NoError(t, err)
		batches = append(batches, b)
	}
	if len(batches) == 0 {
		return kernel.NewRecordBatch(nil)
	}
	return kernel.Cat(batches)
}

func TestInsertThenScanRoundTrips(t *testing.T) {
	h := New(testSchema())
	ctx := sql.NewEmptyContext()
	ctx.TxnID = 1

	ids, err := h.Insert(ctx, batchOf(1, 2, 3))
	require.NoError(t, err)
	require.Len(t, ids, 3)

	it, err := h.Scan(ctx)
	require.NoError(t, err)
	out := drainScan(t, it)
	require.Equal(t, 3, out.NumRows())

	rowIDCol := out.Find(storage.RowIDColumn)
	require.GreaterOrEqual(t, rowIDCol, 0, "Scan must carry the hidden row id column")

	xs := out.Array("x").(*kernel.Int64Array)
	for i, want := range []int64{1, 2, 3} {
		v, ok := xs.Get(i)
		require.True(t, ok)
		require.Equal(t, want, v)
	}
}

// For every table T and every row R inserted at transaction t, scanning T
// at any transaction t' >= t visible to R returns R exactly once; after
// DELETE at t'', scanning at t''' >= t'' does not return R.
func TestDeleteHidesRowFromFutureScans(t *testing.T) {
	h := New(testSchema())
	ctx := sql.NewEmptyContext()
	ctx.TxnID = 1

	ids, err := h.Insert(ctx, batchOf(42))
	require.NoError(t, err)

	it, err := h.Scan(ctx)
	require.NoError(t, err)
	before := drainScan(t, it)
	require.Equal(t, 1, before.NumRows())

	ctx.TxnID = 2
	require.NoError(t, h.Delete(ctx, ids))

	it, err = h.Scan(ctx)
	require.NoError(t, err)
	after := drainScan(t, it)
	require.Equal(t, 0, after.NumRows())
}

func TestInsertSpansMultiplePages(t *testing.T) {
	h := New(testSchema())
	ctx := sql.NewEmptyContext()

	vals := make([]int64, storage.PageSize+10)
	for i := range vals {
		vals[i] = int64(i)
	}
	ids, err := h.Insert(ctx, batchOf(vals...))
	require.NoError(t, err)
	require.Len(t, ids, len(vals))
	require.Equal(t, 2, h.Pages())

	for i, id := range ids {
		require.Equal(t, int64(i), int64(id), "RowID must equal insertion order for a freshly created heap")
	}
}

func TestBitmapScanFetchesByRowIDAndPadsDeadRows(t *testing.T) {
	h := New(testSchema())
	ctx := sql.NewEmptyContext()
	ids, err := h.Insert(ctx, batchOf(10, 20, 30))
	require.NoError(t, err)

	require.NoError(t, h.Delete(ctx, []storage.RowID{ids[1]}))

	out, err := h.BitmapScan(ctx, []storage.RowID{ids[2], ids[1], ids[0]})
	require.NoError(t, err)
	require.Equal(t, 3, out.NumRows())

	arr := out.Array("x").(*kernel.Int64Array)
	v0, ok0 := arr.Get(0)
	require.True(t, ok0)
	require.Equal(t, int64(30), v0)

	_, ok1 := arr.Get(1)
	require.False(t, ok1, "a deleted row's BitmapScan entry must be NULL-padded, not omitted")

	v2, ok2 := arr.Get(2)
	require.True(t, ok2)
	require.Equal(t, int64(10), v2)
}

func TestBitmapScanPadsOutOfRangeRowID(t *testing.T) {
	h := New(testSchema())
	ctx := sql.NewEmptyContext()
	_, err := h.Insert(ctx, batchOf(1))
	require.NoError(t, err)

	out, err := h.BitmapScan(ctx, []storage.RowID{9999})
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows())
	require.True(t, out.Array("x").(*kernel.Int64Array).IsNull(0))
}

// BitmapScan backs every IndexScan; a Delete/Update fed by an indexed
// Filter can only find the rows it touched if the batch it receives
// carries row identity the same way a plain Scan's does.
func TestBitmapScanCarriesRowIDColumnLikeScan(t *testing.T) {
	h := New(testSchema())
	ctx := sql.NewEmptyContext()
	ids, err := h.Insert(ctx, batchOf(10, 20, 30))
	require.NoError(t, err)

	out, err := h.BitmapScan(ctx, []storage.RowID{ids[1], ids[0]})
	require.NoError(t, err)
	require.GreaterOrEqual(t, out.Find(storage.RowIDColumn), 0, "BitmapScan must emit the hidden row-id column")

	rowids := out.Array(storage.RowIDColumn).(*kernel.Int64Array)
	v0, ok0 := rowids.Get(0)
	require.True(t, ok0)
	require.Equal(t, int64(ids[1]), v0)
	v1, ok1 := rowids.Get(1)
	require.True(t, ok1)
	require.Equal(t, int64(ids[0]), v1)
}

// A dead (out-of-range or deleted) row has no identity to report, so
// its row-id entry must be NULL-padded right alongside its data columns.
func TestBitmapScanPadsRowIDColumnForDeadRows(t *testing.T) {
	h := New(testSchema())
	ctx := sql.NewEmptyContext()
	out, err := h.BitmapScan(ctx, []storage.RowID{9999})
	require.NoError(t, err)
	require.True(t, out.Array(storage.RowIDColumn).(*kernel.Int64Array).IsNull(0))
}
