package rowexec

import (
	"github.com/quilldb/quill/catalog"
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/plan"
	"github.com/quilldb/quill/storage"
)

func (ex *Executor) buildInsert(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	childIt, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	table, err := ex.Catalog.Table(e.Table)
	if err != nil {
		return nil, err
	}
	var affected int64
	for {
		batch, err := childIt.Next()
		if err == kernel.ErrDone {
			break
		}
		if err != nil {
			return nil, err
		}
		rowIDs, err := table.Heap.Insert(ctx, batch)
		if err != nil {
			return nil, err
		}
		if err := ex.insertIndexEntries(e.Table, batch, rowIDs); err != nil {
			return nil, err
		}
		affected += int64(len(rowIDs))
	}
	return &sliceIter{batch: affectedRowsBatch(affected)}, nil
}

// insertIndexEntries keys every secondary index defined on table by its
// indexed columns and inserts one ART entry per row, rejecting the whole
// batch with sql.ErrUniqueViolation if a unique index already holds an
// entry at a computed key.
func (ex *Executor) insertIndexEntries(table string, batch *kernel.RecordBatch, rowIDs []storage.RowID) error {
	for _, name := range ex.Catalog.Indexes(table) {
		idx, err := ex.Catalog.Index(table, name)
		if err != nil {
			return err
		}
		arrays := make([]kernel.AnyArray, len(idx.Columns))
		tableDef, err := ex.Catalog.Table(table)
		if err != nil {
			return err
		}
		for i, id := range idx.Columns {
			colIdx := tableDef.Schema.IndexOf(id)
			arrays[i] = batch.Array(tableDef.Schema[colIdx].Name)
		}
		for row, rowID := range rowIDs {
			key := catalog.EncodeKey(arrays, row)
			_, hadOld := idx.Tree.Insert(key, int64(rowID))
			if idx.Unique && hadOld {
				return sql.ErrUniqueViolation.New(idx.Name, key)
			}
		}
	}
	return nil
}

// BackfillIndex keys every row already resident in table's heap into the
// named index, the pass CREATE INDEX needs after catalog.CreateIndex has
// registered an empty ART tree over rows that predate it. It shares
// insertIndexEntries' keying logic rather than re-deriving it, scoped to
// just the one index instead of every index on table.
func (ex *Executor) BackfillIndex(ctx *sql.Context, table, indexName string) error {
	idx, err := ex.Catalog.Index(table, indexName)
	if err != nil {
		return err
	}
	tableDef, err := ex.Catalog.Table(table)
	if err != nil {
		return err
	}
	it, err := tableDef.Heap.Scan(ctx)
	if err != nil {
		return err
	}
	for {
		batch, err := it.Next()
		if err == kernel.ErrDone {
			break
		}
		if err != nil {
			return err
		}
		rowIDCol := batch.Array(storage.RowIDColumn).(*kernel.Int64Array)
		arrays := make([]kernel.AnyArray, len(idx.Columns))
		for i, id := range idx.Columns {
			colIdx := tableDef.Schema.IndexOf(id)
			arrays[i] = batch.Array(tableDef.Schema[colIdx].Name)
		}
		for row := 0; row < batch.NumRows(); row++ {
			rowID, _ := rowIDCol.Get(row)
			key := catalog.EncodeKey(arrays, row)
			_, hadOld := idx.Tree.Insert(key, rowID)
			if idx.Unique && hadOld {
				return sql.ErrUniqueViolation.New(idx.Name, key)
			}
		}
	}
	return nil
}

func affectedRowsBatch(n int64) *kernel.RecordBatch {
	arr := kernel.NewI64Array(1)
	arr.Push(n, true)
	return kernel.NewRecordBatch([]kernel.Column{{Name: "rows_affected", Array: arr}})
}

// buildValues evaluates every row's expressions against a synthetic
// single-row batch, since a VALUES row's expressions (literals, cast
// constants, bound parameters) never reference an input relation.
func (ex *Executor) buildValues(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	marker := kernel.NewBoolArray(1)
	marker.Push(true, true)
	singleRow := kernel.NewRecordBatch([]kernel.Column{{Name: "$marker", Array: marker}})

	cols := make([]kernel.Column, len(e.Columns))
	for i, c := range e.Columns {
		cols[i] = kernel.Column{Name: c.Name, Array: kernel.NewArray(c.Type, len(e.ValueRows))}
	}
	for _, row := range e.ValueRows {
		for i, expr := range row {
			v, err := expr.Eval(ctx, singleRow)
			if err != nil {
				return nil, err
			}
			cols[i].Array.AppendFrom(v, 0)
		}
	}
	return &sliceIter{batch: kernel.NewRecordBatch(cols)}, nil
}

// buildUpdate evaluates e.Projects against each matched batch (which
// still carries storage.RowIDColumn from the unwrapped scan below it)
// before touching the heap at all, then deletes exactly the row ids that
// batch named and inserts the already-computed replacement rows. Doing
// both halves off the one materialized batch, rather than an independent
// post-delete re-scan of the same predicate, is what keeps a row that has
// no surviving index entry (or no index at all) from being lost or
// NULL-padded back in.
func (ex *Executor) buildUpdate(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	childIt, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	table, err := ex.Catalog.Table(e.Table)
	if err != nil {
		return nil, err
	}
	var affected int64
	for {
		batch, err := childIt.Next()
		if err == kernel.ErrDone {
			break
		}
		if err != nil {
			return nil, err
		}
		if batch.NumRows() == 0 {
			continue
		}
		rowIDIdx := batch.Find(storage.RowIDColumn)
		if rowIDIdx < 0 {
			return nil, sql.ErrUnsupportedFeature.New("update on a plan whose scan did not carry row identities")
		}
		rowIDArr := batch.Columns[rowIDIdx].Array.(*kernel.Int64Array)
		rowIDs := make([]storage.RowID, rowIDArr.Len())
		for i := range rowIDs {
			v, _ := rowIDArr.Get(i)
			rowIDs[i] = storage.RowID(v)
		}

		cols := make([]kernel.Column, len(e.Projects))
		for i, p := range e.Projects {
			a, err := p.Eval(ctx, batch)
			if err != nil {
				return nil, err
			}
			cols[i] = kernel.Column{Name: e.Columns[i].Name, Array: a}
		}
		updated := kernel.NewRecordBatch(cols)

		if err := table.Heap.Delete(ctx, rowIDs); err != nil {
			return nil, err
		}
		newIDs, err := table.Heap.Insert(ctx, updated)
		if err != nil {
			return nil, err
		}
		if err := ex.insertIndexEntries(e.Table, updated, newIDs); err != nil {
			return nil, err
		}
		affected += int64(len(rowIDs))
	}
	return &sliceIter{batch: affectedRowsBatch(affected)}, nil
}

func (ex *Executor) buildDelete(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	childIt, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	table, err := ex.Catalog.Table(e.Table)
	if err != nil {
		return nil, err
	}
	var affected int64
	for {
		batch, err := childIt.Next()
		if err == kernel.ErrDone {
			break
		}
		if err != nil {
			return nil, err
		}
		idx := batch.Find(storage.RowIDColumn)
		if idx < 0 {
			return nil, sql.ErrUnsupportedFeature.New("delete on a plan whose scan did not carry row identities")
		}
		rowIDArr := batch.Columns[idx].Array.(*kernel.Int64Array)
		rowIDs := make([]storage.RowID, rowIDArr.Len())
		for i := range rowIDs {
			v, _ := rowIDArr.Get(i)
			rowIDs[i] = storage.RowID(v)
		}
		if err := table.Heap.Delete(ctx, rowIDs); err != nil {
			return nil, err
		}
		affected += int64(len(rowIDs))
	}
	return &sliceIter{batch: affectedRowsBatch(affected)}, nil
}
