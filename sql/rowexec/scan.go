package rowexec

import (
	"github.com/quilldb/quill/catalog"
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/art"
	"github.com/quilldb/quill/sql/expression"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/plan"
	"github.com/quilldb/quill/storage"
)

func (ex *Executor) buildTableFreeScan() (kernel.BatchIter, error) {
	// One zero-column row: every array is empty-width but NumRows reports
	// via the first column, so synthesize a single Bool column discarded
	// by every consumer that only projects literals off of it.
	marker := kernel.NewBoolArray(1)
	marker.Push(true, true)
	batch := kernel.NewRecordBatch([]kernel.Column{{Name: "$marker", Array: marker}})
	return &sliceIter{batch: batch}, nil
}

func (ex *Executor) buildSeqScan(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	table, err := ex.Catalog.Table(e.Table)
	if err != nil {
		return nil, err
	}
	return table.Heap.Scan(ctx)
}

// buildIndexScan serves two shapes: a bare full-index scan (no Input,
// unbounded range -- a simplified alternative the optimizer proposes
// alongside SeqScan) and a lookup-join probe side (Input present,
// LowerBound/UpperBound evaluated per probe row to drive one ART range
// query per row).
func (ex *Executor) buildIndexScan(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	table, err := ex.Catalog.Table(e.Table)
	if err != nil {
		return nil, err
	}
	idx, err := ex.Catalog.Index(e.Table, e.IndexName)
	if err != nil {
		return nil, err
	}

	if len(e.Input) == 0 {
		lower, upper := art.Bound{Kind: art.Unbounded}, art.Bound{Kind: art.Unbounded}
		if e.LowerBound != nil {
			lowKey, err := evalScalarKey(ctx, e.LowerBound)
			if err != nil {
				return nil, err
			}
			upperExpr := e.LowerBound
			if e.UpperBound != nil {
				upperExpr = e.UpperBound
			}
			highKey, err := evalScalarKey(ctx, upperExpr)
			if err != nil {
				return nil, err
			}
			lower = art.Bound{Key: lowKey, Kind: art.Included}
			upper = art.Bound{Key: highKey, Kind: art.Included}
		}
		entries := idx.Tree.Range(lower, upper)
		ids := make([]storage.RowID, len(entries))
		for i, ent := range entries {
			ids[i] = storage.RowID(ent.Value)
		}
		batch, err := table.Heap.BitmapScan(ctx, ids)
		if err != nil {
			return nil, err
		}
		return &sliceIter{batch: batch}, nil
	}

	probeIt, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	return &indexLookupIter{ex: ex, ctx: ctx, e: e, table: table.Heap, idx: idx, probe: probeIt}, nil
}

// evalScalarKey evaluates e (a literal, typically) against a single
// synthetic row and encodes the result the same way catalog.EncodeKey
// keys an index entry, for a bare IndexScan's own LowerBound/UpperBound
// -- unlike indexLookupIter's per-probe-row evaluation, there is no
// input batch to evaluate against here.
func evalScalarKey(ctx *sql.Context, e expression.Expr) ([]byte, error) {
	marker := kernel.NewBoolArray(1)
	marker.Push(true, true)
	batch := kernel.NewRecordBatch([]kernel.Column{{Name: "$marker", Array: marker}})
	arr, err := e.Eval(ctx, batch)
	if err != nil {
		return nil, err
	}
	return catalog.EncodeKey([]kernel.AnyArray{arr}, 0), nil
}

type indexLookupIter struct {
	ex    *Executor
	ctx   *sql.Context
	e     *plan.Expr
	table storage.Heap
	idx   *catalog.IndexDef
	probe kernel.BatchIter

	pending []*kernel.RecordBatch
	pi      int
}

func (it *indexLookupIter) Next() (*kernel.RecordBatch, error) {
	for {
		if it.pi < len(it.pending) {
			b := it.pending[it.pi]
			it.pi++
			return b, nil
		}
		probeBatch, err := it.probe.Next()
		if err == kernel.ErrDone {
			return nil, kernel.ErrDone
		}
		if err != nil {
			return nil, err
		}
		it.pending, it.pi = nil, 0
		lowerArr, err := it.e.LowerBound.Eval(it.ctx, probeBatch)
		if err != nil {
			return nil, err
		}
		upperArr := lowerArr
		if it.e.UpperBound != nil {
			upperArr, err = it.e.UpperBound.Eval(it.ctx, probeBatch)
			if err != nil {
				return nil, err
			}
		}
		for row := 0; row < probeBatch.NumRows(); row++ {
			lowKey := catalog.EncodeKey([]kernel.AnyArray{lowerArr}, row)
			highKey := catalog.EncodeKey([]kernel.AnyArray{upperArr}, row)
			entries := it.idx.Tree.Range(
				art.Bound{Key: lowKey, Kind: art.Included},
				art.Bound{Key: highKey, Kind: art.Included},
			)
			ids := make([]storage.RowID, len(entries))
			for i, ent := range entries {
				ids[i] = storage.RowID(ent.Value)
			}
			matched, err := it.table.BitmapScan(it.ctx, ids)
			if err != nil {
				return nil, err
			}
			out := matched
			if it.e.IncludeExisting {
				probeRow := probeBatch.Slice(row, row+1)
				replicated := replicateRow(probeRow, matched.NumRows())
				out = kernel.Zip(replicated, matched)
			}
			if out.NumRows() > 0 {
				it.pending = append(it.pending, out)
			}
		}
	}
}

func (it *indexLookupIter) Close() error { return it.probe.Close() }

// replicateRow returns n copies of probeRow (which must have exactly one
// row), used to pair a lookup join's probe row with each of its matches.
func replicateRow(probeRow *kernel.RecordBatch, n int) *kernel.RecordBatch {
	indices := make([]int, n)
	return probeRow.Gather(indices)
}
