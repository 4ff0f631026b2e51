// Package rowexec evaluates a physical plan.Expr tree, one RecordBatch at
// a time, pulling from each operator's child the way a single-row
// iterator would but carrying whole columnar batches instead of rows.
package rowexec

import (
	"fmt"
	"sync"

	"github.com/quilldb/quill/catalog"
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/plan"
)

// Executor holds everything a single statement's execution needs beyond
// the plan tree itself: the catalog to resolve tables and indexes
// against, and the query-scoped temp table store a LogicalWith's
// CreateTempTable/GetTempTable pair reads and writes.
type Executor struct {
	Catalog *catalog.Catalog

	mu   sync.Mutex
	temp map[string][]*kernel.RecordBatch
}

// New returns an Executor bound to cat. A fresh Executor should be used
// per statement so its temp-table store doesn't leak across queries.
func New(cat *catalog.Catalog) *Executor {
	return &Executor{Catalog: cat, temp: map[string][]*kernel.RecordBatch{}}
}

// Build compiles e into a pull-based batch iterator. ctx carries the
// active transaction, deadline, and bound parameter values.
func (ex *Executor) Build(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch e.Kind {
	case plan.TableFreeScan:
		return ex.buildTableFreeScan()
	case plan.SeqScan:
		return ex.buildSeqScan(ctx, e)
	case plan.IndexScan:
		return ex.buildIndexScan(ctx, e)
	case plan.Filter:
		return ex.buildFilter(ctx, e)
	case plan.Map:
		return ex.buildMap(ctx, e)
	case plan.NestedLoop:
		return ex.buildNestedLoop(ctx, e)
	case plan.HashJoin:
		return ex.buildHashJoin(ctx, e)
	case plan.SimpleAggregate:
		return ex.buildSimpleAggregate(ctx, e)
	case plan.GroupByAggregate:
		return ex.buildGroupByAggregate(ctx, e)
	case plan.Limit:
		return ex.buildLimit(ctx, e)
	case plan.Sort:
		return ex.buildSort(ctx, e)
	case plan.Union:
		return ex.buildUnion(ctx, e)
	case plan.Broadcast, plan.Exchange, plan.Gather:
		// Single-process reference executor: every distribution enforcer is
		// a pass-through since there is exactly one worker to partition
		// across. A multi-worker executor would exchange/gather here.
		return ex.Build(ctx, e.Input[0])
	case plan.CreateTempTable:
		return ex.buildCreateTempTable(ctx, e)
	case plan.GetTempTable:
		return ex.buildGetTempTable(e)
	case plan.Insert:
		return ex.buildInsert(ctx, e)
	case plan.Values:
		return ex.buildValues(ctx, e)
	case plan.Update:
		return ex.buildUpdate(ctx, e)
	case plan.Delete:
		return ex.buildDelete(ctx, e)
	case plan.Script:
		return ex.buildScript(ctx, e)
	case plan.Call:
		return ex.buildCall(ctx, e)
	case plan.Explain:
		return ex.buildExplain(e)
	default:
		return nil, fmt.Errorf("rowexec: unbuildable plan kind %s", e.Kind)
	}
}

// Drain fully materializes it into a single batch, the exported form of
// drain a caller outside this package (the quill engine, returning a
// Query's whole result set) uses instead of driving Next itself.
func Drain(it kernel.BatchIter, schema sql.Schema) (*kernel.RecordBatch, error) {
	return drain(it, schema)
}

// drain fully materializes it into a single batch, concatenating every
// batch it yields. Used by operators that need their whole input
// resident at once (the hash join build side, Sort, aggregation).
func drain(it kernel.BatchIter, schema sql.Schema) (*kernel.RecordBatch, error) {
	var batches []*kernel.RecordBatch
	for {
		b, err := it.Next()
		if err == kernel.ErrDone {
			break
		}
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if len(batches) == 0 {
		cols := make([]kernel.Column, len(schema))
		for i, c := range schema {
			cols[i] = kernel.Column{Name: c.Name, Array: kernel.NewArray(c.Type, 0)}
		}
		return kernel.NewRecordBatch(cols), nil
	}
	return kernel.Cat(batches), nil
}

// sliceIter replays a single pre-built batch once, then io.EOF.
type sliceIter struct {
	batch *kernel.RecordBatch
	done  bool
}

func (it *sliceIter) Next() (*kernel.RecordBatch, error) {
	if it.done {
		return nil, kernel.ErrDone
	}
	it.done = true
	return it.batch, nil
}
func (it *sliceIter) Close() error { return nil }

// batchesIter replays a fixed sequence of batches in order, then io.EOF.
type batchesIter struct {
	batches []*kernel.RecordBatch
	idx     int
}

func (it *batchesIter) Next() (*kernel.RecordBatch, error) {
	if it.idx >= len(it.batches) {
		return nil, kernel.ErrDone
	}
	b := it.batches[it.idx]
	it.idx++
	return b, nil
}
func (it *batchesIter) Close() error { return nil }

// emptyIter yields no batches.
type emptyIter struct{}

func (emptyIter) Next() (*kernel.RecordBatch, error) { return nil, kernel.ErrDone }
func (emptyIter) Close() error                       { return nil }

// evalAll evaluates every expr against batch, returning one array per
// expr in order.
func evalAll(ctx *sql.Context, exprs []expression.Expr, batch *kernel.RecordBatch) ([]kernel.AnyArray, error) {
	out := make([]kernel.AnyArray, len(exprs))
	for i, e := range exprs {
		a, err := e.Eval(ctx, batch)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}
