package rowexec

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/plan"
)

func (ex *Executor) buildLimit(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	child, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	return &limitIter{child: child, remainingOffset: e.LimitOffset, remainingCount: e.LimitCount}, nil
}

type limitIter struct {
	child           kernel.BatchIter
	remainingOffset int64
	remainingCount  int64
	done            bool
}

func (it *limitIter) Next() (*kernel.RecordBatch, error) {
	if it.done || it.remainingCount <= 0 {
		return nil, kernel.ErrDone
	}
	for {
		batch, err := it.child.Next()
		if err != nil {
			return nil, err
		}
		n := int64(batch.NumRows())
		if it.remainingOffset >= n {
			it.remainingOffset -= n
			continue
		}
		lo := it.remainingOffset
		it.remainingOffset = 0
		hi := n
		if hi-lo > it.remainingCount {
			hi = lo + it.remainingCount
		}
		out := batch.Slice(int(lo), int(hi))
		it.remainingCount -= int64(out.NumRows())
		if it.remainingCount <= 0 {
			it.done = true
		}
		return out, nil
	}
}

func (it *limitIter) Close() error { return it.child.Close() }

func (ex *Executor) buildSort(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	childIt, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	childSchema := e.Input[0].Schema()
	batch, err := drain(childIt, childSchema)
	if err != nil {
		return nil, err
	}
	keyCols := make([]kernel.Column, len(e.SortKeys))
	for i, id := range e.SortKeys {
		idx := childSchema.IndexOf(id)
		keyCols[i] = kernel.Column{Name: childSchema[idx].Name, Array: batch.Array(childSchema[idx].Name)}
	}
	keyBatch := kernel.NewRecordBatch(keyCols)
	perm := keyBatch.Sort(e.SortDesc)
	return &sliceIter{batch: batch.Gather(perm)}, nil
}

// buildUnion is UNION ALL: batches from the left child are streamed
// first, then the right child's. This node carries no dedup step; a
// distinct union would sit a GroupByAggregate with no aggregates on top.
func (ex *Executor) buildUnion(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	left, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	right, err := ex.Build(ctx, e.Input[1])
	if err != nil {
		return nil, err
	}
	return &unionIter{left: left, right: right}, nil
}

type unionIter struct {
	left, right kernel.BatchIter
	leftDone    bool
}

func (it *unionIter) Next() (*kernel.RecordBatch, error) {
	if !it.leftDone {
		b, err := it.left.Next()
		if err == kernel.ErrDone {
			it.leftDone = true
		} else if err != nil {
			return nil, err
		} else {
			return b, nil
		}
	}
	return it.right.Next()
}

func (it *unionIter) Close() error {
	if err := it.left.Close(); err != nil {
		return err
	}
	return it.right.Close()
}
