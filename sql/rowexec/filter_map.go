package rowexec

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/plan"
)

func (ex *Executor) buildFilter(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	child, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	return &filterIter{ctx: ctx, e: e, child: child}, nil
}

type filterIter struct {
	ctx   *sql.Context
	e     *plan.Expr
	child kernel.BatchIter
}

func (it *filterIter) Next() (*kernel.RecordBatch, error) {
	for {
		batch, err := it.child.Next()
		if err != nil {
			return nil, err
		}
		mask, err := evalPredicates(it.ctx, it.e.Predicates, batch)
		if err != nil {
			return nil, err
		}
		out := batch.Compress(mask)
		if out.NumRows() == 0 {
			continue
		}
		return out, nil
	}
}

func (it *filterIter) Close() error { return it.child.Close() }

// evalPredicates ANDs every predicate together under three-valued SQL
// logic, then folds NULL (unknown) to false the way a WHERE clause keeps
// only rows the predicate provably satisfies.
func evalPredicates(ctx *sql.Context, predicates []expression.Expr, batch *kernel.RecordBatch) (*kernel.BoolArray, error) {
	n := batch.NumRows()
	mask := kernel.NewBoolArray(n)
	if len(predicates) == 0 {
		for i := 0; i < n; i++ {
			mask.Push(true, true)
		}
		return mask, nil
	}
	results := make([]kernel.AnyArray, len(predicates))
	for i, p := range predicates {
		r, err := p.Eval(ctx, batch)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	for row := 0; row < n; row++ {
		keep := true
		for _, r := range results {
			b := r.(*kernel.BoolArray)
			v, ok := b.Get(row)
			if !ok || !v {
				keep = false
				break
			}
		}
		mask.Push(keep, true)
	}
	return mask, nil
}

func (ex *Executor) buildMap(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	child, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	return &mapIter{ctx: ctx, e: e, child: child}, nil
}

type mapIter struct {
	ctx   *sql.Context
	e     *plan.Expr
	child kernel.BatchIter
}

func (it *mapIter) Next() (*kernel.RecordBatch, error) {
	batch, err := it.child.Next()
	if err != nil {
		return nil, err
	}
	cols := make([]kernel.Column, len(it.e.Projects))
	for i, p := range it.e.Projects {
		a, err := p.Eval(it.ctx, batch)
		if err != nil {
			return nil, err
		}
		cols[i] = kernel.Column{Name: it.e.Columns[i].Name, Array: a}
	}
	return kernel.NewRecordBatch(cols), nil
}

func (it *mapIter) Close() error { return it.child.Close() }
