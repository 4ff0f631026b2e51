package rowexec

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/plan"
)

// buildScript runs every statement in order, draining each to completion
// before starting the next (so a CreateTempTable statement finishes
// materializing before the statement reading it back begins), and
// returns the last statement's iterator as the script's result set.
func (ex *Executor) buildScript(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	var last kernel.BatchIter
	for i, stmt := range e.Input {
		it, err := ex.Build(ctx, stmt)
		if err != nil {
			return nil, err
		}
		if i == len(e.Input)-1 {
			last = it
			continue
		}
		if _, err := drain(it, stmt.Schema()); err != nil {
			return nil, err
		}
	}
	if last == nil {
		return emptyIter{}, nil
	}
	return last, nil
}

func (ex *Executor) buildCreateTempTable(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	childIt, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	var batches []*kernel.RecordBatch
	for {
		b, err := childIt.Next()
		if err == kernel.ErrDone {
			break
		}
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	ex.mu.Lock()
	ex.temp[e.Name] = batches
	ex.mu.Unlock()
	return emptyIter{}, nil
}

func (ex *Executor) buildGetTempTable(e *plan.Expr) (kernel.BatchIter, error) {
	ex.mu.Lock()
	batches, ok := ex.temp[e.Name]
	ex.mu.Unlock()
	if !ok {
		return nil, sql.ErrTempTableNotFound.New(e.Name)
	}
	return &batchesIter{batches: batches}, nil
}

// buildCall executes a stored procedure body (its Input) and discards
// the result, mirroring a CALL statement's fire-and-forget semantics;
// Args are resolved bind values a higher layer has already pushed into
// ctx's parameter vector before this node runs.
func (ex *Executor) buildCall(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	childIt, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	if _, err := drain(childIt, e.Input[0].Schema()); err != nil {
		return nil, err
	}
	return emptyIter{}, nil
}

// buildExplain renders the physical plan tree as a single string column,
// never running the wrapped plan.
func (ex *Executor) buildExplain(e *plan.Expr) (kernel.BatchIter, error) {
	arr := kernel.NewStringArray(1)
	arr.Push(e.Input[0].String(), true)
	batch := kernel.NewRecordBatch([]kernel.Column{{Name: "plan", Array: arr}})
	return &sliceIter{batch: batch}, nil
}
