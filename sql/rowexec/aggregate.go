package rowexec

import (
	"github.com/quilldb/quill/catalog"
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/plan"
	"github.com/shopspring/decimal"
)

func (ex *Executor) buildSimpleAggregate(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	childIt, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	batch, err := drain(childIt, e.Input[0].Schema())
	if err != nil {
		return nil, err
	}
	members := make([]int, batch.NumRows())
	for i := range members {
		members[i] = i
	}
	cols, err := aggregateColumns(ctx, e.Aggregates, batch, [][]int{members})
	if err != nil {
		return nil, err
	}
	return &sliceIter{batch: kernel.NewRecordBatch(cols)}, nil
}

func (ex *Executor) buildGroupByAggregate(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	childIt, err := ex.Build(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	childSchema := e.Input[0].Schema()
	batch, err := drain(childIt, childSchema)
	if err != nil {
		return nil, err
	}

	var keyCols []sql.Column
	var keyArrays []kernel.AnyArray
	for _, c := range childSchema {
		if e.GroupBy.Contains(c.ID) {
			keyCols = append(keyCols, c)
			keyArrays = append(keyArrays, batch.Array(c.Name))
		}
	}

	groups, reps := groupRows(keyArrays, batch.NumRows())

	keyOutCols := make([]kernel.Column, len(keyCols))
	repIndices := make([]int, len(reps))
	copy(repIndices, reps)
	for i, c := range keyCols {
		keyOutCols[i] = kernel.Column{Name: c.Name, Array: keyArrays[i].Gather(repIndices)}
	}
	aggOutCols, err := aggregateColumns(ctx, e.Aggregates, batch, groups)
	if err != nil {
		return nil, err
	}
	return &sliceIter{batch: kernel.NewRecordBatch(append(keyOutCols, aggOutCols...))}, nil
}

// groupRows partitions [0, n) into groups of equal key-array values,
// returning each group's member row indices and one representative row
// index per group (the first row encountered), in first-seen order.
func groupRows(keyArrays []kernel.AnyArray, n int) (groups [][]int, reps []int) {
	hashed := kernel.HashAll(keyArrays)
	buckets := map[int64][]int{} // hash -> group indices into `groups`
	for row := 0; row < n; row++ {
		h, _ := hashed.Get(row)
		found := -1
		for _, gi := range buckets[h] {
			if rowsEqual(keyArrays, reps[gi], row) {
				found = gi
				break
			}
		}
		if found < 0 {
			buckets[h] = append(buckets[h], len(groups))
			groups = append(groups, []int{row})
			reps = append(reps, row)
		} else {
			groups[found] = append(groups[found], row)
		}
	}
	return groups, reps
}

func rowsEqual(arrays []kernel.AnyArray, i, j int) bool {
	for _, a := range arrays {
		if !a.EqualAt(i, a, j) {
			return false
		}
	}
	return true
}

// aggregateColumns evaluates every aggregate's argument once over the
// whole batch, then folds each group's member rows through the
// appropriate typed accumulator.
func aggregateColumns(ctx *sql.Context, aggs []expression.AggregateExpr, batch *kernel.RecordBatch, groups [][]int) ([]kernel.Column, error) {
	out := make([]kernel.Column, len(aggs))
	for i, agg := range aggs {
		var argArr kernel.AnyArray
		if agg.Arg != nil {
			a, err := agg.Arg.Eval(ctx, batch)
			if err != nil {
				return nil, err
			}
			argArr = a
		}
		result := kernel.NewArray(agg.ResultType(), len(groups))
		for _, members := range groups {
			accumulate(result, agg.Kind, argArr, members)
		}
		out[i] = kernel.Column{Name: agg.Output.Name, Array: result}
	}
	return out, nil
}

func accumulate(out kernel.AnyArray, kind expression.AggKind, arg kernel.AnyArray, members []int) {
	switch kind {
	case expression.Count:
		if arg == nil {
			pushInt64(out, int64(len(members)))
			return
		}
		n := int64(0)
		for _, r := range members {
			if !arg.IsNull(r) {
				n++
			}
		}
		pushInt64(out, n)

	case expression.CountDistinct:
		seen := map[string]struct{}{}
		for _, r := range members {
			if arg.IsNull(r) {
				continue
			}
			seen[string(catalog.EncodeKey([]kernel.AnyArray{arg}, r))] = struct{}{}
		}
		pushInt64(out, int64(len(seen)))

	case expression.LogicalAnd, expression.LogicalOr:
		result, any := kind == expression.LogicalAnd, false
		for _, r := range members {
			if arg.IsNull(r) {
				continue
			}
			b := arg.(*kernel.BoolArray)
			v, _ := b.Get(r)
			any = true
			if kind == expression.LogicalAnd {
				result = result && v
			} else {
				result = result || v
			}
		}
		if !any {
			out.AppendNull()
			return
		}
		pushBool(out, result)

	case expression.Max, expression.Min:
		best := -1
		for _, r := range members {
			if arg.IsNull(r) {
				continue
			}
			if best < 0 {
				best = r
				continue
			}
			cmp := arg.CompareAt(r, arg, best)
			if (kind == expression.Max && cmp > 0) || (kind == expression.Min && cmp < 0) {
				best = r
			}
		}
		if best < 0 {
			out.AppendNull()
			return
		}
		out.AppendFrom(arg, best)

	case expression.AnyValue:
		if len(members) == 0 {
			out.AppendNull()
			return
		}
		out.AppendFrom(arg, members[0])

	case expression.Sum, expression.SumDistinct:
		seen := map[string]struct{}{}
		sumInt, any := int64(0), false
		sumFloat := 0.0
		sumDec := decimal.Zero
		for _, r := range members {
			if arg.IsNull(r) {
				continue
			}
			if kind == expression.SumDistinct {
				key := string(catalog.EncodeKey([]kernel.AnyArray{arg}, r))
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			any = true
			switch a := arg.(type) {
			case *kernel.Int64Array:
				v, _ := a.Get(r)
				sumInt += v
			case *kernel.Float64Array:
				v, _ := a.Get(r)
				sumFloat += v
			case *kernel.DecimalArray:
				v, _ := a.Get(r)
				sumDec = sumDec.Add(v)
			}
		}
		if !any {
			out.AppendNull()
			return
		}
		switch arg.(type) {
		case *kernel.Int64Array:
			pushInt64(out, sumInt)
		case *kernel.Float64Array:
			pushFloat64(out, sumFloat)
		case *kernel.DecimalArray:
			pushDecimal(out, sumDec)
		}
	}
}

func pushInt64(out kernel.AnyArray, v int64)         { out.(*kernel.Int64Array).Push(v, true) }
func pushFloat64(out kernel.AnyArray, v float64)     { out.(*kernel.Float64Array).Push(v, true) }
func pushBool(out kernel.AnyArray, v bool)           { out.(*kernel.BoolArray).Push(v, true) }
func pushDecimal(out kernel.AnyArray, v decimal.Decimal) { out.(*kernel.DecimalArray).Push(v, true) }
