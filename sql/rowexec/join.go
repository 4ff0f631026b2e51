package rowexec

import (
	"fmt"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/plan"
)

func (ex *Executor) buildNestedLoop(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	build, err := ex.drainJoinSide(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	probe, err := ex.Build(ctx, e.Input[1])
	if err != nil {
		return nil, err
	}

	// JoinEquals and Predicates are independent fields on *plan.Expr: a
	// join whose entire condition is an equi-comparison carries it only
	// in JoinEquals, with Predicates possibly empty. NestedLoop has no
	// separate equi-key fast path, so every JoinEquals pair is folded in
	// here as an ordinary equality predicate before the per-pair scan --
	// otherwise an empty Predicates list would make nestedLoopMatchBatch
	// treat every row pair as matching.
	predicates := e.Predicates
	if len(e.JoinEquals) > 0 {
		buildSchema, probeSchema := e.Input[0].Schema(), e.Input[1].Schema()
		predicates = make([]expression.Expr, 0, len(e.Predicates)+len(e.JoinEquals))
		for _, pair := range e.JoinEquals {
			l := buildSchema[buildSchema.IndexOf(pair.Left)]
			r := probeSchema[probeSchema.IndexOf(pair.Right)]
			predicates = append(predicates, expression.NewEquals(expression.NewColumnRef(l), expression.NewColumnRef(r)))
		}
		predicates = append(predicates, e.Predicates...)
	}

	match := func(probeBatch *kernel.RecordBatch, buildMatched []bool) ([]rowPair, []bool, error) {
		return nestedLoopMatchBatch(ctx, build, probeBatch, predicates, buildMatched)
	}
	return newJoinIter(e, build, probe, match), nil
}

func (ex *Executor) buildHashJoin(ctx *sql.Context, e *plan.Expr) (kernel.BatchIter, error) {
	build, err := ex.drainJoinSide(ctx, e.Input[0])
	if err != nil {
		return nil, err
	}
	probe, err := ex.Build(ctx, e.Input[1])
	if err != nil {
		return nil, err
	}

	buildSchema, probeSchema := e.Input[0].Schema(), e.Input[1].Schema()
	ht := buildHashTable(build, buildSchema, e.JoinEquals)
	match := func(probeBatch *kernel.RecordBatch, buildMatched []bool) ([]rowPair, []bool, error) {
		return ht.matchBatch(ctx, build, probeBatch, probeSchema, e.JoinEquals, e.Predicates, buildMatched)
	}
	return newJoinIter(e, build, probe, match), nil
}

// drainJoinSide fully materializes side -- the one build-side
// materialization per join the executor's memory model budgets for.
// The other side is never drained up front; it is pulled one batch at a
// time through the joinIter's probe child.
func (ex *Executor) drainJoinSide(ctx *sql.Context, side *plan.Expr) (*kernel.RecordBatch, error) {
	it, err := ex.Build(ctx, side)
	if err != nil {
		return nil, err
	}
	return drain(it, side.Schema())
}

type rowPair struct{ build, probe int }

// nestedLoopMatchBatch evaluates predicates for every (build, probe) row
// pair within a single probe batch, the naive algorithm the NestedLoop
// physical node always supports regardless of whether an equi-join key
// exists. buildMatched is the join's whole-run accumulator and is
// updated in place; the returned mask is local to this probe batch.
func nestedLoopMatchBatch(ctx *sql.Context, build, probe *kernel.RecordBatch, predicates []expression.Expr, buildMatched []bool) ([]rowPair, []bool, error) {
	nB, nP := build.NumRows(), probe.NumRows()
	probeMatched := make([]bool, nP)
	var pairs []rowPair
	for i := 0; i < nB; i++ {
		for j := 0; j < nP; j++ {
			ok, err := evalJoinPredicate(ctx, predicates, build, i, probe, j)
			if err != nil {
				return nil, nil, err
			}
			if ok {
				pairs = append(pairs, rowPair{build: i, probe: j})
				buildMatched[i] = true
				probeMatched[j] = true
			}
		}
	}
	return pairs, probeMatched, nil
}

// hashTable is a hash join's build-side index: bucketed by the hash of
// its equi-join columns, built once from the fully materialized build
// batch and then reused to match every probe batch in turn.
type hashTable struct {
	buildArrs []kernel.AnyArray
	buckets   map[int64][]int
}

// buildHashTable indexes build (always the join's left/build side) by
// equals, confirmed later under true per-column equality before any
// residual predicate is checked.
func buildHashTable(build *kernel.RecordBatch, buildSchema sql.Schema, equals []plan.JoinPair) *hashTable {
	buildArrs := make([]kernel.AnyArray, len(equals))
	for i, pair := range equals {
		buildArrs[i] = arrayForColumn(build, buildSchema, pair.Left)
	}
	hash := kernel.HashAll(buildArrs)
	buckets := map[int64][]int{}
	for i := 0; i < build.NumRows(); i++ {
		h, _ := hash.Get(i)
		buckets[h] = append(buckets[h], i)
	}
	return &hashTable{buildArrs: buildArrs, buckets: buckets}
}

// matchBatch probes ht with one probe batch, updating the whole-run
// buildMatched accumulator in place and returning pairs and a
// probe-matched mask local to this batch.
func (ht *hashTable) matchBatch(ctx *sql.Context, build, probe *kernel.RecordBatch, probeSchema sql.Schema, equals []plan.JoinPair, residual []expression.Expr, buildMatched []bool) ([]rowPair, []bool, error) {
	probeArrs := make([]kernel.AnyArray, len(equals))
	for i, pair := range equals {
		probeArrs[i] = arrayForColumn(probe, probeSchema, pair.Right)
	}
	probeHash := kernel.HashAll(probeArrs)
	nP := probe.NumRows()
	probeMatched := make([]bool, nP)
	var pairs []rowPair
	for j := 0; j < nP; j++ {
		h, _ := probeHash.Get(j)
		for _, i := range ht.buckets[h] {
			equal := true
			for k := range equals {
				if !ht.buildArrs[k].EqualAt(i, probeArrs[k], j) {
					equal = false
					break
				}
			}
			if !equal {
				continue
			}
			ok, err := evalJoinPredicate(ctx, residual, build, i, probe, j)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				continue
			}
			pairs = append(pairs, rowPair{build: i, probe: j})
			buildMatched[i] = true
			probeMatched[j] = true
		}
	}
	return pairs, probeMatched, nil
}

func arrayForColumn(batch *kernel.RecordBatch, schema sql.Schema, id sql.ColumnID) kernel.AnyArray {
	idx := schema.IndexOf(id)
	return batch.Array(schema[idx].Name)
}

// evalJoinPredicate evaluates predicates against the single zipped
// (build[i], probe[j]) row, treating an empty predicate list as always true.
func evalJoinPredicate(ctx *sql.Context, predicates []expression.Expr, build *kernel.RecordBatch, i int, probe *kernel.RecordBatch, j int) (bool, error) {
	if len(predicates) == 0 {
		return true, nil
	}
	pair := kernel.Zip(build.Slice(i, i+1), probe.Slice(j, j+1))
	for _, p := range predicates {
		r, err := p.Eval(ctx, pair)
		if err != nil {
			return false, err
		}
		b := r.(*kernel.BoolArray)
		v, ok := b.Get(0)
		if !ok || !v {
			return false, nil
		}
	}
	return true, nil
}

// joinMatchFunc evaluates one probe batch against the fixed build
// batch, returning matched (build, probe) row pairs local to that batch
// and a probe-matched mask local to that batch, while marking
// buildMatched (the whole-run accumulator) in place.
type joinMatchFunc func(probe *kernel.RecordBatch, buildMatched []bool) ([]rowPair, []bool, error)

type joinPhase int

const (
	phaseBuilding joinPhase = iota
	phaseProbing
	phaseEmittingUnmatched
	phaseFinished
)

// joinIter is the streaming per-node state machine NestedLoop and
// HashJoin both drive: one build-side batch is materialized once before
// the iterator ever runs, and every Next() call afterward pulls exactly
// one batch from the probe child and matches it against that fixed
// build batch, so at most one side is ever resident at once. Inner,
// Left, Right, Full, and Single joins emit matched (and, for
// Right/Full, probe-unmatched) rows inline per probe batch; the
// build-side-unmatched rows Left/Full/Single require, and the
// whole-result batch Semi/Anti/Mark require, can only be produced once
// probing is exhausted, so those are deferred to the final
// emitting-unmatched phase.
type joinIter struct {
	kind       plan.JoinKind
	markColumn sql.Column
	build      *kernel.RecordBatch
	emptyProbe *kernel.RecordBatch
	probe      kernel.BatchIter
	match      joinMatchFunc

	phase        joinPhase
	buildMatched []bool
	counts       []int // SingleJoin: matches seen per build row, to catch >1
}

func newJoinIter(e *plan.Expr, build *kernel.RecordBatch, probe kernel.BatchIter, match joinMatchFunc) *joinIter {
	it := &joinIter{
		kind:         e.JoinKind,
		markColumn:   e.MarkColumn,
		build:        build,
		emptyProbe:   emptyBatchFor(e.Input[1].Schema()),
		probe:        probe,
		match:        match,
		phase:        phaseBuilding,
		buildMatched: make([]bool, build.NumRows()),
	}
	if e.JoinKind == plan.SingleJoin {
		it.counts = make([]int, build.NumRows())
	}
	return it
}

func emptyBatchFor(schema sql.Schema) *kernel.RecordBatch {
	cols := make([]kernel.Column, len(schema))
	for i, c := range schema {
		cols[i] = kernel.Column{Name: c.Name, Array: kernel.NewArray(c.Type, 0)}
	}
	return kernel.NewRecordBatch(cols)
}

func (it *joinIter) Next() (*kernel.RecordBatch, error) {
	for {
		switch it.phase {
		case phaseBuilding:
			// Drained eagerly by the caller before the iterator was
			// constructed; nothing left to do but advance.
			it.phase = phaseProbing

		case phaseProbing:
			batch, err := it.probe.Next()
			if err == kernel.ErrDone {
				it.phase = phaseEmittingUnmatched
				continue
			}
			if err != nil {
				return nil, err
			}
			pairs, probeMatched, err := it.match(batch, it.buildMatched)
			if err != nil {
				return nil, err
			}
			if it.kind == plan.SingleJoin {
				for _, p := range pairs {
					it.counts[p.build]++
					if it.counts[p.build] > 1 {
						return nil, fmt.Errorf("rowexec: single join subquery returned more than one row")
					}
				}
			}
			out, ok := it.assembleProbeBatch(batch, pairs, probeMatched)
			if !ok {
				continue
			}
			return out, nil

		case phaseEmittingUnmatched:
			it.phase = phaseFinished
			out := it.assembleFinal()
			if out == nil {
				continue
			}
			return out, nil

		case phaseFinished:
			return nil, kernel.ErrDone
		}
	}
}

func (it *joinIter) Close() error { return it.probe.Close() }

// assembleProbeBatch builds this probe batch's contribution to the join
// output: the inline part every kind except Semi/Anti/Mark can produce
// without waiting for the rest of the probe side.
func (it *joinIter) assembleProbeBatch(probeBatch *kernel.RecordBatch, pairs []rowPair, probeMatched []bool) (*kernel.RecordBatch, bool) {
	switch it.kind {
	case plan.InnerJoin, plan.LeftJoin, plan.SingleJoin:
		li, ri := splitPairs(pairs)
		if len(li) == 0 {
			return nil, false
		}
		return kernel.Zip(it.build.Gather(li), probeBatch.Gather(ri)), true

	case plan.RightJoin, plan.FullJoin:
		li, ri := splitPairs(pairs)
		for j, matched := range probeMatched {
			if !matched {
				li = append(li, -1)
				ri = append(ri, j)
			}
		}
		if len(li) == 0 {
			return nil, false
		}
		return kernel.Zip(it.build.Gather(li), probeBatch.Gather(ri)), true

	default: // Semi, Anti, Mark: nothing to emit until probing is done
		return nil, false
	}
}

// assembleFinal builds the part of the join output that can only be
// known once the whole probe side has been seen: build-side-unmatched
// padding for Left/Full/Single, or the entire result for Semi/Anti/Mark.
// Inner/Right have nothing left to produce.
func (it *joinIter) assembleFinal() *kernel.RecordBatch {
	switch it.kind {
	case plan.LeftJoin, plan.FullJoin, plan.SingleJoin:
		var li, ri []int
		for i, matched := range it.buildMatched {
			if !matched {
				li = append(li, i)
				ri = append(ri, -1)
			}
		}
		if len(li) == 0 {
			return nil
		}
		return kernel.Zip(it.build.Gather(li), it.emptyProbe.Gather(ri))

	case plan.SemiJoin:
		var li []int
		for i, matched := range it.buildMatched {
			if matched {
				li = append(li, i)
			}
		}
		return it.build.Gather(li)

	case plan.AntiJoin:
		var li []int
		for i, matched := range it.buildMatched {
			if !matched {
				li = append(li, i)
			}
		}
		return it.build.Gather(li)

	case plan.MarkJoin:
		mark := kernel.NewBoolArray(len(it.buildMatched))
		for _, matched := range it.buildMatched {
			mark.Push(matched, true)
		}
		li := make([]int, len(it.buildMatched))
		for i := range li {
			li[i] = i
		}
		out := it.build.Gather(li)
		out.Columns = append(out.Columns, kernel.Column{Name: it.markColumn.Name, Array: mark})
		return out

	default:
		return nil
	}
}

func splitPairs(pairs []rowPair) (build, probe []int) {
	build = make([]int, len(pairs))
	probe = make([]int, len(pairs))
	for i, p := range pairs {
		build[i] = p.build
		probe[i] = p.probe
	}
	return build, probe
}
