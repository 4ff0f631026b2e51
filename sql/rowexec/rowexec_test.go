package rowexec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quilldb/quill/catalog"
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/plan"
	"github.com/quilldb/quill/storage/memheap"
)

func newXCol(name string, typ kernel.Type) sql.Column {
	return sql.Column{ID: sql.NewColumnID(), Name: name, Type: typ}
}

func newCatalogWithTable(t *testing.T, table string, schema sql.Schema, rows ...int64) *catalog.Catalog {
	t.Helper()
	cat := catalog.New(0)
	heap := memheap.New(schema)
	require.NoError(t, cat.CreateTable(table, schema, heap))
	if len(rows) > 0 {
		arr := kernel.NewI64Array(len(rows))
		for _, v := range rows {
			arr.Push(v, true)
		}
		batch := kernel.NewRecordBatch([]kernel.Column{{Name: schema[0].Name, Array: arr}})
		_, err := heap.Insert(sql.NewEmptyContext(), batch)
		require.NoError(t, err)
	}
	return cat
}

func drainAll(t *testing.T, it kernel.BatchIter) *kernel.RecordBatch {
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

func TestSeqScanFilterMapPipeline(t *testing.T) {
	x := newXCol("x", kernel.Int64)
	cat := newCatalogWithTable(t, "t", sql.Schema{x}, 1, 2, 3, 4)

	scan := plan.NewSeqScan("t", sql.Schema{x})
	ref := expression.NewColumnRef(x)
	filter := plan.NewFilter(scan, expression.NewGreaterThan(ref, expression.NewLiteral(int64(2), kernel.Int64)))
	y := newXCol("y", kernel.Int64)
	mp := plan.NewMap(filter, []expression.Expr{expression.NewPlus(ref, expression.NewLiteral(int64(10), kernel.Int64))}, sql.Schema{y})

	ex := New(cat)
	it, err := ex.Build(sql.NewEmptyContext(), mp)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 2, out.NumRows())

	arr := out.Array("y").(*kernel.Int64Array)
	v0, _ := arr.Get(0)
	v1, _ := arr.Get(1)
	require.Equal(t, int64(13), v0)
	require.Equal(t, int64(14), v1)
}

func TestNestedLoopInnerJoin(t *testing.T) {
	a := newXCol("a", kernel.Int64)
	b := newXCol("b", kernel.Int64)
	cat := newCatalogWithTable(t, "l", sql.Schema{a}, 1, 2)
	catR := newCatalogWithTable(t, "r", sql.Schema{b}, 2, 3)
	// Merge r's table definition into cat so a single Executor sees both.
	rTable, err := catR.Table("r")
	require.NoError(t, err)
	require.NoError(t, cat.CreateTable("r", sql.Schema{b}, rTable.Heap))

	left := plan.NewSeqScan("l", sql.Schema{a})
	right := plan.NewSeqScan("r", sql.Schema{b})
	join := plan.NewNestedLoop(plan.InnerJoin, left, right, []expression.Expr{
		expression.NewEquals(expression.NewColumnRef(a), expression.NewColumnRef(b)),
	})

	ex := New(cat)
	it, err := ex.Build(sql.NewEmptyContext(), join)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 1, out.NumRows())
	av, _ := out.Array("a").(*kernel.Int64Array).Get(0)
	require.Equal(t, int64(2), av)
}

// A LogicalJoin whose entire condition lives in JoinEquals (no residual
// Predicates) is the shape every decorrelation/transform rule in
// sql/memo produces; NestedLoop must still treat it as an equi-join
// rather than a cross product just because Predicates is empty.
func TestNestedLoopInnerJoinHonorsJoinEqualsWithNoResidualPredicates(t *testing.T) {
	a := newXCol("a", kernel.Int64)
	b := newXCol("b", kernel.Int64)
	cat := newCatalogWithTable(t, "l", sql.Schema{a}, 1, 2, 3)
	catR := newCatalogWithTable(t, "r", sql.Schema{b}, 2, 3, 4)
	rTable, err := catR.Table("r")
	require.NoError(t, err)
	require.NoError(t, cat.CreateTable("r", sql.Schema{b}, rTable.Heap))

	left := plan.NewSeqScan("l", sql.Schema{a})
	right := plan.NewSeqScan("r", sql.Schema{b})
	join := &plan.Expr{
		Kind:       plan.NestedLoop,
		Input:      []*plan.Expr{left, right},
		JoinKind:   plan.InnerJoin,
		JoinEquals: []plan.JoinPair{{Left: a.ID, Right: b.ID}},
	}

	ex := New(cat)
	it, err := ex.Build(sql.NewEmptyContext(), join)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 2, out.NumRows(), "expected only the two matching (a=b) pairs, not the 3x3 cross product")
}

func TestHashJoinInnerJoin(t *testing.T) {
	a := newXCol("a", kernel.Int64)
	b := newXCol("b", kernel.Int64)
	cat := newCatalogWithTable(t, "l", sql.Schema{a}, 1, 2, 3)
	catR := newCatalogWithTable(t, "r", sql.Schema{b}, 2, 3, 4)
	rTable, err := catR.Table("r")
	require.NoError(t, err)
	require.NoError(t, cat.CreateTable("r", sql.Schema{b}, rTable.Heap))

	left := plan.NewSeqScan("l", sql.Schema{a})
	right := plan.NewSeqScan("r", sql.Schema{b})
	join := plan.NewHashJoin(plan.InnerJoin, left, right, []plan.JoinPair{{Left: a.ID, Right: b.ID}}, nil)

	ex := New(cat)
	it, err := ex.Build(sql.NewEmptyContext(), join)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 2, out.NumRows())
}

func TestSimpleAggregateSum(t *testing.T) {
	x := newXCol("x", kernel.Int64)
	cat := newCatalogWithTable(t, "t", sql.Schema{x}, 1, 2, 3)
	scan := plan.NewSeqScan("t", sql.Schema{x})
	sumOut := newXCol("sum_x", kernel.Int64)
	agg := plan.NewSimpleAggregate(scan, []expression.AggregateExpr{
		expression.NewAggregateExpr(expression.Sum, expression.NewColumnRef(x), sumOut),
	})

	ex := New(cat)
	it, err := ex.Build(sql.NewEmptyContext(), agg)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 1, out.NumRows())
	v, ok := out.Array("sum_x").(*kernel.Int64Array).Get(0)
	require.True(t, ok)
	require.Equal(t, int64(6), v)
}

func TestGroupByAggregateCountPerGroup(t *testing.T) {
	g := newXCol("g", kernel.Int64)
	x := newXCol("x", kernel.Int64)
	schema := sql.Schema{g, x}
	cat := catalog.New(0)
	heap := memheap.New(schema)
	require.NoError(t, cat.CreateTable("t", schema, heap))
	gArr := kernel.NewI64Array(4)
	xArr := kernel.NewI64Array(4)
	for _, v := range []int64{1, 1, 2, 2} {
		gArr.Push(v, true)
	}
	for _, v := range []int64{10, 20, 30, 40} {
		xArr.Push(v, true)
	}
	batch := kernel.NewRecordBatch([]kernel.Column{{Name: "g", Array: gArr}, {Name: "x", Array: xArr}})
	_, err := heap.Insert(sql.NewEmptyContext(), batch)
	require.NoError(t, err)

	scan := plan.NewSeqScan("t", schema)
	countOut := newXCol("count_x", kernel.Int64)
	agg := plan.NewGroupByAggregate(scan, sql.NewColSet(g.ID), []expression.AggregateExpr{
		expression.NewAggregateExpr(expression.Count, expression.NewColumnRef(x), countOut),
	})

	ex := New(cat)
	it, err := ex.Build(sql.NewEmptyContext(), agg)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 2, out.NumRows())
	for i := 0; i < 2; i++ {
		v, ok := out.Array("count_x").(*kernel.Int64Array).Get(i)
		require.True(t, ok)
		require.Equal(t, int64(2), v)
	}
}

func TestLimitOffset(t *testing.T) {
	x := newXCol("x", kernel.Int64)
	cat := newCatalogWithTable(t, "t", sql.Schema{x}, 1, 2, 3, 4, 5)
	scan := plan.NewSeqScan("t", sql.Schema{x})
	limit := plan.NewLimit(scan, 2, 1)

	ex := New(cat)
	it, err := ex.Build(sql.NewEmptyContext(), limit)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 2, out.NumRows())
	v0, _ := out.Array("x").(*kernel.Int64Array).Get(0)
	v1, _ := out.Array("x").(*kernel.Int64Array).Get(1)
	require.Equal(t, int64(2), v0)
	require.Equal(t, int64(3), v1)
}

func TestSortDescending(t *testing.T) {
	x := newXCol("x", kernel.Int64)
	cat := newCatalogWithTable(t, "t", sql.Schema{x}, 3, 1, 2)
	scan := plan.NewSeqScan("t", sql.Schema{x})
	sortNode := plan.NewSort(scan, []sql.ColumnID{x.ID}, []bool{true})

	ex := New(cat)
	it, err := ex.Build(sql.NewEmptyContext(), sortNode)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 3, out.NumRows())
	arr := out.Array("x").(*kernel.Int64Array)
	for i, want := range []int64{3, 2, 1} {
		v, _ := arr.Get(i)
		require.Equal(t, want, v)
	}
}

func TestUnionAllStreamsBothSides(t *testing.T) {
	x := newXCol("x", kernel.Int64)
	cat := newCatalogWithTable(t, "l", sql.Schema{x}, 1, 2)
	catR := newCatalogWithTable(t, "r", sql.Schema{x}, 3)
	rTable, err := catR.Table("r")
	require.NoError(t, err)
	require.NoError(t, cat.CreateTable("r", sql.Schema{x}, rTable.Heap))

	union := plan.NewUnion(plan.NewSeqScan("l", sql.Schema{x}), plan.NewSeqScan("r", sql.Schema{x}))
	ex := New(cat)
	it, err := ex.Build(sql.NewEmptyContext(), union)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 3, out.NumRows())
}

func TestInsertThenDeleteAffectsHeapAndReportsRowsAffected(t *testing.T) {
	x := newXCol("x", kernel.Int64)
	cat := catalog.New(0)
	require.NoError(t, cat.CreateTable("t", sql.Schema{x}, memheap.New(sql.Schema{x})))

	one := expression.NewLiteral(int64(1), kernel.Int64)
	two := expression.NewLiteral(int64(2), kernel.Int64)
	values := plan.NewValues([][]expression.Expr{{one}, {two}}, sql.Schema{x})
	insert := plan.NewInsert(values, "t", sql.Schema{x})

	ex := New(cat)
	ctx := sql.NewEmptyContext()
	it, err := ex.Build(ctx, insert)
	require.NoError(t, err)
	inserted := drainAll(t, it)
	n, ok := inserted.Array("rows_affected").(*kernel.Int64Array).Get(0)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	del := plan.NewDelete(plan.NewFilter(plan.NewSeqScan("t", sql.Schema{x}), expression.NewEquals(expression.NewColumnRef(x), one)), "t")
	it, err = ex.Build(ctx, del)
	require.NoError(t, err)
	deleted := drainAll(t, it)
	dn, ok := deleted.Array("rows_affected").(*kernel.Int64Array).Get(0)
	require.True(t, ok)
	require.Equal(t, int64(1), dn)

	scanIt, err := ex.Build(ctx, plan.NewSeqScan("t", sql.Schema{x}))
	require.NoError(t, err)
	remaining := drainAll(t, scanIt)
	require.Equal(t, 1, remaining.NumRows())
}

func TestScriptCreateTempTableThenGetTempTable(t *testing.T) {
	x := newXCol("x", kernel.Int64)
	cat := newCatalogWithTable(t, "t", sql.Schema{x}, 1, 2, 3)

	create := plan.NewCreateTempTable(plan.NewSeqScan("t", sql.Schema{x}), "cte")
	get := plan.NewGetTempTable("cte", sql.Schema{x})
	script := plan.NewScript(create, get)

	ex := New(cat)
	it, err := ex.Build(sql.NewEmptyContext(), script)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 3, out.NumRows())
}

func TestGetTempTableWithoutCreateErrors(t *testing.T) {
	cat := catalog.New(0)
	ex := New(cat)
	_, err := ex.Build(sql.NewEmptyContext(), plan.NewGetTempTable("missing", sql.Schema{}))
	require.Error(t, err)
	require.True(t, sql.ErrTempTableNotFound.Is(err))
}

func TestExplainRendersWrappedPlanWithoutRunningIt(t *testing.T) {
	cat := catalog.New(0)
	ex := New(cat)
	explain := plan.NewExplain(plan.NewMap(plan.NewTableFreeScan(), []expression.Expr{expression.NewLiteral(int64(1), kernel.Int64)}, sql.Schema{newXCol("one", kernel.Int64)}))
	it, err := ex.Build(sql.NewEmptyContext(), explain)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 1, out.NumRows())
	s, _ := out.Array("plan").(*kernel.StringArray).Get(0)
	require.Contains(t, s, "TableFreeScan")
	require.Contains(t, s, "Map")
}

func TestUnbuildableLogicalKindErrors(t *testing.T) {
	cat := catalog.New(0)
	ex := New(cat)
	_, err := ex.Build(sql.NewEmptyContext(), plan.NewLogicalGet("t", sql.Schema{}))
	require.Error(t, err)
}

func TestIndexScanWithoutInputHonorsBounds(t *testing.T) {
	x := newXCol("x", kernel.Int64)
	cat := newCatalogWithTable(t, "t", sql.Schema{x}, 10, 20, 30)
	require.NoError(t, cat.CreateIndex("t", "t_x", []sql.ColumnID{x.ID}, false))

	ex := New(cat)
	require.NoError(t, ex.BackfillIndex(sql.NewEmptyContext(), "t", "t_x"))

	scan := plan.NewIndexScan(nil, "t", "t_x", expression.NewLiteral(int64(20), kernel.Int64), nil, sql.Schema{x}, false)
	it, err := ex.Build(sql.NewEmptyContext(), scan)
	require.NoError(t, err)
	out := drainAll(t, it)
	require.Equal(t, 1, out.NumRows())
	v, ok := out.Array("x").(*kernel.Int64Array).Get(0)
	require.True(t, ok)
	require.Equal(t, int64(20), v)
}

func TestBackfillIndexKeysExistingRows(t *testing.T) {
	x := newXCol("x", kernel.Int64)
	cat := newCatalogWithTable(t, "t", sql.Schema{x}, 10, 20, 30)
	require.NoError(t, cat.CreateIndex("t", "t_x", []sql.ColumnID{x.ID}, false))

	ex := New(cat)
	require.NoError(t, ex.BackfillIndex(sql.NewEmptyContext(), "t", "t_x"))

	idx, err := cat.Index("t", "t_x")
	require.NoError(t, err)
	arr := kernel.NewI64Array(1)
	arr.Push(20, true)
	key := catalog.EncodeKey([]kernel.AnyArray{arr}, 0)
	_, ok := idx.Tree.Get(key)
	require.True(t, ok, "backfill must key every row already resident in the heap")
}
