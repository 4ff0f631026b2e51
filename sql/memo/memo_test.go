package memo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/plan"
)

// fakeCatalog is a stub memo.Catalog; its RowCount lets a test bias the
// optimizer's cost model without a real catalog.Catalog and its
// storage/index machinery.
type fakeCatalog struct {
	rowCounts map[string]int64
}

func (f *fakeCatalog) RowCount(table string) int64 {
	if f == nil {
		return 1000
	}
	if n, ok := f.rowCounts[table]; ok {
		return n
	}
	return 1000
}

func (f *fakeCatalog) Selectivity(table, predicate string) float64 {
	return defaultSelectivity
}

func col(name string, typ kernel.Type) sql.Column {
	return sql.Column{ID: sql.NewColumnID(), Name: name, Type: typ}
}

func TestOptimizeTableFreeScanWinsOverLogicalSingleGet(t *testing.T) {
	m := New(&fakeCatalog{})
	single := &plan.Expr{Kind: plan.LogicalSingleGet}
	physical, err := m.OptimizeStatement(single)
	require.NoError(t, err)
	require.Equal(t, plan.TableFreeScan, physical.Kind)
}

func TestOptimizeGetLowersToSeqScanWhenNoIndexApplies(t *testing.T) {
	m := New(&fakeCatalog{})
	get := plan.NewLogicalGet("t", sql.Schema{col("x", kernel.Int64)})
	physical, err := m.OptimizeStatement(get)
	require.NoError(t, err)
	require.Equal(t, plan.SeqScan, physical.Kind)
}

// For every plan P containing LogicalJoin(Inner, L, R), the optimizer
// explores at least one commuted variant (R join L) during search, even
// though the cost-minimal winner may still be the original order.
func TestInnerJoinExploresCommutedVariant(t *testing.T) {
	m := New(&fakeCatalog{rowCounts: map[string]int64{"l": 10, "r": 10000}})
	l := plan.NewLogicalGet("l", sql.Schema{col("a", kernel.Int64)})
	r := plan.NewLogicalGet("r", sql.Schema{col("b", kernel.Int64)})
	join := plan.NewLogicalJoin(plan.InnerJoin, l, r, []plan.JoinPair{{Left: l.TableSchema[0].ID, Right: r.TableSchema[0].ID}}, nil)

	gid := m.CopyIn(join)
	require.NoError(t, m.exploreGroup(gid))

	g := m.group(gid)
	require.True(t, len(g.Logical) >= 2, "expected at least the original join plus a commuted alternative, got %d logical members", len(g.Logical))

	sawOriginalOrder, sawCommuted := false, false
	for _, me := range g.Logical {
		if me.Expr.Kind != plan.LogicalJoin {
			continue
		}
		left := m.group(me.ChildGroups()[0])
		if left.Props.Schema[0].Name == "a" {
			sawOriginalOrder = true
		}
		if left.Props.Schema[0].Name == "b" {
			sawCommuted = true
		}
	}
	require.True(t, sawOriginalOrder)
	require.True(t, sawCommuted, "InnerJoinCommute should have produced a reordered alternative")
}

// When L itself is an inner join ((a join b) join c), associativity
// should expose at least one re-bracketed alternative (a join (b join c))
// in the same group.
func TestInnerJoinExploresAssociativeVariant(t *testing.T) {
	m := New(&fakeCatalog{})
	a := plan.NewLogicalGet("a", sql.Schema{col("a", kernel.Int64)})
	b := plan.NewLogicalGet("b", sql.Schema{col("b", kernel.Int64)})
	c := plan.NewLogicalGet("c", sql.Schema{col("c", kernel.Int64)})

	ab := plan.NewLogicalJoin(plan.InnerJoin, a, b, []plan.JoinPair{{Left: a.TableSchema[0].ID, Right: b.TableSchema[0].ID}}, nil)
	abc := plan.NewLogicalJoin(plan.InnerJoin, ab, c, []plan.JoinPair{{Left: b.TableSchema[0].ID, Right: c.TableSchema[0].ID}}, nil)

	gid := m.CopyIn(abc)
	require.NoError(t, m.exploreGroup(gid))

	g := m.group(gid)
	require.True(t, len(g.Logical) >= 2, "expected the optimizer to find at least one re-bracketed alternative, got %d", len(g.Logical))
}

func TestOptimizeStatementDDLPassesThroughUnconverted(t *testing.T) {
	m := New(&fakeCatalog{})
	create := plan.NewLogicalCreateTable("t", sql.Schema{col("x", kernel.Int64)})
	out, err := m.OptimizeStatement(create)
	require.NoError(t, err)
	require.Equal(t, plan.LogicalCreateTable, out.Kind, "DDL has no physical counterpart and must pass through OptimizeStatement unconverted")
}

func TestOptimizeStatementUpdateLowersToSingleUpdateNode(t *testing.T) {
	m := New(&fakeCatalog{})
	x := col("x", kernel.Int64)
	get := plan.NewLogicalGet("t", sql.Schema{x})
	update := plan.NewLogicalUpdate("t", sql.Schema{x}, get, nil)
	out, err := m.OptimizeStatement(update)
	require.NoError(t, err)
	require.Equal(t, plan.Update, out.Kind)
	require.Len(t, out.Input, 1)
}

func TestOptimizeStatementWithLowersToCreateTempTableThenBody(t *testing.T) {
	m := New(&fakeCatalog{})
	x := col("x", kernel.Int64)
	cte := plan.NewLogicalGet("t", sql.Schema{x})
	body := plan.NewLogicalGetWith("cte", sql.Schema{x})
	with := plan.NewLogicalWith("cte", cte, body)
	out, err := m.OptimizeStatement(with)
	require.NoError(t, err)
	require.Equal(t, plan.Script, out.Kind)
	require.Equal(t, plan.CreateTempTable, out.Input[0].Kind)
	require.Equal(t, plan.GetTempTable, out.Input[1].Kind)
}

// A LogicalGetWith nested under a UNION (rather than passed directly to
// OptimizeStatement) is memoized through the ordinary CopyIn path, not
// OptimizeStatement's top-level LogicalWith special case, so it needs
// its own implementation rule to avoid ending the search with no
// physical winner for its group.
func TestOptimizeStatementWithBodyUnionOfTwoGetWithReferences(t *testing.T) {
	m := New(&fakeCatalog{})
	x := col("x", kernel.Int64)
	cte := plan.NewLogicalGet("t", sql.Schema{x})
	left := plan.NewLogicalGetWith("cte", sql.Schema{x})
	right := plan.NewLogicalGetWith("cte", sql.Schema{x})
	body := plan.NewLogicalUnion(left, right)
	with := plan.NewLogicalWith("cte", cte, body)

	out, err := m.OptimizeStatement(with)
	require.NoError(t, err)
	require.Equal(t, plan.Script, out.Kind)
	require.Equal(t, plan.CreateTempTable, out.Input[0].Kind)

	union := out.Input[1]
	require.Equal(t, plan.Union, union.Kind)
	require.Equal(t, plan.GetTempTable, union.Input[0].Kind)
	require.Equal(t, plan.GetTempTable, union.Input[1].Kind)
}

// An inner join whose build side is a bare LogicalGet carrying an index
// hint over the equi-join column explores an IndexScan-driven lookup
// join alongside NestedLoop/HashJoin (spec.md's LogicalJoin -> ...
// IndexScan-driven lookup join mapping).
func TestInnerJoinExploresIndexLookupJoinWhenBuildSideIsIndexed(t *testing.T) {
	m := New(&fakeCatalog{})
	a := col("a", kernel.Int64)
	b := col("b", kernel.Int64)
	l := plan.NewLogicalGet("l", sql.Schema{a})
	r := plan.NewLogicalGet("r", sql.Schema{b})
	r.IndexHints = []string{"r_b_idx"}
	join := plan.NewLogicalJoin(plan.InnerJoin, l, r, []plan.JoinPair{{Left: a.ID, Right: b.ID}}, nil)

	gid := m.CopyIn(join)
	require.NoError(t, m.optimizeGroup(gid))

	g := m.group(gid)
	sawIndexLookup := false
	for _, me := range g.Physical {
		if me.Expr.Kind == plan.IndexScan && me.Expr.IndexName == "r_b_idx" && me.Expr.IncludeExisting {
			sawIndexLookup = true
		}
	}
	require.True(t, sawIndexLookup, "expected an IndexScan-driven lookup join among the group's physical alternatives")
}

// A single-table equality filter over an indexed column explores a
// bounded IndexScan alongside Filter(SeqScan), consuming the predicate
// into the scan's lookup bound instead of leaving it as a residual
// per-row check (spec.md's LogicalGet -> IndexScan mapping).
func TestFilterOverIndexedGetExploresBoundedIndexScan(t *testing.T) {
	m := New(&fakeCatalog{})
	x := col("x", kernel.Int64)
	get := plan.NewLogicalGet("t", sql.Schema{x})
	get.IndexHints = []string{"t_x_idx"}
	pred := expression.NewEquals(expression.NewColumnRef(x), expression.NewLiteral(int64(5), kernel.Int64))
	filter := plan.NewLogicalFilter(get, pred)

	gid := m.CopyIn(filter)
	require.NoError(t, m.optimizeGroup(gid))

	g := m.group(gid)
	sawBoundedIndexScan := false
	for _, me := range g.Physical {
		if me.Expr.Kind == plan.IndexScan && me.Expr.IndexName == "t_x_idx" && me.Expr.LowerBound != nil {
			sawBoundedIndexScan = true
		}
	}
	require.True(t, sawBoundedIndexScan, "expected a bounded IndexScan among the group's physical alternatives")
}

// A MarkJoin's output mark column must survive both decorrelation
// (DecorrelateEquiJoinSubquery builds a fresh LogicalJoin) and
// implementation (ImplementJoin builds fresh NestedLoop/HashJoin nodes) --
// neither NewLogicalJoin nor NewNestedLoop/NewHashJoin take a MarkColumn
// parameter, so it must be copied across explicitly at each step.
func TestMarkJoinMarkColumnSurvivesDecorrelationAndImplementation(t *testing.T) {
	m := New(&fakeCatalog{})
	outer := col("i", kernel.Int64)
	inner := col("i", kernel.Int64)
	mark := sql.Column{ID: sql.NewColumnID(), Name: "exists_i", Type: kernel.Bool}

	domain := plan.NewLogicalGet("t", sql.Schema{outer})
	subquery := plan.NewLogicalGet("t", sql.Schema{inner})
	dj := &plan.Expr{
		Kind:       plan.LogicalDependentJoin,
		Input:      []*plan.Expr{domain, subquery},
		JoinKind:   plan.MarkJoin,
		Parameters: sql.NewColSet(outer.ID),
		Predicates: []expression.Expr{expression.NewEquals(expression.NewColumnRef(outer), expression.NewColumnRef(inner))},
		MarkColumn: mark,
	}

	gid := m.CopyIn(dj)
	require.NoError(t, m.optimizeGroup(gid))

	g := m.group(gid)
	require.NotNil(t, g.Winner)
	require.Equal(t, "exists_i", g.Winner.Expr.MarkColumn.Name)

	sawPhysicalWithMark := false
	for _, me := range g.Physical {
		if me.Expr.Kind == plan.NestedLoop || me.Expr.Kind == plan.HashJoin {
			require.Equal(t, "exists_i", me.Expr.MarkColumn.Name, "physical alternative lost its mark column name")
			sawPhysicalWithMark = true
		}
	}
	require.True(t, sawPhysicalWithMark)
}

func TestOptimizeNoWinnerWithoutImplementation(t *testing.T) {
	m := New(&fakeCatalog{})
	// A LogicalDependentJoin correlated on a parameter with no predicate
	// covering it decorrelates under neither rule (i), which requires an
	// unbound Parameters set, nor rule (iii), which requires an equality
	// predicate for every parameter -- and LogicalDependentJoin has no
	// implementation rule of its own, so its group ends the search with
	// no physical winner at all.
	l := plan.NewLogicalGet("l", sql.Schema{col("a", kernel.Int64)})
	r := plan.NewLogicalGet("r", sql.Schema{col("b", kernel.Int64)})
	dj := &plan.Expr{
		Kind:       plan.LogicalDependentJoin,
		Input:      []*plan.Expr{l, r},
		JoinKind:   plan.SemiJoin,
		Parameters: sql.NewColSet(l.TableSchema[0].ID),
	}
	gid := m.CopyIn(dj)
	_, err := m.Optimize(gid)
	require.Error(t, err)
	require.True(t, sql.ErrNoWinner.Is(err))
}
