package quill

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/plan"
)

func intLitEngine(v int64) *expression.Literal { return expression.NewLiteral(v, kernel.Int64) }

func TestStatementRejectsInsertWhenReadOnly(t *testing.T) {
	e := NewDefault()
	x := sql.Column{ID: sql.NewColumnID(), Name: "x", Type: kernel.Int64}
	_, err := e.Statement(context.Background(), "create table t(x int64)", plan.NewLogicalCreateTable("t", sql.Schema{x}))
	require.NoError(t, err)

	e.SetReadOnly(true)
	values := plan.NewLogicalValues([][]expression.Expr{{intLitEngine(1)}}, sql.Schema{x})
	_, err = e.Statement(context.Background(), "insert into t values (1)", plan.NewLogicalInsert("t", sql.Schema{x}, values))
	require.Error(t, err)
	require.True(t, sql.ErrReadOnly.Is(err))
}

func TestStatementRejectsDDLWhenReadOnly(t *testing.T) {
	e := NewDefault()
	e.SetReadOnly(true)
	x := sql.Column{ID: sql.NewColumnID(), Name: "x", Type: kernel.Int64}
	_, err := e.Statement(context.Background(), "create table t(x int64)", plan.NewLogicalCreateTable("t", sql.Schema{x}))
	require.Error(t, err, "mutates() treats every DDL kind as a write, so the read-only guard runs before DDL ever reaches execDDL")
	require.True(t, sql.ErrReadOnly.Is(err))
}

func TestQueryCachesPhysicalPlanByStatementText(t *testing.T) {
	e := NewDefault()
	one := sql.Column{ID: sql.NewColumnID(), Name: "one", Type: kernel.Int64}
	q := plan.NewLogicalMap(plan.NewLogicalSingleGet(), []expression.Expr{intLitEngine(1)}, sql.Schema{one})

	_, _, err := e.Query(context.Background(), "select 1", q)
	require.NoError(t, err)
	initialMiss := testutilCounterValue(t, e.planCacheMiss)
	require.Equal(t, float64(1), initialMiss)

	_, _, err = e.Query(context.Background(), "select 1", q)
	require.NoError(t, err)
	require.Equal(t, float64(1), testutilCounterValue(t, e.planCacheMiss))
	require.Equal(t, float64(1), testutilCounterValue(t, e.planCacheHits))
}

func TestExecDDLCreateDatabaseIsNoOp(t *testing.T) {
	e := NewDefault()
	n, err := e.Statement(context.Background(), "create database ignored", plan.NewLogicalCreateDatabase("ignored"))
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
}

func TestDropByNameDropsTableThenIndex(t *testing.T) {
	e := NewDefault()
	x := sql.Column{ID: sql.NewColumnID(), Name: "x", Type: kernel.Int64}
	_, err := e.Statement(context.Background(), "create table t(x int64)", plan.NewLogicalCreateTable("t", sql.Schema{x}))
	require.NoError(t, err)
	require.NoError(t, e.Catalog.CreateIndex("t", "t_x", []sql.ColumnID{x.ID}, false))

	_, err = e.Statement(context.Background(), "drop t_x", plan.NewLogicalDrop(plan.NewLogicalSingleGet(), "t_x"))
	require.NoError(t, err, "a name matching no table should fall back to dropping a matching index")
	_, err = e.Catalog.Index("t", "t_x")
	require.Error(t, err)

	_, err = e.Statement(context.Background(), "drop t", plan.NewLogicalDrop(plan.NewLogicalSingleGet(), "t"))
	require.NoError(t, err)
	_, err = e.Catalog.Table("t")
	require.Error(t, err)
}

func TestDropByNameUnknownNameErrors(t *testing.T) {
	e := NewDefault()
	_, err := e.Statement(context.Background(), "drop nope", plan.NewLogicalDrop(plan.NewLogicalSingleGet(), "nope"))
	require.Error(t, err)
	require.True(t, sql.ErrTableNotFound.Is(err))
}

func TestRegisterExposesCountersOnce(t *testing.T) {
	e := NewDefault()
	reg := prometheus.NewRegistry()
	require.NoError(t, e.Register(reg))
	require.Error(t, e.Register(reg), "registering the same collectors twice must be rejected by the registry")
}

func testutilCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
