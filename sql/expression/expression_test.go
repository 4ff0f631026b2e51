package expression

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

func oneRowBatch() *kernel.RecordBatch {
	marker := kernel.NewBoolArray(1)
	marker.Push(true, true)
	return kernel.NewRecordBatch([]kernel.Column{{Name: "$marker", Array: marker}})
}

func evalBool(t *testing.T, e Expr) (bool, bool) {
	t.Helper()
	out, err := e.Eval(sql.NewEmptyContext(), oneRowBatch())
	require.NoError(t, err)
	b := out.(*kernel.BoolArray)
	return b.Get(0)
}

func lit(v interface{}, typ kernel.Type) *Literal {
	if v == nil {
		return NewNullLiteral(typ)
	}
	return NewLiteral(v, typ)
}

func TestAndKleeneTable(t *testing.T) {
	tt, ff, nn := lit(true, kernel.Bool), lit(false, kernel.Bool), lit(nil, kernel.Bool)

	cases := []struct {
		l, r     Expr
		wantVal  bool
		wantOK   bool
	}{
		{tt, tt, true, true},
		{tt, ff, false, true},
		{ff, nn, false, true}, // FALSE dominates even a NULL operand
		{nn, ff, false, true},
		{tt, nn, false, false}, // TRUE AND NULL = NULL
		{nn, nn, false, false},
	}
	for _, c := range cases {
		v, ok := evalBool(t, NewAnd(c.l, c.r))
		require.Equal(t, c.wantOK, ok)
		if ok {
			require.Equal(t, c.wantVal, v)
		}
	}
}

func TestOrKleeneTable(t *testing.T) {
	tt, ff, nn := lit(true, kernel.Bool), lit(false, kernel.Bool), lit(nil, kernel.Bool)

	v, ok := evalBool(t, NewOr(tt, nn))
	require.True(t, ok)
	require.True(t, v, "TRUE dominates even a NULL operand")

	_, ok = evalBool(t, NewOr(ff, nn))
	require.False(t, ok, "FALSE OR NULL = NULL")

	v, ok = evalBool(t, NewOr(ff, ff))
	require.True(t, ok)
	require.False(t, v)
}

func TestNotPropagatesNull(t *testing.T) {
	_, ok := evalBool(t, NewNot(lit(nil, kernel.Bool)))
	require.False(t, ok)

	v, ok := evalBool(t, NewNot(lit(false, kernel.Bool)))
	require.True(t, ok)
	require.True(t, v)
}

func TestIsNullNeverItselfNull(t *testing.T) {
	v, ok := evalBool(t, NewIsNull(lit(nil, kernel.Int64)))
	require.True(t, ok)
	require.True(t, v)

	v, ok = evalBool(t, NewIsNull(lit(int64(1), kernel.Int64)))
	require.True(t, ok)
	require.False(t, v)
}

func TestComparisonNullPropagatesAsUnknown(t *testing.T) {
	_, ok := evalBool(t, NewEquals(lit(nil, kernel.Int64), lit(int64(1), kernel.Int64)))
	require.False(t, ok, "NULL = 1 is unknown, not false, under scalar three-valued semantics")
}

func TestComparisonOperators(t *testing.T) {
	one, two := lit(int64(1), kernel.Int64), lit(int64(2), kernel.Int64)

	v, _ := evalBool(t, NewLessThan(one, two))
	require.True(t, v)
	v, _ = evalBool(t, NewGreaterThan(one, two))
	require.False(t, v)
	v, _ = evalBool(t, NewEquals(one, one))
	require.True(t, v)
	v, _ = evalBool(t, NewNotEquals(one, two))
	require.True(t, v)
}

func evalInt64(t *testing.T, e Expr) (int64, bool) {
	t.Helper()
	out, err := e.Eval(sql.NewEmptyContext(), oneRowBatch())
	require.NoError(t, err)
	return out.(*kernel.Int64Array).Get(0)
}

func TestArithmeticOperators(t *testing.T) {
	a, b := lit(int64(7), kernel.Int64), lit(int64(3), kernel.Int64)

	v, ok := evalInt64(t, NewPlus(a, b))
	require.True(t, ok)
	require.Equal(t, int64(10), v)

	v, _ = evalInt64(t, NewMinus(a, b))
	require.Equal(t, int64(4), v)

	v, _ = evalInt64(t, NewMult(a, b))
	require.Equal(t, int64(21), v)

	v, _ = evalInt64(t, NewDiv(a, b))
	require.Equal(t, int64(2), v)
}

func TestIntegerDivideByZeroErrors(t *testing.T) {
	a, zero := lit(int64(1), kernel.Int64), lit(int64(0), kernel.Int64)
	_, err := NewDiv(a, zero).Eval(sql.NewEmptyContext(), oneRowBatch())
	require.Error(t, err)
	require.True(t, sql.ErrDivideByZero.Is(err))
}

func TestColumnRefEvaluatesByName(t *testing.T) {
	col := sql.Column{ID: sql.NewColumnID(), Name: "x", Type: kernel.Int64}
	arr := kernel.NewI64Array(1)
	arr.Push(99, true)
	batch := kernel.NewRecordBatch([]kernel.Column{{Name: "x", Array: arr}})

	ref := NewColumnRef(col)
	out, err := ref.Eval(sql.NewEmptyContext(), batch)
	require.NoError(t, err)
	v, ok := out.(*kernel.Int64Array).Get(0)
	require.True(t, ok)
	require.Equal(t, int64(99), v)
}

func TestCastBetweenNumericTypes(t *testing.T) {
	c := NewCast(lit(int64(3), kernel.Int64), kernel.Float64)
	out, err := c.Eval(sql.NewEmptyContext(), oneRowBatch())
	require.NoError(t, err)
	v, ok := out.(*kernel.Float64Array).Get(0)
	require.True(t, ok)
	require.Equal(t, 3.0, v)
}
