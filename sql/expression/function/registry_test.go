package function

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

func i64(vals ...int64) *kernel.Int64Array {
	a := kernel.NewI64Array(len(vals))
	for _, v := range vals {
		a.Push(v, true)
	}
	return a
}

func TestLookupUnknownFunctionReturnsUnsupportedFeature(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("no_such_fn")
	require.Error(t, err)
	require.True(t, sql.ErrUnsupportedFeature.Is(err))
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	d, err := r.Lookup("ABS")
	require.NoError(t, err)
	require.Equal(t, "abs", d.Name)
}

func TestAbsNegatesNegativeInt64(t *testing.T) {
	r := NewRegistry()
	d, err := r.Lookup("abs")
	require.NoError(t, err)
	out, err := d.Eval(sql.NewEmptyContext(), []kernel.AnyArray{i64(-3, 4)}, 2)
	require.NoError(t, err)
	v0, _ := out.(*kernel.Int64Array).Get(0)
	v1, _ := out.(*kernel.Int64Array).Get(1)
	require.Equal(t, int64(3), v0)
	require.Equal(t, int64(4), v1)
}

func TestModByZeroIsNull(t *testing.T) {
	r := NewRegistry()
	d, err := r.Lookup("mod")
	require.NoError(t, err)
	out, err := d.Eval(sql.NewEmptyContext(), []kernel.AnyArray{i64(7), i64(0)}, 1)
	require.NoError(t, err)
	require.True(t, out.IsNull(0))
}

func TestCheckArityRejectsOutOfRangeArgCount(t *testing.T) {
	r := NewRegistry()
	d, err := r.Lookup("abs")
	require.NoError(t, err)
	require.NoError(t, d.checkArity(1))
	require.Error(t, d.checkArity(0))
	require.Error(t, d.checkArity(2))
}

func TestCheckArityAllowsVariadicMax(t *testing.T) {
	r := NewRegistry()
	d, err := r.Lookup("concat")
	require.NoError(t, err)
	require.NoError(t, d.checkArity(1))
	require.NoError(t, d.checkArity(5))
}

func TestCoalesceReturnsFirstNonNull(t *testing.T) {
	r := NewRegistry()
	d, err := r.Lookup("coalesce")
	require.NoError(t, err)

	a := kernel.NewI64Array(1)
	a.AppendNull()
	b := i64(9)
	out, err := d.Eval(sql.NewEmptyContext(), []kernel.AnyArray{a, b}, 1)
	require.NoError(t, err)
	v, ok := out.(*kernel.Int64Array).Get(0)
	require.True(t, ok)
	require.Equal(t, int64(9), v)
}

func TestCurrentTimestampPinnedToStatementTime(t *testing.T) {
	pinned := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := sql.NewContext(context.WithValue(context.Background(), StatementTimeKey(), pinned), nil, 0)

	r := NewRegistry()
	d, err := r.Lookup("current_timestamp")
	require.NoError(t, err)
	out, err := d.Eval(ctx, nil, 2)
	require.NoError(t, err)
	arr := out.(*kernel.TimestampArray)
	v0, _ := arr.Get(0)
	v1, _ := arr.Get(1)
	require.Equal(t, pinned.UnixMicro(), v0)
	require.Equal(t, v0, v1, "every row within one statement must see the same pinned instant")
}

func TestRegisterOverridesExistingDefinition(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(&Definition{
		Name: "abs", MinArity: 1, MaxArity: 1,
		ReturnType: func(args []kernel.Type) kernel.Type { return args[0] },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			called = true
			return args[0], nil
		},
	})
	d, err := r.Lookup("abs")
	require.NoError(t, err)
	_, err = d.Eval(sql.NewEmptyContext(), []kernel.AnyArray{i64(1)}, 1)
	require.NoError(t, err)
	require.True(t, called)
}
