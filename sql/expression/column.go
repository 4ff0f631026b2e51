package expression

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

// ColumnRef reads one column from the input batch by the column's name
// (not its ColumnID), looking it up afresh on every Eval so it tolerates
// the column landing at a different ordinal position after a Map or
// join has reshaped the batch.
type ColumnRef struct {
	col sql.Column
}

var _ Expr = (*ColumnRef)(nil)

// NewColumnRef wraps col as a read against the input batch.
func NewColumnRef(col sql.Column) *ColumnRef {
	return &ColumnRef{col: col}
}

func (c *ColumnRef) Column() sql.Column   { return c.col }
func (c *ColumnRef) Type() kernel.Type    { return c.col.Type }
func (c *ColumnRef) Nullable() bool       { return c.col.Nullable }
func (c *ColumnRef) References() sql.ColSet { return sql.NewColSet(c.col.ID) }
func (c *ColumnRef) Children() []Expr     { return nil }

func (c *ColumnRef) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 0 {
		return nil, illegalChildCount(c, len(children))
	}
	return c, nil
}

func (c *ColumnRef) String() string { return c.col.String() }

// Eval looks the referenced column up in batch by name. The planner
// guarantees Map operators carry every input column's resolved name
// forward, so this lookup always succeeds for a well-formed plan.
func (c *ColumnRef) Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error) {
	return batch.Array(c.col.Name), nil
}

// ParamRef reads one entry from the query's positional parameter vector,
// broadcasting it to every row (the ? placeholders of a prepared statement).
type ParamRef struct {
	index int
	typ   kernel.Type
}

var _ Expr = (*ParamRef)(nil)

func NewParamRef(index int, typ kernel.Type) *ParamRef {
	return &ParamRef{index: index, typ: typ}
}

func (p *ParamRef) Type() kernel.Type      { return p.typ }
func (p *ParamRef) Nullable() bool         { return true }
func (p *ParamRef) References() sql.ColSet { return nil }
func (p *ParamRef) Children() []Expr       { return nil }

func (p *ParamRef) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 0 {
		return nil, illegalChildCount(p, len(children))
	}
	return p, nil
}

func (p *ParamRef) String() string { return "?" }

func (p *ParamRef) Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error) {
	v, ok := ParamsFromContext(ctx)
	n := batch.NumRows()
	out := kernel.NewArray(p.typ, n)
	if !ok || p.index >= len(v) || v[p.index] == nil {
		for i := 0; i < n; i++ {
			out.AppendNull()
		}
		return out, nil
	}
	for i := 0; i < n; i++ {
		pushScalar(out, v[p.index])
	}
	return out, nil
}

type paramsKey struct{}

// ParamsFromContext retrieves the positional parameter vector a caller
// stashed into ctx via sql.Context's embedded context.Context.
func ParamsFromContext(ctx *sql.Context) ([]interface{}, bool) {
	v, ok := ctx.Value(paramsKey{}).([]interface{})
	return v, ok
}
