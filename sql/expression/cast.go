package expression

import (
	"strconv"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

// Cast converts child's values to a target type, raising
// sql.ErrCastFailed for a source value that cannot be parsed as the
// destination type (e.g. CAST('abc' AS INT64)).
type Cast struct {
	child Expr
	to    kernel.Type
}

var _ Expr = (*Cast)(nil)

func NewCast(child Expr, to kernel.Type) *Cast { return &Cast{child: child, to: to} }

func (c *Cast) Type() kernel.Type      { return c.to }
func (c *Cast) Nullable() bool         { return true }
func (c *Cast) References() sql.ColSet { return c.child.References() }
func (c *Cast) Children() []Expr       { return []Expr{c.child} }
func (c *Cast) String() string         { return "CAST(" + c.child.String() + " AS " + c.to.String() + ")" }

func (c *Cast) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 1 {
		return nil, illegalChildCount(c, len(children))
	}
	return &Cast{child: children[0], to: c.to}, nil
}

func (c *Cast) Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error) {
	v, err := c.child.Eval(ctx, batch)
	if err != nil {
		return nil, err
	}
	out := kernel.NewArray(c.to, v.Len())
	for i := 0; i < v.Len(); i++ {
		if v.IsNull(i) {
			out.AppendNull()
			continue
		}
		raw, _ := scalarAt(v, i)
		casted, err := castScalar(raw, c.to)
		if err != nil {
			return nil, sql.ErrCastFailed.New(raw, c.to.String())
		}
		pushScalar(out, casted)
	}
	return out, nil
}

func castScalar(v interface{}, to kernel.Type) (interface{}, error) {
	switch to {
	case kernel.Int64:
		if s, ok := v.(string); ok {
			return strconv.ParseInt(s, 10, 64)
		}
		return toInt64(v), nil
	case kernel.Float64:
		if s, ok := v.(string); ok {
			return strconv.ParseFloat(s, 64)
		}
		return toFloat64(v), nil
	case kernel.Decimal:
		return toDecimal(v), nil
	case kernel.String:
		return scalarToString(v), nil
	case kernel.Bool:
		return toInt64(v) != 0, nil
	default:
		return v, nil
	}
}

func scalarToString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	default:
		return toStringFallback(x)
	}
}
