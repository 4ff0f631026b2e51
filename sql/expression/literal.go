package expression

import (
	"fmt"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

// Literal is a constant value, broadcast to every row of the batch being
// evaluated.
type Literal struct {
	value    interface{}
	typ      kernel.Type
	isNull   bool
}

var _ Expr = (*Literal)(nil)

// NewLiteral wraps a constant Go value of the given type.
func NewLiteral(value interface{}, typ kernel.Type) *Literal {
	return &Literal{value: value, typ: typ, isNull: value == nil}
}

// NewNullLiteral returns the untyped SQL NULL constant at type typ.
func NewNullLiteral(typ kernel.Type) *Literal {
	return &Literal{typ: typ, isNull: true}
}

func (l *Literal) Type() kernel.Type      { return l.typ }
func (l *Literal) Nullable() bool         { return l.isNull }
func (l *Literal) References() sql.ColSet { return nil }
func (l *Literal) Children() []Expr       { return nil }

func (l *Literal) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 0 {
		return nil, illegalChildCount(l, len(children))
	}
	return l, nil
}

func (l *Literal) String() string {
	if l.isNull {
		return "NULL"
	}
	return fmt.Sprintf("%v", l.value)
}

func (l *Literal) Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error) {
	n := batch.NumRows()
	out := kernel.NewArray(l.typ, n)
	for i := 0; i < n; i++ {
		if l.isNull {
			out.AppendNull()
			continue
		}
		pushScalar(out, l.value)
	}
	return out, nil
}

// pushScalar appends one non-null Go value onto out, dispatching on out's
// concrete array type. Literal and function-call broadcasting share this.
func pushScalar(out kernel.AnyArray, v interface{}) {
	switch a := out.(type) {
	case *kernel.BoolArray:
		a.Push(v.(bool), true)
	case *kernel.Int64Array:
		a.Push(toInt64(v), true)
	case *kernel.Float64Array:
		a.Push(toFloat64(v), true)
	case *kernel.DecimalArray:
		a.Push(toDecimal(v), true)
	case *kernel.DateArray:
		a.Push(v.(int32), true)
	case *kernel.TimestampArray:
		a.Push(v.(int64), true)
	case *kernel.StringArray:
		a.Push(fmt.Sprintf("%v", v), true)
	default:
		panic(fmt.Sprintf("expression: pushScalar: unsupported array type %T", out))
	}
}
