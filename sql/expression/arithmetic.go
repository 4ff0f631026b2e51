package expression

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/shopspring/decimal"
)

// arithOp is shared by Plus/Minus/Mult/Div: each supplies only the
// per-row combine function, sparing every op its own Eval/null-handling
// boilerplate.
type arithOp struct {
	binaryBase
	symbol  string
	combine func(l, r interface{}, typ kernel.Type) (interface{}, error)
}

func (a *arithOp) Type() kernel.Type { return arithmeticType(a.left.Type(), a.right.Type()) }
func (a *arithOp) String() string    { return "(" + a.left.String() + " " + a.symbol + " " + a.right.String() + ")" }

func (a *arithOp) Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error) {
	l, r, err := evalBoth(ctx, &a.binaryBase, batch)
	if err != nil {
		return nil, err
	}
	typ := a.Type()
	n := batch.NumRows()
	out := kernel.NewArray(typ, n)
	for i := 0; i < n; i++ {
		lv, lok := scalarAt(l, i)
		rv, rok := scalarAt(r, i)
		if !lok || !rok {
			out.AppendNull()
			continue
		}
		v, err := a.combine(lv, rv, typ)
		if err != nil {
			return nil, err
		}
		pushScalar(out, v)
	}
	return out, nil
}

func arithNumeric(typ kernel.Type, lv, rv interface{}, intOp func(a, b int64) int64, floatOp func(a, b float64) float64, decOp func(a, b decimal.Decimal) decimal.Decimal) interface{} {
	switch typ {
	case kernel.Decimal:
		return decOp(toDecimal(lv), toDecimal(rv))
	case kernel.Float64:
		return floatOp(toFloat64(lv), toFloat64(rv))
	default:
		return intOp(toInt64(lv), toInt64(rv))
	}
}

// NewPlus returns the l + r expression.
func NewPlus(l, r Expr) Expr {
	return &arithOp{binaryBase: binaryBase{left: l, right: r}, symbol: "+", combine: func(lv, rv interface{}, typ kernel.Type) (interface{}, error) {
		return arithNumeric(typ, lv, rv,
			func(a, b int64) int64 { return a + b },
			func(a, b float64) float64 { return a + b },
			func(a, b decimal.Decimal) decimal.Decimal { return a.Add(b) }), nil
	}}
}

// NewMinus returns the l - r expression.
func NewMinus(l, r Expr) Expr {
	return &arithOp{binaryBase: binaryBase{left: l, right: r}, symbol: "-", combine: func(lv, rv interface{}, typ kernel.Type) (interface{}, error) {
		return arithNumeric(typ, lv, rv,
			func(a, b int64) int64 { return a - b },
			func(a, b float64) float64 { return a - b },
			func(a, b decimal.Decimal) decimal.Decimal { return a.Sub(b) }), nil
	}}
}

// NewMult returns the l * r expression.
func NewMult(l, r Expr) Expr {
	return &arithOp{binaryBase: binaryBase{left: l, right: r}, symbol: "*", combine: func(lv, rv interface{}, typ kernel.Type) (interface{}, error) {
		return arithNumeric(typ, lv, rv,
			func(a, b int64) int64 { return a * b },
			func(a, b float64) float64 { return a * b },
			func(a, b decimal.Decimal) decimal.Decimal { return a.Mul(b) }), nil
	}}
}

// NewDiv returns the l / r expression. Integer and decimal division by
// zero raise sql.ErrDivideByZero; float division by zero follows IEEE-754
// (producing +/-Inf or NaN).
func NewDiv(l, r Expr) Expr {
	return &arithOp{binaryBase: binaryBase{left: l, right: r}, symbol: "/", combine: func(lv, rv interface{}, typ kernel.Type) (interface{}, error) {
		switch typ {
		case kernel.Decimal:
			rd := toDecimal(rv)
			if rd.IsZero() {
				return nil, sql.ErrDivideByZero.New()
			}
			return toDecimal(lv).Div(rd), nil
		case kernel.Float64:
			return toFloat64(lv) / toFloat64(rv), nil
		default:
			ri := toInt64(rv)
			if ri == 0 {
				return nil, sql.ErrDivideByZero.New()
			}
			return toInt64(lv) / ri, nil
		}
	}}
}

func (a *arithOp) WithChildren(children ...Expr) (Expr, error) {
	b, err := withBinaryChildren(a, &a.binaryBase, children...)
	if err != nil {
		return nil, err
	}
	cp := *a
	cp.binaryBase = *b
	return &cp, nil
}
