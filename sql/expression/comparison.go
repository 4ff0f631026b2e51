package expression

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

// compareOp implements three-valued comparison: if either side is NULL,
// the result is NULL (unknown), not false. This is the scalar evaluator
// semantics the spec distinguishes from hash/group-by equality, where
// NULL = NULL instead.
type compareOp struct {
	binaryBase
	symbol string
	accept func(cmp int) bool
}

func (c *compareOp) Type() kernel.Type { return kernel.Bool }
func (c *compareOp) String() string    { return "(" + c.left.String() + " " + c.symbol + " " + c.right.String() + ")" }

func comparisonType(l, r kernel.Type) kernel.Type {
	if numericRank(l) >= 0 && numericRank(r) >= 0 {
		return arithmeticType(l, r)
	}
	return l
}

func (c *compareOp) Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error) {
	l, r, err := evalBoth(ctx, &c.binaryBase, batch)
	if err != nil {
		return nil, err
	}
	typ := comparisonType(c.left.Type(), c.right.Type())
	n := batch.NumRows()
	out := kernel.NewBoolArray(n)
	for i := 0; i < n; i++ {
		lv, lok := scalarAt(l, i)
		rv, rok := scalarAt(r, i)
		if !lok || !rok {
			out.AppendNull()
			continue
		}
		out.Push(c.accept(compareScalar(typ, lv, rv)), true)
	}
	return out, nil
}

func compareScalar(typ kernel.Type, lv, rv interface{}) int {
	switch typ {
	case kernel.Int64:
		a, b := toInt64(lv), toInt64(rv)
		return cmpOrdered(a, b)
	case kernel.Float64:
		a, b := toFloat64(lv), toFloat64(rv)
		return cmpOrdered(a, b)
	case kernel.Decimal:
		return toDecimal(lv).Cmp(toDecimal(rv))
	case kernel.Bool:
		a, b := lv.(bool), rv.(bool)
		switch {
		case a == b:
			return 0
		case !a:
			return -1
		default:
			return 1
		}
	case kernel.Date, kernel.Timestamp:
		a, b := toInt64(lv), toInt64(rv)
		return cmpOrdered(a, b)
	default: // String
		a, b := lv.(string), rv.(string)
		switch {
		case a == b:
			return 0
		case a < b:
			return -1
		default:
			return 1
		}
	}
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (c *compareOp) WithChildren(children ...Expr) (Expr, error) {
	b, err := withBinaryChildren(c, &c.binaryBase, children...)
	if err != nil {
		return nil, err
	}
	cp := *c
	cp.binaryBase = *b
	return &cp, nil
}

func newCompare(symbol string, l, r Expr, accept func(cmp int) bool) Expr {
	return &compareOp{binaryBase: binaryBase{left: l, right: r}, symbol: symbol, accept: accept}
}

// AsEqualityOperands reports whether e is an `a = b` comparison and, if
// so, returns its two operands. Used by the dependent-join decorrelation
// rewrite to spot correlated equi-predicates worth turning into a join key.
func AsEqualityOperands(e Expr) (Expr, Expr, bool) {
	c, ok := e.(*compareOp)
	if !ok || c.symbol != "=" {
		return nil, nil, false
	}
	return c.left, c.right, true
}

func NewEquals(l, r Expr) Expr      { return newCompare("=", l, r, func(c int) bool { return c == 0 }) }
func NewNotEquals(l, r Expr) Expr   { return newCompare("!=", l, r, func(c int) bool { return c != 0 }) }
func NewLessThan(l, r Expr) Expr    { return newCompare("<", l, r, func(c int) bool { return c < 0 }) }
func NewLessOrEqual(l, r Expr) Expr { return newCompare("<=", l, r, func(c int) bool { return c <= 0 }) }
func NewGreaterThan(l, r Expr) Expr { return newCompare(">", l, r, func(c int) bool { return c > 0 }) }
func NewGreaterOrEqual(l, r Expr) Expr {
	return newCompare(">=", l, r, func(c int) bool { return c >= 0 })
}
