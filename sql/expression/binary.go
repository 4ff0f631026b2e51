package expression

import (
	"fmt"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

// binaryBase factors the Children/WithChildren/References bookkeeping
// shared by every two-argument expression (arithmetic, comparison,
// logical). Each concrete wrapper supplies its own Eval and String.
type binaryBase struct {
	left, right Expr
}

func (b *binaryBase) Children() []Expr { return []Expr{b.left, b.right} }

func (b *binaryBase) References() sql.ColSet {
	return b.left.References().Union(b.right.References())
}

func (b *binaryBase) Nullable() bool {
	return b.left.Nullable() || b.right.Nullable()
}

func withBinaryChildren(self Expr, b *binaryBase, children ...Expr) (*binaryBase, error) {
	if len(children) != 2 {
		return nil, illegalChildCount(self, len(children))
	}
	return &binaryBase{left: children[0], right: children[1]}, nil
}

// evalBoth evaluates left and right over batch and returns both raw
// arrays unchanged; callers coerce per row and read nulls from the arrays.
func evalBoth(ctx *sql.Context, b *binaryBase, batch *kernel.RecordBatch) (kernel.AnyArray, kernel.AnyArray, error) {
	l, err := b.left.Eval(ctx, batch)
	if err != nil {
		return nil, nil, err
	}
	r, err := b.right.Eval(ctx, batch)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func numericRank(t kernel.Type) int {
	switch t {
	case kernel.Int64:
		return 0
	case kernel.Float64:
		return 1
	case kernel.Decimal:
		return 2
	default:
		return -1
	}
}

// arithmeticType picks the result type of a binary arithmetic op over
// l and r, widening int64 -> float64/decimal when the operands differ.
func arithmeticType(l, r kernel.Type) kernel.Type {
	if numericRank(r) > numericRank(l) {
		return r
	}
	return l
}

func scalarAt(a kernel.AnyArray, i int) (interface{}, bool) {
	switch x := a.(type) {
	case *kernel.BoolArray:
		return x.Get(i)
	case *kernel.Int64Array:
		return x.Get(i)
	case *kernel.Float64Array:
		return x.Get(i)
	case *kernel.DecimalArray:
		return x.Get(i)
	case *kernel.DateArray:
		return x.Get(i)
	case *kernel.TimestampArray:
		return x.Get(i)
	case *kernel.StringArray:
		return x.Get(i)
	default:
		panic(fmt.Sprintf("expression: scalarAt: unsupported array type %T", a))
	}
}
