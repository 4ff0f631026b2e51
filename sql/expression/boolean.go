package expression

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

// And implements SQL three-valued AND: false dominates even a NULL
// operand (FALSE AND NULL = FALSE), matching the standard Kleene table.
type And struct{ binaryBase }

var _ Expr = (*And)(nil)

func NewAnd(l, r Expr) *And { return &And{binaryBase{left: l, right: r}} }

func (a *And) Type() kernel.Type { return kernel.Bool }
func (a *And) String() string    { return "(" + a.left.String() + " AND " + a.right.String() + ")" }

func (a *And) Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error) {
	l, r, err := evalBoth(ctx, &a.binaryBase, batch)
	if err != nil {
		return nil, err
	}
	lb, rb := l.(*kernel.BoolArray), r.(*kernel.BoolArray)
	n := batch.NumRows()
	out := kernel.NewBoolArray(n)
	for i := 0; i < n; i++ {
		lv, lok := lb.Get(i)
		rv, rok := rb.Get(i)
		switch {
		case lok && !lv, rok && !rv:
			out.Push(false, true)
		case lok && rok:
			out.Push(true, true)
		default:
			out.AppendNull()
		}
	}
	return out, nil
}

func (a *And) WithChildren(children ...Expr) (Expr, error) {
	b, err := withBinaryChildren(a, &a.binaryBase, children...)
	if err != nil {
		return nil, err
	}
	return &And{*b}, nil
}

// Or implements SQL three-valued OR: true dominates even a NULL operand.
type Or struct{ binaryBase }

var _ Expr = (*Or)(nil)

func NewOr(l, r Expr) *Or { return &Or{binaryBase{left: l, right: r}} }

func (o *Or) Type() kernel.Type { return kernel.Bool }
func (o *Or) String() string    { return "(" + o.left.String() + " OR " + o.right.String() + ")" }

func (o *Or) Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error) {
	l, r, err := evalBoth(ctx, &o.binaryBase, batch)
	if err != nil {
		return nil, err
	}
	lb, rb := l.(*kernel.BoolArray), r.(*kernel.BoolArray)
	n := batch.NumRows()
	out := kernel.NewBoolArray(n)
	for i := 0; i < n; i++ {
		lv, lok := lb.Get(i)
		rv, rok := rb.Get(i)
		switch {
		case lok && lv, rok && rv:
			out.Push(true, true)
		case lok && rok:
			out.Push(false, true)
		default:
			out.AppendNull()
		}
	}
	return out, nil
}

func (o *Or) WithChildren(children ...Expr) (Expr, error) {
	b, err := withBinaryChildren(o, &o.binaryBase, children...)
	if err != nil {
		return nil, err
	}
	return &Or{*b}, nil
}

// Not negates a boolean expression; NULL stays NULL.
type Not struct {
	child Expr
}

var _ Expr = (*Not)(nil)

func NewNot(child Expr) *Not { return &Not{child: child} }

func (n *Not) Type() kernel.Type      { return kernel.Bool }
func (n *Not) Nullable() bool         { return n.child.Nullable() }
func (n *Not) References() sql.ColSet { return n.child.References() }
func (n *Not) Children() []Expr       { return []Expr{n.child} }
func (n *Not) String() string         { return "(NOT " + n.child.String() + ")" }

func (n *Not) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 1 {
		return nil, illegalChildCount(n, len(children))
	}
	return &Not{child: children[0]}, nil
}

func (n *Not) Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error) {
	v, err := n.child.Eval(ctx, batch)
	if err != nil {
		return nil, err
	}
	vb := v.(*kernel.BoolArray)
	out := kernel.NewBoolArray(vb.Len())
	for i := 0; i < vb.Len(); i++ {
		val, ok := vb.Get(i)
		if !ok {
			out.AppendNull()
			continue
		}
		out.Push(!val, true)
	}
	return out, nil
}

// IsNull tests whether child evaluates to SQL NULL. Unlike most
// expressions, IsNull is never itself null.
type IsNull struct {
	child Expr
}

var _ Expr = (*IsNull)(nil)

func NewIsNull(child Expr) *IsNull { return &IsNull{child: child} }

func (n *IsNull) Type() kernel.Type      { return kernel.Bool }
func (n *IsNull) Nullable() bool         { return false }
func (n *IsNull) References() sql.ColSet { return n.child.References() }
func (n *IsNull) Children() []Expr       { return []Expr{n.child} }
func (n *IsNull) String() string         { return "(" + n.child.String() + " IS NULL)" }

func (n *IsNull) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 1 {
		return nil, illegalChildCount(n, len(children))
	}
	return &IsNull{child: children[0]}, nil
}

func (n *IsNull) Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error) {
	v, err := n.child.Eval(ctx, batch)
	if err != nil {
		return nil, err
	}
	out := kernel.NewBoolArray(v.Len())
	for i := 0; i < v.Len(); i++ {
		out.Push(v.IsNull(i), true)
	}
	return out, nil
}
