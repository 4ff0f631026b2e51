package expression

import (
	"strings"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression/function"
	"github.com/quilldb/quill/sql/kernel"
)

// FunctionCall evaluates a builtin function against its argument
// expressions, resolved once against a function.Registry at plan-build
// time (not re-resolved per Eval).
type FunctionCall struct {
	def  *function.Definition
	args []Expr
}

var _ Expr = (*FunctionCall)(nil)

// NewFunctionCall resolves name in reg and binds it to args.
func NewFunctionCall(reg *function.Registry, name string, args []Expr) (*FunctionCall, error) {
	def, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	return &FunctionCall{def: def, args: args}, nil
}

func (f *FunctionCall) Type() kernel.Type {
	argTypes := make([]kernel.Type, len(f.args))
	for i, a := range f.args {
		argTypes[i] = a.Type()
	}
	return f.def.ReturnType(argTypes)
}

func (f *FunctionCall) Nullable() bool {
	for _, a := range f.args {
		if a.Nullable() {
			return true
		}
	}
	return false
}

func (f *FunctionCall) References() sql.ColSet {
	out := sql.ColSet{}
	for _, a := range f.args {
		out = out.Union(a.References())
	}
	return out
}

func (f *FunctionCall) Children() []Expr { return f.args }

func (f *FunctionCall) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != len(f.args) {
		return nil, illegalChildCount(f, len(children))
	}
	return &FunctionCall{def: f.def, args: children}, nil
}

func (f *FunctionCall) String() string {
	parts := make([]string, len(f.args))
	for i, a := range f.args {
		parts[i] = a.String()
	}
	return f.def.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (f *FunctionCall) Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error) {
	argVals := make([]kernel.AnyArray, len(f.args))
	for i, a := range f.args {
		v, err := a.Eval(ctx, batch)
		if err != nil {
			return nil, err
		}
		argVals[i] = v
	}
	return f.def.Eval(ctx, argVals, batch.NumRows())
}
