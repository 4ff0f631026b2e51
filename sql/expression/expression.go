// Package expression implements the scalar expression tree evaluated by
// rowexec operators (Filter, Map, join predicates, aggregate arguments)
// and consulted by the memo's cost model and rule set for free-variable
// and constant-folding analysis.
package expression

import (
	"fmt"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

// Expr is one node of a scalar expression tree. Eval runs the expression
// against every row of batch at once, returning a column-shaped result;
// there is no per-row Eval, mirroring the executor's batched operators.
type Expr interface {
	fmt.Stringer

	// Type reports the SQL type this expression produces.
	Type() kernel.Type
	// Nullable reports whether this expression can produce NULL.
	Nullable() bool
	// References returns every column this expression reads.
	References() sql.ColSet
	// Eval evaluates this expression over every row of batch.
	Eval(ctx *sql.Context, batch *kernel.RecordBatch) (kernel.AnyArray, error)
	// Children returns this node's direct subexpressions.
	Children() []Expr
	// WithChildren returns a copy of this node with new children,
	// erroring if the count does not match Children().
	WithChildren(children ...Expr) (Expr, error)
}

func illegalChildCount(e Expr, got int) error {
	return fmt.Errorf("expression: %T: WithChildren: got %d children, want %d", e, got, len(e.Children()))
}
