package expression

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

// AggKind identifies which typed accumulator a GroupByAggregate/
// SimpleAggregate node instantiates for one AggregateExpr.
type AggKind uint8

const (
	AnyValue AggKind = iota
	Count
	CountDistinct
	LogicalAnd
	LogicalOr
	Max
	Min
	Sum
	SumDistinct
)

func (k AggKind) String() string {
	switch k {
	case AnyValue:
		return "ANY_VALUE"
	case Count:
		return "COUNT"
	case CountDistinct:
		return "COUNT_DISTINCT"
	case LogicalAnd:
		return "LOGICAL_AND"
	case LogicalOr:
		return "LOGICAL_OR"
	case Max:
		return "MAX"
	case Min:
		return "MIN"
	case Sum:
		return "SUM"
	case SumDistinct:
		return "SUM_DISTINCT"
	default:
		return "UNKNOWN_AGG"
	}
}

// AggregateExpr describes one aggregate computed by a GroupByAggregate or
// SimpleAggregate plan node. It is not itself evaluated batch-at-a-time
// like a scalar Expr: the executor's typed accumulator kernel consumes
// Arg's per-group values directly (see rowexec's aggregate state).
type AggregateExpr struct {
	Kind Kind
	Arg  Expr // nil for COUNT(*)
	Output sql.Column
}

// Kind is an alias kept for readability at call sites (expression.AggKind
// reads awkwardly doubled as expression.AggregateExpr.Kind's type name).
type Kind = AggKind

// NewAggregateExpr builds an aggregate descriptor producing out, applying
// kind to arg (which may be nil only for COUNT(*)).
func NewAggregateExpr(kind AggKind, arg Expr, out sql.Column) AggregateExpr {
	return AggregateExpr{Kind: kind, Arg: arg, Output: out}
}

// References returns the columns this aggregate's argument depends on.
func (a AggregateExpr) References() sql.ColSet {
	if a.Arg == nil {
		return nil
	}
	return a.Arg.References()
}

func (a AggregateExpr) String() string {
	if a.Arg == nil {
		return a.Kind.String() + "(*)"
	}
	return a.Kind.String() + "(" + a.Arg.String() + ")"
}

// ResultType returns the type the accumulator for this aggregate
// produces: Count/CountDistinct always widen to Int64 regardless of
// input type, every other kind preserves the argument's type.
func (a AggregateExpr) ResultType() kernel.Type {
	switch a.Kind {
	case Count, CountDistinct:
		return kernel.Int64
	case LogicalAnd, LogicalOr:
		return kernel.Bool
	default:
		if a.Arg == nil {
			return kernel.Int64
		}
		return a.Arg.Type()
	}
}
