package memo

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/plan"
)

// deriveProps computes e's LogicalProps from its own fields and its
// children's already-known Props. This mirrors plan.Expr.Schema's
// switch, but must be re-implemented here rather than calling
// e.Schema() directly: a memoized MultiExpr's children are Leaf
// placeholders with no schema of their own, only a GroupID to look the
// schema up by.
func deriveProps(cat Catalog, e *plan.Expr, childProps []LogicalProps) LogicalProps {
	schema := deriveSchema(e, childProps)
	refs := e.References()

	childCard := make([]float64, len(childProps))
	for i, p := range childProps {
		childCard[i] = p.RowCount
	}
	return LogicalProps{
		Schema:     schema,
		References: refs,
		RowCount:   cardinality(cat, e, childCard),
	}
}

func deriveSchema(e *plan.Expr, childProps []LogicalProps) sql.Schema {
	switch e.Kind {
	case plan.LogicalGet, plan.SeqScan, plan.TableFreeScan:
		return e.TableSchema
	case plan.IndexScan:
		if e.IncludeExisting && len(childProps) > 0 {
			return append(append(sql.Schema{}, childProps[0].Schema...), e.TableSchema...)
		}
		return e.TableSchema
	case plan.LogicalValues, plan.Values:
		return e.Columns
	case plan.LogicalMap, plan.Map:
		return e.Columns
	case plan.LogicalAggregate, plan.SimpleAggregate, plan.GroupByAggregate:
		out := make(sql.Schema, 0, e.GroupBy.Len()+len(e.Aggregates))
		for _, c := range childProps[0].Schema {
			if e.GroupBy.Contains(c.ID) {
				out = append(out, c)
			}
		}
		for _, agg := range e.Aggregates {
			out = append(out, agg.Output)
		}
		return out
	case plan.LogicalJoin, plan.LogicalDependentJoin, plan.NestedLoop, plan.HashJoin:
		left := childProps[0].Schema
		if e.JoinKind == plan.SemiJoin || e.JoinKind == plan.AntiJoin {
			return left
		}
		if e.JoinKind == plan.MarkJoin {
			return append(append(sql.Schema{}, left...), e.MarkColumn)
		}
		return append(append(sql.Schema{}, left...), childProps[1].Schema...)
	case plan.LogicalCreateTable:
		return e.NewSchema
	case plan.CreateTempTable, plan.GetTempTable:
		return e.TableSchema
	default:
		if len(childProps) > 0 {
			return childProps[0].Schema
		}
		return nil
	}
}
