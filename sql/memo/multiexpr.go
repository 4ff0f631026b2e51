package memo

import (
	"fmt"
	"strings"

	"github.com/quilldb/quill/sql/plan"
)

// MultiExpr is one member of a Group: a plan.Expr whose children are
// Leaf(groupID) placeholders rather than concrete subtrees, plus a back
// pointer to the owning Group and its Memo. The key used to dedup on
// copy-in is computed on demand by signature, not stored here.
type MultiExpr struct {
	Expr  *plan.Expr
	Group *Group
	memo  *Memo
}

// ChildGroups returns the GroupIDs this MultiExpr's children (which must
// all be Leaf placeholders) stand in for.
func (m *MultiExpr) ChildGroups() []int {
	out := make([]int, len(m.Expr.Input))
	for i, c := range m.Expr.Input {
		out[i] = c.GroupID
	}
	return out
}

// Expand recursively replaces every Leaf(groupID) child with that
// group's own winning physical expression, producing an executable
// plan.Expr tree with no Leaf nodes remaining.
func (m *MultiExpr) Expand() *plan.Expr {
	children := make([]*plan.Expr, len(m.Expr.Input))
	for i, c := range m.Expr.Input {
		child := m.memo.group(c.GroupID)
		children[i] = child.WinningExpr()
	}
	return m.Expr.WithChildren(children...)
}

// signature is a structural key identifying m's shape: its Kind, the
// salient scalar fields that distinguish operators of the same Kind
// (table name, join kind, aggregate list, ...), and its child group ids
// in order. Two MultiExprs with equal signatures are the same logical
// (or physical) expression and must live in the same Group.
func signature(e *plan.Expr, childGroups []int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|", e.Kind)
	switch e.Kind {
	case plan.LogicalGet, plan.SeqScan, plan.TableFreeScan:
		fmt.Fprintf(&sb, "table=%s|", e.Table)
	case plan.IndexScan:
		fmt.Fprintf(&sb, "table=%s|index=%s|", e.Table, e.IndexName)
	case plan.LogicalJoin, plan.LogicalDependentJoin, plan.NestedLoop, plan.HashJoin:
		fmt.Fprintf(&sb, "kind=%s|equals=%v|preds=%d|", e.JoinKind, e.JoinEquals, len(e.Predicates))
	case plan.LogicalFilter, plan.Filter:
		fmt.Fprintf(&sb, "preds=%d|", len(e.Predicates))
	case plan.LogicalMap, plan.Map:
		fmt.Fprintf(&sb, "cols=%v|", e.Columns.Names())
	case plan.LogicalAggregate, plan.SimpleAggregate, plan.GroupByAggregate:
		fmt.Fprintf(&sb, "groupby=%v|aggs=%d|", e.GroupBy.Slice(), len(e.Aggregates))
	case plan.LogicalLimit, plan.Limit:
		fmt.Fprintf(&sb, "count=%d|offset=%d|", e.LimitCount, e.LimitOffset)
	case plan.LogicalSort, plan.Sort:
		fmt.Fprintf(&sb, "keys=%v|desc=%v|", e.SortKeys, e.SortDesc)
	case plan.Broadcast, plan.Exchange, plan.Gather:
		fmt.Fprintf(&sb, "dist=%d|partition=%v|", e.Dist, e.PartitionBy.Slice())
	case plan.CreateTempTable, plan.GetTempTable, plan.LogicalWith, plan.LogicalGetWith:
		fmt.Fprintf(&sb, "name=%s|", e.Name)
	}
	fmt.Fprintf(&sb, "children=%v", childGroups)
	return sb.String()
}
