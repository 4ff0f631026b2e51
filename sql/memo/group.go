// Package memo implements the Cascades-style memoized search space: a
// Group per equivalence class of logical plans, explored by rewrite
// rules and costed by implementation rules, yielding a single winning
// physical plan per group.
package memo

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/plan"
)

// LogicalProps caches facts about a Group that every member MultiExpr
// shares regardless of which equivalent logical form produced it: its
// output schema, free-variable references, and an estimated row count
// used by the cost model.
type LogicalProps struct {
	Schema     sql.Schema
	References sql.ColSet
	RowCount   float64
}

// Winner records the least-cost physical MultiExpr found so far for a
// Group under the property requirement it was optimized for (this engine
// only tracks one requirement, "produce the group's natural schema", so
// there is a single Winner per Group rather than a map keyed by a
// required-properties struct).
type Winner struct {
	Expr *MultiExpr
	Cost float64
}

// Group is one Cascades equivalence class: every member MultiExpr
// computes the same rows, possibly via different logical shapes or
// physical strategies.
type Group struct {
	ID       int
	Logical  []*MultiExpr
	Physical []*MultiExpr
	Winner   *Winner
	Props    LogicalProps

	// LowerBound is a provable floor on g's eventual winning cost (0 is
	// always a valid, if loose, floor since no physical cost is
	// negative). UpperBound starts at +Inf and tightens to the cheapest
	// Winner found so far, or to a budget handed down from a parent's
	// optimizeInputs call during branch-and-bound search; once
	// LowerBound meets or exceeds UpperBound, optimizeGroup can return
	// without considering g's members at all.
	LowerBound float64
	UpperBound float64

	explored bool
}

// Member returns every MultiExpr (logical and physical) presently in g.
func (g *Group) Member() []*MultiExpr {
	out := make([]*MultiExpr, 0, len(g.Logical)+len(g.Physical))
	out = append(out, g.Logical...)
	out = append(out, g.Physical...)
	return out
}

// WinningExpr expands g's Winner into a concrete plan.Expr tree, recursively
// resolving each child Leaf placeholder to its own group's winner.
func (g *Group) WinningExpr() *plan.Expr {
	if g.Winner == nil {
		return nil
	}
	return g.Winner.Expr.Expand()
}
