package memo

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression"
	"github.com/quilldb/quill/sql/plan"
)

// OptimizeStatement is the entry point callers use instead of raw
// CopyIn+Optimize: it handles the handful of logical kinds that have no
// cost-based physical counterpart at all (DDL, LogicalWith/LogicalUpdate)
// by lowering them directly, and delegates every other kind to the
// memoized Cascades search.
//
// LogicalUpdate lowers to a single physical Update node wrapping the
// once-optimized matched-row source: Update itself deletes the old rows
// and inserts their computed replacements off one materialized batch,
// rather than costing and executing the delete and insert sides as two
// independent plans (the insert side's scan would otherwise run against
// heap state the delete side already mutated, losing or corrupting rows
// whose matching predicate can no longer find them). The decided Open
// Question this resolves: index entries for updated rows are re-inserted
// unconditionally; the corresponding old ART entries are left for vacuum
// to reclaim rather than removed inline, since a column used by an index
// may not have changed and locating exactly which entries to drop would
// require re-deriving the old key from the just-overwritten heap row.
func (m *Memo) OptimizeStatement(e *plan.Expr) (*plan.Expr, error) {
	switch e.Kind {
	case plan.LogicalScript:
		stmts := make([]*plan.Expr, len(e.Input))
		for i, s := range e.Input {
			p, err := m.OptimizeStatement(s)
			if err != nil {
				return nil, err
			}
			stmts[i] = p
		}
		return plan.NewScript(stmts...), nil

	case plan.LogicalWith:
		ctePhysical, err := m.OptimizeStatement(e.Input[0])
		if err != nil {
			return nil, err
		}
		create := plan.NewCreateTempTable(ctePhysical, e.Name)
		bodyPhysical, err := m.OptimizeStatement(e.Input[1])
		if err != nil {
			return nil, err
		}
		return plan.NewScript(create, bodyPhysical), nil

	case plan.LogicalGetWith:
		return plan.NewGetTempTable(e.Name, e.TableSchema), nil

	case plan.LogicalCreateDatabase, plan.LogicalCreateTable,
		plan.LogicalCreateIndex, plan.LogicalDrop:
		return e, nil

	case plan.LogicalUpdate:
		// e.Input[0] (typically LogicalFilter over LogicalGet) is an
		// ordinary query, optimized exactly once; the physical plan it
		// yields still carries the hidden row id column, so Update can
		// compute each matched row's replacement values and delete its
		// old entry off that same batch instead of a second, independent
		// re-scan of the same predicate.
		srcPhys, err := m.OptimizeStatement(e.Input[0])
		if err != nil {
			return nil, err
		}
		projects, schema := updateProjects(e)
		return plan.NewUpdate(srcPhys, e.Table, e.TableSchema, projects, schema), nil

	default:
		gid := m.CopyIn(e)
		return m.Optimize(gid)
	}
}

// updateProjects builds the projection list the physical Update node
// carries for a LogicalUpdate: every input column passes through unchanged except those
// named in Sets, which are replaced by their assignment expression.
func updateProjects(e *plan.Expr) ([]expression.Expr, sql.Schema) {
	schema := e.TableSchema
	projects := make([]expression.Expr, len(schema))
	out := make(sql.Schema, len(schema))
	for i, col := range schema {
		if expr, ok := e.Sets[col.ID]; ok {
			projects[i] = expr
		} else {
			projects[i] = expression.NewColumnRef(col)
		}
		out[i] = col
	}
	return projects, out
}
