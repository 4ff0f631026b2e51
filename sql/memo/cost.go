package memo

import (
	"github.com/quilldb/quill/sql/plan"
)

// Cost-model constants: approximate per-row CPU costs for each physical
// operator, calibrated relative to one another rather than to any real
// clock, per-unit of "rows touched". Network-bound operators (Exchange,
// Broadcast, Gather) carry a much higher per-row constant to bias the
// optimizer away from shuffling data unless a join strategy needs it.
const (
	costPerRowScan      = 1.0
	costPerRowIndexScan = 1.5 // plus a fixed seek cost per probe, below
	costPerRowFilter    = 0.2
	costPerRowMap       = 0.2
	costPerRowHashBuild = 2.0
	costPerRowHashProbe = 1.0
	costPerRowNestedLoop = 0.5 // multiplied against BOTH input cardinalities
	costPerRowAggregate = 1.5
	costPerRowSort       = 2.0 // approximates the log factor with a flat multiplier
	costIndexSeek        = 8.0
	costPerRowNetwork     = 20.0
)

// estimateCost returns the standalone cost of applying e's own operator
// (not including its children's cost, which optimize_inputs adds
// separately), using childCardinalities (one entry per e.Input) as the
// estimated row counts flowing in.
func estimateCost(e *plan.Expr, childCardinalities []float64) float64 {
	switch e.Kind {
	case plan.TableFreeScan:
		return 1
	case plan.SeqScan:
		return float64(len(e.TableSchema)) * costPerRowScan * estimatedRows(e)
	case plan.IndexScan:
		rows := estimatedRows(e)
		return costIndexSeek + rows*costPerRowIndexScan
	case plan.Filter:
		return childCardinalities[0] * costPerRowFilter * float64(len(e.Predicates))
	case plan.Map:
		return childCardinalities[0] * costPerRowMap * float64(len(e.Projects))
	case plan.NestedLoop:
		return childCardinalities[0] * childCardinalities[1] * costPerRowNestedLoop
	case plan.HashJoin:
		build := childCardinalities[0]
		probe := childCardinalities[1]
		return build*costPerRowHashBuild + probe*costPerRowHashProbe
	case plan.SimpleAggregate:
		return childCardinalities[0] * costPerRowAggregate
	case plan.GroupByAggregate:
		return childCardinalities[0] * costPerRowAggregate * 1.5 // hashing the group key
	case plan.Sort:
		return childCardinalities[0] * costPerRowSort
	case plan.Limit:
		return childCardinalities[0] * 0.1
	case plan.Union:
		return childCardinalities[0] + childCardinalities[1]
	case plan.Broadcast, plan.Exchange, plan.Gather:
		return childCardinalities[0] * costPerRowNetwork
	case plan.Values:
		return float64(len(e.ValueRows))
	case plan.Insert, plan.Delete:
		return childCardinalities[0] * costPerRowScan
	default:
		total := 0.0
		for _, c := range childCardinalities {
			total += c
		}
		return total
	}
}

// estimatedRows is filled in by the group's LogicalProps at call sites
// that have access to the owning group; leaf scans fall back to this
// default absent better information (callers prefer group.Props.RowCount).
func estimatedRows(e *plan.Expr) float64 {
	return 1000
}

// lowerBoundFor is a crude, always-safe floor on the eventual winning
// cost of the group e heads: a base-table access can never cost less
// than reading the table once, and every other operator can never cost
// less than the sum of its children's own floors, since no physical
// strategy skips fetching its inputs. Mirrors the "fetching cost"
// lower bound the Cascades search uses to prune branches whose
// children alone already exceed a parent's upper bound.
func lowerBoundFor(m *Memo, e *plan.Expr, childGroups []int, rowCount float64) float64 {
	switch e.Kind {
	case plan.LogicalGet:
		return rowCount * costPerRowScan
	default:
		total := 0.0
		for _, gid := range childGroups {
			total += m.group(gid).LowerBound
		}
		return total
	}
}

// cardinality estimates the output row count of e given its children's
// estimated cardinalities and, for scans and filters, catalog statistics.
func cardinality(cat Catalog, e *plan.Expr, childCardinalities []float64) float64 {
	switch e.Kind {
	case plan.TableFreeScan:
		return 1
	case plan.SeqScan, plan.IndexScan:
		if cat != nil {
			if rc := cat.RowCount(e.Table); rc > 0 {
				return float64(rc)
			}
		}
		return estimatedRows(e)
	case plan.Filter:
		sel := defaultSelectivity
		if cat != nil && len(e.Predicates) > 0 {
			sel = cat.Selectivity(predicateTable(e), e.Predicates[0].String())
		}
		card := childCardinalities[0] * sel
		if card < 1 {
			card = 1 // a filter is never estimated to produce zero rows outright
		}
		return card
	case plan.Map, plan.Sort, plan.Broadcast, plan.Exchange, plan.Gather:
		return childCardinalities[0]
	case plan.Limit:
		if e.LimitCount > 0 && float64(e.LimitCount) < childCardinalities[0] {
			return float64(e.LimitCount)
		}
		return childCardinalities[0]
	case plan.NestedLoop:
		return childCardinalities[0] * childCardinalities[1] * defaultSelectivity
	case plan.HashJoin:
		left, right := childCardinalities[0], childCardinalities[1]
		bigger := left
		if right > bigger {
			bigger = right
		}
		switch e.JoinKind {
		case plan.SemiJoin, plan.AntiJoin:
			return left * defaultEquiJoinSelectivity
		default:
			return bigger * defaultEquiJoinSelectivity * 2
		}
	case plan.SimpleAggregate:
		return 1
	case plan.GroupByAggregate:
		card := childCardinalities[0] * 0.3
		if card < 1 {
			card = 1
		}
		return card
	case plan.Union:
		return childCardinalities[0] + childCardinalities[1]
	case plan.Values:
		return float64(len(e.ValueRows))
	default:
		if len(childCardinalities) > 0 {
			return childCardinalities[0]
		}
		return 1
	}
}

func predicateTable(e *plan.Expr) string {
	return e.Table
}
