package plan

import (
	"fmt"
	"strings"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression"
)

// Expr is the single relational plan node type. Only the fields relevant
// to Kind are meaningful; constructors in logical.go/physical.go populate
// exactly those and leave the rest zero. Indexing (Input[i]) yields the
// i-th child, matching the spec's "polymorphic indexing" requirement.
type Expr struct {
	Kind  Kind
	Input []*Expr

	// LogicalGet / SeqScan
	Table      string
	TableSchema sql.Schema
	// IndexHints names secondary indexes the catalog reports on Table,
	// consulted by the memo's implementation rules to propose IndexScan
	// alternatives alongside the always-applicable SeqScan.
	IndexHints []string

	// IndexScan
	IndexName string
	LowerBound, UpperBound expression.Expr
	IncludeExisting        bool

	// LogicalFilter / Filter / join predicates
	Predicates []expression.Expr

	// LogicalMap / Map: Projects[i] computes Columns[i]
	Projects []expression.Expr
	Columns  sql.Schema

	// LogicalJoin / LogicalDependentJoin / NestedLoop / HashJoin
	JoinKind   JoinKind
	JoinEquals []JoinPair // equi-join (left, right) column pairs, driving HashJoin
	MarkColumn sql.Column // output column for JoinKind == MarkJoin
	// Parameters names the correlated columns a LogicalDependentJoin's
	// subquery (Input[1]) reads from its domain (Input[0]).
	Parameters sql.ColSet

	// LogicalAggregate / SimpleAggregate / GroupByAggregate
	GroupBy    sql.ColSet
	Aggregates []expression.AggregateExpr

	// LogicalLimit / Limit
	LimitCount  int64
	LimitOffset int64

	// LogicalSort / Sort
	SortKeys []sql.ColumnID
	SortDesc []bool

	// LogicalWith / LogicalGetWith / CreateTempTable / GetTempTable
	Name string

	// LogicalValues / Values
	ValueRows [][]expression.Expr

	// LogicalInsert / Insert, LogicalUpdate, LogicalDelete / Delete
	Sets map[sql.ColumnID]expression.Expr

	// LogicalCreateTable / LogicalCreateIndex
	NewSchema  sql.Schema
	IndexCols  []sql.ColumnID
	Unique     bool

	// LogicalCall / Call
	Proc string
	Args []expression.Expr

	// Distribution enforcers: Broadcast/Exchange/Gather
	Dist Distribution
	PartitionBy sql.ColSet

	// Leaf: the memo group this placeholder stands for.
	GroupID int
}

// JoinPair is one equi-join column pair, left side then right side.
type JoinPair struct {
	Left, Right sql.ColumnID
}

// Len returns this node's declared arity.
func (e *Expr) Len() int { return e.Kind.arity() }

// Children returns e's direct inputs.
func (e *Expr) Children() []*Expr { return e.Input }

// At returns the i-th child, per the spec's "node[i] yields the i-th child".
func (e *Expr) At(i int) *Expr { return e.Input[i] }

// WithChildren returns a shallow copy of e with its Input replaced.
func (e *Expr) WithChildren(children ...*Expr) *Expr {
	cp := *e
	cp.Input = children
	return &cp
}

// Schema returns the output row shape this node produces.
func (e *Expr) Schema() sql.Schema {
	switch e.Kind {
	case LogicalGet, SeqScan, TableFreeScan, LogicalValues, Values:
		if e.Kind == LogicalValues || e.Kind == Values {
			return e.Columns
		}
		return e.TableSchema
	case IndexScan:
		if e.IncludeExisting {
			return append(append(sql.Schema{}, e.Input[0].Schema()...), e.TableSchema...)
		}
		return e.TableSchema
	case LogicalMap, Map:
		return e.Columns
	case LogicalAggregate, SimpleAggregate, GroupByAggregate:
		out := make(sql.Schema, 0, e.GroupBy.Len()+len(e.Aggregates))
		for _, id := range e.Input[0].Schema() {
			if e.GroupBy.Contains(id.ID) {
				out = append(out, id)
			}
		}
		for _, agg := range e.Aggregates {
			out = append(out, agg.Output)
		}
		return out
	case LogicalJoin, LogicalDependentJoin, NestedLoop, HashJoin:
		left := e.Input[0].Schema()
		if e.JoinKind == SemiJoin || e.JoinKind == AntiJoin {
			return left
		}
		right := e.Input[1].Schema()
		if e.JoinKind == MarkJoin {
			return append(append(sql.Schema{}, left...), e.MarkColumn)
		}
		return append(append(sql.Schema{}, left...), right...)
	case LogicalCreateTable:
		return e.NewSchema
	case CreateTempTable, GetTempTable:
		return e.TableSchema
	default:
		if len(e.Input) > 0 {
			return e.Input[0].Schema()
		}
		return nil
	}
}

// Attributes returns the ColumnIDs produced by this node (its output
// schema's identities).
func (e *Expr) Attributes() sql.ColSet {
	out := sql.ColSet{}
	for _, c := range e.Schema() {
		out = out.Add(c.ID)
	}
	return out
}

// References returns every column this node's own expressions read
// (predicates, projections, aggregate arguments, sort keys) that must be
// supplied by its inputs -- the free-variable set the memo uses to prune
// index and join-order choices.
func (e *Expr) References() sql.ColSet {
	out := sql.ColSet{}
	for _, p := range e.Predicates {
		out = out.Union(p.References())
	}
	for _, p := range e.Projects {
		out = out.Union(p.References())
	}
	for _, row := range e.ValueRows {
		for _, v := range row {
			out = out.Union(v.References())
		}
	}
	for _, agg := range e.Aggregates {
		out = out.Union(agg.References())
	}
	for id := range e.GroupBy {
		out = out.Add(id)
	}
	for _, pair := range e.JoinEquals {
		out = out.Add(pair.Left).Add(pair.Right)
	}
	for _, id := range e.SortKeys {
		out = out.Add(id)
	}
	for id, expr := range e.Sets {
		out = out.Add(id)
		out = out.Union(expr.References())
	}
	for _, a := range e.Args {
		out = out.Union(a.References())
	}
	if e.LowerBound != nil {
		out = out.Union(e.LowerBound.References())
	}
	if e.UpperBound != nil {
		out = out.Union(e.UpperBound.References())
	}
	return out
}

func (e *Expr) String() string {
	var sb strings.Builder
	writeExpr(&sb, e, 0)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e *Expr, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(e.Kind.String())
	switch e.Kind {
	case LogicalGet, SeqScan, TableFreeScan:
		fmt.Fprintf(sb, "(%s)", e.Table)
	case IndexScan:
		fmt.Fprintf(sb, "(%s.%s)", e.Table, e.IndexName)
	case LogicalJoin, LogicalDependentJoin, NestedLoop, HashJoin:
		fmt.Fprintf(sb, "(%s)", e.JoinKind)
	case Leaf:
		fmt.Fprintf(sb, "(g%d)", e.GroupID)
	}
	sb.WriteString("\n")
	for _, c := range e.Input {
		writeExpr(sb, c, depth+1)
	}
}
