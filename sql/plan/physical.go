package plan

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression"
)

// NewTableFreeScan produces the single empty-column row LogicalSingleGet
// implements physically.
func NewTableFreeScan() *Expr {
	return &Expr{Kind: TableFreeScan}
}

// NewSeqScan reads every row of table in storage order.
func NewSeqScan(table string, schema sql.Schema) *Expr {
	return &Expr{Kind: SeqScan, Table: table, TableSchema: schema}
}

// NewIndexScan reads table via indexName over [lower, upper], both
// bounds inclusive (a nil upper makes it a point lookup on lower, and a
// nil lower with no input scans the whole index), optionally zipping the
// probe row (input) back onto each match when includeExisting is set (a
// lookup join's right side).
func NewIndexScan(input *Expr, table, indexName string, lower, upper expression.Expr, schema sql.Schema, includeExisting bool) *Expr {
	e := &Expr{Kind: IndexScan, Table: table, IndexName: indexName, LowerBound: lower, UpperBound: upper, TableSchema: schema, IncludeExisting: includeExisting}
	if input != nil {
		e.Input = []*Expr{input}
	}
	return e
}

// NewFilter is LogicalFilter's physical implementation.
func NewFilter(input *Expr, predicates ...expression.Expr) *Expr {
	return &Expr{Kind: Filter, Input: []*Expr{input}, Predicates: predicates}
}

// NewMap is LogicalMap's physical implementation.
func NewMap(input *Expr, exprs []expression.Expr, columns sql.Schema) *Expr {
	return &Expr{Kind: Map, Input: []*Expr{input}, Projects: exprs, Columns: columns}
}

// NewNestedLoop evaluates predicates for every (left, right) row pair.
// Grounded on the naive join implementation rule: always applicable,
// expensive, used when no equi-join key exists.
func NewNestedLoop(kind JoinKind, left, right *Expr, predicates []expression.Expr) *Expr {
	return &Expr{Kind: NestedLoop, Input: []*Expr{left, right}, JoinKind: kind, Predicates: predicates}
}

// NewHashJoin builds a hash table over left (the build side) keyed by
// equals, probing it with right. Input[0] is always the build side and
// Input[1] always the probe side, the same convention NewNestedLoop
// uses for its left/right inputs -- callers that want the other
// relation built (the smaller side, or whichever a broadcast/exchange
// rule replicates) pass it as left.
func NewHashJoin(kind JoinKind, left, right *Expr, equals []JoinPair, residual []expression.Expr) *Expr {
	return &Expr{Kind: HashJoin, Input: []*Expr{left, right}, JoinKind: kind, JoinEquals: equals, Predicates: residual}
}

// NewSimpleAggregate computes aggregates over the whole input as one group.
func NewSimpleAggregate(input *Expr, aggregates []expression.AggregateExpr) *Expr {
	return &Expr{Kind: SimpleAggregate, Input: []*Expr{input}, Aggregates: aggregates}
}

// NewGroupByAggregate is LogicalAggregate's physical implementation when
// groupBy is non-empty.
func NewGroupByAggregate(input *Expr, groupBy sql.ColSet, aggregates []expression.AggregateExpr) *Expr {
	return &Expr{Kind: GroupByAggregate, Input: []*Expr{input}, GroupBy: groupBy, Aggregates: aggregates}
}

// NewLimit is LogicalLimit's physical implementation.
func NewLimit(input *Expr, count, offset int64) *Expr {
	return &Expr{Kind: Limit, Input: []*Expr{input}, LimitCount: count, LimitOffset: offset}
}

// NewSort is LogicalSort's physical implementation.
func NewSort(input *Expr, keys []sql.ColumnID, desc []bool) *Expr {
	return &Expr{Kind: Sort, Input: []*Expr{input}, SortKeys: keys, SortDesc: desc}
}

// NewUnion is LogicalUnion's physical implementation.
func NewUnion(left, right *Expr) *Expr {
	return &Expr{Kind: Union, Input: []*Expr{left, right}}
}

// NewBroadcast enforces BroadcastDist on top of input: every worker
// receives a full copy, required for the build side of a broadcast hash
// join.
func NewBroadcast(input *Expr) *Expr {
	return &Expr{Kind: Broadcast, Input: []*Expr{input}, Dist: BroadcastDist}
}

// NewExchange enforces ExchangeDist, hash-partitioning input on
// partitionBy. A preceding Map must already compute $hash =
// hash(partition_by...) per the physical property enforcement rule.
func NewExchange(input *Expr, partitionBy sql.ColSet) *Expr {
	return &Expr{Kind: Exchange, Input: []*Expr{input}, Dist: ExchangeDist, PartitionBy: partitionBy}
}

// NewGather enforces GatherDist, collecting every worker's rows at the
// coordinator, generally atop a node that already produced a global sort.
func NewGather(input *Expr) *Expr {
	return &Expr{Kind: Gather, Input: []*Expr{input}, Dist: GatherDist}
}

// NewCreateTempTable materializes input under name for the rest of the
// query's execution, returned by a subsequent GetTempTable.
func NewCreateTempTable(input *Expr, name string) *Expr {
	return &Expr{Kind: CreateTempTable, Input: []*Expr{input}, Name: name}
}

// NewGetTempTable reads back a table registered by a preceding
// CreateTempTable in the same query; unregistered names are an execution
// failure (sql.ErrTempTableNotFound).
func NewGetTempTable(name string, schema sql.Schema) *Expr {
	return &Expr{Kind: GetTempTable, Name: name, TableSchema: schema}
}

// NewInsert is LogicalInsert's physical implementation.
func NewInsert(input *Expr, table string, schema sql.Schema) *Expr {
	return &Expr{Kind: Insert, Input: []*Expr{input}, Table: table, TableSchema: schema}
}

// NewValues is LogicalValues's physical implementation.
func NewValues(rows [][]expression.Expr, columns sql.Schema) *Expr {
	return &Expr{Kind: Values, ValueRows: rows, Columns: columns}
}

// NewUpdate is LogicalUpdate's physical implementation: input must carry
// the hidden row-id column (an unwrapped Filter/Scan, never a Map, which
// would strip it) so the executor can compute a matched row's new values
// and delete its old heap entry from the very same batch, instead of
// re-deriving the insert side from a second, independently mutated scan.
// projects/columns are memo's updateProjects output: one expression
// per table column, passthrough columns re-read via a ColumnRef and SET
// columns replaced by their assignment.
func NewUpdate(input *Expr, table string, schema sql.Schema, projects []expression.Expr, columns sql.Schema) *Expr {
	return &Expr{Kind: Update, Input: []*Expr{input}, Table: table, TableSchema: schema, Projects: projects, Columns: columns}
}

// NewDelete is LogicalDelete's physical implementation.
func NewDelete(input *Expr, table string) *Expr {
	return &Expr{Kind: Delete, Input: []*Expr{input}, Table: table}
}

// NewScript is LogicalScript's physical implementation.
func NewScript(statements ...*Expr) *Expr {
	return &Expr{Kind: Script, Input: statements}
}

// NewCall is LogicalCall's physical implementation.
func NewCall(input *Expr, proc string, args []expression.Expr) *Expr {
	return &Expr{Kind: Call, Input: []*Expr{input}, Proc: proc, Args: args}
}

// NewExplain is LogicalExplain's physical implementation.
func NewExplain(input *Expr) *Expr {
	return &Expr{Kind: Explain, Input: []*Expr{input}}
}

// NewLeaf is the memo's group-reference placeholder, substituted for a
// child during cost-based search before a winner is known.
func NewLeaf(groupID int) *Expr {
	return &Expr{Kind: Leaf, GroupID: groupID}
}
