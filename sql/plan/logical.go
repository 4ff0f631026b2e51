package plan

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression"
)

// NewLogicalGet returns a full scan of table, producing schema.
func NewLogicalGet(table string, schema sql.Schema) *Expr {
	return &Expr{Kind: LogicalGet, Table: table, TableSchema: schema}
}

// NewLogicalSingleGet returns the one-row, zero-column source used to
// evaluate a SELECT with no FROM clause.
func NewLogicalSingleGet() *Expr {
	return &Expr{Kind: LogicalSingleGet}
}

// NewLogicalFilter keeps only rows of input for which every predicate
// is true (three-valued: NULL/false rows are dropped).
func NewLogicalFilter(input *Expr, predicates ...expression.Expr) *Expr {
	return &Expr{Kind: LogicalFilter, Input: []*Expr{input}, Predicates: predicates}
}

// NewLogicalMap projects input through exprs, producing columns 1:1.
// Invariant: len(exprs) == len(columns).
func NewLogicalMap(input *Expr, exprs []expression.Expr, columns sql.Schema) *Expr {
	return &Expr{Kind: LogicalMap, Input: []*Expr{input}, Projects: exprs, Columns: columns}
}

// NewLogicalJoin joins left and right under kind, with equi-join pairs
// and any residual (non-equi) predicates.
func NewLogicalJoin(kind JoinKind, left, right *Expr, equals []JoinPair, predicates []expression.Expr) *Expr {
	return &Expr{Kind: LogicalJoin, Input: []*Expr{left, right}, JoinKind: kind, JoinEquals: equals, Predicates: predicates}
}

// NewLogicalDependentJoin represents a correlated subquery before
// decorrelation: domain is the outer side (projected to the free
// variables parameters names), subquery is the correlated inner side.
func NewLogicalDependentJoin(kind JoinKind, domain, subquery *Expr, parameters sql.ColSet, predicates []expression.Expr) *Expr {
	return &Expr{Kind: LogicalDependentJoin, Input: []*Expr{domain, subquery}, JoinKind: kind, Parameters: parameters, Predicates: predicates}
}

// NewLogicalAggregate groups input by groupBy and computes aggregates;
// LogicalAggregate is the sole source of aggregate output columns.
func NewLogicalAggregate(input *Expr, groupBy sql.ColSet, aggregates []expression.AggregateExpr) *Expr {
	return &Expr{Kind: LogicalAggregate, Input: []*Expr{input}, GroupBy: groupBy, Aggregates: aggregates}
}

// NewLogicalLimit caps input to count rows after skipping offset.
func NewLogicalLimit(input *Expr, count, offset int64) *Expr {
	return &Expr{Kind: LogicalLimit, Input: []*Expr{input}, LimitCount: count, LimitOffset: offset}
}

// NewLogicalSort orders input by keys, one descending flag per key.
func NewLogicalSort(input *Expr, keys []sql.ColumnID, desc []bool) *Expr {
	return &Expr{Kind: LogicalSort, Input: []*Expr{input}, SortKeys: keys, SortDesc: desc}
}

// NewLogicalUnion concatenates left and right, which must share a schema.
func NewLogicalUnion(left, right *Expr) *Expr {
	return &Expr{Kind: LogicalUnion, Input: []*Expr{left, right}}
}

// NewLogicalWith binds name to the result of input for the remainder of
// the statement (a CTE), continuing with body.
func NewLogicalWith(name string, input, body *Expr) *Expr {
	return &Expr{Kind: LogicalWith, Input: []*Expr{input, body}, Name: name}
}

// NewLogicalGetWith reads back a name bound by an enclosing LogicalWith.
func NewLogicalGetWith(name string, schema sql.Schema) *Expr {
	return &Expr{Kind: LogicalGetWith, Name: name, TableSchema: schema}
}

// NewLogicalValues materializes a literal row set.
func NewLogicalValues(rows [][]expression.Expr, columns sql.Schema) *Expr {
	return &Expr{Kind: LogicalValues, ValueRows: rows, Columns: columns}
}

// NewLogicalInsert inserts every row of input into table.
func NewLogicalInsert(table string, schema sql.Schema, input *Expr) *Expr {
	return &Expr{Kind: LogicalInsert, Input: []*Expr{input}, Table: table, TableSchema: schema}
}

// NewLogicalUpdate applies sets to every row of input matched against table.
func NewLogicalUpdate(table string, schema sql.Schema, input *Expr, sets map[sql.ColumnID]expression.Expr) *Expr {
	return &Expr{Kind: LogicalUpdate, Input: []*Expr{input}, Table: table, TableSchema: schema, Sets: sets}
}

// NewLogicalDelete removes every row of input from table.
func NewLogicalDelete(table string, input *Expr) *Expr {
	return &Expr{Kind: LogicalDelete, Input: []*Expr{input}, Table: table}
}

// NewLogicalCreateDatabase registers a new database/namespace.
func NewLogicalCreateDatabase(name string) *Expr {
	return &Expr{Kind: LogicalCreateDatabase, Name: name}
}

// NewLogicalCreateTable registers table with schema.
func NewLogicalCreateTable(table string, schema sql.Schema) *Expr {
	return &Expr{Kind: LogicalCreateTable, Table: table, NewSchema: schema}
}

// NewLogicalCreateIndex builds a secondary index named indexName on
// table over cols.
func NewLogicalCreateIndex(input *Expr, table, indexName string, cols []sql.ColumnID, unique bool) *Expr {
	return &Expr{Kind: LogicalCreateIndex, Input: []*Expr{input}, Table: table, IndexName: indexName, IndexCols: cols, Unique: unique}
}

// NewLogicalDrop removes the named table, database, or index.
func NewLogicalDrop(input *Expr, name string) *Expr {
	return &Expr{Kind: LogicalDrop, Input: []*Expr{input}, Name: name}
}

// NewLogicalScript sequences statements, each optimized and executed in order.
func NewLogicalScript(statements ...*Expr) *Expr {
	return &Expr{Kind: LogicalScript, Input: statements}
}

// NewLogicalCall invokes the named stored procedure with args.
func NewLogicalCall(input *Expr, proc string, args []expression.Expr) *Expr {
	return &Expr{Kind: LogicalCall, Input: []*Expr{input}, Proc: proc, Args: args}
}

// NewLogicalExplain wraps input, reporting its optimized plan instead of
// executing it.
func NewLogicalExplain(input *Expr) *Expr {
	return &Expr{Kind: LogicalExplain, Input: []*Expr{input}}
}
