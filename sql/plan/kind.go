// Package plan implements the relational plan node: a single tagged
// variant (mirroring the Rust Expr enum this engine's planner is
// grounded on) rather than a Go interface per operator, so the memo can
// freely rewrite a node's Kind and fields in place during search without
// juggling concrete types per branch.
package plan

// Kind tags which relational operator an Expr node represents. Logical
// kinds are produced by the resolver and rewritten by the memo's
// exploration rules; physical kinds are produced by implementation rules
// and carry a cost. Leaf is a memo-internal placeholder standing in for
// "the winning plan of group g", never present in a finished plan tree.
type Kind uint16

const (
	Invalid Kind = iota

	// Logical
	LogicalGet
	LogicalSingleGet
	LogicalFilter
	LogicalMap
	LogicalJoin
	LogicalDependentJoin
	LogicalAggregate
	LogicalLimit
	LogicalSort
	LogicalUnion
	LogicalWith
	LogicalGetWith
	LogicalValues
	LogicalInsert
	LogicalUpdate
	LogicalDelete
	LogicalCreateDatabase
	LogicalCreateTable
	LogicalCreateIndex
	LogicalDrop
	LogicalScript
	LogicalCall
	LogicalExplain

	// Physical
	TableFreeScan
	SeqScan
	IndexScan
	Filter
	Map
	NestedLoop
	HashJoin
	SimpleAggregate
	GroupByAggregate
	Limit
	Sort
	Union
	Broadcast
	Exchange
	Gather
	CreateTempTable
	GetTempTable
	Insert
	Values
	Update
	Delete
	Script
	Call
	Explain

	// Leaf is the memo's "group reference" placeholder: Leaf.GroupID names
	// the memo group whose winning physical expression belongs here.
	Leaf
)

// arity reports how many children a Kind fixes, or -1 for the variadic
// Script node (one child per statement). IndexScan reports 0 even though
// a lookup join's IndexScan carries its probe side as one child.
func (k Kind) arity() int {
	switch k {
	case LogicalGet, LogicalSingleGet, LogicalValues, LogicalCreateDatabase,
		TableFreeScan, SeqScan, IndexScan, GetTempTable, Leaf, LogicalCreateTable,
		LogicalGetWith, Values:
		return 0
	case LogicalFilter, LogicalMap, LogicalAggregate, LogicalLimit, LogicalSort,
		LogicalWith, LogicalInsert, LogicalUpdate, LogicalDelete,
		LogicalCreateIndex, LogicalDrop, LogicalCall, LogicalExplain,
		Filter, Map, SimpleAggregate, GroupByAggregate, Limit, Sort,
		Broadcast, Exchange, Gather, CreateTempTable, Insert, Update, Delete, Call, Explain:
		return 1
	case LogicalJoin, LogicalDependentJoin, LogicalUnion, NestedLoop, HashJoin, Union:
		return 2
	case LogicalScript, Script:
		return -1
	default:
		return 0
	}
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// IsLogical reports whether k is a logical operator kind (pre-optimization).
func (k Kind) IsLogical() bool {
	return k >= LogicalGet && k <= LogicalExplain
}

// IsPhysical reports whether k is an implementable operator kind.
func (k Kind) IsPhysical() bool {
	return k >= TableFreeScan && k <= Explain
}

var kindNames = map[Kind]string{
	LogicalGet: "LogicalGet", LogicalSingleGet: "LogicalSingleGet",
	LogicalFilter: "LogicalFilter", LogicalMap: "LogicalMap", LogicalJoin: "LogicalJoin",
	LogicalDependentJoin: "LogicalDependentJoin", LogicalAggregate: "LogicalAggregate",
	LogicalLimit: "LogicalLimit", LogicalSort: "LogicalSort", LogicalUnion: "LogicalUnion",
	LogicalWith: "LogicalWith", LogicalGetWith: "LogicalGetWith", LogicalValues: "LogicalValues",
	LogicalInsert: "LogicalInsert", LogicalUpdate: "LogicalUpdate", LogicalDelete: "LogicalDelete",
	LogicalCreateDatabase: "LogicalCreateDatabase", LogicalCreateTable: "LogicalCreateTable",
	LogicalCreateIndex: "LogicalCreateIndex", LogicalDrop: "LogicalDrop",
	LogicalScript: "LogicalScript", LogicalCall: "LogicalCall", LogicalExplain: "LogicalExplain",
	TableFreeScan: "TableFreeScan", SeqScan: "SeqScan", IndexScan: "IndexScan",
	Filter: "Filter", Map: "Map", NestedLoop: "NestedLoop", HashJoin: "HashJoin",
	SimpleAggregate: "SimpleAggregate", GroupByAggregate: "GroupByAggregate",
	Limit: "Limit", Sort: "Sort", Union: "Union", Broadcast: "Broadcast",
	Exchange: "Exchange", Gather: "Gather", CreateTempTable: "CreateTempTable",
	GetTempTable: "GetTempTable", Insert: "Insert", Values: "Values", Update: "Update", Delete: "Delete",
	Script: "Script", Call: "Call", Explain: "Explain", Leaf: "Leaf",
}

// JoinKind selects the join semantics a LogicalJoin/NestedLoop/HashJoin
// node implements.
type JoinKind uint8

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
	SemiJoin
	AntiJoin
	SingleJoin // at most one match, raises an error if the subquery finds two
	MarkJoin   // produces a boolean "did this side match" column
)

func (j JoinKind) String() string {
	switch j {
	case InnerJoin:
		return "Inner"
	case LeftJoin:
		return "Left"
	case RightJoin:
		return "Right"
	case FullJoin:
		return "Full"
	case SemiJoin:
		return "Semi"
	case AntiJoin:
		return "Anti"
	case SingleJoin:
		return "Single"
	case MarkJoin:
		return "Mark"
	default:
		return "Unknown"
	}
}

// Distribution tags a physical node's output partitioning, per the
// lattice { None, GatherDist, ExchangeDist, BroadcastDist }.
type Distribution uint8

const (
	None Distribution = iota
	GatherDist
	ExchangeDist
	BroadcastDist
)
