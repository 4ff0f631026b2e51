package sql

import errors "gopkg.in/src-d/go-errors.v1"

// Error taxonomy. Classes 2-4 of the design's error taxonomy (unsupported
// SQL, planner failure, execution failure) are represented as sentinel
// Kinds below, matching go-mysql-server's sql.Err* convention; class 1
// (programmer errors) panics instead, and class 5 (fatal node panics)
// is whatever panic escapes a kernel-level type assertion.
var (
	// ErrUnsupportedFeature is returned for SQL features the resolver-to-plan
	// translator explicitly rejects (CREATE TEMP TABLE, DEFAULT values,
	// DIFFERENTIAL PRIVACY, PIVOT, recursive CTE). No mutation occurs.
	ErrUnsupportedFeature = errors.NewKind("unsupported feature: %s")

	// ErrNoWinner is a planner failure: the memo's cost search produced no
	// winning physical plan for some group.
	ErrNoWinner = errors.NewKind("planner found no winning plan for group %d")

	// ErrRuleProducedImpossibleShape is a planner failure raised when a rule
	// binds successfully but its replacement violates an operator's arity
	// or type invariants.
	ErrRuleProducedImpossibleShape = errors.NewKind("rule %s produced an invalid plan shape: %s")

	// ErrDivideByZero is an execution failure from integer division.
	ErrDivideByZero = errors.NewKind("division by zero")

	// ErrUniqueViolation is an execution failure: an ART secondary index
	// already holds a value at the inserted key.
	ErrUniqueViolation = errors.NewKind("duplicate entry for unique index %s: key %x")

	// ErrCastFailed is an execution failure from an unparseable cast source.
	ErrCastFailed = errors.NewKind("cannot cast %v to %s")

	// ErrReadOnly mirrors the teacher's read-only engine guard.
	ErrReadOnly = errors.NewKind("server is configured as read-only")

	// ErrTableNotFound signals a catalog lookup miss.
	ErrTableNotFound = errors.NewKind("table not found: %s")

	// ErrIndexNotFound signals a catalog lookup miss on a secondary index.
	ErrIndexNotFound = errors.NewKind("index not found: %s")

	// ErrTempTableNotFound signals a GetTempTable against a name never
	// registered by a preceding CreateTempTable in this query.
	ErrTempTableNotFound = errors.NewKind("temp table not registered: %s")
)
