package rpcsvc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/quilldb/quill/sql"
)

// StatementRequest is the Statement RPC's argument, matching §6's
// Statement(sql, catalog_id, txn?, variables) shape. SQL is carried as
// text for logging and plan-cache keying even though this engine
// expects a pre-resolved logical plan rather than parsing it here; a
// resolver sitting in front of the RPC boundary is responsible for
// turning SQL into the Plan field.
type StatementRequest struct {
	SQL       string
	CatalogID int64
	TxnID     *int64
	Variables map[string]interface{}
	Plan      interface{} // *plan.Expr; interface{} here to keep rpcsvc decoupled from sql/plan's import graph
}

// StatementResponse is Statement's result: rows affected by an
// Insert/Delete/DDL/CALL statement.
type StatementResponse struct {
	RowsAffected int64
}

// QueryRequest is the Query RPC's argument, identical in shape to
// StatementRequest; the two are kept as distinct types because a
// transport layer marshals them onto distinct RPC methods.
type QueryRequest struct {
	SQL       string
	CatalogID int64
	TxnID     *int64
	Variables map[string]interface{}
	Plan      interface{}
}

// QueryResponse is Query's result: a serialized RecordBatch and its
// schema. Serialization format is an external, caller-supplied concern
// per §6 ("an external serializer... packages (column-name,
// typed-column-buffer) pairs"); this boundary only carries the
// already-materialized kernel types, leaving wire encoding to whatever
// transport a deployment plugs in.
type QueryResponse struct {
	Batch  interface{} // *kernel.RecordBatch
	Schema interface{} // sql.Schema
}

// CheckResponse is Check's result: an empty health-check reply.
type CheckResponse struct{}

// CoordinatorService is the RPC surface a coordinator node exposes to
// clients: run a statement, run a query, or report liveness.
type CoordinatorService interface {
	Statement(ctx context.Context, req StatementRequest) (StatementResponse, error)
	Query(ctx context.Context, req QueryRequest) (QueryResponse, error)
	Check(ctx context.Context) (CheckResponse, error)
}

// WorkerService is the RPC surface a worker node exposes to its
// coordinator: the same Statement/Query/Check shape, scoped to
// delegated plan fragments rather than whole statements.
type WorkerService interface {
	Statement(ctx context.Context, req StatementRequest) (StatementResponse, error)
	Query(ctx context.Context, req QueryRequest) (QueryResponse, error)
	Check(ctx context.Context) (CheckResponse, error)
}

// ToStatus translates an error from the engine's taxonomy (§7) into a
// gRPC status, the one place in this module a gRPC-flavored error is
// warranted: §6 names gRPC-style Statement/Query/Check RPCs without
// specifying transport, and this is the boundary that would actually
// sit in front of a generated gRPC server.
//
// Class 2 (unsupported SQL) maps to Unimplemented: no mutation occurred
// and the client should not retry as-is. Class 3 (planner failure) maps
// to FailedPrecondition: the statement was well-formed but the catalog/
// statistics state couldn't produce a winning plan. Class 4 (execution
// failure) maps to Internal for storage/cast/divide errors and
// AlreadyExists for a unique-index violation, matching its "this
// specific write cannot proceed" semantics more precisely than a bare
// Internal would. Anything else -- including a class 5 panic the
// caller has already recovered into a plain error -- maps to Unavailable,
// mirroring "the coordinator observes a broken RPC and surfaces a
// generic execution failure".
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case sql.ErrUnsupportedFeature.Is(err):
		return status.Error(codes.Unimplemented, err.Error())
	case sql.ErrNoWinner.Is(err), sql.ErrRuleProducedImpossibleShape.Is(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case sql.ErrUniqueViolation.Is(err):
		return status.Error(codes.AlreadyExists, err.Error())
	case sql.ErrDivideByZero.Is(err), sql.ErrCastFailed.Is(err):
		return status.Error(codes.Internal, err.Error())
	case sql.ErrReadOnly.Is(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case sql.ErrTableNotFound.Is(err), sql.ErrIndexNotFound.Is(err), sql.ErrTempTableNotFound.Is(err):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
