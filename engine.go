// Package quill is the top-level embedding API: an Engine ties a
// Catalog, the Cascades memo, and the columnar executor together behind
// the two calls the RPC boundary (package rpcsvc) exposes, Statement and
// Query, modeled on the teacher's own engine.go entry point.
package quill

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/quilldb/quill/catalog"
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/expression/function"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/sql/memo"
	"github.com/quilldb/quill/sql/plan"
	"github.com/quilldb/quill/sql/rowexec"
	"github.com/quilldb/quill/storage/memheap"
)

// Config tunes an Engine. The zero Config is valid; NewDefault applies
// it as-is.
type Config struct {
	// MemoryLimit bounds the MemoryManager's tracked consumption; 0 means
	// unbounded.
	MemoryLimit int64
	// PlanCacheSize bounds the number of optimized physical plans cached
	// by statement text; 0 selects a default of 128.
	PlanCacheSize int
	// ReadOnly rejects every statement mutates() treats as a write
	// (Insert, Delete, Update, and DDL) with sql.ErrReadOnly, mirroring
	// the teacher's read-only server mode.
	ReadOnly bool
	// Logger is the base logrus logger every query's sql.Context derives
	// its entry from; nil selects logrus.StandardLogger().
	Logger *logrus.Logger
}

// Engine is the process-wide handle embedding code runs queries
// through: one Catalog, one MemoryManager and ProcessList shared across
// every statement, and a plan cache keyed by statement text.
type Engine struct {
	Catalog   *catalog.Catalog
	Memory    *sql.MemoryManager
	Processes *sql.ProcessList

	readOnly  atomic.Bool
	logger    *logrus.Logger
	planCache *lru.Cache[string, *plan.Expr]

	queriesTotal   prometheus.Counter
	planCacheHits  prometheus.Counter
	planCacheMiss  prometheus.Counter
	rowsScanned    prometheus.Counter
	statementErrs  prometheus.Counter
}

// New returns an Engine backed by cat, an already-populated catalog.
func New(cat *catalog.Catalog, cfg Config) *Engine {
	cacheSize := cfg.PlanCacheSize
	if cacheSize <= 0 {
		cacheSize = 128
	}
	planCache, _ := lru.New[string, *plan.Expr](cacheSize)
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	e := &Engine{
		Catalog:   cat,
		Memory:    sql.NewMemoryManager(cfg.MemoryLimit),
		Processes: sql.NewProcessList(),
		logger:    logger,
		planCache: planCache,

		queriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quill_queries_total",
			Help: "Statements and queries run by this engine.",
		}),
		planCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quill_plan_cache_hits_total",
			Help: "Optimized-plan cache hits by statement text.",
		}),
		planCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quill_plan_cache_misses_total",
			Help: "Optimized-plan cache misses by statement text.",
		}),
		rowsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quill_rows_scanned_total",
			Help: "Rows produced by the final batch of every query.",
		}),
		statementErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quill_statement_errors_total",
			Help: "Statement and Query calls that returned an error.",
		}),
	}
	e.readOnly.Store(cfg.ReadOnly)
	return e
}

// NewDefault returns an Engine over a fresh, empty catalog with default
// tuning, convenient for embedding and for enginetest.
func NewDefault() *Engine {
	return New(catalog.New(0), Config{})
}

// Register exposes the Engine's counters on reg, the caller's
// prometheus.Registerer; skippable, since none of the optimizer or
// executor contracts above depend on these counters existing.
func (e *Engine) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		e.queriesTotal, e.planCacheHits, e.planCacheMiss, e.rowsScanned, e.statementErrs,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// SetReadOnly toggles the read-only guard Statement enforces against
// Insert, Delete, Update, and DDL plans.
func (e *Engine) SetReadOnly(ro bool) { e.readOnly.Store(ro) }

// newStatementContext builds the *sql.Context a single statement runs
// under: a fresh transaction id, a pinned statement time for
// CURRENT_TIMESTAMP/RAND, and a process-list registration the caller is
// responsible for tearing down via Processes.Done.
func (e *Engine) newStatementContext(parent context.Context, queryText string, txnID int64) *sql.Context {
	withTime := context.WithValue(parent, function.StatementTimeKey(), time.Now())
	ctx := sql.NewContext(withTime, e.logger, txnID)
	e.Processes.AddProcess(ctx.QueryID.String(), queryText)
	return ctx
}

// planCacheKey derives a cache key from statement text. A plan cached
// against stale statistics is corrected by eviction (the LRU cap) or by
// an explicit ANALYZE-driven invalidation, neither of which this
// reference engine implements; production deployments would add one.
func planCacheKey(queryText string) string {
	sum := sha256.Sum256([]byte(queryText))
	return hex.EncodeToString(sum[:])
}

// optimize resolves logicalPlan to a winning physical plan, consulting
// and populating the plan cache by queryText.
func (e *Engine) optimize(ctx *sql.Context, queryText string, logicalPlan *plan.Expr) (*plan.Expr, error) {
	key := planCacheKey(queryText)
	if cached, ok := e.planCache.Get(key); ok {
		e.planCacheHits.Inc()
		return cached, nil
	}
	e.planCacheMiss.Inc()
	m := memo.New(e.Catalog)
	physical, err := m.OptimizeStatement(logicalPlan)
	if err != nil {
		return nil, errors.Wrap(err, "optimize statement")
	}
	e.planCache.Add(key, physical)
	return physical, nil
}

// Statement runs logicalPlan for its side effects (Insert, Delete, DDL,
// CALL) and reports rows affected, mirroring §6's Statement RPC shape.
// queryText is used only for logging, process-list display, and plan
// cache keying; this Engine takes an already-resolved logical plan
// rather than parsing SQL text itself.
func (e *Engine) Statement(ctx context.Context, queryText string, logicalPlan *plan.Expr) (rowsAffected int64, err error) {
	e.queriesTotal.Inc()
	if e.readOnly.Load() && mutates(logicalPlan) {
		e.statementErrs.Inc()
		return 0, sql.ErrReadOnly.New()
	}
	sctx := e.newStatementContext(ctx, queryText, nextTxnID())
	defer e.Processes.Done(sctx.QueryID.String())

	if isDDL(logicalPlan) {
		e.Processes.UpdateState(sctx.QueryID.String(), sql.ProcessExecuting)
		n, err := e.execDDL(sctx, logicalPlan)
		if err != nil {
			e.statementErrs.Inc()
			return 0, err
		}
		return n, nil
	}

	physical, err := e.optimize(sctx, queryText, logicalPlan)
	if err != nil {
		e.statementErrs.Inc()
		return 0, err
	}
	e.Processes.UpdateState(sctx.QueryID.String(), sql.ProcessExecuting)

	ex := rowexec.New(e.Catalog)
	it, err := ex.Build(sctx, physical)
	if err != nil {
		e.statementErrs.Inc()
		return 0, errors.Wrap(err, "build executor")
	}
	batch, err := rowexec.Drain(it, physical.Schema())
	if err != nil {
		e.statementErrs.Inc()
		return 0, errors.Wrap(err, "execute statement")
	}
	idx := batch.Find("rows_affected")
	if idx < 0 {
		return 0, nil
	}
	arr := batch.Columns[idx].Array.(*kernel.Int64Array)
	var total int64
	for i := 0; i < arr.Len(); i++ {
		v, ok := arr.Get(i)
		if ok {
			total += v
		}
	}
	return total, nil
}

// Query runs logicalPlan and returns its full result set materialized
// into one RecordBatch, mirroring §6's Query RPC shape (a serialized
// RecordBatch plus schema; serialization itself belongs to rpcsvc's
// transport, out of scope here).
func (e *Engine) Query(ctx context.Context, queryText string, logicalPlan *plan.Expr) (*kernel.RecordBatch, sql.Schema, error) {
	e.queriesTotal.Inc()
	sctx := e.newStatementContext(ctx, queryText, nextTxnID())
	defer e.Processes.Done(sctx.QueryID.String())

	physical, err := e.optimize(sctx, queryText, logicalPlan)
	if err != nil {
		e.statementErrs.Inc()
		return nil, nil, err
	}
	e.Processes.UpdateState(sctx.QueryID.String(), sql.ProcessExecuting)

	ex := rowexec.New(e.Catalog)
	it, err := ex.Build(sctx, physical)
	if err != nil {
		e.statementErrs.Inc()
		return nil, nil, errors.Wrap(err, "build executor")
	}
	schema := physical.Schema()
	batch, err := rowexec.Drain(it, schema)
	if err != nil {
		e.statementErrs.Inc()
		return nil, nil, errors.Wrap(err, "execute query")
	}
	e.rowsScanned.Add(float64(batch.NumRows()))
	return batch, schema, nil
}

// Close releases no resources of its own today (the in-memory catalog
// and heaps own nothing beyond process memory); it exists so embedders
// have a stable shutdown hook to call regardless of which storage.Heap
// implementation a future release plugs in behind the catalog.
func (e *Engine) Close() error { return nil }

// mutates reports whether a physical or logical plan can modify table
// or index state, the read-only guard's definition of "a write".
func mutates(e *plan.Expr) bool {
	switch e.Kind {
	case plan.Insert, plan.Delete, plan.LogicalInsert, plan.LogicalDelete, plan.LogicalUpdate,
		plan.LogicalCreateDatabase, plan.LogicalCreateTable, plan.LogicalCreateIndex, plan.LogicalDrop:
		return true
	}
	for _, c := range e.Input {
		if mutates(c) {
			return true
		}
	}
	return false
}

// isDDL reports whether logicalPlan is a schema-changing statement.
// OptimizeStatement passes these four kinds through unconverted (there
// is no cost-based alternative for "create this table"), so Statement
// must execute them against the catalog directly instead of handing
// them to rowexec, which only builds physical plan kinds.
func isDDL(e *plan.Expr) bool {
	switch e.Kind {
	case plan.LogicalCreateDatabase, plan.LogicalCreateTable, plan.LogicalCreateIndex, plan.LogicalDrop:
		return true
	}
	return false
}

// execDDL runs a schema-changing statement directly against e.Catalog.
func (e *Engine) execDDL(ctx *sql.Context, ddl *plan.Expr) (int64, error) {
	switch ddl.Kind {
	case plan.LogicalCreateDatabase:
		// This Engine is backed by a single process-wide Catalog with no
		// separate database namespace to register into, so CREATE
		// DATABASE succeeds without touching any state.
		return 0, nil

	case plan.LogicalCreateTable:
		heap := memheap.New(ddl.NewSchema)
		if err := e.Catalog.CreateTable(ddl.Table, ddl.NewSchema, heap); err != nil {
			return 0, errors.Wrap(err, "create table")
		}
		return 0, nil

	case plan.LogicalCreateIndex:
		if err := e.Catalog.CreateIndex(ddl.Table, ddl.IndexName, ddl.IndexCols, ddl.Unique); err != nil {
			return 0, errors.Wrap(err, "create index")
		}
		if err := rowexec.New(e.Catalog).BackfillIndex(ctx, ddl.Table, ddl.IndexName); err != nil {
			return 0, errors.Wrap(err, "backfill index")
		}
		return 0, nil

	case plan.LogicalDrop:
		return 0, e.dropByName(ddl.Name)

	default:
		return 0, errors.Errorf("quill: unhandled DDL kind %s", ddl.Kind)
	}
}

// dropByName removes whichever table or index is registered under name.
// LogicalDrop carries no table qualifier for an index drop, so a table
// of that exact name is tried first and an index of that name on any
// table second.
func (e *Engine) dropByName(name string) error {
	if err := e.Catalog.DropTable(name); err == nil {
		return nil
	}
	for _, table := range e.Catalog.Tables() {
		if err := e.Catalog.DropIndex(table, name); err == nil {
			return nil
		}
	}
	return sql.ErrTableNotFound.New(name)
}

var txnCounter int64

// nextTxnID mints a process-wide monotonic transaction id. A production
// engine would hand these out from a durable WAL sequence; this
// in-memory reference engine only needs them to be unique and
// increasing: memheap records them as each tuple's xmin/xmax, and its
// visibility check only tests whether xmax is 0.
func nextTxnID() int64 {
	return atomic.AddInt64(&txnCounter, 1)
}
