// Package storage defines the heap storage boundary: how a table's rows
// are appended, scanned, randomly fetched by row id, and deleted. memheap
// provides the only implementation shipped with this module; the
// interface exists so the executor and catalog never depend on memheap
// directly.
package storage

import (
	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
)

// RowID addresses one tuple within a single table's heap. Its encoding is
// private to the Heap implementation; callers only ever round-trip values
// they received from Insert, Scan, or an index lookup.
type RowID int64

// PageSize is the number of tuples a single heap page holds before a new
// page is allocated, mirroring the fixed-size-page storage layout this
// engine's cost model (costPerRowScan vs. costIndexSeek) assumes.
const PageSize = 1024

// RowIDColumn is the hidden column every Scan batch carries alongside a
// table's declared schema, giving the executor's Delete/Update operators
// a way to address the rows a predicate selected without re-deriving
// them from visible column values.
const RowIDColumn = "$rowid"

// Heap is the append/scan/fetch/delete contract a table's storage engine
// implements. Every method takes a *sql.Context so implementations can
// honor cancellation and read the active transaction id for MVCC
// visibility decisions.
type Heap interface {
	// Insert appends batch's rows as new live tuples, returning their
	// assigned RowIDs in row order.
	Insert(ctx *sql.Context, batch *kernel.RecordBatch) ([]RowID, error)
	// Scan streams every tuple visible to ctx's transaction, a page at a time.
	Scan(ctx *sql.Context) (kernel.BatchIter, error)
	// BitmapScan fetches exactly the named rows, in the order given,
	// padding an all-NULL row for any RowID no longer visible (already
	// vacuumed or deleted) rather than erroring.
	BitmapScan(ctx *sql.Context, rowIDs []RowID) (*kernel.RecordBatch, error)
	// Delete marks rowIDs as no longer visible to transactions that start
	// after ctx's.
	Delete(ctx *sql.Context, rowIDs []RowID) error
	// Pages reports the current page count, consulted by the cost model.
	Pages() int
	// Schema returns the heap's fixed row shape.
	Schema() sql.Schema
}
