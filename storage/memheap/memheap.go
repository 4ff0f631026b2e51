// Package memheap is an in-memory storage.Heap, holding every page as a
// RecordBatch in process memory. It exists as the reference
// implementation the executor and catalog are built and tested against;
// a durable heap would satisfy the same storage.Heap contract.
package memheap

import (
	"sync"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
	"github.com/quilldb/quill/storage"
)

// page holds one fixed-capacity slab of tuples alongside the MVCC
// visibility columns the spec calls $xmin/$xmax: the transaction that
// created the tuple and the transaction that deleted it (0 meaning "not
// yet deleted").
type page struct {
	batch *kernel.RecordBatch
	xmin  []int64
	xmax  []int64
}

func (p *page) numRows() int {
	if p.batch == nil {
		return 0
	}
	return p.batch.NumRows()
}

// Heap is the in-memory storage.Heap implementation. A tuple's RowID is
// pageIndex*storage.PageSize + offsetWithinPage: pages fill to capacity
// before a new one is started and are never compacted, so this is a
// stable, directly invertible addressing scheme with no separate
// allocation counter to keep in sync.
type Heap struct {
	mu     sync.RWMutex
	schema sql.Schema
	pages  []*page
}

var _ storage.Heap = (*Heap)(nil)

// New returns an empty heap for the given row shape.
func New(schema sql.Schema) *Heap {
	return &Heap{schema: schema}
}

func (h *Heap) Schema() sql.Schema { return h.schema }

func (h *Heap) Pages() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.pages)
}

func locate(id storage.RowID) (pageIdx, offset int) {
	return int(id) / storage.PageSize, int(id) % storage.PageSize
}

// Insert appends batch's rows to the tail page, starting a fresh page
// whenever the tail would exceed storage.PageSize.
func (h *Heap) Insert(ctx *sql.Context, batch *kernel.RecordBatch) ([]storage.RowID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]storage.RowID, 0, batch.NumRows())
	offset := 0
	for offset < batch.NumRows() {
		pageIdx := h.tailPageIndex()
		p := h.pages[pageIdx]
		room := storage.PageSize - p.numRows()
		n := batch.NumRows() - offset
		if n > room {
			n = room
		}
		chunk := batch.Slice(offset, offset+n)
		base := p.numRows()
		p.batch = appendBatch(p.batch, chunk, h.schema)
		for i := 0; i < n; i++ {
			p.xmin = append(p.xmin, ctx.TxnID)
			p.xmax = append(p.xmax, 0)
			ids = append(ids, storage.RowID(pageIdx*storage.PageSize+base+i))
		}
		offset += n
	}
	return ids, nil
}

func (h *Heap) tailPageIndex() int {
	if len(h.pages) == 0 || h.pages[len(h.pages)-1].numRows() >= storage.PageSize {
		h.pages = append(h.pages, &page{})
	}
	return len(h.pages) - 1
}

func appendBatch(dst *kernel.RecordBatch, src *kernel.RecordBatch, schema sql.Schema) *kernel.RecordBatch {
	if dst == nil {
		cols := make([]kernel.Column, len(schema))
		for i, c := range schema {
			cols[i] = kernel.Column{Name: c.Name, Array: src.Columns[i].Array.NewEmpty(0)}
		}
		dst = kernel.NewRecordBatch(cols)
	}
	return kernel.Cat([]*kernel.RecordBatch{dst, src})
}

// Scan returns every live tuple (xmax == 0), a page at a time, each batch
// carrying the hidden RowIDColumn.
func (h *Heap) Scan(ctx *sql.Context) (kernel.BatchIter, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	pages := append([]*page{}, h.pages...)
	return &scanIter{ctx: ctx, pages: pages}, nil
}

type scanIter struct {
	ctx   *sql.Context
	pages []*page
	idx   int
}

func (it *scanIter) Next() (*kernel.RecordBatch, error) {
	for it.idx < len(it.pages) {
		pageIdx := it.idx
		p := it.pages[pageIdx]
		it.idx++
		if err := it.ctx.Err(); err != nil {
			return nil, err
		}
		indices := make([]int, 0, p.numRows())
		for i, xmax := range p.xmax {
			if xmax == 0 {
				indices = append(indices, i)
			}
		}
		if len(indices) == 0 {
			continue
		}
		out := p.batch.Gather(indices)
		rowids := kernel.NewI64Array(len(indices))
		for _, i := range indices {
			rowids.Push(int64(pageIdx*storage.PageSize+i), true)
		}
		out.Columns = append(out.Columns, kernel.Column{Name: storage.RowIDColumn, Array: rowids})
		return out, nil
	}
	return nil, kernel.ErrDone
}

func (it *scanIter) Close() error { return nil }

// BitmapScan fetches exactly the rows named by rowIDs, padding an
// all-NULL row for any id that no longer resolves to a live tuple. The
// returned batch carries the hidden RowIDColumn the same way Scan's
// does, so a Delete/Update fed by an IndexScan can still locate the
// rows it touched.
func (h *Heap) BitmapScan(ctx *sql.Context, rowIDs []storage.RowID) (*kernel.RecordBatch, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cols := make([]kernel.Column, len(h.schema))
	for i, c := range h.schema {
		var base kernel.AnyArray
		for _, p := range h.pages {
			if p.batch != nil {
				base = p.batch.Columns[i].Array
				break
			}
		}
		if base == nil {
			base = kernel.NewArray(c.Type, 0)
		}
		cols[i] = kernel.Column{Name: c.Name, Array: base.NewEmpty(len(rowIDs))}
	}
	out := kernel.NewRecordBatch(cols)
	rowids := kernel.NewI64Array(len(rowIDs))
	for _, id := range rowIDs {
		pageIdx, offset := locate(id)
		live := pageIdx < len(h.pages) && offset < h.pages[pageIdx].numRows() && h.pages[pageIdx].xmax[offset] == 0
		if !live {
			for i := range out.Columns {
				out.Columns[i].Array.AppendNull()
			}
			rowids.AppendNull()
			continue
		}
		src := h.pages[pageIdx].batch
		for i := range out.Columns {
			out.Columns[i].Array.AppendFrom(src.Columns[i].Array, offset)
		}
		rowids.Push(int64(id), true)
	}
	out.Columns = append(out.Columns, kernel.Column{Name: storage.RowIDColumn, Array: rowids})
	return out, nil
}

// Delete marks rowIDs' xmax, hiding them from future Scan/BitmapScan calls.
func (h *Heap) Delete(ctx *sql.Context, rowIDs []storage.RowID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	// xmax 0 marks a live tuple, so a context with no transaction id
	// (TxnID 0) records -1 instead.
	xmax := ctx.TxnID
	if xmax == 0 {
		xmax = -1
	}
	for _, id := range rowIDs {
		pageIdx, offset := locate(id)
		if pageIdx < len(h.pages) && offset < h.pages[pageIdx].numRows() {
			h.pages[pageIdx].xmax[offset] = xmax
		}
	}
	return nil
}
