// Package catalog tracks table and secondary-index definitions, and
// serves as the memo package's Catalog: row count and selectivity
// estimates the optimizer consults when costing scans and filters.
package catalog

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/art"
	"github.com/quilldb/quill/storage"
)

// TableDef is one registered table: its name, its row shape, and its
// heap. Secondary indexes on it are tracked by the Catalog (see Indexes).
type TableDef struct {
	Name   string
	Schema sql.Schema
	Heap   storage.Heap
}

// IndexDef is one secondary index: the ordered columns it is keyed on
// and the ART tree backing it.
type IndexDef struct {
	Name    string
	Table   string
	Columns []sql.ColumnID
	Tree    *art.Tree
	Unique  bool
}

// TableStats holds the row-count and predicate-selectivity estimates the
// optimizer's cost model consults; a production catalog would refresh
// these via ANALYZE, sampling, or background maintenance, none of which
// this reference catalog implements.
type TableStats struct {
	RowCount         int64
	ColumnSelectivity map[string]float64 // predicate string -> selectivity, memoized on first estimate
}

// Catalog is the process-wide registry of tables and indexes.
type Catalog struct {
	mu      sync.RWMutex
	tables  map[string]*TableDef
	indexes map[string]map[string]*IndexDef
	stats   map[string]*TableStats

	// cache memoizes Table lookups the way the teacher's engine memoizes
	// resolved table handles across statements in the same session.
	cache *lru.Cache[string, *TableDef]
}

// New returns an empty catalog. cacheSize bounds the resolved-table
// lookup cache; 256 is a reasonable default for most workloads.
func New(cacheSize int) *Catalog {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	c, _ := lru.New[string, *TableDef](cacheSize)
	return &Catalog{
		tables:  map[string]*TableDef{},
		indexes: map[string]map[string]*IndexDef{},
		stats:   map[string]*TableStats{},
		cache:   c,
	}
}

// CreateTable registers a new table backed by heap.
func (c *Catalog) CreateTable(name string, schema sql.Schema, heap storage.Heap) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[name]; ok {
		return fmt.Errorf("catalog: table already exists: %s", name)
	}
	c.tables[name] = &TableDef{Name: name, Schema: schema, Heap: heap}
	c.indexes[name] = map[string]*IndexDef{}
	c.stats[name] = &TableStats{ColumnSelectivity: map[string]float64{}}
	return nil
}

// DropTable removes a table and every index built on it.
func (c *Catalog) DropTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[name]; !ok {
		return sql.ErrTableNotFound.New(name)
	}
	delete(c.tables, name)
	delete(c.indexes, name)
	delete(c.stats, name)
	c.cache.Remove(name)
	return nil
}

// Table resolves name to its definition, consulting the lookup cache first.
func (c *Catalog) Table(name string) (*TableDef, error) {
	if t, ok := c.cache.Get(name); ok {
		return t, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	if !ok {
		return nil, sql.ErrTableNotFound.New(name)
	}
	c.cache.Add(name, t)
	return t, nil
}

// CreateIndex registers a secondary index on table, keyed on cols.
func (c *Catalog) CreateIndex(table, name string, cols []sql.ColumnID, unique bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[table]; !ok {
		return sql.ErrTableNotFound.New(table)
	}
	idxs := c.indexes[table]
	if _, ok := idxs[name]; ok {
		return fmt.Errorf("catalog: index already exists: %s.%s", table, name)
	}
	idxs[name] = &IndexDef{Name: name, Table: table, Columns: cols, Tree: art.New(), Unique: unique}
	return nil
}

// DropIndex removes a single named index from table.
func (c *Catalog) DropIndex(table, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idxs, ok := c.indexes[table]
	if !ok {
		return sql.ErrTableNotFound.New(table)
	}
	if _, ok := idxs[name]; !ok {
		return sql.ErrIndexNotFound.New(name)
	}
	delete(idxs, name)
	return nil
}

// Tables lists every registered table name, used to resolve a DROP
// statement naming an index without specifying its owning table.
func (c *Catalog) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tables))
	for name := range c.tables {
		out = append(out, name)
	}
	return out
}

// Index resolves table's secondary index by name.
func (c *Catalog) Index(table, name string) (*IndexDef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idxs, ok := c.indexes[table]
	if !ok {
		return nil, sql.ErrTableNotFound.New(table)
	}
	idx, ok := idxs[name]
	if !ok {
		return nil, sql.ErrIndexNotFound.New(name)
	}
	return idx, nil
}

// Indexes lists the index names defined on table, used to populate a
// LogicalGet's IndexHints when the resolver builds the plan tree.
func (c *Catalog) Indexes(table string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idxs := c.indexes[table]
	out := make([]string, 0, len(idxs))
	for name := range idxs {
		out = append(out, name)
	}
	return out
}

// RowCount implements memo.Catalog, estimating a table's cardinality
// from either maintained stats or the heap's live page count.
func (c *Catalog) RowCount(table string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if st, ok := c.stats[table]; ok && st.RowCount > 0 {
		return st.RowCount
	}
	if t, ok := c.tables[table]; ok {
		return int64(t.Heap.Pages()) * int64(storage.PageSize)
	}
	return 0
}

// Selectivity implements memo.Catalog. This reference catalog has no
// histogram or sampled stats, so every predicate shares the memo
// package's default selectivity constant unless UpdateSelectivity has
// recorded an observed value for this exact predicate string.
func (c *Catalog) Selectivity(table, predicate string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if st, ok := c.stats[table]; ok {
		if s, ok := st.ColumnSelectivity[predicate]; ok {
			return s
		}
	}
	return 0.3
}

// UpdateStats overwrites table's row-count estimate, the hook an ANALYZE
// statement or background maintenance task would call.
func (c *Catalog) UpdateStats(table string, rowCount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.stats[table]; ok {
		st.RowCount = rowCount
	}
}

// UpdateSelectivity records an observed selectivity for a specific
// predicate string, consulted by future Selectivity calls.
func (c *Catalog) UpdateSelectivity(table, predicate string, selectivity float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.stats[table]; ok {
		st.ColumnSelectivity[predicate] = selectivity
	}
}
