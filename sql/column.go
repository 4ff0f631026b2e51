// Package sql holds the core data model shared by every other package in
// this module: column identities, schemas, the query Context, and the
// process-wide services (memory accounting, process list) every operator
// and rule consults instead of reaching for a singleton.
package sql

import (
	"fmt"
	"sync/atomic"

	"github.com/quilldb/quill/sql/kernel"
)

var nextColumnID int64

// ColumnID uniquely identifies a value site in a plan. Two Columns with
// the same ID refer to the same value even if they carry different
// display names (e.g. after an alias or a join-side rename). IDs are
// assigned once, at creation, by the resolver or the planner, and never
// mutated afterward.
type ColumnID int64

// NewColumnID mints a fresh, process-wide unique column identity.
func NewColumnID() ColumnID {
	return ColumnID(atomic.AddInt64(&nextColumnID, 1))
}

// Column is a named, typed handle identifying one value position in a
// plan tree.
type Column struct {
	ID     ColumnID
	Name   string
	Table  string // originating table name, empty if none (e.g. computed)
	Type   kernel.Type
	Nullable bool
}

func (c Column) String() string {
	if c.Table != "" {
		return fmt.Sprintf("%s.%s#%d", c.Table, c.Name, c.ID)
	}
	return fmt.Sprintf("%s#%d", c.Name, c.ID)
}

// WithName returns a copy of c under a new display name, preserving identity.
func (c Column) WithName(name string) Column {
	c.Name = name
	return c
}

// Schema is an ordered list of columns, describing a row shape.
type Schema []Column

// Names returns the display names of every column in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// IndexOf returns the position of the column with the given ID, or -1.
func (s Schema) IndexOf(id ColumnID) int {
	for i, c := range s {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// ColSet is a set of ColumnIDs, used for free-variable and attribute
// tracking across the plan tree (Expr.References / Expr.Attributes).
type ColSet map[ColumnID]struct{}

// NewColSet builds a ColSet from the given ids.
func NewColSet(ids ...ColumnID) ColSet {
	s := make(ColSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s ColSet) Add(id ColumnID) ColSet {
	if s == nil {
		s = ColSet{}
	}
	s[id] = struct{}{}
	return s
}

func (s ColSet) Contains(id ColumnID) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new set containing every id in s or other.
func (s ColSet) Union(other ColSet) ColSet {
	out := make(ColSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Subtract returns a new set containing every id in s not in other.
func (s ColSet) Subtract(other ColSet) ColSet {
	out := make(ColSet, len(s))
	for id := range s {
		if !other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Slice returns the set's members in unspecified order.
func (s ColSet) Slice() []ColumnID {
	out := make([]ColumnID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

func (s ColSet) Len() int { return len(s) }
