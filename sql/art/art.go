// Package art implements an Adaptive Radix Tree keyed by byte strings,
// mapping to int64 row ids. Node fan-out grows Leaf -> Node4 -> Node16 ->
// Node48 -> Node256 as a node accumulates children, following Leis et al.
// Operations are single-writer, multi-reader: every Tree method takes
// Tree.mu itself, the same way the storage package guards heaps.
package art

import "sync"

// Tree is one secondary index: a byte-trie mapping keys to row ids.
type Tree struct {
	mu   sync.RWMutex
	root *node
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// Insert associates key with value, returning the previous value stored
// at key, if any.
func (t *Tree) Insert(key []byte, value int64) (old int64, hadOld bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root, old, hadOld = insert(t.root, key, value)
	return old, hadOld
}

// Get returns the value stored at key, if any.
func (t *Tree) Get(key []byte) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return get(t.root, key)
}

// Remove deletes key, returning the value that was stored there, if any.
// Node shrinking is not performed; the vacated slot's space is simply
// left reserved, per the documented optional-shrink contract.
func (t *Tree) Remove(key []byte) (old int64, hadOld bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old, hadOld = remove(t.root, key)
	return old, hadOld
}

// Entry is one (key, value) pair returned by Range.
type Entry struct {
	Key   []byte
	Value int64
}

// BoundKind selects whether a Range endpoint is inclusive, exclusive, or absent.
type BoundKind uint8

const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound is one endpoint of a Range query.
type Bound struct {
	Key  []byte
	Kind BoundKind
}

// Range returns every stored entry whose key satisfies lower and upper,
// in ascending key order. IndexScan passes inclusive bounds built from
// encoded keys (equal bounds for a point lookup).
func (t *Tree) Range(lower, upper Bound) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Entry
	walk(t.root, nil, func(key []byte, value int64) {
		if !satisfiesLower(key, lower) || !satisfiesUpper(key, upper) {
			return
		}
		out = append(out, Entry{Key: append([]byte{}, key...), Value: value})
	})
	sortEntries(out)
	return out
}

func satisfiesLower(key []byte, b Bound) bool {
	switch b.Kind {
	case Unbounded:
		return true
	case Included:
		return compareBytes(key, b.Key) >= 0
	case Excluded:
		return compareBytes(key, b.Key) > 0
	default:
		return true
	}
}

func satisfiesUpper(key []byte, b Bound) bool {
	switch b.Kind {
	case Unbounded:
		return true
	case Included:
		return compareBytes(key, b.Key) <= 0
	case Excluded:
		return compareBytes(key, b.Key) < 0
	default:
		return true
	}
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func sortEntries(entries []Entry) {
	// insertion sort is adequate: Range result sets in this engine are
	// page-bounded lookups, not full-table dumps.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && compareBytes(entries[j-1].Key, entries[j].Key) > 0; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

// UpperBound returns the smallest byte string strictly greater than
// start, the exclusive end of a half-open prefix range [start,
// UpperBound(start)). IndexScan does not call it.
func UpperBound(start []byte) []byte {
	b := append([]byte{}, start...)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0xFF {
			b[i]++
			return b[:i+1]
		}
	}
	return append(b, 0x00)
}
