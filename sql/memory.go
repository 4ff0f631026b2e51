package sql

import "sync/atomic"

// MemoryManager tracks approximate memory consumed by in-flight queries
// (hash join build sides, group-by accumulator state, sort buffers) so an
// Engine can report pressure without plumbing a real allocator through
// every kernel primitive.
type MemoryManager struct {
	used  int64
	limit int64
}

// NewMemoryManager returns a manager that reports pressure once used
// bytes crosses limit. A limit of 0 means unbounded.
func NewMemoryManager(limit int64) *MemoryManager {
	return &MemoryManager{limit: limit}
}

// Grow records an additional delta bytes of consumption (delta may be
// negative, on release) and reports whether the manager is now over its
// configured limit.
func (m *MemoryManager) Grow(delta int64) (overLimit bool) {
	used := atomic.AddInt64(&m.used, delta)
	return m.limit > 0 && used > m.limit
}

// Used returns current tracked consumption.
func (m *MemoryManager) Used() int64 {
	return atomic.LoadInt64(&m.used)
}

// Limit returns the configured ceiling, or 0 if unbounded.
func (m *MemoryManager) Limit() int64 {
	return m.limit
}
