package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryManagerUnboundedNeverReportsOverLimit(t *testing.T) {
	m := NewMemoryManager(0)
	require.False(t, m.Grow(1<<40))
	require.Equal(t, int64(1<<40), m.Used())
	require.Equal(t, int64(0), m.Limit())
}

func TestMemoryManagerGrowReportsOverLimitOnceCrossed(t *testing.T) {
	m := NewMemoryManager(100)
	require.False(t, m.Grow(60))
	require.True(t, m.Grow(60))
	require.Equal(t, int64(120), m.Used())
}

func TestMemoryManagerGrowNegativeDeltaReleases(t *testing.T) {
	m := NewMemoryManager(100)
	require.True(t, m.Grow(150))
	require.False(t, m.Grow(-100))
	require.Equal(t, int64(50), m.Used())
}
