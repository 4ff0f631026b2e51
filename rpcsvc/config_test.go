package rpcsvc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadTopologyDefaultsToZeroValuesWhenUnset(t *testing.T) {
	topo, err := LoadTopology()
	require.NoError(t, err)
	require.Equal(t, 0, topo.CoordinatorPort)
	require.Equal(t, 0, topo.WorkerCount)
	require.Empty(t, topo.WorkerURLs)
}

func TestLoadTopologyReadsEnvironment(t *testing.T) {
	t.Setenv("COORDINATOR_PORT", "5432")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("WORKER_ID", "1")
	t.Setenv("WORKER_PORT", "9000")
	t.Setenv("COORDINATOR", "coord.local:5432")
	t.Setenv("WORKER_0", "worker0.local:9000")
	t.Setenv("WORKER_1", "worker1.local:9000")

	topo, err := LoadTopology()
	require.NoError(t, err)
	require.Equal(t, 5432, topo.CoordinatorPort)
	require.Equal(t, 2, topo.WorkerCount)
	require.Equal(t, 1, topo.WorkerID)
	require.Equal(t, 9000, topo.WorkerPort)
	require.Equal(t, "coord.local:5432", topo.CoordinatorURL)
	require.Equal(t, []string{"worker0.local:9000", "worker1.local:9000"}, topo.WorkerURLs)
}

func TestLoadTopologyRejectsNonIntegerEnvVar(t *testing.T) {
	t.Setenv("WORKER_COUNT", "not-a-number")
	_, err := LoadTopology()
	require.Error(t, err)
}
