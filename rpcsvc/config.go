// Package rpcsvc defines the coordinator/worker RPC boundary named in
// §6: the method shapes (Statement, Query, Check), the request/response
// structs they exchange, and the translation from this engine's error
// taxonomy into gRPC status codes. No transport is shipped here -- no
// generated client/server stubs, no listener -- matching the transport
// itself being called out of scope.
package rpcsvc

import (
	"fmt"
	"os"
	"strconv"
)

// Topology is the cluster shape a coordinator or worker process reads
// from its environment at startup: which port to listen on, how many
// workers exist and where to reach them, and (for a worker) which of
// those workers it is.
type Topology struct {
	CoordinatorPort int
	CoordinatorURL  string
	WorkerCount     int
	WorkerID        int
	WorkerPort      int
	WorkerURLs      []string
}

// LoadTopology reads COORDINATOR_PORT, WORKER_COUNT, WORKER_ID,
// WORKER_PORT, WORKER_0..WORKER_{N-1}, and COORDINATOR from the
// process environment, per §6. Every field defaults to its zero value
// when unset; nothing in the core engine consults Topology, so an
// embedder running single-node (as enginetest does) never needs to set
// any of these.
func LoadTopology() (Topology, error) {
	var t Topology
	var err error
	if t.CoordinatorPort, err = envInt("COORDINATOR_PORT", 0); err != nil {
		return t, err
	}
	if t.WorkerCount, err = envInt("WORKER_COUNT", 0); err != nil {
		return t, err
	}
	if t.WorkerID, err = envInt("WORKER_ID", 0); err != nil {
		return t, err
	}
	if t.WorkerPort, err = envInt("WORKER_PORT", 0); err != nil {
		return t, err
	}
	t.CoordinatorURL = os.Getenv("COORDINATOR")
	t.WorkerURLs = make([]string, t.WorkerCount)
	for i := 0; i < t.WorkerCount; i++ {
		t.WorkerURLs[i] = os.Getenv(fmt.Sprintf("WORKER_%d", i))
	}
	return t, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("rpcsvc: %s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}
