package mpicomm

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Cluster simulates a fixed-size group of MPI ranks within a single
// process, using one goroutine per rank to run a collective operation.
// It exists so that THE CORE's collective operations (CoarseMesh.Commit,
// ghost.Create) can be exercised by tests and single-binary demos without
// an actual MPI runtime; per spec §5, a size-1 communicator (mpicomm.World)
// is an equally valid test harness for code that doesn't care about
// multi-rank behavior.
type Cluster struct {
	size int
}

// NewCluster creates a simulated cluster of the given size. size must be
// at least 1.
func NewCluster(size int) *Cluster {
	if size < 1 {
		panic("mpicomm: cluster size must be at least 1")
	}
	return &Cluster{size: size}
}

// Size returns the number of simulated ranks.
func (c *Cluster) Size() int { return c.size }

// Comm returns the communicator handle for the given rank, bound to the
// cluster's current (un-duped) group.
func (c *Cluster) Comm(rank int) Comm {
	if rank < 0 || rank >= c.size {
		panic(fmt.Sprintf("mpicomm: rank %d out of range [0,%d)", rank, c.size))
	}
	return &clusterComm{size: c.size, rank: rank}
}

// Run invokes fn once per rank concurrently, as a single collective
// operation: if any invocation returns an error, Run returns the first
// such error (via errgroup.Group) once every goroutine has finished.
func (c *Cluster) Run(fn func(rank int, comm Comm) error) error {
	var g errgroup.Group
	for r := 0; r < c.size; r++ {
		rank := r
		comm := c.Comm(rank)
		g.Go(func() error {
			return fn(rank, comm)
		})
	}
	return g.Wait()
}

type clusterComm struct {
	size int
	rank int

	mu    sync.Mutex
	freed bool
}

func (c *clusterComm) Dup() (Comm, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freed {
		return nil, ErrNull
	}
	return &clusterComm{size: c.size, rank: c.rank}, nil
}

func (c *clusterComm) Size() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freed {
		return 0, ErrNull
	}
	return c.size, nil
}

func (c *clusterComm) Rank() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freed {
		return 0, ErrNull
	}
	return c.rank, nil
}

func (c *clusterComm) Free() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freed {
		return ErrNull
	}
	c.freed = true
	return nil
}
